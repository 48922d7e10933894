package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchedule_RoundingExample(t *testing.T) {
	plan, err := GenerateSchedule(ScheduleTerms{
		TotalPrice:  m(10_300_000),
		DownPayment: m(300_000),
		Term:        7,
		PayDay:      15,
		StartDate:   contractDay,
	})
	require.NoError(t, err)

	require.Len(t, plan.Lines, 8)
	assert.True(t, m(1_400_000).Equal(plan.Nominal))
	assert.True(t, m(10_000_000).Equal(plan.Residual))
	assert.True(t, plan.Debt)
	assert.False(t, plan.Completed)

	initial := plan.Lines[0]
	assert.Equal(t, 0, initial.Month)
	assert.True(t, m(300_000).Equal(initial.AmountPaid))
	assert.True(t, initial.Qoldiq.IsZero())
	require.NotNil(t, initial.PayDate)

	for i := 1; i <= 6; i++ {
		assert.True(t, m(1_400_000).Equal(plan.Lines[i].Amount), "месяц %d", i)
	}
	assert.True(t, m(1_600_000).Equal(plan.Lines[7].Amount))

	assert.Equal(t, time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC), plan.Lines[1].Date)
	assert.Equal(t, time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC), plan.Lines[7].Date)
}

func TestGenerateSchedule_FullPayment(t *testing.T) {
	plan, err := GenerateSchedule(ScheduleTerms{
		TotalPrice:  m(5_000_000),
		DownPayment: m(5_000_000),
		Term:        12,
		PayDay:      15,
		StartDate:   contractDay,
	})
	require.NoError(t, err)

	require.Len(t, plan.Lines, 1)
	assert.True(t, plan.Completed)
	assert.Equal(t, 0, plan.Term)
	assert.False(t, plan.Debt)
	assert.True(t, plan.Residual.IsZero())
	assert.True(t, plan.Lines[0].Qoldiq.IsZero())
}

func TestGenerateSchedule_PayDayAfterStart(t *testing.T) {
	start := time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC)
	plan, err := GenerateSchedule(ScheduleTerms{
		TotalPrice:  m(3_000_000),
		DownPayment: m(0),
		Term:        2,
		PayDay:      31,
		StartDate:   start,
	})
	require.NoError(t, err)

	// 31 число в январе еще впереди, в феврале сдвигается на последний день
	assert.Equal(t, time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC), plan.Lines[1].Date)
	assert.Equal(t, time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC), plan.Lines[2].Date)

	// без первоначального взноса строка месяца 0 нулевая и без даты оплаты
	assert.True(t, plan.Lines[0].Amount.IsZero())
	assert.Nil(t, plan.Lines[0].PayDate)
}

func TestGenerateSchedule_SmallBalanceGoesToLastLine(t *testing.T) {
	plan, err := GenerateSchedule(ScheduleTerms{
		TotalPrice:  m(250_000),
		DownPayment: m(0),
		Term:        3,
		PayDay:      15,
		StartDate:   contractDay,
	})
	require.NoError(t, err)

	assert.True(t, plan.Nominal.IsZero())
	assert.True(t, plan.Lines[1].Amount.IsZero())
	assert.True(t, plan.Lines[2].Amount.IsZero())
	assert.True(t, m(250_000).Equal(plan.Lines[3].Amount))
}

func TestGenerateSchedule_Rejects(t *testing.T) {
	base := ScheduleTerms{TotalPrice: m(1_000_000), DownPayment: m(100_000), Term: 5, PayDay: 15, StartDate: contractDay}

	tests := []struct {
		name   string
		modify func(*ScheduleTerms)
		want   error
	}{
		{"нулевая цена", func(t *ScheduleTerms) { t.TotalPrice = m(0) }, ErrInvalidPrice},
		{"отрицательный взнос", func(t *ScheduleTerms) { t.DownPayment = m(-1) }, ErrInvalidAmount},
		{"взнос больше цены", func(t *ScheduleTerms) { t.DownPayment = m(2_000_000) }, ErrInvalidAmount},
		{"день 0", func(t *ScheduleTerms) { t.PayDay = 0 }, ErrInvalidPayDay},
		{"день 32", func(t *ScheduleTerms) { t.PayDay = 32 }, ErrInvalidPayDay},
		{"срок больше 120", func(t *ScheduleTerms) { t.Term = 121 }, ErrInvalidRange},
		{"нулевой срок без полной оплаты", func(t *ScheduleTerms) { t.Term = 0 }, ErrZeroTermPartialPayment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terms := base
			tt.modify(&terms)
			_, err := GenerateSchedule(terms)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestErrorKinds(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(ErrInvalidAmount.With("другое сообщение")))
	assert.Equal(t, KindState, KindOf(ErrBelowPaidFloor))
	assert.Equal(t, KindUnavailable, KindOf(ErrUnitUnavailable))
	assert.Equal(t, KindArithmetic, KindOf(ErrNegativeResidual))
	assert.Equal(t, KindTransient, KindOf(assert.AnError))
	assert.ErrorIs(t, transient(assert.AnError), ErrTransient)
}
