package services

import (
	"time"

	"github.com/shopspring/decimal"

	"qurilish/models"
	"qurilish/utils"
)

// MaxTermMonths максимальный срок рассрочки
const MaxTermMonths = 120

// DefaultPayDay день платежа по умолчанию
const DefaultPayDay = 15

// ScheduleTerms условия договора для построения графика
type ScheduleTerms struct {
	TotalPrice  decimal.Decimal
	DownPayment decimal.Decimal
	Term        int
	PayDay      int
	StartDate   time.Time
}

// SchedulePlan результат построения графика
type SchedulePlan struct {
	Lines    []models.ScheduleLine
	Nominal  decimal.Decimal
	Residual decimal.Decimal
	Term     int
	Debt     bool
	// Completed договор оплачен сразу при оформлении
	Completed bool
}

// GenerateSchedule строит график платежей по условиям договора.
// Строка месяца 0 всегда содержит первоначальный взнос и сразу оплачена,
// ежемесячные платежи округляются вниз до 100 000, остаток уходит в последний месяц.
func GenerateSchedule(t ScheduleTerms) (*SchedulePlan, error) {
	if !t.TotalPrice.IsPositive() {
		return nil, ErrInvalidPrice
	}
	if t.DownPayment.IsNegative() {
		return nil, ErrInvalidAmount.With("первоначальный взнос не может быть отрицательным")
	}
	if t.DownPayment.GreaterThan(t.TotalPrice) {
		return nil, ErrInvalidAmount.With("первоначальный взнос больше стоимости квартиры")
	}
	if t.PayDay < 1 || t.PayDay > 31 {
		return nil, ErrInvalidPayDay
	}
	if t.Term < 0 || t.Term > MaxTermMonths {
		return nil, ErrInvalidRange.With("срок рассрочки должен быть от 0 до %d месяцев", MaxTermMonths)
	}

	start := t.StartDate
	if start.IsZero() {
		start = time.Now()
	}
	paidAt := start

	// Полная оплата сразу
	if t.DownPayment.Equal(t.TotalPrice) {
		line := models.ScheduleLine{
			Month:      0,
			Amount:     t.TotalPrice,
			AmountPaid: t.TotalPrice,
			Date:       start,
			PayDate:    &paidAt,
		}
		line.Recalc()
		return &SchedulePlan{
			Lines:     []models.ScheduleLine{line},
			Nominal:   decimal.Zero,
			Residual:  decimal.Zero,
			Term:      0,
			Debt:      false,
			Completed: true,
		}, nil
	}

	if t.Term == 0 {
		return nil, ErrZeroTermPartialPayment
	}

	residual := t.TotalPrice.Sub(t.DownPayment)
	nominal, shares := utils.Split(residual, t.Term)

	lines := make([]models.ScheduleLine, 0, t.Term+1)

	initial := models.ScheduleLine{
		Month:      0,
		Amount:     t.DownPayment,
		AmountPaid: t.DownPayment,
		Date:       start,
	}
	if t.DownPayment.IsPositive() {
		initial.PayDate = &paidAt
	}
	initial.Recalc()
	lines = append(lines, initial)

	first := utils.FirstDueDate(start, t.PayDay)
	for i, share := range shares {
		line := models.ScheduleLine{
			Month:      i + 1,
			Amount:     share,
			AmountPaid: decimal.Zero,
			Date:       utils.AddMonthsClamped(first, i, t.PayDay),
		}
		line.Recalc()
		lines = append(lines, line)
	}

	plan := &SchedulePlan{
		Lines:    lines,
		Nominal:  nominal,
		Residual: residual,
		Term:     t.Term,
		Debt:     residual.IsPositive(),
	}
	if !residual.IsPositive() {
		plan.Residual = decimal.Zero
		plan.Debt = false
		plan.Completed = true
	}

	return plan, nil
}
