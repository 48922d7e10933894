package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"qurilish/models"
)

var expenseNow = time.Date(2025, time.March, 20, 15, 0, 0, 0, time.UTC)

func newExpenseService(t *testing.T) (*ExpenseService, *testEnv) {
	t.Helper()

	env := newTestEnv(t)
	svc := NewExpenseService(env.db, zap.NewNop())
	svc.now = func() time.Time { return expenseNow }
	return svc, env
}

func TestExpenseService_CreateDefaultsAndValidation(t *testing.T) {
	svc, env := newExpenseService(t)
	ctx := context.Background()

	expenseType, err := svc.CreateExpenseType(ctx, ExpenseTypeRequest{Name: "Sement"})
	require.NoError(t, err)

	expense, err := svc.CreateExpense(ctx, ExpenseRequest{
		ExpenseTypeID: expenseType.ID,
		BuildingID:    &env.building.ID,
		Amount:        m(1_250_000),
		Description:   "  50 qop  ",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentTypeCash, expense.PaymentType)
	assert.Equal(t, "50 qop", expense.Description)
	require.NotNil(t, expense.BuildingID)
	assert.Equal(t, env.building.ID, *expense.BuildingID)

	_, err = svc.CreateExpense(ctx, ExpenseRequest{ExpenseTypeID: expenseType.ID, Amount: m(0)})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.CreateExpense(ctx, ExpenseRequest{ExpenseTypeID: expenseType.ID, Amount: m(10), PaymentType: "Kripto"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateExpense(ctx, ExpenseRequest{ExpenseTypeID: 999, Amount: m(10)})
	assert.ErrorIs(t, err, ErrNotFound)

	missing := uint(999)
	_, err = svc.CreateExpense(ctx, ExpenseRequest{ExpenseTypeID: expenseType.ID, BuildingID: &missing, Amount: m(10)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpenseService_UpdateAndDelete(t *testing.T) {
	svc, _ := newExpenseService(t)
	ctx := context.Background()

	cement, err := svc.CreateExpenseType(ctx, ExpenseTypeRequest{Name: "Sement"})
	require.NoError(t, err)
	salary, err := svc.CreateExpenseType(ctx, ExpenseTypeRequest{Name: "Ish haqi"})
	require.NoError(t, err)

	expense, err := svc.CreateExpense(ctx, ExpenseRequest{ExpenseTypeID: cement.ID, Amount: m(500)})
	require.NoError(t, err)

	updated, err := svc.UpdateExpense(ctx, expense.ID, ExpenseRequest{
		ExpenseTypeID: salary.ID,
		Amount:        m(700),
		PaymentType:   models.PaymentTypeCard,
	})
	require.NoError(t, err)
	assert.Equal(t, salary.ID, updated.ExpenseTypeID)
	assert.True(t, m(700).Equal(updated.Amount))

	got, err := svc.GetExpense(ctx, expense.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ExpenseType)
	assert.Equal(t, "Ish haqi", got.ExpenseType.Name)

	// вид расхода с расходами удалить нельзя
	assert.ErrorIs(t, svc.DeleteExpenseType(ctx, salary.ID), ErrHasDependents)
	require.NoError(t, svc.DeleteExpenseType(ctx, cement.ID))

	require.NoError(t, svc.DeleteExpense(ctx, expense.ID))
	assert.ErrorIs(t, svc.DeleteExpense(ctx, expense.ID), ErrNotFound)
	require.NoError(t, svc.DeleteExpenseType(ctx, salary.ID))
}

func TestExpenseService_ListFilters(t *testing.T) {
	svc, env := newExpenseService(t)
	ctx := context.Background()

	cement, err := svc.CreateExpenseType(ctx, ExpenseTypeRequest{Name: "Sement"})
	require.NoError(t, err)
	salary, err := svc.CreateExpenseType(ctx, ExpenseTypeRequest{Name: "Ish haqi"})
	require.NoError(t, err)

	_, err = svc.CreateExpense(ctx, ExpenseRequest{ExpenseTypeID: cement.ID, BuildingID: &env.building.ID, Amount: m(100)})
	require.NoError(t, err)
	_, err = svc.CreateExpense(ctx, ExpenseRequest{ExpenseTypeID: salary.ID, Amount: m(200)})
	require.NoError(t, err)

	all, err := svc.ListExpenses(ctx, ExpenseFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byType, err := svc.ListExpenses(ctx, ExpenseFilter{ExpenseTypeID: salary.ID})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.True(t, m(200).Equal(byType[0].Amount))

	byBuilding, err := svc.ListExpenses(ctx, ExpenseFilter{BuildingID: env.building.ID})
	require.NoError(t, err)
	require.Len(t, byBuilding, 1)
	require.NotNil(t, byBuilding[0].Building)
	assert.Equal(t, env.building.Name, byBuilding[0].Building.Name)
}

func TestExpenseService_Summary(t *testing.T) {
	svc, env := newExpenseService(t)
	ctx := context.Background()

	expenseType := &models.ExpenseType{Name: "Sement"}
	require.NoError(t, env.db.Create(expenseType).Error)

	for _, e := range []struct {
		amount int64
		at     time.Time
	}{
		{100, expenseNow.Add(-time.Hour)},   // сегодня
		{200, expenseNow.AddDate(0, 0, -5)}, // в этом месяце
		{400, expenseNow.AddDate(0, -1, 0)}, // в прошлом месяце
		{800, expenseNow.AddDate(-1, 0, 0)}, // в прошлом году
	} {
		require.NoError(t, env.db.Create(&models.Expense{
			ExpenseTypeID: expenseType.ID,
			Amount:        m(e.amount),
			PaymentType:   models.PaymentTypeCash,
			CreatedAt:     e.at,
		}).Error)
	}

	summary, err := svc.Summary(ctx, ExpenseFilter{})
	require.NoError(t, err)
	assert.True(t, m(100).Equal(summary.DailyTotal), summary.DailyTotal.String())
	assert.True(t, m(300).Equal(summary.MonthlyTotal), summary.MonthlyTotal.String())
	assert.True(t, m(1500).Equal(summary.Total), summary.Total.String())

	empty, err := svc.Summary(ctx, ExpenseFilter{ExpenseTypeID: 999})
	require.NoError(t, err)
	assert.True(t, empty.Total.IsZero())
}
