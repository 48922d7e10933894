package services

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"qurilish/models"
	"qurilish/utils"
)

// ExpenseTypeRequest вид расхода
type ExpenseTypeRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// ExpenseRequest запрос на добавление или изменение расхода
type ExpenseRequest struct {
	ExpenseTypeID uint               `json:"expense_type" validate:"required"`
	BuildingID    *uint              `json:"building"`
	Amount        decimal.Decimal    `json:"amount"`
	Description   string             `json:"description"`
	PaymentType   models.PaymentType `json:"payment_type"`
}

// ExpenseFilter фильтр списка расходов
type ExpenseFilter struct {
	ExpenseTypeID uint
	BuildingID    uint
}

// ExpenseSummary итоги расходов
type ExpenseSummary struct {
	DailyTotal   decimal.Decimal `json:"daily_total"`
	MonthlyTotal decimal.Decimal `json:"monthly_total"`
	Total        decimal.Decimal `json:"total_expenses"`
}

// ExpenseService управляет расходами компании
type ExpenseService struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

// NewExpenseService создает новый экземпляр ExpenseService
func NewExpenseService(db *gorm.DB, log *zap.Logger) *ExpenseService {
	return &ExpenseService{db: db, log: log.Named("expense"), now: time.Now}
}

// ListExpenseTypes возвращает все виды расходов
func (s *ExpenseService) ListExpenseTypes(ctx context.Context) ([]models.ExpenseType, error) {
	var types []models.ExpenseType
	if err := s.db.WithContext(ctx).Order("name").Find(&types).Error; err != nil {
		return nil, transient(err)
	}
	return types, nil
}

// CreateExpenseType добавляет вид расхода
func (s *ExpenseService) CreateExpenseType(ctx context.Context, req ExpenseTypeRequest) (*models.ExpenseType, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrValidation.With("название вида расхода не указано")
	}

	expenseType := &models.ExpenseType{Name: name}
	if err := s.db.WithContext(ctx).Create(expenseType).Error; err != nil {
		return nil, transient(err)
	}
	return expenseType, nil
}

// UpdateExpenseType переименовывает вид расхода
func (s *ExpenseService) UpdateExpenseType(ctx context.Context, id uint, req ExpenseTypeRequest) (*models.ExpenseType, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrValidation.With("название вида расхода не указано")
	}

	var expenseType models.ExpenseType
	if err := s.db.WithContext(ctx).First(&expenseType, id).Error; err != nil {
		return nil, notFound(err, ErrNotFound.With("вид расхода не найден"))
	}

	expenseType.Name = name
	if err := s.db.WithContext(ctx).Save(&expenseType).Error; err != nil {
		return nil, transient(err)
	}
	return &expenseType, nil
}

// DeleteExpenseType удаляет вид расхода, если по нему нет расходов
func (s *ExpenseService) DeleteExpenseType(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var expenseType models.ExpenseType
		if err := tx.First(&expenseType, id).Error; err != nil {
			return notFound(err, ErrNotFound.With("вид расхода не найден"))
		}

		var used int64
		if err := tx.Model(&models.Expense{}).Where("expense_type_id = ?", id).Count(&used).Error; err != nil {
			return transient(err)
		}
		if used > 0 {
			return ErrHasDependents.With("по виду %q есть расходы, перенесите их перед удалением", expenseType.Name)
		}

		if err := tx.Delete(&expenseType).Error; err != nil {
			return transient(err)
		}
		return nil
	})
}

func (s *ExpenseService) filtered(ctx context.Context, f ExpenseFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Expense{})
	if f.ExpenseTypeID > 0 {
		q = q.Where("expense_type_id = ?", f.ExpenseTypeID)
	}
	if f.BuildingID > 0 {
		q = q.Where("building_id = ?", f.BuildingID)
	}
	return q
}

// ListExpenses возвращает расходы, новые первыми
func (s *ExpenseService) ListExpenses(ctx context.Context, f ExpenseFilter) ([]models.Expense, error) {
	var expenses []models.Expense
	err := s.filtered(ctx, f).
		Preload("ExpenseType").
		Preload("Building").
		Order("created_at DESC, id DESC").
		Find(&expenses).Error
	if err != nil {
		return nil, transient(err)
	}
	return expenses, nil
}

// GetExpense возвращает расход
func (s *ExpenseService) GetExpense(ctx context.Context, id uint) (*models.Expense, error) {
	var expense models.Expense
	if err := s.db.WithContext(ctx).Preload("ExpenseType").Preload("Building").First(&expense, id).Error; err != nil {
		return nil, notFound(err, ErrNotFound.With("расход не найден"))
	}
	return &expense, nil
}

// CreateExpense добавляет расход
func (s *ExpenseService) CreateExpense(ctx context.Context, req ExpenseRequest) (*models.Expense, error) {
	start := time.Now()
	expense := &models.Expense{}
	if err := s.fillExpense(ctx, expense, req); err != nil {
		utils.LogOperation(s.log, "create_expense", start, err)
		return nil, err
	}

	err := s.db.WithContext(ctx).Create(expense).Error
	utils.LogOperation(s.log, "create_expense", start, err)
	if err != nil {
		return nil, transient(err)
	}
	return expense, nil
}

// UpdateExpense меняет расход
func (s *ExpenseService) UpdateExpense(ctx context.Context, id uint, req ExpenseRequest) (*models.Expense, error) {
	var expense models.Expense
	if err := s.db.WithContext(ctx).First(&expense, id).Error; err != nil {
		return nil, notFound(err, ErrNotFound.With("расход не найден"))
	}

	if err := s.fillExpense(ctx, &expense, req); err != nil {
		return nil, err
	}
	// связи могли поменяться, сохраняем только колонки
	expense.ExpenseType = nil
	expense.Building = nil
	if err := s.db.WithContext(ctx).Save(&expense).Error; err != nil {
		return nil, transient(err)
	}
	return &expense, nil
}

func (s *ExpenseService) fillExpense(ctx context.Context, expense *models.Expense, req ExpenseRequest) error {
	if !req.Amount.IsPositive() {
		return ErrInvalidAmount.With("сумма расхода должна быть больше 0")
	}

	paymentType := req.PaymentType
	if paymentType == "" {
		paymentType = models.PaymentTypeCash
	}
	switch paymentType {
	case models.PaymentTypeCash, models.PaymentTypeCard, models.PaymentTypeTransfer:
	default:
		return ErrValidation.With("неизвестный способ оплаты: %q", paymentType)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ExpenseType{}).Where("id = ?", req.ExpenseTypeID).Count(&count).Error; err != nil {
		return transient(err)
	}
	if count == 0 {
		return ErrNotFound.With("вид расхода не найден")
	}

	var buildingID *uint
	if req.BuildingID != nil && *req.BuildingID > 0 {
		if err := s.db.WithContext(ctx).Model(&models.Building{}).Where("id = ?", *req.BuildingID).Count(&count).Error; err != nil {
			return transient(err)
		}
		if count == 0 {
			return ErrNotFound.With("дом не найден")
		}
		id := *req.BuildingID
		buildingID = &id
	}

	expense.ExpenseTypeID = req.ExpenseTypeID
	expense.BuildingID = buildingID
	expense.Amount = utils.Money(req.Amount)
	expense.Description = strings.TrimSpace(req.Description)
	expense.PaymentType = paymentType
	return nil
}

// DeleteExpense удаляет расход
func (s *ExpenseService) DeleteExpense(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Expense{}, id)
	if result.Error != nil {
		return transient(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound.With("расход не найден")
	}
	return nil
}

// Summary считает расходы за сегодня, за текущий месяц и за все время
func (s *ExpenseService) Summary(ctx context.Context, f ExpenseFilter) (*ExpenseSummary, error) {
	now := s.now()
	today := utils.StartOfDay(now)
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var summary ExpenseSummary
	var err error
	if summary.DailyTotal, err = s.sumSince(ctx, f, today); err != nil {
		return nil, err
	}
	if summary.MonthlyTotal, err = s.sumSince(ctx, f, month); err != nil {
		return nil, err
	}
	if summary.Total, err = s.sumSince(ctx, f, time.Time{}); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *ExpenseService) sumSince(ctx context.Context, f ExpenseFilter, since time.Time) (decimal.Decimal, error) {
	q := s.filtered(ctx, f)
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	return sumColumn(q, "amount")
}

// sumColumn суммирует денежную колонку, пустая выборка дает ноль
func sumColumn(q *gorm.DB, column string) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	if err := q.Select("COALESCE(SUM(" + column + "), 0) AS total").Scan(&row).Error; err != nil {
		return decimal.Zero, transient(err)
	}
	return row.Total, nil
}
