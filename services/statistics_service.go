package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"qurilish/models"
	"qurilish/utils"
)

// IncomeStats поступления по графикам
type IncomeStats struct {
	Today decimal.Decimal `json:"today"`
	Week  decimal.Decimal `json:"week"`
	Month decimal.Decimal `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// DebtStats задолженность клиентов
type DebtStats struct {
	Total decimal.Decimal `json:"total"`
	// Debtors договоры с остатком к оплате
	Debtors int64 `json:"debtors"`
	// Overdue договоры с просроченными месяцами
	Overdue       int64           `json:"overdue"`
	OverdueAmount decimal.Decimal `json:"overdue_amount"`
}

// BuildingOccupancy заполненность дома
type BuildingOccupancy struct {
	BuildingID uint    `json:"building_id"`
	Name       string  `json:"name"`
	Units      int64   `json:"units"`
	Busy       int64   `json:"busy"`
	Percent    float64 `json:"percent"`
}

// ExpenseBreakdown сумма расходов по виду
type ExpenseBreakdown struct {
	ExpenseTypeID uint            `json:"expense_type_id"`
	Name          string          `json:"name"`
	Total         decimal.Decimal `json:"total"`
}

// Dashboard сводка для главной страницы
type Dashboard struct {
	Income    IncomeStats                     `json:"income"`
	Debt      DebtStats                       `json:"debt"`
	Contracts map[models.ContractStatus]int64 `json:"contracts"`
	Clients   map[models.HeardSource]int64    `json:"clients"`
	Buildings []BuildingOccupancy             `json:"buildings"`
	Expenses  []ExpenseBreakdown              `json:"expenses"`
}

// StatisticsService считает сводные показатели только на чтение
type StatisticsService struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

// NewStatisticsService создает новый экземпляр StatisticsService
func NewStatisticsService(db *gorm.DB, log *zap.Logger) *StatisticsService {
	return &StatisticsService{db: db, log: log.Named("statistics"), now: time.Now}
}

// Dashboard собирает все показатели
func (s *StatisticsService) Dashboard(ctx context.Context) (*Dashboard, error) {
	start := time.Now()
	dashboard := &Dashboard{}

	var err error
	defer func() {
		utils.LogOperation(s.log, "dashboard", start, err)
	}()

	if dashboard.Income, err = s.income(ctx); err != nil {
		return nil, err
	}
	if dashboard.Debt, err = s.debt(ctx); err != nil {
		return nil, err
	}
	if dashboard.Contracts, err = s.contractsByStatus(ctx); err != nil {
		return nil, err
	}
	if dashboard.Clients, err = s.clientsBySource(ctx); err != nil {
		return nil, err
	}
	if dashboard.Buildings, err = s.occupancy(ctx); err != nil {
		return nil, err
	}
	if dashboard.Expenses, err = s.expenses(ctx); err != nil {
		return nil, err
	}
	return dashboard, nil
}

func (s *StatisticsService) income(ctx context.Context) (IncomeStats, error) {
	today := utils.StartOfDay(s.now())

	var stats IncomeStats
	periods := []struct {
		since time.Time
		dst   *decimal.Decimal
	}{
		{today, &stats.Today},
		{today.AddDate(0, 0, -6), &stats.Week},
		{today.AddDate(0, 0, -29), &stats.Month},
		{time.Time{}, &stats.Total},
	}

	for _, p := range periods {
		q := s.db.WithContext(ctx).Model(&models.ScheduleLine{}).Where("pay_date IS NOT NULL")
		if !p.since.IsZero() {
			q = q.Where("pay_date >= ?", p.since)
		}
		total, err := sumColumn(q, "amount_paid")
		if err != nil {
			return IncomeStats{}, err
		}
		*p.dst = total
	}
	return stats, nil
}

func (s *StatisticsService) debt(ctx context.Context) (DebtStats, error) {
	var stats DebtStats
	var err error

	debtors := s.db.WithContext(ctx).Model(&models.Contract{}).
		Where("debt = ? AND status = ?", true, models.ContractStatusFinalized)
	if stats.Total, err = sumColumn(debtors.Session(&gorm.Session{}), "residual"); err != nil {
		return DebtStats{}, err
	}
	if err = debtors.Session(&gorm.Session{}).Count(&stats.Debtors).Error; err != nil {
		return DebtStats{}, transient(err)
	}

	today := utils.StartOfDay(s.now())
	overdue := s.db.WithContext(ctx).Model(&models.ScheduleLine{}).
		Joins("JOIN contracts ON contracts.id = schedule_lines.contract_id").
		Where("contracts.status = ?", models.ContractStatusFinalized).
		Where("schedule_lines.month > 0 AND schedule_lines.qoldiq > 0 AND schedule_lines.date < ?", today)
	if stats.OverdueAmount, err = sumColumn(overdue.Session(&gorm.Session{}), "schedule_lines.qoldiq"); err != nil {
		return DebtStats{}, err
	}
	if err = overdue.Session(&gorm.Session{}).Distinct("schedule_lines.contract_id").Count(&stats.Overdue).Error; err != nil {
		return DebtStats{}, transient(err)
	}
	return stats, nil
}

func (s *StatisticsService) contractsByStatus(ctx context.Context) (map[models.ContractStatus]int64, error) {
	var rows []struct {
		Status models.ContractStatus
		Count  int64
	}
	err := s.db.WithContext(ctx).Model(&models.Contract{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, transient(err)
	}

	result := map[models.ContractStatus]int64{
		models.ContractStatusForming:   0,
		models.ContractStatusFinalized: 0,
		models.ContractStatusCompleted: 0,
		models.ContractStatusCancelled: 0,
	}
	for _, r := range rows {
		result[r.Status] = r.Count
	}
	return result, nil
}

func (s *StatisticsService) clientsBySource(ctx context.Context) (map[models.HeardSource]int64, error) {
	var rows []struct {
		Heard models.HeardSource
		Count int64
	}
	err := s.db.WithContext(ctx).Model(&models.Client{}).
		Select("heard, COUNT(*) AS count").
		Group("heard").
		Scan(&rows).Error
	if err != nil {
		return nil, transient(err)
	}

	result := make(map[models.HeardSource]int64, len(models.HeardSources))
	for _, source := range models.HeardSources {
		result[source] = 0
	}
	for _, r := range rows {
		result[r.Heard] = r.Count
	}
	return result, nil
}

func (s *StatisticsService) occupancy(ctx context.Context) ([]BuildingOccupancy, error) {
	var rows []BuildingOccupancy
	err := s.db.WithContext(ctx).Model(&models.Building{}).
		Select("buildings.id AS building_id, buildings.name AS name, " +
			"COUNT(units.id) AS units, " +
			"COALESCE(SUM(CASE WHEN units.busy THEN 1 ELSE 0 END), 0) AS busy").
		Joins("LEFT JOIN units ON units.building_id = buildings.id").
		Group("buildings.id, buildings.name").
		Order("buildings.name").
		Scan(&rows).Error
	if err != nil {
		return nil, transient(err)
	}

	for i := range rows {
		if rows[i].Units > 0 {
			percent := decimal.NewFromInt(rows[i].Busy * 100).Div(decimal.NewFromInt(rows[i].Units)).Round(1)
			rows[i].Percent, _ = percent.Float64()
		}
	}
	return rows, nil
}

func (s *StatisticsService) expenses(ctx context.Context) ([]ExpenseBreakdown, error) {
	var rows []ExpenseBreakdown
	err := s.db.WithContext(ctx).Model(&models.Expense{}).
		Select("expense_types.id AS expense_type_id, expense_types.name AS name, COALESCE(SUM(expenses.amount), 0) AS total").
		Joins("JOIN expense_types ON expense_types.id = expenses.expense_type_id").
		Group("expense_types.id, expense_types.name").
		Order("total DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, transient(err)
	}
	return rows, nil
}
