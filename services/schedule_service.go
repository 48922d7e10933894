package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"qurilish/database"
	"qurilish/models"
	"qurilish/utils"
)

// LineEdit изменение одной строки графика
type LineEdit struct {
	LineID uint             `json:"id" validate:"required"`
	Amount *decimal.Decimal `json:"amount"`
	Date   *time.Time       `json:"date"`
}

// ScheduleLineDTO строка графика для ответа
type ScheduleLineDTO struct {
	ID         uint            `json:"id"`
	Month      int             `json:"month"`
	Amount     decimal.Decimal `json:"amount"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Qoldiq     decimal.Decimal `json:"qoldiq"`
	Date       time.Time       `json:"date"`
	PayDate    *time.Time      `json:"pay_date"`
	IsInitial  bool            `json:"is_initial"`
	IsPaid     bool            `json:"is_paid"`
	CanPay     bool            `json:"can_pay"`
}

// ScheduleState состояние графика платежей по договору
type ScheduleState struct {
	ContractID     uint                  `json:"contract_id"`
	Number         uint                  `json:"contract_number"`
	ClientName     string                `json:"client_name,omitempty"`
	Status         models.ContractStatus `json:"status"`
	PayDay         int                   `json:"pay_date"`
	HomePrice      decimal.Decimal       `json:"home_price"`
	Payment        decimal.Decimal       `json:"initial_payment"`
	Residual       decimal.Decimal       `json:"residual"`
	Debt           bool                  `json:"debt"`
	OylikTolov     decimal.Decimal       `json:"monthly_payment"`
	CountMonth     int                   `json:"count_month"`
	TotalAmount    decimal.Decimal       `json:"total_amount"`
	TotalPaid      decimal.Decimal       `json:"total_paid"`
	TotalRemaining decimal.Decimal       `json:"total_remaining"`
	MonthsCount    int                   `json:"months_count"`
	Lines          []ScheduleLineDTO     `json:"payments"`
}

// PaymentResult результат приема платежа
type PaymentResult struct {
	ContractID uint            `json:"contract_id"`
	Applied    decimal.Decimal `json:"applied"`
	// Unapplied часть суммы, которую некуда было распределить
	Unapplied decimal.Decimal   `json:"unapplied"`
	Lines     []ScheduleLineDTO `json:"updated_payments"`
	// LastLineRemaining остаток по последней затронутой строке
	LastLineRemaining decimal.Decimal       `json:"last_line_remaining"`
	Residual          decimal.Decimal       `json:"residual"`
	Debt              bool                  `json:"debt"`
	Status            models.ContractStatus `json:"status"`
	Completed         bool                  `json:"completed"`
}

// ScheduleService единственный модуль, который меняет строки графика
// и агрегат договора (residual, debt, count_month, oylik_tolov)
type ScheduleService struct {
	db       *gorm.DB
	gate     *OccupancyGate
	notifier Notifier
	metrics  *utils.Metrics
	log      *zap.Logger
	now      func() time.Time
}

// NewScheduleService создает новый экземпляр ScheduleService
func NewScheduleService(db *gorm.DB, gate *OccupancyGate, notifier Notifier, metrics *utils.Metrics, log *zap.Logger) *ScheduleService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ScheduleService{
		db:       db,
		gate:     gate,
		notifier: notifier,
		metrics:  metrics,
		log:      log.Named("schedule"),
		now:      time.Now,
	}
}

// mutation состояние договора внутри транзакции
type mutation struct {
	contract *models.Contract
	lines    []models.ScheduleLine
	// completed договор закрылся в результате операции
	completed bool
}

// mutate выполняет операцию над графиком в транзакции с блокировкой договора.
// В конце всегда выполняется пересчет агрегата.
func (s *ScheduleService) mutate(ctx context.Context, op string, contractID uint, allowCompleted bool,
	fn func(tx *gorm.DB, m *mutation) error) (*mutation, error) {
	start := s.now()

	m, err := s.runMutation(ctx, contractID, allowCompleted, fn)

	if err != nil {
		s.metrics.RecordRejected(op, string(KindOf(err)))
	} else {
		s.metrics.RecordMutation(op)
	}
	utils.LogOperation(s.log.With(zap.Uint("contract_id", contractID)), op, start, err)

	return m, err
}

func (s *ScheduleService) runMutation(ctx context.Context, contractID uint, allowCompleted bool,
	fn func(tx *gorm.DB, m *mutation) error) (*mutation, error) {
	// Начинаем транзакцию
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, transient(tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	contract, err := database.LockContract(tx, contractID)
	if err != nil {
		tx.Rollback()
		return nil, notFound(err, ErrContractNotFound)
	}

	if contract.Status == models.ContractStatusCancelled ||
		(!allowCompleted && contract.Status == models.ContractStatusCompleted) {
		tx.Rollback()
		return nil, ErrContractClosed.With("договор №%d в статусе %q, изменения невозможны", contract.Number, contract.Status)
	}

	lines, err := loadLines(tx, contract.ID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	m := &mutation{contract: contract, lines: lines}
	if err := fn(tx, m); err != nil {
		tx.Rollback()
		return nil, err
	}

	m.lines, m.completed, err = s.Recompute(tx, contract)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// Подтверждаем транзакцию
	if err := tx.Commit().Error; err != nil {
		return nil, transient(err)
	}

	return m, nil
}

func loadLines(tx *gorm.DB, contractID uint) ([]models.ScheduleLine, error) {
	var lines []models.ScheduleLine
	if err := tx.Where("contract_id = ?", contractID).
		Order("month ASC").
		Find(&lines).Error; err != nil {
		return nil, transient(err)
	}
	return lines, nil
}

// Recompute заново вычисляет агрегат договора по строкам графика:
// residual = сумма qoldiq, debt = residual > 0, count_month = число ежемесячных строк.
// Оформленный договор без остатка переходит в статус "Tugallangan".
// Вызывается внутри транзакции.
func (s *ScheduleService) Recompute(tx *gorm.DB, contract *models.Contract) ([]models.ScheduleLine, bool, error) {
	lines, err := loadLines(tx, contract.ID)
	if err != nil {
		return nil, false, err
	}

	residual := decimal.Zero
	count := 0
	for _, line := range lines {
		residual = residual.Add(line.Qoldiq)
		if !line.IsInitial() {
			count++
		}
	}
	if residual.IsNegative() {
		return nil, false, ErrNegativeResidual.With("остаток по договору №%d отрицательный: %s", contract.Number, residual)
	}

	contract.Residual = residual
	contract.Debt = residual.IsPositive()
	contract.CountMonth = count

	completed := false
	if !residual.IsPositive() && contract.Status == models.ContractStatusFinalized {
		if err := transitionContract(tx, s.gate, contract, models.ContractStatusCompleted); err != nil {
			return nil, false, err
		}
		completed = true
		s.metrics.RecordTransition(string(models.ContractStatusCompleted))
	}

	if err := tx.Model(contract).
		Select("residual", "debt", "count_month", "oylik_tolov", "status").
		Updates(contract).Error; err != nil {
		return nil, false, transient(err)
	}

	return lines, completed, nil
}

// ReplaceSchedule удаляет текущие строки и записывает новый график по плану.
// Вызывается внутри транзакции при оформлении договора.
func (s *ScheduleService) ReplaceSchedule(tx *gorm.DB, contract *models.Contract, plan *SchedulePlan) ([]models.ScheduleLine, error) {
	if err := tx.Where("contract_id = ?", contract.ID).Delete(&models.ScheduleLine{}).Error; err != nil {
		return nil, transient(err)
	}

	lines := make([]models.ScheduleLine, len(plan.Lines))
	copy(lines, plan.Lines)
	for i := range lines {
		lines[i].ID = 0
		lines[i].ContractID = contract.ID
	}
	if len(lines) > 0 {
		if err := tx.Create(&lines).Error; err != nil {
			return nil, transient(err)
		}
	}

	contract.Term = plan.Term
	contract.OylikTolov = plan.Nominal

	recomputed, _, err := s.Recompute(tx, contract)
	return recomputed, err
}

// SettleAll закрывает все строки графика (оплата считается полной).
// Вызывается внутри транзакции при ручном завершении договора.
func (s *ScheduleService) SettleAll(tx *gorm.DB, contract *models.Contract) error {
	lines, err := loadLines(tx, contract.ID)
	if err != nil {
		return err
	}

	now := s.now()
	for i := range lines {
		line := &lines[i]
		if line.Qoldiq.IsZero() {
			continue
		}
		line.AmountPaid = line.Amount
		line.Recalc()
		line.PayDate = &now
		if err := tx.Save(line).Error; err != nil {
			return transient(err)
		}
	}

	_, _, err = s.Recompute(tx, contract)
	return err
}

// DropSchedule удаляет строки графика и обнуляет агрегат.
// Возвращает снимок удаленных строк для архива.
func (s *ScheduleService) DropSchedule(tx *gorm.DB, contract *models.Contract) ([]models.ScheduleLine, error) {
	lines, err := loadLines(tx, contract.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Where("contract_id = ?", contract.ID).Delete(&models.ScheduleLine{}).Error; err != nil {
		return nil, transient(err)
	}

	contract.Residual = decimal.Zero
	contract.Debt = false
	if err := tx.Model(contract).
		Select("residual", "debt").
		Updates(contract).Error; err != nil {
		return nil, transient(err)
	}

	return lines, nil
}

// ApplyPayment принимает платеж по конкретному месяцу или распределяет его по графику
func (s *ScheduleService) ApplyPayment(ctx context.Context, contractID uint, lineID *uint, amount decimal.Decimal) (*PaymentResult, error) {
	if lineID != nil {
		return s.ApplyPaymentToLine(ctx, contractID, *lineID, amount)
	}
	return s.ApplyLumpPayment(ctx, contractID, amount)
}

// ApplyPaymentToLine принимает платеж по одной строке графика
func (s *ScheduleService) ApplyPaymentToLine(ctx context.Context, contractID, lineID uint, amount decimal.Decimal) (*PaymentResult, error) {
	var touched models.ScheduleLine

	m, err := s.mutate(ctx, "apply_payment_line", contractID, true, func(tx *gorm.DB, m *mutation) error {
		if !amount.IsPositive() {
			return ErrInvalidAmount
		}

		idx := -1
		for i := range m.lines {
			if m.lines[i].ID == lineID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrLineNotFound.With("месяц графика %d не найден в договоре №%d", lineID, m.contract.Number)
		}

		line := &m.lines[idx]
		if line.IsPaid() {
			return ErrAlreadySettled.With("%d-й месяц уже полностью оплачен", line.Month)
		}
		if amount.GreaterThan(line.Qoldiq) {
			return ErrExceedsBalance.With("сумма платежа %s больше остатка %s за %d-й месяц", amount, line.Qoldiq, line.Month)
		}

		now := s.now()
		line.AmountPaid = line.AmountPaid.Add(amount)
		line.Recalc()
		line.PayDate = &now
		if err := tx.Save(line).Error; err != nil {
			return transient(err)
		}

		touched = *line
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPayment("monthly", amount.InexactFloat64())
	s.afterPayment(m, amount)

	return &PaymentResult{
		ContractID:        m.contract.ID,
		Applied:           amount,
		Unapplied:         decimal.Zero,
		Lines:             []ScheduleLineDTO{lineDTO(touched, m.contract.Status)},
		LastLineRemaining: touched.Qoldiq,
		Residual:          m.contract.Residual,
		Debt:              m.contract.Debt,
		Status:            m.contract.Status,
		Completed:         m.completed,
	}, nil
}

// ApplyLumpPayment распределяет сумму по неоплаченным месяцам, начиная с самого раннего срока
func (s *ScheduleService) ApplyLumpPayment(ctx context.Context, contractID uint, amount decimal.Decimal) (*PaymentResult, error) {
	var (
		touched   []models.ScheduleLine
		applied   = decimal.Zero
		remaining = amount
	)

	m, err := s.mutate(ctx, "apply_payment_lump", contractID, true, func(tx *gorm.DB, m *mutation) error {
		if amount.LessThan(decimal.NewFromInt(1)) {
			return ErrInvalidAmount.With("сумма платежа должна быть не меньше 1")
		}

		unpaid := make([]*models.ScheduleLine, 0, len(m.lines))
		for i := range m.lines {
			if m.lines[i].Qoldiq.IsPositive() {
				unpaid = append(unpaid, &m.lines[i])
			}
		}
		if len(unpaid) == 0 {
			return ErrNoUnpaidLines
		}

		sort.SliceStable(unpaid, func(i, j int) bool {
			if !unpaid[i].Date.Equal(unpaid[j].Date) {
				return unpaid[i].Date.Before(unpaid[j].Date)
			}
			return unpaid[i].Month < unpaid[j].Month
		})

		now := s.now()
		for _, line := range unpaid {
			if !remaining.IsPositive() {
				break
			}
			part := decimal.Min(remaining, line.Qoldiq)
			line.AmountPaid = line.AmountPaid.Add(part)
			line.Recalc()
			line.PayDate = &now
			if err := tx.Save(line).Error; err != nil {
				return transient(err)
			}
			remaining = remaining.Sub(part)
			applied = applied.Add(part)
			touched = append(touched, *line)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPayment("custom", applied.InexactFloat64())
	s.afterPayment(m, applied)

	result := &PaymentResult{
		ContractID: m.contract.ID,
		Applied:    applied,
		Unapplied:  remaining,
		Residual:   m.contract.Residual,
		Debt:       m.contract.Debt,
		Status:     m.contract.Status,
		Completed:  m.completed,
	}
	for _, line := range touched {
		result.Lines = append(result.Lines, lineDTO(line, m.contract.Status))
	}
	if n := len(touched); n > 0 {
		result.LastLineRemaining = touched[n-1].Qoldiq
	}

	return result, nil
}

func (s *ScheduleService) afterPayment(m *mutation, amount decimal.Decimal) {
	s.notifier.PaymentReceived(m.contract.ID, amount)
	if m.completed {
		s.notifier.ContractCompleted(m.contract.ID)
	}
}

// ChangeMonthCount меняет количество ежемесячных платежей.
// Оставшийся долг заново делится поровну между неоплаченными месяцами
// по тому же правилу округления, что и при создании графика.
func (s *ScheduleService) ChangeMonthCount(ctx context.Context, contractID uint, newCount int) (*ScheduleState, error) {
	m, err := s.mutate(ctx, "change_month_count", contractID, false, func(tx *gorm.DB, m *mutation) error {
		if newCount < 1 || newCount > MaxTermMonths {
			return ErrInvalidRange
		}

		var installments []*models.ScheduleLine
		for i := range m.lines {
			if !m.lines[i].IsInitial() {
				installments = append(installments, &m.lines[i])
			}
		}

		current := len(installments)
		if newCount == current {
			return ErrNoChange
		}

		paidFloor := 0
		for _, line := range installments {
			if line.IsSettled() {
				paidFloor++
			}
		}
		if newCount < paidFloor {
			return ErrBelowPaidFloor.With("новое количество месяцев (%d) меньше количества оплаченных месяцев (%d)", newCount, paidFloor)
		}

		outstanding := decimal.Zero
		credit := decimal.Zero
		var pool []*models.ScheduleLine

		if newCount < current {
			dropped := installments[newCount:]
			var settled []string
			for _, line := range dropped {
				if line.IsSettled() {
					settled = append(settled, fmt.Sprint(line.Month))
				}
			}
			if len(settled) > 0 {
				return ErrCannotDeleteSettledLine.With("нельзя удалить оплаченные месяцы: %s", strings.Join(settled, ", "))
			}

			ids := make([]uint, 0, len(dropped))
			for _, line := range dropped {
				ids = append(ids, line.ID)
				outstanding = outstanding.Add(line.Qoldiq)
				credit = credit.Add(line.AmountPaid)
			}
			installments = installments[:newCount]

			for _, line := range installments {
				if !line.IsSettled() {
					pool = append(pool, line)
					outstanding = outstanding.Add(line.Qoldiq)
				}
			}

			if len(pool) == 0 && (outstanding.IsPositive() || credit.IsPositive()) {
				return ErrNoLineForBalance
			}

			if err := tx.Where("id IN ?", ids).Delete(&models.ScheduleLine{}).Error; err != nil {
				return transient(err)
			}
		} else {
			for _, line := range installments {
				if !line.IsSettled() {
					pool = append(pool, line)
					outstanding = outstanding.Add(line.Qoldiq)
				}
			}

			base := m.contract.ContractDate
			if current > 0 {
				base = installments[current-1].Date
			} else if len(m.lines) > 0 {
				base = m.lines[0].Date
			}

			created := make([]models.ScheduleLine, 0, newCount-current)
			for k := 1; k <= newCount-current; k++ {
				created = append(created, models.ScheduleLine{
					ContractID: m.contract.ID,
					Month:      current + k,
					Amount:     decimal.Zero,
					AmountPaid: decimal.Zero,
					Qoldiq:     decimal.Zero,
					Date:       utils.AddMonthsClamped(base, k, m.contract.PayDay),
				})
			}
			if err := tx.Create(&created).Error; err != nil {
				return transient(err)
			}
			for i := range created {
				pool = append(pool, &created[i])
			}
		}

		// Срок договора следует за графиком
		m.contract.Term = newCount
		if err := tx.Model(m.contract).Update("term", newCount).Error; err != nil {
			return transient(err)
		}

		if len(pool) == 0 {
			return nil
		}

		// Оплаты удаленных месяцев переходят в первый неоплаченный месяц
		if credit.IsPositive() {
			pool[0].AmountPaid = pool[0].AmountPaid.Add(credit)
		}

		nominal, shares := utils.Split(outstanding, len(pool))
		for i, line := range pool {
			line.Amount = line.AmountPaid.Add(shares[i])
			line.Recalc()
			if err := tx.Save(line).Error; err != nil {
				return transient(err)
			}
		}
		m.contract.OylikTolov = nominal

		return nil
	})
	if err != nil {
		return nil, err
	}

	return buildState(m.contract, m.lines), nil
}

// BulkEditLines меняет сумму и/или срок у нескольких строк графика
func (s *ScheduleService) BulkEditLines(ctx context.Context, contractID uint, edits []LineEdit) (*ScheduleState, error) {
	m, err := s.mutate(ctx, "bulk_edit", contractID, false, func(tx *gorm.DB, m *mutation) error {
		if len(edits) == 0 {
			return ErrEmptyEdit
		}

		byID := make(map[uint]*models.ScheduleLine, len(m.lines))
		for i := range m.lines {
			byID[m.lines[i].ID] = &m.lines[i]
		}

		for _, edit := range edits {
			line, ok := byID[edit.LineID]
			if !ok {
				return ErrLineNotFound.With("месяц графика %d не найден в договоре №%d", edit.LineID, m.contract.Number)
			}
			if edit.Amount == nil && edit.Date == nil {
				return ErrEmptyEdit.With("для месяца %d не указаны ни сумма, ни дата", line.Month)
			}
			if edit.Amount != nil {
				if edit.Amount.IsNegative() {
					return ErrInvalidAmount.With("сумма за %d-й месяц не может быть отрицательной", line.Month)
				}
				if edit.Amount.LessThan(line.AmountPaid) {
					return ErrBelowAmountPaid.With("сумма за %d-й месяц (%s) меньше уже оплаченной (%s)", line.Month, edit.Amount, line.AmountPaid)
				}
				line.Amount = *edit.Amount
			}
			if edit.Date != nil {
				line.Date = *edit.Date
			}
			line.Recalc()
			if err := tx.Save(line).Error; err != nil {
				return transient(err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if m.completed {
		s.notifier.ContractCompleted(m.contract.ID)
	}

	return buildState(m.contract, m.lines), nil
}

// GetSchedule возвращает график платежей по договору без изменений
func (s *ScheduleService) GetSchedule(ctx context.Context, contractID uint) (*ScheduleState, error) {
	var contract models.Contract
	if err := s.db.WithContext(ctx).Preload("Client").First(&contract, contractID).Error; err != nil {
		return nil, notFound(err, ErrContractNotFound)
	}

	lines, err := loadLines(s.db.WithContext(ctx), contract.ID)
	if err != nil {
		return nil, err
	}

	state := buildState(&contract, lines)
	if contract.Client != nil {
		state.ClientName = contract.Client.FullName
	}
	return state, nil
}

func lineDTO(line models.ScheduleLine, status models.ContractStatus) ScheduleLineDTO {
	return ScheduleLineDTO{
		ID:         line.ID,
		Month:      line.Month,
		Amount:     line.Amount,
		AmountPaid: line.AmountPaid,
		Qoldiq:     line.Qoldiq,
		Date:       line.Date,
		PayDate:    line.PayDate,
		IsInitial:  line.IsInitial(),
		IsPaid:     line.IsPaid(),
		CanPay:     line.Qoldiq.IsPositive() && !status.Terminal(),
	}
}

func buildState(contract *models.Contract, lines []models.ScheduleLine) *ScheduleState {
	state := &ScheduleState{
		ContractID:     contract.ID,
		Number:         contract.Number,
		Status:         contract.Status,
		PayDay:         contract.PayDay,
		HomePrice:      contract.HomePrice,
		Payment:        contract.Payment,
		Residual:       contract.Residual,
		Debt:           contract.Debt,
		OylikTolov:     contract.OylikTolov,
		CountMonth:     contract.CountMonth,
		TotalAmount:    decimal.Zero,
		TotalPaid:      decimal.Zero,
		TotalRemaining: decimal.Zero,
		Lines:          make([]ScheduleLineDTO, 0, len(lines)),
	}

	for _, line := range lines {
		state.Lines = append(state.Lines, lineDTO(line, contract.Status))
		state.TotalAmount = state.TotalAmount.Add(line.Amount)
		state.TotalPaid = state.TotalPaid.Add(line.AmountPaid)
		state.TotalRemaining = state.TotalRemaining.Add(line.Qoldiq)
		if !line.IsInitial() {
			state.MonthsCount++
		}
	}

	return state
}
