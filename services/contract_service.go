package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"qurilish/database"
	"qurilish/models"
	"qurilish/utils"
)

// CreateContractRequest данные для оформления договора.
// Квартира задается либо unit_id, либо домом, подъездом и номером.
type CreateContractRequest struct {
	UnitID     uint   `json:"unit_id"`
	BuildingID uint   `json:"building"`
	Entrance   int    `json:"padez_number"`
	HomeNumber string `json:"home_number"`

	FullName string             `json:"full_name" validate:"required,max=150"`
	Phone    string             `json:"phone" validate:"required"`
	Phone2   string             `json:"phone2"`
	Heard    models.HeardSource `json:"heard"`

	Passport        string `json:"passport" validate:"required,max=15"`
	PassportIssued  string `json:"passport_muddat" validate:"max=25"`
	PassportGivenBy string `json:"given" validate:"max=100"`
	Address         string `json:"location" validate:"max=255"`
	Address2        string `json:"location2" validate:"max=255"`

	Term    int             `json:"term" validate:"gte=0,lte=120"`
	Payment decimal.Decimal `json:"payment"`
	PayDay  int             `json:"pay_date" validate:"omitempty,min=1,max=31"`
	// Price цена за м², если отличается от текущей цены квартиры
	Price *decimal.Decimal `json:"price"`
	// HomePrice полная стоимость вместо площадь × цена
	HomePrice    *decimal.Decimal      `json:"home_price"`
	Status       models.ContractStatus `json:"status" validate:"omitempty,oneof=Rasmiylashtirilmoqda Rasmiylashtirilgan"`
	ContractDate *time.Time            `json:"created"`
}

// UpdateContractRequest изменение договора. Пустые поля не меняются.
type UpdateContractRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,max=150"`
	Phone    *string `json:"phone"`
	Phone2   *string `json:"phone2"`

	Passport        *string `json:"passport" validate:"omitempty,max=15"`
	PassportIssued  *string `json:"passport_muddat" validate:"omitempty,max=25"`
	PassportGivenBy *string `json:"given" validate:"omitempty,max=100"`
	Address         *string `json:"location" validate:"omitempty,max=255"`
	Address2        *string `json:"location2" validate:"omitempty,max=255"`

	UnitID  *uint            `json:"home"`
	Payment *decimal.Decimal `json:"payment"`
	Term    *int             `json:"term" validate:"omitempty,gte=0,lte=120"`
	PayDay  *int             `json:"pay_date" validate:"omitempty,min=1,max=31"`

	Status *models.ContractStatus `json:"status"`
}

// ContractFilter параметры списка договоров
type ContractFilter struct {
	Q          string
	CityID     uint
	BuildingID uint
	Debt       *bool
	Status     models.ContractStatus
	Page       int
	PageSize   int
}

// ContractList страница списка договоров
type ContractList struct {
	Items    []models.Contract `json:"results"`
	Total    int64             `json:"count"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// PaymentInfo сводка платежей по договору
type PaymentInfo struct {
	InitialPayment   decimal.Decimal `json:"initial_payment"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	TotalRemaining   decimal.Decimal `json:"total_remaining"`
	MonthlyPayment   decimal.Decimal `json:"monthly_payment"`
	NextUnpaidMonth  *int            `json:"next_unpaid_month"`
	NextUnpaidAmount decimal.Decimal `json:"next_unpaid_amount"`
	RemainingMonths  int             `json:"remaining_months"`
	IsInDebt         bool            `json:"is_in_debt"`
}

// ContractDetails договор со сводкой платежей
type ContractDetails struct {
	models.Contract
	PaymentInfo PaymentInfo `json:"payment_info"`
}

// ContractService управляет жизненным циклом договора.
// Строки графика и остаток меняет только ScheduleService.
type ContractService struct {
	db       *gorm.DB
	schedule *ScheduleService
	gate     *OccupancyGate
	notifier Notifier
	metrics  *utils.Metrics
	log      *zap.Logger
	now      func() time.Time
}

// NewContractService создает новый экземпляр ContractService
func NewContractService(db *gorm.DB, schedule *ScheduleService, gate *OccupancyGate, notifier Notifier, metrics *utils.Metrics, log *zap.Logger) *ContractService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ContractService{
		db:       db,
		schedule: schedule,
		gate:     gate,
		notifier: notifier,
		metrics:  metrics,
		log:      log.Named("contract"),
		now:      time.Now,
	}
}

// CreateContract оформляет договор и строит график платежей
func (s *ContractService) CreateContract(ctx context.Context, req CreateContractRequest) (*models.Contract, error) {
	start := s.now()
	contract, err := s.createContract(ctx, req)
	utils.LogOperation(s.log, "create_contract", start, err)
	if err != nil {
		s.metrics.RecordRejected("create_contract", string(KindOf(err)))
		return nil, err
	}

	s.metrics.RecordTransition(string(contract.Status))
	s.notifier.ContractCreated(contract.ID)

	return contract, nil
}

func (s *ContractService) createContract(ctx context.Context, req CreateContractRequest) (*models.Contract, error) {
	phone := utils.NormalizePhone(req.Phone)
	if phone == "" {
		return nil, ErrValidation.With("неверный формат номера телефона: %q", req.Phone)
	}
	phone2 := ""
	if req.Phone2 != "" {
		if phone2 = utils.NormalizePhone(req.Phone2); phone2 == "" {
			return nil, ErrValidation.With("неверный формат второго номера телефона: %q", req.Phone2)
		}
	}
	if req.Heard != "" && !validHeard(req.Heard) {
		return nil, ErrValidation.With("неизвестный источник: %q", req.Heard)
	}

	status := req.Status
	if status == "" {
		status = models.ContractStatusForming
	}
	if status != models.ContractStatusForming && status != models.ContractStatusFinalized {
		return nil, ErrInvalidTransition.With("договор нельзя создать в статусе %q", status)
	}

	payDay := req.PayDay
	if payDay == 0 {
		payDay = DefaultPayDay
	}

	contractDate := s.now()
	if req.ContractDate != nil {
		contractDate = utils.StartOfDay(*req.ContractDate)
	}

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

	unitID, err := s.resolveUnit(tx, req)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	unit, err := s.gate.CheckAvailable(tx, unitID, 0)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// Цена за м² обновляется, если менеджер указал другую
	if req.Price != nil && req.Price.IsPositive() && !req.Price.Equal(unit.Price) {
		unit.Price = *req.Price
		if err := tx.Model(unit).Update("price", unit.Price).Error; err != nil {
			tx.Rollback()
			return nil, transient(err)
		}
	}

	homePrice := unit.TotalPrice()
	if req.HomePrice != nil {
		homePrice = *req.HomePrice
	}
	if !homePrice.IsPositive() {
		tx.Rollback()
		return nil, ErrInvalidPrice
	}

	plan, err := GenerateSchedule(ScheduleTerms{
		TotalPrice:  homePrice,
		DownPayment: req.Payment,
		Term:        req.Term,
		PayDay:      payDay,
		StartDate:   contractDate,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	client, err := findOrCreateClient(tx, req.FullName, phone, phone2, req.Heard)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	var maxNumber uint
	if err := tx.Model(&models.Contract{}).Select("COALESCE(MAX(number), 0)").Scan(&maxNumber).Error; err != nil {
		tx.Rollback()
		return nil, transient(err)
	}

	// Полная оплата сразу закрывает договор
	if plan.Completed {
		status = models.ContractStatusCompleted
	}

	contract := &models.Contract{
		Number:          maxNumber + 1,
		ClientID:        &client.ID,
		UnitID:          &unit.ID,
		Passport:        strings.TrimSpace(req.Passport),
		PassportIssued:  req.PassportIssued,
		PassportGivenBy: req.PassportGivenBy,
		Address:         req.Address,
		Address2:        req.Address2,
		Term:            plan.Term,
		Payment:         req.Payment,
		HomePrice:       homePrice,
		PayDay:          payDay,
		Status:          status,
		Residual:        plan.Residual,
		Debt:            plan.Debt,
		OylikTolov:      plan.Nominal,
		CountMonth:      plan.Term,
		ContractDate:    contractDate,
	}
	if err := tx.Create(contract).Error; err != nil {
		tx.Rollback()
		return nil, numberConflict(err, contract.Number)
	}

	lines, err := s.schedule.ReplaceSchedule(tx, contract, plan)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := s.gate.OnStatus(tx, unit.ID, contract.Status); err != nil {
		tx.Rollback()
		return nil, err
	}

	// Подтверждаем транзакцию
	if err := tx.Commit().Error; err != nil {
		return nil, transient(err)
	}

	contract.Client = client
	contract.Unit = unit
	contract.Lines = lines

	s.log.Info("договор оформлен",
		zap.Uint("contract_id", contract.ID),
		zap.Uint("number", contract.Number),
		zap.String("status", string(contract.Status)),
	)

	return contract, nil
}

func (s *ContractService) resolveUnit(tx *gorm.DB, req CreateContractRequest) (uint, error) {
	if req.UnitID != 0 {
		return req.UnitID, nil
	}
	if req.BuildingID == 0 || req.HomeNumber == "" {
		return 0, ErrValidation.With("не указана квартира")
	}

	var unit models.Unit
	err := tx.Where("building_id = ? AND entrance = ? AND number = ?", req.BuildingID, req.Entrance, req.HomeNumber).
		First(&unit).Error
	if err != nil {
		return 0, notFound(err, ErrUnitNotFound)
	}
	return unit.ID, nil
}

func findOrCreateClient(tx *gorm.DB, fullName, phone, phone2 string, heard models.HeardSource) (*models.Client, error) {
	fullName = strings.TrimSpace(fullName)

	var client models.Client
	err := tx.Where("full_name = ? AND phone = ?", fullName, phone).First(&client).Error
	switch {
	case err == nil:
		client.Phone2 = phone2
		if heard != "" {
			client.Heard = heard
		}
		if err := tx.Save(&client).Error; err != nil {
			return nil, transient(err)
		}
		return &client, nil
	case !isNotFound(err):
		return nil, transient(err)
	}

	if heard == "" {
		heard = models.HeardNowhere
	}
	client = models.Client{
		FullName: fullName,
		Phone:    phone,
		Phone2:   phone2,
		Heard:    heard,
	}
	if err := tx.Create(&client).Error; err != nil {
		return nil, transient(err)
	}
	return &client, nil
}

// UpdateContract меняет данные договора и его статус.
// Условия рассрочки можно менять только пока договор оформляется.
func (s *ContractService) UpdateContract(ctx context.Context, id uint, req UpdateContractRequest) (*models.Contract, error) {
	start := s.now()
	contract, event, err := s.updateContract(ctx, id, req)
	utils.LogOperation(s.log.With(zap.Uint("contract_id", id)), "update_contract", start, err)
	if err != nil {
		s.metrics.RecordRejected("update_contract", string(KindOf(err)))
		return nil, err
	}

	switch event.status {
	case models.ContractStatusCompleted:
		s.notifier.ContractCompleted(contract.ID)
	case models.ContractStatusCancelled:
		s.notifier.ContractCancelled(contract.ID, event.paid)
	}

	return contract, nil
}

// statusEvent смена статуса, о которой нужно уведомить после фиксации
type statusEvent struct {
	status models.ContractStatus
	paid   decimal.Decimal
}

func (s *ContractService) updateContract(ctx context.Context, id uint, req UpdateContractRequest) (*models.Contract, statusEvent, error) {
	var event statusEvent

	// Начинаем транзакцию
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, event, transient(tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	fail := func(err error) (*models.Contract, statusEvent, error) {
		tx.Rollback()
		return nil, statusEvent{}, err
	}

	contract, err := database.LockContract(tx, id)
	if err != nil {
		return fail(notFound(err, ErrContractNotFound))
	}

	if contract.Status == models.ContractStatusCancelled {
		return fail(ErrContractClosed.With("договор №%d отменен, изменения невозможны", contract.Number))
	}
	before := contract.Status

	if err := s.updateClient(tx, contract, req); err != nil {
		return fail(err)
	}

	applyString(&contract.Passport, req.Passport)
	applyString(&contract.PassportIssued, req.PassportIssued)
	applyString(&contract.PassportGivenBy, req.PassportGivenBy)
	applyString(&contract.Address, req.Address)
	applyString(&contract.Address2, req.Address2)

	termsChanged, err := s.applyTerms(tx, contract, req)
	if err != nil {
		return fail(err)
	}

	next := contract.Status
	if req.Status != nil && *req.Status != "" {
		next = *req.Status
		if !next.Valid() {
			return fail(ErrValidation.With("неизвестный статус договора: %q", next))
		}
	}

	columns := []string{"passport", "passport_issued", "passport_given_by", "address", "address2",
		"unit_id", "payment", "term", "pay_date", "home_price", "status"}

	switch {
	case next == contract.Status && !termsChanged:
		if err := tx.Model(contract).Select(columns).Updates(contract).Error; err != nil {
			return fail(transient(err))
		}

	case next == models.ContractStatusCancelled:
		paid, err := s.cancel(tx, contract, "cancelled")
		if err != nil {
			return fail(err)
		}
		event = statusEvent{status: next, paid: paid}
		if err := tx.Model(contract).Select(columns).Updates(contract).Error; err != nil {
			return fail(transient(err))
		}

	case next == models.ContractStatusCompleted:
		if err := transitionContract(tx, s.gate, contract, next); err != nil {
			return fail(err)
		}
		if err := tx.Model(contract).Select(columns).Updates(contract).Error; err != nil {
			return fail(transient(err))
		}
		if err := s.schedule.SettleAll(tx, contract); err != nil {
			return fail(err)
		}
		event = statusEvent{status: next}

	default:
		if next != contract.Status {
			if err := transitionContract(tx, s.gate, contract, next); err != nil {
				return fail(err)
			}
		}
		if err := tx.Model(contract).Select(columns).Updates(contract).Error; err != nil {
			return fail(transient(err))
		}

		// Новые условия: график строится заново.
		// Только оформление: текущий график и оплаты сохраняются.
		var completed bool
		if termsChanged {
			completed, err = s.regenerate(tx, contract)
		} else {
			_, completed, err = s.schedule.Recompute(tx, contract)
		}
		if err != nil {
			return fail(err)
		}
		if completed {
			event = statusEvent{status: models.ContractStatusCompleted}
		}
	}

	// Подтверждаем транзакцию
	if err := tx.Commit().Error; err != nil {
		return nil, statusEvent{}, transient(err)
	}

	if contract.Status != before {
		s.metrics.RecordTransition(string(contract.Status))
	}

	return contract, event, nil
}

func (s *ContractService) updateClient(tx *gorm.DB, contract *models.Contract, req UpdateContractRequest) error {
	if contract.ClientID == nil || (req.FullName == nil && req.Phone == nil && req.Phone2 == nil) {
		return nil
	}

	var client models.Client
	if err := tx.First(&client, *contract.ClientID).Error; err != nil {
		return notFound(err, ErrNotFound.With("клиент договора не найден"))
	}

	if req.FullName != nil && strings.TrimSpace(*req.FullName) != "" {
		client.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		phone := utils.NormalizePhone(*req.Phone)
		if phone == "" {
			return ErrValidation.With("неверный формат номера телефона: %q", *req.Phone)
		}
		client.Phone = phone
	}
	if req.Phone2 != nil {
		client.Phone2 = utils.NormalizePhone(*req.Phone2)
	}

	if err := tx.Save(&client).Error; err != nil {
		return transient(err)
	}
	return nil
}

// applyTerms переносит новые условия рассрочки в договор.
// Возвращает true, если условия изменились.
func (s *ContractService) applyTerms(tx *gorm.DB, contract *models.Contract, req UpdateContractRequest) (bool, error) {
	changed := false

	unitChanged := req.UnitID != nil && (contract.UnitID == nil || *contract.UnitID != *req.UnitID)
	changed = changed || unitChanged
	changed = changed || (req.Payment != nil && !req.Payment.Equal(contract.Payment))
	changed = changed || (req.Term != nil && *req.Term != contract.Term)
	changed = changed || (req.PayDay != nil && *req.PayDay != contract.PayDay)

	if !changed {
		return false, nil
	}
	if contract.Status != models.ContractStatusForming {
		return false, ErrTermsLocked.With("договор №%d в статусе %q, условия рассрочки менять нельзя", contract.Number, contract.Status)
	}

	if unitChanged {
		unit, err := s.gate.CheckAvailable(tx, *req.UnitID, contract.ID)
		if err != nil {
			return false, err
		}
		contract.UnitID = &unit.ID
		contract.HomePrice = unit.TotalPrice()
	}
	if req.Payment != nil {
		contract.Payment = *req.Payment
	}
	if req.Term != nil {
		contract.Term = *req.Term
	}
	if req.PayDay != nil {
		contract.PayDay = *req.PayDay
	}

	return true, nil
}

// regenerate строит график заново по текущим условиям договора.
// Запрещено, если по ежемесячным платежам уже есть оплаты.
func (s *ContractService) regenerate(tx *gorm.DB, contract *models.Contract) (bool, error) {
	var paidLines int64
	if err := tx.Model(&models.ScheduleLine{}).
		Where("contract_id = ? AND month > 0 AND amount_paid > 0", contract.ID).
		Count(&paidLines).Error; err != nil {
		return false, transient(err)
	}
	if paidLines > 0 {
		return false, ErrRegenerateAfterPayments
	}

	plan, err := GenerateSchedule(ScheduleTerms{
		TotalPrice:  contract.HomePrice,
		DownPayment: contract.Payment,
		Term:        contract.Term,
		PayDay:      contract.PayDay,
		StartDate:   contract.ContractDate,
	})
	if err != nil {
		return false, err
	}

	before := contract.Status
	if _, err := s.schedule.ReplaceSchedule(tx, contract, plan); err != nil {
		return false, err
	}

	return before != contract.Status && contract.Status == models.ContractStatusCompleted, nil
}

// cancel архивирует договор, удаляет график и освобождает квартиру.
// Возвращает сумму, оплаченную клиентом.
func (s *ContractService) cancel(tx *gorm.DB, contract *models.Contract, reason string) (decimal.Decimal, error) {
	if !contract.Status.CanTransitionTo(models.ContractStatusCancelled) {
		return decimal.Zero, ErrInvalidTransition.With("договор в статусе %q нельзя отменить", contract.Status)
	}

	// В архив попадает остаток на момент отмены
	lines, err := loadLines(tx, contract.ID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := archiveContract(tx, contract, lines, reason); err != nil {
		return decimal.Zero, err
	}

	paid := decimal.Zero
	for _, line := range lines {
		paid = paid.Add(line.AmountPaid)
	}

	if _, err := s.schedule.DropSchedule(tx, contract); err != nil {
		return decimal.Zero, err
	}

	if err := transitionContract(tx, s.gate, contract, models.ContractStatusCancelled); err != nil {
		return decimal.Zero, err
	}

	return paid, nil
}

func archiveContract(tx *gorm.DB, contract *models.Contract, lines []models.ScheduleLine, reason string) error {
	snapshot, err := json.Marshal(lines)
	if err != nil {
		return transient(err)
	}

	trash := &models.ContractTrash{
		ContractID: contract.ID,
		Number:     contract.Number,
		ClientID:   contract.ClientID,
		UnitID:     contract.UnitID,
		Passport:   contract.Passport,
		Term:       contract.Term,
		Payment:    contract.Payment,
		HomePrice:  contract.HomePrice,
		Residual:   contract.Residual,
		OylikTolov: contract.OylikTolov,
		CountMonth: contract.CountMonth,
		Status:     contract.Status,
		Debt:       contract.Debt,
		Lines:      snapshot,
		Reason:     reason,
		CreatedAt:  contract.CreatedAt,
	}
	if err := tx.Create(trash).Error; err != nil {
		return transient(err)
	}
	return nil
}

// DeleteContract архивирует и удаляет договор вместе с графиком
func (s *ContractService) DeleteContract(ctx context.Context, id uint) error {
	start := s.now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contract, err := database.LockContract(tx, id)
		if err != nil {
			return notFound(err, ErrContractNotFound)
		}

		var lines []models.ScheduleLine
		if err := tx.Where("contract_id = ?", contract.ID).Order("month ASC").Find(&lines).Error; err != nil {
			return transient(err)
		}
		if err := archiveContract(tx, contract, lines, "deleted"); err != nil {
			return err
		}

		if err := tx.Where("contract_id = ?", contract.ID).Delete(&models.ScheduleLine{}).Error; err != nil {
			return transient(err)
		}
		if err := tx.Delete(contract).Error; err != nil {
			return transient(err)
		}

		// Отмененный договор квартиру уже освободил, ее мог занять другой
		if contract.UnitID != nil && contract.Status != models.ContractStatusCancelled {
			return s.gate.Release(tx, *contract.UnitID)
		}
		return nil
	})

	utils.LogOperation(s.log.With(zap.Uint("contract_id", id)), "delete_contract", start, err)
	return err
}

// GetContract возвращает договор с клиентом, квартирой и сводкой платежей
func (s *ContractService) GetContract(ctx context.Context, id uint) (*ContractDetails, error) {
	var contract models.Contract
	err := s.db.WithContext(ctx).
		Preload("Client").
		Preload("Unit.Building.City").
		First(&contract, id).Error
	if err != nil {
		return nil, notFound(err, ErrContractNotFound)
	}

	var lines []models.ScheduleLine
	if err := s.db.WithContext(ctx).Where("contract_id = ?", id).Order("month ASC").Find(&lines).Error; err != nil {
		return nil, transient(err)
	}

	return &ContractDetails{Contract: contract, PaymentInfo: paymentInfo(lines)}, nil
}

func paymentInfo(lines []models.ScheduleLine) PaymentInfo {
	info := PaymentInfo{
		InitialPayment:   decimal.Zero,
		TotalAmount:      decimal.Zero,
		TotalPaid:        decimal.Zero,
		TotalRemaining:   decimal.Zero,
		MonthlyPayment:   decimal.Zero,
		NextUnpaidAmount: decimal.Zero,
	}

	monthlySet := false
	for _, line := range lines {
		info.TotalAmount = info.TotalAmount.Add(line.Amount)
		info.TotalPaid = info.TotalPaid.Add(line.AmountPaid)
		info.TotalRemaining = info.TotalRemaining.Add(line.Qoldiq)

		if line.IsInitial() {
			info.InitialPayment = line.Amount
		} else if !monthlySet {
			info.MonthlyPayment = line.Amount
			monthlySet = true
		}

		if line.Qoldiq.IsPositive() {
			info.RemainingMonths++
			if info.NextUnpaidMonth == nil {
				month := line.Month
				info.NextUnpaidMonth = &month
				info.NextUnpaidAmount = line.Qoldiq
			}
		}
	}
	info.IsInDebt = info.TotalRemaining.IsPositive()

	return info
}

// ListContracts возвращает договоры по фильтру, новые первыми
func (s *ContractService) ListContracts(ctx context.Context, f ContractFilter) (*ContractList, error) {
	page, size := normalizePage(f.Page, f.PageSize)

	query := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.Contract{}).
			Joins("LEFT JOIN clients ON clients.id = contracts.client_id").
			Joins("LEFT JOIN units ON units.id = contracts.unit_id").
			Joins("LEFT JOIN buildings ON buildings.id = units.building_id")

		if f.CityID != 0 {
			q = q.Where("buildings.city_id = ?", f.CityID)
		}
		if f.BuildingID != 0 {
			q = q.Where("units.building_id = ?", f.BuildingID)
		}
		if f.Debt != nil {
			q = q.Where("contracts.debt = ?", *f.Debt)
		}
		if f.Status != "" {
			q = q.Where("contracts.status = ?", f.Status)
		}
		if term := strings.TrimSpace(f.Q); term != "" {
			like := "%" + strings.ToLower(term) + "%"
			q = q.Where("LOWER(contracts.passport) LIKE ? OR LOWER(clients.full_name) LIKE ? OR clients.phone LIKE ? OR clients.phone2 LIKE ? OR CAST(contracts.number AS TEXT) LIKE ?",
				like, like, like, like, like)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, transient(err)
	}

	var contracts []models.Contract
	err := query().
		Preload("Client").
		Preload("Unit.Building").
		Order("contracts.created_at DESC, contracts.id DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&contracts).Error
	if err != nil {
		return nil, transient(err)
	}

	return &ContractList{Items: contracts, Total: total, Page: page, PageSize: size}, nil
}

// ContractStatusByCode статусы договора по числовому коду фильтра
var ContractStatusByCode = map[string]models.ContractStatus{
	"0": models.ContractStatusCancelled,
	"1": models.ContractStatusForming,
	"2": models.ContractStatusFinalized,
	"3": models.ContractStatusCompleted,
}

// numberConflict параллельный запрос уже занял этот номер договора, запрос можно повторить
func numberConflict(err error, number uint) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrTransient.With("номер договора %d уже занят, повторите запрос", number)
	}
	return transient(err)
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}

func applyString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func validHeard(h models.HeardSource) bool {
	for _, s := range models.HeardSources {
		if s == h {
			return true
		}
	}
	return false
}
