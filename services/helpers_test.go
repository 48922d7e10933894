package services

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"qurilish/database"
	"qurilish/models"
)

var contractDay = time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)

func m(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type testEnv struct {
	db        *gorm.DB
	gate      *OccupancyGate
	schedule  *ScheduleService
	contracts *ContractService
	building  *models.Building
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// одна база в памяти на одно соединение
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	log := zap.NewNop()
	gate := NewOccupancyGate(log)
	schedule := NewScheduleService(db, gate, nil, nil, log)
	contracts := NewContractService(db, schedule, gate, nil, nil, log)

	city := &models.City{Name: "Toshkent"}
	require.NoError(t, db.Create(city).Error)
	building := &models.Building{CityID: &city.ID, Name: "Yangi Hayot", Code: "YH", Entrances: 2, Floors: 9}
	require.NoError(t, db.Create(building).Error)

	return &testEnv{db: db, gate: gate, schedule: schedule, contracts: contracts, building: building}
}

// newUnit создает квартиру стоимостью area × 100 000
func (e *testEnv) newUnit(t *testing.T, area int64) *models.Unit {
	t.Helper()

	unit := &models.Unit{
		BuildingID: e.building.ID,
		Entrance:   1,
		Number:     gofakeit.Numerify("##-###"),
		Floor:      gofakeit.IntRange(1, 9),
		Rooms:      gofakeit.IntRange(1, 4),
		Area:       m(area),
		Price:      m(100_000),
	}
	require.NoError(t, e.db.Create(unit).Error)
	return unit
}

func (e *testEnv) request(unitID uint, payment int64, term int, status models.ContractStatus) CreateContractRequest {
	date := contractDay
	return CreateContractRequest{
		UnitID:       unitID,
		FullName:     gofakeit.Name(),
		Phone:        gofakeit.Numerify("+99890#######"),
		Passport:     gofakeit.Numerify("AB#######"),
		Address:      gofakeit.Street(),
		Term:         term,
		Payment:      m(payment),
		PayDay:       15,
		Status:       status,
		ContractDate: &date,
	}
}

func (e *testEnv) createContract(t *testing.T, area, payment int64, term int, status models.ContractStatus) *models.Contract {
	t.Helper()

	unit := e.newUnit(t, area)
	contract, err := e.contracts.CreateContract(context.Background(), e.request(unit.ID, payment, term, status))
	require.NoError(t, err)
	return contract
}

func (e *testEnv) reloadContract(t *testing.T, id uint) models.Contract {
	t.Helper()

	var contract models.Contract
	require.NoError(t, e.db.First(&contract, id).Error)
	return contract
}

func (e *testEnv) lines(t *testing.T, contractID uint) []models.ScheduleLine {
	t.Helper()

	var lines []models.ScheduleLine
	require.NoError(t, e.db.Where("contract_id = ?", contractID).Order("month ASC").Find(&lines).Error)
	return lines
}

func (e *testEnv) line(t *testing.T, contractID uint, month int) models.ScheduleLine {
	t.Helper()

	var line models.ScheduleLine
	require.NoError(t, e.db.Where("contract_id = ? AND month = ?", contractID, month).First(&line).Error)
	return line
}

func (e *testEnv) unitBusy(t *testing.T, unitID uint) bool {
	t.Helper()

	var unit models.Unit
	require.NoError(t, e.db.First(&unit, unitID).Error)
	return unit.Busy
}

// assertAggregate проверяет, что остаток договора совпадает с суммой остатков строк
func (e *testEnv) assertAggregate(t *testing.T, contractID uint) {
	t.Helper()

	contract := e.reloadContract(t, contractID)
	sum := decimal.Zero
	count := 0
	for _, line := range e.lines(t, contractID) {
		assert.True(t, line.Amount.Sub(line.AmountPaid).Equal(line.Qoldiq), "qoldiq месяца %d", line.Month)
		assert.False(t, line.Qoldiq.IsNegative(), "отрицательный остаток месяца %d", line.Month)
		sum = sum.Add(line.Qoldiq)
		if line.Month > 0 {
			count++
		}
	}

	assert.True(t, sum.Equal(contract.Residual), "residual %s, сумма строк %s", contract.Residual, sum)
	assert.Equal(t, sum.IsPositive(), contract.Debt)
	assert.Equal(t, count, contract.CountMonth)
}

func amounts(lines []models.ScheduleLine) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, line.Amount.String())
	}
	return out
}
