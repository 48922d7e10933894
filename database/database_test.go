package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"qurilish/models"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

func TestLockContract_UsesForUpdate(t *testing.T) {
	db, mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "status", "residual"}).
		AddRow(7, string(models.ContractStatusFinalized), "1400000")
	mock.ExpectQuery(`SELECT \* FROM "contracts" WHERE "contracts"."id" = \$1 .*FOR UPDATE`).
		WillReturnRows(rows)

	contract, err := LockContract(db, 7)
	require.NoError(t, err)

	assert.Equal(t, uint(7), contract.ID)
	assert.Equal(t, models.ContractStatusFinalized, contract.Status)
	assert.True(t, decimal.NewFromInt(1_400_000).Equal(contract.Residual))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockUnit_UsesForUpdate(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "units" .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "busy"}).AddRow(3, false))

	unit, err := LockUnit(db, 3)
	require.NoError(t, err)
	assert.False(t, unit.Busy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockContract_NotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "contracts" .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := LockContract(db, 99)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAutoMigrate_SQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, AutoMigrate(db))

	for _, table := range []string{"users", "cities", "buildings", "units", "clients",
		"contracts", "schedule_lines", "contract_trash", "expense_types", "expenses"} {
		assert.True(t, db.Migrator().HasTable(table), "table %s", table)
	}

	d := NewDatabase(db)
	user := &models.User{FirstName: "Aziz", LastName: "Karimov", Email: "aziz@example.uz", Password: "x"}
	require.NoError(t, d.CreateUser(user))

	found, err := d.GetUserByEmail(" AZIZ@example.uz ")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
}
