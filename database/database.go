package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"qurilish/config"
	"qurilish/models"
	"qurilish/utils"
)

// Database представляет подключение к базе данных
type Database struct {
	DB *gorm.DB
}

// NewDatabase оборачивает готовое подключение gorm
func NewDatabase(db *gorm.DB) *Database {
	return &Database{DB: db}
}

// GetDB возвращает экземпляр GORM
func (d *Database) GetDB() *gorm.DB {
	return d.DB
}

// Close закрывает подключение к базе данных
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Connect устанавливает соединение с базой данных и выполняет миграции
func Connect(cfg *config.Config, log *zap.Logger) (*Database, error) {
	// Устанавливаем соединение
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         utils.NewGormLogger(log, cfg.Log.GormMode),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %v", err)
	}

	// Настраиваем пул соединений
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пула соединений: %v", err)
	}

	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	// Выполняем SQL миграции
	if err := runMigrations(cfg); err != nil {
		return nil, fmt.Errorf("ошибка выполнения SQL миграций: %v", err)
	}

	// Выполняем автоматическую миграцию моделей
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}

	log.Info("подключение к базе данных установлено",
		zap.String("host", cfg.DB.Host),
		zap.String("db", cfg.DB.DBName),
	)

	return NewDatabase(db), nil
}

// runMigrations выполняет SQL миграции
func runMigrations(cfg *config.Config) error {
	m, err := migrate.New(cfg.DB.MigrationsPath, cfg.MigrateURL())
	if err != nil {
		return fmt.Errorf("ошибка создания миграции: %v", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка выполнения миграций: %v", err)
	}

	return nil
}

// AutoMigrate выполняет автоматическую миграцию моделей
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.City{},
		&models.Building{},
		&models.Unit{},
		&models.Client{},
		&models.Contract{},
		&models.ScheduleLine{},
		&models.ContractTrash{},
		&models.ExpenseType{},
		&models.Expense{},
	)
	if err != nil {
		return fmt.Errorf("ошибка автоматической миграции: %v", err)
	}

	return nil
}

// LockContract загружает договор с блокировкой строки (SELECT ... FOR UPDATE).
// Вызывается только внутри транзакции.
func LockContract(tx *gorm.DB, id uint) (*models.Contract, error) {
	var contract models.Contract
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&contract, id).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

// LockUnit загружает квартиру с блокировкой строки
func LockUnit(tx *gorm.DB, id uint) (*models.Unit, error) {
	var unit models.Unit
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&unit, id).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// Методы для работы с пользователями
func (d *Database) CreateUser(user *models.User) error {
	return d.DB.Create(user).Error
}

func (d *Database) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	err := d.DB.First(&user, id).Error
	return &user, err
}

func (d *Database) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := d.DB.Where("LOWER(TRIM(email)) = LOWER(TRIM(?))", email).First(&user).Error
	return &user, err
}
