package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentType способ оплаты расхода
type PaymentType string

const (
	PaymentTypeCash     PaymentType = "Naqd"
	PaymentTypeCard     PaymentType = "Plastik"
	PaymentTypeTransfer PaymentType = "Hisobdan o'tkazish"
)

// ExpenseType вид расхода
type ExpenseType struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;not null;size:200" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (ExpenseType) TableName() string {
	return "expense_types"
}

// Expense расход компании
type Expense struct {
	ID            uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	ExpenseTypeID uint            `gorm:"column:expense_type_id;not null;index" json:"expense_type_id"`
	ExpenseType   *ExpenseType    `gorm:"foreignKey:ExpenseTypeID" json:"expense_type,omitempty"`
	BuildingID    *uint           `gorm:"column:building_id;index" json:"building_id"`
	Building      *Building       `gorm:"foreignKey:BuildingID;constraint:OnDelete:SET NULL" json:"building,omitempty"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	Description   string          `gorm:"column:description;type:text" json:"description"`
	PaymentType   PaymentType     `gorm:"column:payment_type;type:varchar(50);not null;default:'Naqd'" json:"payment_type"`
	CreatedAt     time.Time       `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Expense) TableName() string {
	return "expenses"
}
