package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ContractTrash архив удаленных и отмененных договоров
type ContractTrash struct {
	ID         uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	ContractID uint            `gorm:"column:contract_id;index" json:"contract_id"`
	Number     uint            `gorm:"column:number" json:"number"`
	ClientID   *uint           `gorm:"column:client_id;index" json:"client_id"`
	UnitID     *uint           `gorm:"column:unit_id;index" json:"unit_id"`
	Passport   string          `gorm:"column:passport;size:15" json:"passport"`
	Term       int             `gorm:"column:term" json:"term"`
	Payment    decimal.Decimal `gorm:"column:payment;type:decimal(20,2)" json:"payment"`
	HomePrice  decimal.Decimal `gorm:"column:home_price;type:decimal(20,2)" json:"home_price"`
	Residual   decimal.Decimal `gorm:"column:residual;type:decimal(20,2)" json:"residual"`
	OylikTolov decimal.Decimal `gorm:"column:oylik_tolov;type:decimal(20,2)" json:"oylik_tolov"`
	CountMonth int             `gorm:"column:count_month" json:"count_month"`
	Status     ContractStatus  `gorm:"column:status;type:varchar(30)" json:"status"`
	Debt       bool            `gorm:"column:debt" json:"debt"`
	// Lines снимок графика платежей на момент удаления
	Lines      datatypes.JSON  `gorm:"column:lines" json:"lines"`
	Reason     string          `gorm:"column:reason;size:50" json:"reason"`
	CreatedAt  time.Time       `gorm:"column:created_at" json:"created_at"`
	TrashedAt  time.Time       `gorm:"column:trashed_at;autoCreateTime" json:"trashed_at"`
}

func (ContractTrash) TableName() string {
	return "contract_trash"
}
