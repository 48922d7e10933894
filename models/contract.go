package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContractStatus представляет статус договора
type ContractStatus string

const (
	ContractStatusForming   ContractStatus = "Rasmiylashtirilmoqda"
	ContractStatusFinalized ContractStatus = "Rasmiylashtirilgan"
	ContractStatusCancelled ContractStatus = "Bekor qilingan"
	ContractStatusCompleted ContractStatus = "Tugallangan"
)

// contractTransitions допустимые переходы между статусами
var contractTransitions = map[ContractStatus][]ContractStatus{
	ContractStatusForming:   {ContractStatusFinalized, ContractStatusCancelled},
	ContractStatusFinalized: {ContractStatusCompleted, ContractStatusCancelled},
}

// Valid проверяет, что статус известен
func (s ContractStatus) Valid() bool {
	switch s {
	case ContractStatusForming, ContractStatusFinalized, ContractStatusCancelled, ContractStatusCompleted:
		return true
	}
	return false
}

// Terminal статус конечный
func (s ContractStatus) Terminal() bool {
	return s == ContractStatusCancelled || s == ContractStatusCompleted
}

// Active договор удерживает квартиру
func (s ContractStatus) Active() bool {
	return s == ContractStatusForming || s == ContractStatusFinalized
}

// CanTransitionTo проверяет переход по таблице статусов
func (s ContractStatus) CanTransitionTo(next ContractStatus) bool {
	for _, allowed := range contractTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Contract договор рассрочки на квартиру
type Contract struct {
	ID       uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Number   uint    `gorm:"column:number;uniqueIndex:uniq_contracts_number" json:"number"`
	ClientID *uint   `gorm:"column:client_id;index" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID;constraint:OnDelete:SET NULL" json:"client,omitempty"`
	UnitID   *uint   `gorm:"column:unit_id;index" json:"unit_id"`
	Unit     *Unit   `gorm:"foreignKey:UnitID;constraint:OnDelete:SET NULL" json:"unit,omitempty"`

	Passport        string `gorm:"column:passport;not null;size:15" json:"passport"`
	PassportIssued  string `gorm:"column:passport_issued;size:25" json:"passport_issued"`
	PassportGivenBy string `gorm:"column:passport_given_by;size:100" json:"passport_given_by"`
	Address         string `gorm:"column:address;size:255" json:"address"`
	Address2        string `gorm:"column:address2;size:255" json:"address2"`

	// Term срок рассрочки в месяцах
	Term      int             `gorm:"column:term;not null" json:"term"`
	Payment   decimal.Decimal `gorm:"column:payment;type:decimal(20,2);not null" json:"payment"`
	HomePrice decimal.Decimal `gorm:"column:home_price;type:decimal(20,2);not null" json:"home_price"`
	PayDay    int             `gorm:"column:pay_date;not null;default:15" json:"pay_date"`

	Status     ContractStatus  `gorm:"column:status;type:varchar(30);not null;index" json:"status"`
	Debt       bool            `gorm:"column:debt;not null;default:false" json:"debt"`
	Residual   decimal.Decimal `gorm:"column:residual;type:decimal(20,2);not null" json:"residual"`
	OylikTolov decimal.Decimal `gorm:"column:oylik_tolov;type:decimal(20,2);not null" json:"oylik_tolov"`
	CountMonth int             `gorm:"column:count_month;not null" json:"count_month"`

	ContractDate time.Time      `gorm:"column:contract_date;not null" json:"contract_date"`
	Lines        []ScheduleLine `gorm:"foreignKey:ContractID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (Contract) TableName() string {
	return "contracts"
}
