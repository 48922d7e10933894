package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScheduleLine строка графика платежей по договору.
// Month = 0 первоначальный взнос, дальше ежемесячные платежи.
type ScheduleLine struct {
	ID         uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	ContractID uint            `gorm:"column:contract_id;not null;index" json:"contract_id"`
	Month      int             `gorm:"column:month;not null" json:"month"`
	Amount     decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	AmountPaid decimal.Decimal `gorm:"column:amount_paid;type:decimal(20,2);not null;default:0" json:"amount_paid"`
	Qoldiq     decimal.Decimal `gorm:"column:qoldiq;type:decimal(20,2);not null" json:"qoldiq"`
	// Date срок платежа
	Date       time.Time       `gorm:"column:date;not null;index" json:"date"`
	// PayDate время последнего платежа
	PayDate    *time.Time      `gorm:"column:pay_date" json:"pay_date"`
}

func (ScheduleLine) TableName() string {
	return "schedule_lines"
}

// Recalc пересчитывает остаток строки
func (l *ScheduleLine) Recalc() {
	l.Qoldiq = l.Amount.Sub(l.AmountPaid)
}

// IsSettled строка полностью оплачена клиентом.
// Нулевые строки без оплат оплаченными не считаются.
func (l ScheduleLine) IsSettled() bool {
	return l.Qoldiq.LessThanOrEqual(decimal.Zero) && l.AmountPaid.IsPositive()
}

// IsPaid по строке ничего не осталось
func (l ScheduleLine) IsPaid() bool {
	return l.Qoldiq.LessThanOrEqual(decimal.Zero)
}

// IsInitial строка первоначального взноса
func (l ScheduleLine) IsInitial() bool {
	return l.Month == 0
}
