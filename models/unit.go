package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unit представляет квартиру в доме
type Unit struct {
	ID               uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	BuildingID       uint            `gorm:"column:building_id;not null;index" json:"building_id"`
	Building         *Building       `gorm:"foreignKey:BuildingID;constraint:OnDelete:CASCADE" json:"building,omitempty"`
	Entrance         int             `gorm:"column:entrance;not null" json:"entrance"`
	Number           string          `gorm:"column:number;not null;size:200" json:"number"`
	Floor            int             `gorm:"column:floor;not null" json:"floor"`
	Rooms            int             `gorm:"column:rooms;not null" json:"rooms"`
	// Area площадь в м²
	Area             decimal.Decimal `gorm:"column:area;type:decimal(10,2);not null" json:"area"`
	// Price цена за м²
	Price            decimal.Decimal `gorm:"column:price;type:decimal(20,2);not null" json:"price"`
	// Busy меняет только проверка занятости квартир
	Busy             bool            `gorm:"column:busy;not null;default:false" json:"busy"`
	FloorPlan        string          `gorm:"column:floor_plan;size:255" json:"floor_plan"`
	FloorPlanDrawing string          `gorm:"column:floor_plan_drawing;size:255" json:"floor_plan_drawing"`
	CreatedAt        time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (Unit) TableName() string {
	return "units"
}

// TotalPrice возвращает полную стоимость квартиры
func (u Unit) TotalPrice() decimal.Decimal {
	return u.Area.Mul(u.Price).Round(2)
}
