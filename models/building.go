package models

import (
	"time"

	"gorm.io/datatypes"
)

// Building представляет жилой дом (объект строительства)
type Building struct {
	ID         uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CityID     *uint          `gorm:"column:city_id;index" json:"city_id"`
	City       *City          `gorm:"foreignKey:CityID;constraint:OnDelete:SET NULL" json:"city,omitempty"`
	Name       string         `gorm:"column:name;not null;size:150" json:"name"`
	Code       string         `gorm:"column:code;size:3" json:"code"`
	Entrances  int            `gorm:"column:entrances;not null" json:"entrances"`
	Floors     int            `gorm:"column:floors;not null" json:"floors"`
	// Apartments количество квартир на этаже по подъездам, например [4, 6]
	Apartments datatypes.JSON `gorm:"column:apartments" json:"apartments"`
	// Status выставляется после добавления квартир
	Status     bool           `gorm:"column:status;not null;default:false" json:"status"`
	Location   string         `gorm:"column:location;type:text" json:"location"`
	CreatedAt  time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (Building) TableName() string {
	return "buildings"
}
