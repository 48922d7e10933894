package models

import "time"

// City представляет город
type City struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;not null;size:100" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (City) TableName() string {
	return "cities"
}
