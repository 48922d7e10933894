package models

import "time"

// HeardSource канал, из которого клиент узнал о компании
type HeardSource string

const (
	HeardTelegram  HeardSource = "Telegramda"
	HeardInstagram HeardSource = "Instagramda"
	HeardYouTube   HeardSource = "YouTubeda"
	HeardPeople    HeardSource = "Odamlar orasida"
	HeardNowhere   HeardSource = "Xech qayerda"
)

// HeardSources все допустимые каналы
var HeardSources = []HeardSource{HeardTelegram, HeardInstagram, HeardYouTube, HeardPeople, HeardNowhere}

// Client представляет покупателя
type Client struct {
	ID        uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	FullName  string      `gorm:"column:full_name;not null;size:150;index" json:"full_name"`
	Phone     string      `gorm:"column:phone;size:20;index" json:"phone"`
	Phone2    string      `gorm:"column:phone2;size:20" json:"phone2"`
	Heard     HeardSource `gorm:"column:heard;type:varchar(50)" json:"heard"`
	CreatedAt time.Time   `gorm:"column:created_at" json:"created_at"`
}

func (Client) TableName() string {
	return "clients"
}
