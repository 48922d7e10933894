package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// User сотрудник отдела продаж
type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	FirstName string    `gorm:"column:first_name;not null;size:50" json:"first_name"`
	LastName  string    `gorm:"column:last_name;not null;size:50" json:"last_name"`
	Email     string    `gorm:"column:email;unique;not null;size:100;index" json:"email"`
	Password  string    `gorm:"column:password;not null;size:100" json:"-"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate хук для валидации перед созданием
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if len(u.FirstName) < 2 || len(u.FirstName) > 50 {
		return errors.New("имя должно содержать от 2 до 50 символов")
	}
	if len(u.LastName) < 2 || len(u.LastName) > 50 {
		return errors.New("фамилия должна содержать от 2 до 50 символов")
	}
	if len(u.Email) < 3 || len(u.Email) > 100 {
		return errors.New("email должен содержать от 3 до 100 символов")
	}
	return nil
}
