package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered customer
type User struct {
	gorm.Model
	Username    string    `gorm:"uniqueIndex;not null" json:"username"`
	Email       string    `gorm:"uniqueIndex;not null" json:"email"`
	Password    string    `json:"-"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Phone       string    `json:"phone"`
	IsBlocked   bool      `json:"is_blocked"`
	LastLoginAt time.Time `json:"last_login_at"`

	Orders []Order `json:"orders,omitempty" gorm:"foreignKey:UserID"`
}
