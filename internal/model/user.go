package model

import "gorm.io/gorm"

// User is a trading account. The username is the trader identity the
// engine and the ledgers see.
type User struct {
	gorm.Model
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"` // bcrypt hash
	Role     string `gorm:"default:'user'" json:"role"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
}
