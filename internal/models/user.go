package models

import (
	"time"
)

// UserStatus represents the account standing of a user
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusInactive  UserStatus = "INACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
	UserStatusBanned    UserStatus = "BANNED"
)

// User represents a user in the system
type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	WalletAddress string     `gorm:"uniqueIndex;not null" json:"wallet_address"`
	Nickname      string     `gorm:"uniqueIndex;not null" json:"nickname"`
	Status        UserStatus `gorm:"size:20;default:ACTIVE;index" json:"status"`
	ReferrerID    *uint      `gorm:"index" json:"referrer_id,omitempty"`
	Referrer      *User      `gorm:"foreignKey:ReferrerID" json:"referrer,omitempty"`
	IsAdmin       bool       `gorm:"default:false" json:"is_admin"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// IsActive reports whether the user participates in commission and booster eligibility
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
