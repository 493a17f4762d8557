package models

import (
	"time"
)

// ReferralCode represents a unique referral code for a user
type ReferralCode struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Code      string    `gorm:"uniqueIndex;size:20;not null" json:"code"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (ReferralCode) TableName() string {
	return "referral_codes"
}

// BoosterRecord is a manually activated, time-bound booster level for a
// user. Multiple records may coexist; only the highest currently active
// level counts.
type BoosterRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Level     int       `gorm:"not null" json:"level"`
	Days      int       `gorm:"not null" json:"days"`
	StartedAt time.Time `gorm:"not null" json:"started_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (BoosterRecord) TableName() string {
	return "booster_records"
}

// ActiveAt reports whether the booster is still running at the given time
func (b *BoosterRecord) ActiveAt(now time.Time) bool {
	return !now.After(b.StartedAt.AddDate(0, 0, b.Days))
}
