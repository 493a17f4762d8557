package models

import (
	"time"
)

// Setting keys consumed by the engine
const (
	SettingKeyDirectIncome     = "direct_income"
	SettingKeyROIProcessing    = "roi_processing"
	SettingKeyWithdrawalReward = "withdrawal_reward"
)

// Setting is a key to JSON value configuration row. Values are fetched at
// the start of each operation, never cached process-wide.
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:64;not null" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Setting model
func (Setting) TableName() string {
	return "settings"
}
