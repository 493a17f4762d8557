package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvestmentStatus represents the lifecycle state of an investment
type InvestmentStatus string

const (
	InvestmentStatusActive    InvestmentStatus = "ACTIVE"
	InvestmentStatusCompleted InvestmentStatus = "COMPLETED"
	InvestmentStatusCancelled InvestmentStatus = "CANCELLED"
	InvestmentStatusPaused    InvestmentStatus = "PAUSED"
)

// Plan is a read-only investment product definition
type Plan struct {
	ID                 uint             `gorm:"primaryKey" json:"id"`
	Name               string           `gorm:"size:100;not null" json:"name"`
	DailyROIPercentage decimal.Decimal  `gorm:"type:decimal(5,2);not null" json:"daily_roi_percentage"`
	DurationDays       int              `gorm:"not null" json:"duration_days"`
	MinAmount          decimal.Decimal  `gorm:"type:decimal(18,8);not null" json:"min_amount"`
	MaxAmount          decimal.Decimal  `gorm:"type:decimal(18,8);not null" json:"max_amount"`
	MaxROIAmount       *decimal.Decimal `gorm:"type:decimal(18,8)" json:"max_roi_amount,omitempty"`
	IsActive           bool             `gorm:"default:true;index" json:"is_active"`
	CreatedAt          time.Time        `json:"created_at"`
}

// TableName specifies the table name for Plan model
func (Plan) TableName() string {
	return "plans"
}

// Investment represents a user's principal placed in a plan. The principal
// is immutable; only the accrual engine (or an explicit admin status
// change) mutates CurrentValue, TotalEarned, LastROIDate and Status.
type Investment struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	UserID         uint             `gorm:"not null;index" json:"user_id"`
	User           *User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	PlanID         uint             `gorm:"not null;index" json:"plan_id"`
	Plan           *Plan            `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	InvestedAmount decimal.Decimal  `gorm:"type:decimal(18,8);not null" json:"invested_amount"`
	CurrentValue   decimal.Decimal  `gorm:"type:decimal(18,8);default:0" json:"current_value"`
	TotalEarned    decimal.Decimal  `gorm:"type:decimal(18,8);default:0" json:"total_earned"`
	Status         InvestmentStatus `gorm:"size:20;default:ACTIVE;index" json:"status"`
	StartDate      time.Time        `gorm:"not null" json:"start_date"`
	EndDate        time.Time        `gorm:"not null;index" json:"end_date"`
	LastROIDate    *time.Time       `gorm:"column:last_roi_date;index" json:"last_roi_date,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// TableName specifies the table name for Investment model
func (Investment) TableName() string {
	return "investments"
}

// IsTerminal reports whether the investment can never accrue again
func (i *Investment) IsTerminal() bool {
	return i.Status == InvestmentStatusCompleted || i.Status == InvestmentStatusCancelled
}
