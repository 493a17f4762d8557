package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalStatus represents the state machine of a withdrawal request:
// pending -> processing -> {completed | rejected | cancelled}. Completed is
// the only state that triggers upline rewards and the transition is one-way.
type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "PENDING"
	WithdrawalStatusProcessing WithdrawalStatus = "PROCESSING"
	WithdrawalStatusCompleted  WithdrawalStatus = "COMPLETED"
	WithdrawalStatusRejected   WithdrawalStatus = "REJECTED"
	WithdrawalStatusCancelled  WithdrawalStatus = "CANCELLED"
)

// WithdrawalRequest represents a user's request to withdraw funds
type WithdrawalRequest struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	OrderID       string           `gorm:"uniqueIndex;size:64;not null" json:"order_id"`
	UserID        uint             `gorm:"not null;index" json:"user_id"`
	User          *User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Amount        decimal.Decimal  `gorm:"type:decimal(18,8);not null" json:"amount"`
	FeeAmount     decimal.Decimal  `gorm:"type:decimal(18,8);default:0" json:"fee_amount"`
	NetAmount     decimal.Decimal  `gorm:"type:decimal(18,8);not null" json:"net_amount"`
	PayoutAddress string           `gorm:"size:64;not null" json:"payout_address"`
	Status        WithdrawalStatus `gorm:"size:20;default:PENDING;index" json:"status"`
	RejectReason  string           `gorm:"size:255" json:"reject_reason,omitempty"`
	ProcessedAt   *time.Time       `json:"processed_at,omitempty"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// TableName specifies the table name for WithdrawalRequest model
func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}
