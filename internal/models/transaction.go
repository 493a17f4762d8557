package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType labels a ledger entry
type TransactionType string

const (
	TransactionTypeInvest                 TransactionType = "INVEST"
	TransactionTypeDirectBonus            TransactionType = "DIRECT_BONUS"
	TransactionTypeROIEarning             TransactionType = "ROI_EARNING"
	TransactionTypeWithdrawal             TransactionType = "WITHDRAWAL"
	TransactionTypeWithdrawalUplineReward TransactionType = "WITHDRAWAL_UPLINE_REWARD"
)

// TransactionStatus represents the state of a ledger entry
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Transaction is an append-only ledger entry. Rows are never updated or
// deleted once written; all wallet balances derive from them.
type Transaction struct {
	ID                  uint              `gorm:"primaryKey" json:"id"`
	Reference           string            `gorm:"uniqueIndex;size:64;not null" json:"reference"`
	UserID              uint              `gorm:"not null;index" json:"user_id"`
	User                *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Type                TransactionType   `gorm:"size:40;not null;index" json:"type"`
	Amount              decimal.Decimal   `gorm:"type:decimal(18,8);not null" json:"amount"`
	FeeAmount           decimal.Decimal   `gorm:"type:decimal(18,8);default:0" json:"fee_amount"`
	NetAmount           decimal.Decimal   `gorm:"type:decimal(18,8);not null" json:"net_amount"`
	Status              TransactionStatus `gorm:"size:20;default:COMPLETED;index" json:"status"`
	SourceType          string            `gorm:"size:40" json:"source_type"`
	SourceDetails       string            `gorm:"type:text" json:"source_details"`
	RelatedUserID       *uint             `gorm:"index" json:"related_user_id,omitempty"`
	RelatedInvestmentID *uint             `gorm:"index" json:"related_investment_id,omitempty"`
	CreatedAt           time.Time         `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for Transaction model
func (Transaction) TableName() string {
	return "transactions"
}
