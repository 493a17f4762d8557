package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EarningCapMultiplier bounds cumulative roi+commission credits per wallet
// at a multiple of the wallet's total invested capital.
var EarningCapMultiplier = decimal.NewFromInt(4)

// Wallet holds the derived balances for a user. Every field is the sum of
// completed Transactions affecting it; no field is ever set outside a
// ledger write.
type Wallet struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	UserID            uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	User              *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	MainBalance       decimal.Decimal `gorm:"type:decimal(18,8);default:0" json:"main_balance"`
	ROIBalance        decimal.Decimal `gorm:"type:decimal(18,8);default:0" json:"roi_balance"`
	CommissionBalance decimal.Decimal `gorm:"type:decimal(18,8);default:0" json:"commission_balance"`
	BonusBalance      decimal.Decimal `gorm:"type:decimal(18,8);default:0" json:"bonus_balance"`
	LockedAmount      decimal.Decimal `gorm:"type:decimal(18,8);default:0" json:"locked_amount"`
	TotalEarned       decimal.Decimal `gorm:"type:decimal(18,8);default:0" json:"total_earned"`
	TotalWithdrawn    decimal.Decimal `gorm:"type:decimal(18,8);default:0" json:"total_withdrawn"`
	TotalInvested     decimal.Decimal `gorm:"type:decimal(18,8);default:0" json:"total_invested"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Wallet model
func (Wallet) TableName() string {
	return "wallets"
}

// RemainingEarningCapacity returns how much roi/commission credit the wallet
// can still accept before hitting the earning cap. May be negative when the
// cap has already been exceeded.
func (w *Wallet) RemainingEarningCapacity() decimal.Decimal {
	cap := w.TotalInvested.Mul(EarningCapMultiplier)
	return cap.Sub(w.ROIBalance.Add(w.CommissionBalance))
}
