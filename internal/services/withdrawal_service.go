package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"invest-engine/internal/models"
)

// WithdrawalService drives the withdrawal state machine:
// pending -> processing -> {completed | rejected | cancelled}.
type WithdrawalService struct {
	db         *gorm.DB
	wallets    *WalletService
	rewarder   UplineRewarder
	feePercent decimal.Decimal
}

// NewWithdrawalService creates a new WithdrawalService
func NewWithdrawalService(db *gorm.DB, wallets *WalletService, rewarder UplineRewarder, feePercent float64) *WithdrawalService {
	return &WithdrawalService{
		db:         db,
		wallets:    wallets,
		rewarder:   rewarder,
		feePercent: decimal.NewFromFloat(feePercent),
	}
}

type withdrawalDetails struct {
	OrderID       string `json:"order_id"`
	PayoutAddress string `json:"payout_address"`
	FeePercent    string `json:"fee_percent"`
}

// Request creates a pending withdrawal. The requested amount is moved from
// the earning balances into locked_amount so it cannot be spent while the
// request is open.
func (s *WithdrawalService) Request(ctx context.Context, userID uint, amount decimal.Decimal, payoutAddress string) (*models.WithdrawalRequest, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("withdrawal amount must be positive")
	}
	decoded, err := base58.Decode(payoutAddress)
	if err != nil || len(decoded) != 32 {
		return nil, fmt.Errorf("invalid payout address")
	}

	fee := amount.Mul(s.feePercent).Div(decimal.NewFromInt(100))
	withdrawal := models.WithdrawalRequest{
		OrderID:       uuid.New().String(),
		UserID:        userID,
		Amount:        amount,
		FeeAmount:     fee,
		NetAmount:     amount.Sub(fee),
		PayoutAddress: payoutAddress,
		Status:        models.WithdrawalStatusPending,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallet, err := s.wallets.ForUpdate(tx, userID)
		if err != nil {
			return fmt.Errorf("wallet for user %d: %w", userID, err)
		}

		available := wallet.MainBalance.
			Add(wallet.ROIBalance).
			Add(wallet.CommissionBalance).
			Add(wallet.BonusBalance)
		if available.LessThan(amount) {
			return fmt.Errorf("insufficient balance: available %s, requested %s", available, amount)
		}

		// Drain roi, commission, bonus then main, locking the total.
		updates := drainBalances(wallet, amount)
		updates["locked_amount"] = gorm.Expr("locked_amount + ?", amount)
		if err := tx.Model(&models.Wallet{}).Where("id = ?", wallet.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to lock funds: %w", err)
		}

		return tx.Create(&withdrawal).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Withdrawal %d requested: user=%d amount=%s fee=%s", withdrawal.ID, userID, amount, fee)
	return &withdrawal, nil
}

// drainBalances deducts amount from the wallet's balances in fixed order
// (roi, commission, bonus, main) and returns the gorm update map.
func drainBalances(wallet *models.Wallet, amount decimal.Decimal) map[string]interface{} {
	updates := map[string]interface{}{}
	remaining := amount

	for _, source := range []struct {
		column  string
		balance decimal.Decimal
	}{
		{"roi_balance", wallet.ROIBalance},
		{"commission_balance", wallet.CommissionBalance},
		{"bonus_balance", wallet.BonusBalance},
		{"main_balance", wallet.MainBalance},
	} {
		if remaining.IsZero() {
			break
		}
		take := decimal.Min(remaining, source.balance)
		if take.IsPositive() {
			updates[source.column] = gorm.Expr(source.column+" - ?", take)
			remaining = remaining.Sub(take)
		}
	}
	return updates
}

// Approve moves a pending withdrawal into processing
func (s *WithdrawalService) Approve(id uint) (*models.WithdrawalRequest, error) {
	var withdrawal models.WithdrawalRequest
	if err := s.db.Where("id = ?", id).First(&withdrawal).Error; err != nil {
		return nil, err
	}
	if withdrawal.Status != models.WithdrawalStatusPending {
		return nil, fmt.Errorf("withdrawal %d is %s, expected %s", id, withdrawal.Status, models.WithdrawalStatusPending)
	}

	now := time.Now()
	err := s.db.Model(&withdrawal).Updates(map[string]interface{}{
		"status":       models.WithdrawalStatusProcessing,
		"processed_at": now,
	}).Error
	if err != nil {
		return nil, err
	}
	withdrawal.Status = models.WithdrawalStatusProcessing
	withdrawal.ProcessedAt = &now
	return &withdrawal, nil
}

// Complete finalizes a withdrawal: the ledger entry and wallet update
// commit first, then the upline reward runs best-effort. A reward failure
// is logged and swallowed; the withdrawal is already final.
func (s *WithdrawalService) Complete(ctx context.Context, id uint) (*models.WithdrawalRequest, error) {
	var withdrawal models.WithdrawalRequest

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the withdrawal row first: a concurrent finalizer blocks
		// here and sees the terminal status once we commit, instead of
		// paying out a second time.
		if err := rowLock(tx).Where("id = ?", id).First(&withdrawal).Error; err != nil {
			return err
		}
		if withdrawal.Status != models.WithdrawalStatusPending && withdrawal.Status != models.WithdrawalStatusProcessing {
			return fmt.Errorf("withdrawal %d is %s, cannot complete", id, withdrawal.Status)
		}

		wallet, err := s.wallets.ForUpdate(tx, withdrawal.UserID)
		if err != nil {
			return fmt.Errorf("wallet for user %d: %w", withdrawal.UserID, err)
		}

		details, _ := json.Marshal(withdrawalDetails{
			OrderID:       withdrawal.OrderID,
			PayoutAddress: withdrawal.PayoutAddress,
			FeePercent:    s.feePercent.String(),
		})
		entry := models.Transaction{
			Reference:     uuid.New().String(),
			UserID:        withdrawal.UserID,
			Type:          models.TransactionTypeWithdrawal,
			Amount:        withdrawal.Amount,
			FeeAmount:     withdrawal.FeeAmount,
			NetAmount:     withdrawal.NetAmount.Neg(),
			Status:        models.TransactionStatusCompleted,
			SourceType:    "withdrawal_request",
			SourceDetails: string(details),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to write withdrawal entry: %w", err)
		}

		err = tx.Model(&models.Wallet{}).Where("id = ?", wallet.ID).
			Updates(map[string]interface{}{
				"locked_amount":   gorm.Expr("locked_amount - ?", withdrawal.Amount),
				"total_withdrawn": gorm.Expr("total_withdrawn + ?", withdrawal.NetAmount),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update wallet %d: %w", wallet.ID, err)
		}

		now := time.Now()
		return tx.Model(&withdrawal).Updates(map[string]interface{}{
			"status":       models.WithdrawalStatusCompleted,
			"completed_at": now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	withdrawal.Status = models.WithdrawalStatusCompleted

	// Upline reward is decoupled: the withdrawal has already committed and
	// must never be rolled back or blocked by a reward failure.
	if s.rewarder != nil {
		if err := s.rewarder.DistributeWithdrawalReward(ctx, &withdrawal); err != nil {
			log.Printf("Warning: upline reward for withdrawal %d failed: %v", withdrawal.ID, err)
		}
	}

	log.Printf("Withdrawal %d completed: user=%d net=%s", withdrawal.ID, withdrawal.UserID, withdrawal.NetAmount)
	return &withdrawal, nil
}

// Reject refuses a pending or processing withdrawal and returns the locked
// funds to the main balance.
func (s *WithdrawalService) Reject(ctx context.Context, id uint, reason string) (*models.WithdrawalRequest, error) {
	return s.release(ctx, id, models.WithdrawalStatusRejected, reason)
}

// Cancel withdraws the request at the user's initiative and returns the
// locked funds to the main balance.
func (s *WithdrawalService) Cancel(ctx context.Context, id uint) (*models.WithdrawalRequest, error) {
	return s.release(ctx, id, models.WithdrawalStatusCancelled, "")
}

func (s *WithdrawalService) release(ctx context.Context, id uint, status models.WithdrawalStatus, reason string) (*models.WithdrawalRequest, error) {
	var withdrawal models.WithdrawalRequest

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rowLock(tx).Where("id = ?", id).First(&withdrawal).Error; err != nil {
			return err
		}
		if withdrawal.Status != models.WithdrawalStatusPending && withdrawal.Status != models.WithdrawalStatusProcessing {
			return fmt.Errorf("withdrawal %d is %s, cannot release", id, withdrawal.Status)
		}

		wallet, err := s.wallets.ForUpdate(tx, withdrawal.UserID)
		if err != nil {
			return fmt.Errorf("wallet for user %d: %w", withdrawal.UserID, err)
		}

		err = tx.Model(&models.Wallet{}).Where("id = ?", wallet.ID).
			Updates(map[string]interface{}{
				"locked_amount": gorm.Expr("locked_amount - ?", withdrawal.Amount),
				"main_balance":  gorm.Expr("main_balance + ?", withdrawal.Amount),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to unlock funds: %w", err)
		}

		return tx.Model(&withdrawal).Updates(map[string]interface{}{
			"status":        status,
			"reject_reason": reason,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	withdrawal.Status = status
	withdrawal.RejectReason = reason
	return &withdrawal, nil
}

// GetUserWithdrawals returns a user's withdrawal requests, newest first
func (s *WithdrawalService) GetUserWithdrawals(userID uint) ([]models.WithdrawalRequest, error) {
	var withdrawals []models.WithdrawalRequest
	err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&withdrawals).Error
	if err != nil {
		return nil, err
	}
	return withdrawals, nil
}

// ListByStatus returns withdrawal requests in a given state, oldest first
func (s *WithdrawalService) ListByStatus(status models.WithdrawalStatus, limit int) ([]models.WithdrawalRequest, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var withdrawals []models.WithdrawalRequest
	err := s.db.Where("status = ?", status).Order("created_at ASC").Limit(limit).Find(&withdrawals).Error
	if err != nil {
		return nil, err
	}
	return withdrawals, nil
}
