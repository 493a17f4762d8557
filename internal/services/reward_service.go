package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"invest-engine/internal/models"
)

// UplineRewarder distributes the secondary reward chain on withdrawal
// completion. The withdrawal is already final when it runs; implementations
// must be safe to fail.
type UplineRewarder interface {
	DistributeWithdrawalReward(ctx context.Context, withdrawal *models.WithdrawalRequest) error
}

// RewardService pays withdrawal upline rewards. It reuses the commission
// chain walk but with its own schedule, sized against the withdrawn amount,
// and credits the bonus balance.
type RewardService struct {
	db        *gorm.DB
	settings  *SettingsService
	referrals *ReferralService
	wallets   *WalletService
}

// NewRewardService creates a new RewardService
func NewRewardService(db *gorm.DB, settings *SettingsService, referrals *ReferralService, wallets *WalletService) *RewardService {
	return &RewardService{
		db:        db,
		settings:  settings,
		referrals: referrals,
		wallets:   wallets,
	}
}

type rewardDetails struct {
	Level        int    `json:"level"`
	Percentage   string `json:"percentage"`
	Amount       string `json:"amount"`
	FromUserID   uint   `json:"from_user_id"`
	WithdrawalID uint   `json:"withdrawal_id"`
}

// DistributeWithdrawalReward fans the withdrawal upline reward out to each
// ancestor in the withdrawing user's chain, one decoupled transaction. A
// disabled schedule or empty chain distributes nothing.
func (s *RewardService) DistributeWithdrawalReward(ctx context.Context, withdrawal *models.WithdrawalRequest) error {
	cfg, err := s.settings.WithdrawalRewardConfig()
	if err != nil {
		return err
	}
	if !cfg.Enabled {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		chain, err := s.referrals.ResolveChain(tx, withdrawal.UserID, cfg.MaxLevel)
		if err != nil {
			return fmt.Errorf("failed to resolve chain for user %d: %w", withdrawal.UserID, err)
		}

		for i, referrer := range chain {
			level := i + 1
			percentage := cfg.PercentageForLevel(level)
			amount := withdrawal.Amount.Mul(percentage).Div(decimal.NewFromInt(100))
			if !amount.IsPositive() {
				continue
			}

			// Savepoint per level: one failed credit must not stop the
			// rest or abort the surrounding transaction.
			err := tx.Transaction(func(levelTx *gorm.DB) error {
				return s.creditReward(levelTx, withdrawal, referrer.ID, level, percentage, amount)
			})
			if err != nil {
				log.Printf("Upline reward level %d for withdrawal %d failed: %v", level, withdrawal.ID, err)
			}
		}
		return nil
	})
}

func (s *RewardService) creditReward(tx *gorm.DB, withdrawal *models.WithdrawalRequest, recipientID uint, level int, percentage, amount decimal.Decimal) error {
	wallet, err := s.wallets.ForUpdate(tx, recipientID)
	if err != nil {
		return fmt.Errorf("wallet for user %d: %w", recipientID, err)
	}

	details, _ := json.Marshal(rewardDetails{
		Level:        level,
		Percentage:   percentage.String(),
		Amount:       amount.String(),
		FromUserID:   withdrawal.UserID,
		WithdrawalID: withdrawal.ID,
	})

	entry := models.Transaction{
		Reference:     uuid.New().String(),
		UserID:        recipientID,
		Type:          models.TransactionTypeWithdrawalUplineReward,
		Amount:        amount,
		NetAmount:     amount,
		Status:        models.TransactionStatusCompleted,
		SourceType:    "withdrawal",
		SourceDetails: string(details),
		RelatedUserID: &withdrawal.UserID,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to write upline reward entry: %w", err)
	}

	err = tx.Model(&models.Wallet{}).Where("id = ?", wallet.ID).
		Updates(map[string]interface{}{
			"bonus_balance": gorm.Expr("bonus_balance + ?", amount),
			"total_earned":  gorm.Expr("total_earned + ?", amount),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update wallet %d: %w", wallet.ID, err)
	}
	return nil
}
