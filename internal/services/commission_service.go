package services

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"invest-engine/internal/models"
)

// Per-level distribution outcomes
const (
	LevelOutcomeSuccess    = "success"
	LevelOutcomeSkippedCap = "skipped_cap_reached"
	LevelOutcomeFailed     = "failed"
)

// LevelResult records what happened at one level of a distribution
type LevelResult struct {
	Level      int             `json:"level"`
	UserID     uint            `json:"user_id"`
	Percentage decimal.Decimal `json:"percentage"`
	Requested  decimal.Decimal `json:"requested"`
	Actual     decimal.Decimal `json:"actual"`
	Capped     decimal.Decimal `json:"capped"`
	Outcome    string          `json:"outcome"`
	Error      string          `json:"error,omitempty"`
}

// DistributionSummary is the audit report of one commission fan-out. It is
// informational only; callers never branch on it.
type DistributionSummary struct {
	InvestmentID     uint            `json:"investment_id"`
	TotalDistributed decimal.Decimal `json:"total_distributed"`
	LevelsProcessed  int             `json:"levels_processed"`
	Successful       int             `json:"successful"`
	Failed           int             `json:"failed"`
	Skipped          int             `json:"skipped"`
	Levels           []LevelResult   `json:"levels"`
}

// CommissionService distributes direct investment commissions up the
// referrer chain.
type CommissionService struct {
	db        *gorm.DB
	settings  *SettingsService
	referrals *ReferralService
	wallets   *WalletService
}

// NewCommissionService creates a new CommissionService
func NewCommissionService(db *gorm.DB, settings *SettingsService, referrals *ReferralService, wallets *WalletService) *CommissionService {
	return &CommissionService{
		db:        db,
		settings:  settings,
		referrals: referrals,
		wallets:   wallets,
	}
}

type commissionDetails struct {
	Level           int    `json:"level"`
	Percentage      string `json:"percentage"`
	RequestedAmount string `json:"requested_amount"`
	ActualAmount    string `json:"actual_amount"`
	CappedAmount    string `json:"capped_amount"`
	FromUserID      uint   `json:"from_user_id"`
	InvestmentID    uint   `json:"investment_id"`
}

// Distribute fans a percentage of the invested amount out to each ancestor
// in the investor's referrer chain, inside the caller's transaction (the
// same one that created the investment). A disabled or malformed schedule
// returns an empty summary, never an error: commission must not be able to
// fail the investment. Per-level failures are recorded and the remaining
// levels continue.
func (s *CommissionService) Distribute(tx *gorm.DB, inv *models.Investment) (*DistributionSummary, error) {
	summary := &DistributionSummary{
		InvestmentID:     inv.ID,
		TotalDistributed: decimal.Zero,
	}

	cfg, err := s.settings.DirectIncomeConfig()
	if err != nil {
		log.Printf("Warning: could not load commission schedule, skipping distribution: %v", err)
		return summary, nil
	}
	if !cfg.Enabled {
		return summary, nil
	}

	chain, err := s.referrals.ResolveChain(tx, inv.UserID, cfg.MaxLevel)
	if err != nil {
		log.Printf("Warning: could not resolve referrer chain for user %d, skipping distribution: %v", inv.UserID, err)
		return summary, nil
	}

	for i, referrer := range chain {
		level := i + 1
		percentage := cfg.PercentageForLevel(level)
		requested := inv.InvestedAmount.Mul(percentage).Div(decimal.NewFromInt(100))

		result := LevelResult{
			Level:      level,
			UserID:     referrer.ID,
			Percentage: percentage,
			Requested:  requested,
			Actual:     decimal.Zero,
			Capped:     decimal.Zero,
		}
		summary.LevelsProcessed++

		if requested.IsZero() {
			result.Outcome = LevelOutcomeSuccess
			summary.Successful++
			summary.Levels = append(summary.Levels, result)
			continue
		}

		// Each level runs in its own savepoint so a failed statement
		// cannot poison the surrounding transaction for the levels
		// (and the investment write) that follow.
		var actual, capped decimal.Decimal
		err := tx.Transaction(func(levelTx *gorm.DB) error {
			var creditErr error
			actual, capped, creditErr = s.creditLevel(levelTx, inv, referrer.ID, level, percentage, requested)
			return creditErr
		})
		switch {
		case err == errCapReached:
			result.Outcome = LevelOutcomeSkippedCap
			result.Capped = requested
			summary.Skipped++
		case err != nil:
			result.Outcome = LevelOutcomeFailed
			result.Error = err.Error()
			summary.Failed++
			log.Printf("Commission level %d for investment %d failed: %v", level, inv.ID, err)
		default:
			result.Outcome = LevelOutcomeSuccess
			result.Actual = actual
			result.Capped = capped
			summary.Successful++
			summary.TotalDistributed = summary.TotalDistributed.Add(actual)
		}
		summary.Levels = append(summary.Levels, result)
	}

	return summary, nil
}

// errCapReached is the named terminal outcome for a recipient whose wallet
// has no remaining earning capacity. It carries no monetary effect.
var errCapReached = fmt.Errorf("earning cap reached")

// creditLevel reads the recipient's wallet under a row lock, applies the
// earning cap and writes the direct_bonus ledger entry plus the wallet
// update in the same transaction.
func (s *CommissionService) creditLevel(tx *gorm.DB, inv *models.Investment, recipientID uint, level int, percentage, requested decimal.Decimal) (actual, capped decimal.Decimal, err error) {
	wallet, err := s.wallets.ForUpdate(tx, recipientID)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("wallet for user %d: %w", recipientID, err)
	}

	remaining := wallet.RemainingEarningCapacity()
	if remaining.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, decimal.Zero, errCapReached
	}

	actual = decimal.Min(requested, remaining)
	capped = requested.Sub(actual)

	details, _ := json.Marshal(commissionDetails{
		Level:           level,
		Percentage:      percentage.String(),
		RequestedAmount: requested.String(),
		ActualAmount:    actual.String(),
		CappedAmount:    capped.String(),
		FromUserID:      inv.UserID,
		InvestmentID:    inv.ID,
	})

	entry := models.Transaction{
		Reference:           uuid.New().String(),
		UserID:              recipientID,
		Type:                models.TransactionTypeDirectBonus,
		Amount:              actual,
		NetAmount:           actual,
		Status:              models.TransactionStatusCompleted,
		SourceType:          "investment",
		SourceDetails:       string(details),
		RelatedUserID:       &inv.UserID,
		RelatedInvestmentID: &inv.ID,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to write direct_bonus entry: %w", err)
	}

	err = tx.Model(&models.Wallet{}).Where("id = ?", wallet.ID).
		Updates(map[string]interface{}{
			"commission_balance": gorm.Expr("commission_balance + ?", actual),
			"total_earned":       gorm.Expr("total_earned + ?", actual),
		}).Error
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to update wallet %d: %w", wallet.ID, err)
	}

	return actual, capped, nil
}
