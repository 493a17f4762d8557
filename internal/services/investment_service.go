package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"invest-engine/internal/models"
)

// InvestmentService creates investments and fans out the direct commission
// inside the same atomic operation.
type InvestmentService struct {
	db          *gorm.DB
	commissions *CommissionService
	wallets     *WalletService
}

// NewInvestmentService creates a new InvestmentService
func NewInvestmentService(db *gorm.DB, commissions *CommissionService, wallets *WalletService) *InvestmentService {
	return &InvestmentService{
		db:          db,
		commissions: commissions,
		wallets:     wallets,
	}
}

type investDetails struct {
	PlanID   uint   `json:"plan_id"`
	PlanName string `json:"plan_name"`
	Duration int    `json:"duration_days"`
}

// Create records a new investment: the investment row, its invest ledger
// entry, the wallet's total_invested update and the commission fan-out all
// commit or roll back together. Whether the user is allowed to invest is
// validated upstream; this only checks plan constraints.
func (s *InvestmentService) Create(ctx context.Context, userID, planID uint, amount decimal.Decimal) (*models.Investment, *DistributionSummary, error) {
	var user models.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, nil, fmt.Errorf("user %d not found: %w", userID, err)
	}

	var plan models.Plan
	if err := s.db.Where("id = ? AND is_active = ?", planID, true).First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, fmt.Errorf("plan %d not found or inactive", planID)
		}
		return nil, nil, err
	}

	if amount.LessThan(plan.MinAmount) || amount.GreaterThan(plan.MaxAmount) {
		return nil, nil, fmt.Errorf("amount must be between %s and %s for plan %s",
			plan.MinAmount, plan.MaxAmount, plan.Name)
	}

	// Make sure the wallet row exists before locking it inside the
	// transaction.
	if _, err := s.wallets.GetOrCreate(userID); err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	investment := models.Investment{
		UserID:         userID,
		PlanID:         plan.ID,
		InvestedAmount: amount,
		CurrentValue:   amount,
		TotalEarned:    decimal.Zero,
		Status:         models.InvestmentStatusActive,
		StartDate:      dayStart(now),
		EndDate:        dayStart(now).AddDate(0, 0, plan.DurationDays),
	}

	var summary *DistributionSummary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&investment).Error; err != nil {
			return fmt.Errorf("failed to create investment: %w", err)
		}

		details, _ := json.Marshal(investDetails{
			PlanID:   plan.ID,
			PlanName: plan.Name,
			Duration: plan.DurationDays,
		})
		entry := models.Transaction{
			Reference:           uuid.New().String(),
			UserID:              userID,
			Type:                models.TransactionTypeInvest,
			Amount:              amount,
			NetAmount:           amount,
			Status:              models.TransactionStatusCompleted,
			SourceType:          "plan",
			SourceDetails:       string(details),
			RelatedInvestmentID: &investment.ID,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to write invest entry: %w", err)
		}

		wallet, err := s.wallets.ForUpdate(tx, userID)
		if err != nil {
			return fmt.Errorf("wallet for user %d: %w", userID, err)
		}
		err = tx.Model(&models.Wallet{}).Where("id = ?", wallet.ID).
			Update("total_invested", gorm.Expr("total_invested + ?", amount)).Error
		if err != nil {
			return fmt.Errorf("failed to update wallet %d: %w", wallet.ID, err)
		}

		summary, err = s.commissions.Distribute(tx, &investment)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	log.Printf("Investment %d created: user=%d plan=%s amount=%s commission=%s",
		investment.ID, userID, plan.Name, amount, summary.TotalDistributed)
	return &investment, summary, nil
}

// GetUserInvestments returns all investments of a user, newest first
func (s *InvestmentService) GetUserInvestments(userID uint) ([]models.Investment, error) {
	var investments []models.Investment
	err := s.db.Where("user_id = ?", userID).
		Preload("Plan").
		Order("created_at DESC").
		Find(&investments).Error
	if err != nil {
		return nil, err
	}
	return investments, nil
}

// GetActivePlans returns the investable plan catalogue
func (s *InvestmentService) GetActivePlans() ([]models.Plan, error) {
	var plans []models.Plan
	if err := s.db.Where("is_active = ?", true).Order("id ASC").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}
