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

// Booster tiers driven by early direct referrals: at least 2 referrals who
// joined within 7 days of the investor's first investment add +0.10% to the
// daily rate, at least 5 add +0.20%.
var (
	boosterWindow        = 7 * 24 * time.Hour
	boosterTierTwoCount  = int64(2)
	boosterTierTwoRate   = decimal.NewFromFloat(0.10)
	boosterTierFiveCount = int64(5)
	boosterTierFiveRate  = decimal.NewFromFloat(0.20)
)

// Accrual outcomes
const (
	AccrualOutcomeSuccess = "success"
	AccrualOutcomeSkipped = "skipped"
	AccrualOutcomeFailed  = "failed"
)

// AccrualResult reports one investment's accrual attempt
type AccrualResult struct {
	InvestmentID uint            `json:"investment_id"`
	UserID       uint            `json:"user_id"`
	BaseAmount   decimal.Decimal `json:"base_amount"`
	BoostAmount  decimal.Decimal `json:"boost_amount"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Completed    bool            `json:"completed"`
	Outcome      string          `json:"outcome"`
	Reason       string          `json:"reason,omitempty"`
}

// SweepReport aggregates a batch of accruals
type SweepReport struct {
	Processed    int             `json:"processed"`
	Successful   int             `json:"successful"`
	Failed       int             `json:"failed"`
	Skipped      int             `json:"skipped"`
	TotalAccrued decimal.Decimal `json:"total_accrued"`
	Results      []AccrualResult `json:"results"`
}

// ROIService is the daily accrual engine. Each investment is processed in
// its own database transaction; failures are isolated per investment and
// never abort the batch.
type ROIService struct {
	db        *gorm.DB
	settings  *SettingsService
	referrals *ReferralService
	wallets   *WalletService
}

// NewROIService creates a new ROIService
func NewROIService(db *gorm.DB, settings *SettingsService, referrals *ReferralService, wallets *WalletService) *ROIService {
	return &ROIService{
		db:        db,
		settings:  settings,
		referrals: referrals,
		wallets:   wallets,
	}
}

// SweepDaily accrues ROI for every eligible active investment. Called by
// the scheduled sweep job and by the admin on-demand trigger.
func (s *ROIService) SweepDaily(ctx context.Context) (*SweepReport, error) {
	return s.sweep(ctx, 0)
}

// AccrueForUser runs the same accrual, scoped to one user's investments
func (s *ROIService) AccrueForUser(ctx context.Context, userID uint) (*SweepReport, error) {
	return s.sweep(ctx, userID)
}

func (s *ROIService) sweep(ctx context.Context, userID uint) (*SweepReport, error) {
	cfg, err := s.settings.ROIProcessingConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load roi processing config: %w", err)
	}

	today := dayStart(time.Now().UTC())

	ids, err := s.eligibleInvestmentIDs(ctx, cfg, userID, today)
	if err != nil {
		return nil, err
	}

	report := &SweepReport{TotalAccrued: decimal.Zero}
	for _, id := range ids {
		result := s.accrueInvestment(ctx, cfg, id, today)
		report.Processed++
		report.Results = append(report.Results, result)

		switch result.Outcome {
		case AccrualOutcomeSuccess:
			report.Successful++
			report.TotalAccrued = report.TotalAccrued.Add(result.TotalAmount)
		case AccrualOutcomeSkipped:
			report.Skipped++
		default:
			report.Failed++
			log.Printf("ROI accrual failed for investment %d: %s", result.InvestmentID, result.Reason)
		}
	}

	return report, nil
}

// eligibleInvestmentIDs selects investments due for accrual: active, not
// past end date, on an active plan, and not yet processed today unless the
// duplicate-day flag explicitly allows reprocessing.
func (s *ROIService) eligibleInvestmentIDs(ctx context.Context, cfg ROIProcessingConfig, userID uint, today time.Time) ([]uint, error) {
	query := s.db.WithContext(ctx).Model(&models.Investment{}).
		Joins("JOIN plans ON plans.id = investments.plan_id").
		Where("investments.status = ?", models.InvestmentStatusActive).
		Where("investments.end_date >= ?", today).
		Where("plans.is_active = ?", true)

	if !cfg.AllowDuplicateDay {
		query = query.Where("investments.last_roi_date IS NULL OR investments.last_roi_date < ?", today)
	}
	if userID != 0 {
		query = query.Where("investments.user_id = ?", userID)
	}

	var ids []uint
	if err := query.Order("investments.id ASC").Pluck("investments.id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to select eligible investments: %w", err)
	}
	return ids, nil
}

type accrualDetails struct {
	Pair         string `json:"pair"`
	Side         string `json:"side"`
	Share        string `json:"share_of_total"`
	BaseAmount   string `json:"base_amount"`
	BoostAmount  string `json:"boost_amount"`
	TotalAmount  string `json:"total_amount"`
	BoostPercent string `json:"boost_percent"`
	AccrualDate  string `json:"accrual_date"`
}

// accrueInvestment runs steps base rate, booster, cap, investment update
// and ledger split for one investment inside one transaction.
func (s *ROIService) accrueInvestment(ctx context.Context, cfg ROIProcessingConfig, investmentID uint, today time.Time) AccrualResult {
	result := AccrualResult{
		InvestmentID: investmentID,
		BaseAmount:   decimal.Zero,
		BoostAmount:  decimal.Zero,
		TotalAmount:  decimal.Zero,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Investment
		if err := rowLock(tx).
			Where("id = ?", investmentID).First(&inv).Error; err != nil {
			return fmt.Errorf("investment not found: %w", err)
		}
		result.UserID = inv.UserID

		// Re-check under the lock: a concurrent run may have processed
		// this investment since the eligibility query.
		if inv.Status != models.InvestmentStatusActive {
			result.Outcome = AccrualOutcomeSkipped
			result.Reason = "investment no longer active"
			return nil
		}
		if !cfg.AllowDuplicateDay && inv.LastROIDate != nil && !inv.LastROIDate.Before(today) {
			result.Outcome = AccrualOutcomeSkipped
			result.Reason = "already processed today"
			return nil
		}

		var plan models.Plan
		if err := tx.Where("id = ?", inv.PlanID).First(&plan).Error; err != nil {
			return fmt.Errorf("plan %d not found: %w", inv.PlanID, err)
		}
		if !plan.IsActive {
			result.Outcome = AccrualOutcomeSkipped
			result.Reason = "plan inactive"
			return nil
		}

		hundred := decimal.NewFromInt(100)
		baseAmount := inv.InvestedAmount.Mul(plan.DailyROIPercentage).Div(hundred)

		boostPercent := decimal.Zero
		if cfg.BoosterEnabled {
			percent, err := s.boosterRate(tx, inv.UserID)
			if err != nil {
				return err
			}
			boostPercent = percent
		}
		boostAmount := inv.InvestedAmount.Mul(boostPercent).Div(hundred)
		total := baseAmount.Add(boostAmount)

		maxAllowed := inv.InvestedAmount.Mul(cfg.MaxLimit)
		if plan.MaxROIAmount != nil && plan.MaxROIAmount.LessThan(maxAllowed) {
			maxAllowed = *plan.MaxROIAmount
		}

		headroom := maxAllowed.Sub(inv.TotalEarned)
		if total.GreaterThan(headroom) {
			// Reduce to the exact remaining headroom, splitting the
			// reduction proportionally between base and boost.
			if headroom.LessThanOrEqual(decimal.Zero) {
				total = decimal.Zero
			} else {
				scaledBase := baseAmount.Mul(headroom).Div(total)
				baseAmount = scaledBase
				boostAmount = headroom.Sub(scaledBase)
				total = headroom
			}
		}

		if total.LessThanOrEqual(decimal.Zero) {
			result.Outcome = AccrualOutcomeSkipped
			result.Reason = "ROI limit reached"
			return nil
		}

		newTotalEarned := inv.TotalEarned.Add(total)
		updates := map[string]interface{}{
			"current_value": gorm.Expr("current_value + ?", total),
			"total_earned":  gorm.Expr("total_earned + ?", total),
			"last_roi_date": today,
		}
		if newTotalEarned.GreaterThanOrEqual(maxAllowed) {
			updates["status"] = models.InvestmentStatusCompleted
			result.Completed = true
		}
		if err := tx.Model(&models.Investment{}).Where("id = ?", inv.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update investment: %w", err)
		}

		if err := s.writeTradeEntries(tx, &inv, baseAmount, boostAmount, boostPercent, total, today); err != nil {
			return err
		}

		wallet, err := s.wallets.ForUpdate(tx, inv.UserID)
		if err != nil {
			return fmt.Errorf("wallet for user %d: %w", inv.UserID, err)
		}
		err = tx.Model(&models.Wallet{}).Where("id = ?", wallet.ID).
			Updates(map[string]interface{}{
				"roi_balance":  gorm.Expr("roi_balance + ?", total),
				"total_earned": gorm.Expr("total_earned + ?", total),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update wallet %d: %w", wallet.ID, err)
		}

		result.BaseAmount = baseAmount
		result.BoostAmount = boostAmount
		result.TotalAmount = total
		result.Outcome = AccrualOutcomeSuccess
		return nil
	})

	if err != nil {
		result.Outcome = AccrualOutcomeFailed
		result.Reason = err.Error()
	}
	return result
}

// boosterRate returns the extra daily percentage earned through early
// direct referrals. The window is anchored at the investor's first
// investment start date, not at today.
func (s *ROIService) boosterRate(tx *gorm.DB, userID uint) (decimal.Decimal, error) {
	var first models.Investment
	err := tx.Where("user_id = ?", userID).Order("start_date ASC").First(&first).Error
	if err == gorm.ErrRecordNotFound {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load first investment: %w", err)
	}

	count, err := s.referrals.CountDirectReferralsJoinedWithin(tx, userID, first.StartDate, boosterWindow)
	if err != nil {
		return decimal.Zero, err
	}

	switch {
	case count >= boosterTierFiveCount:
		return boosterTierFiveRate, nil
	case count >= boosterTierTwoCount:
		return boosterTierTwoRate, nil
	default:
		return decimal.Zero, nil
	}
}

// writeTradeEntries splits the accrued total into 3-5 synthetic trade
// ledger entries whose signed net amounts sum exactly to the total. The
// seed is derived from the investment and the accrual day so reruns with
// the duplicate-day flag produce the same decomposition.
func (s *ROIService) writeTradeEntries(tx *gorm.DB, inv *models.Investment, baseAmount, boostAmount, boostPercent, total decimal.Decimal, today time.Time) error {
	legs := SplitTrades(total, 3, 5, 0.6, accrualSeed(inv.ID, today))
	if len(legs) == 0 {
		return fmt.Errorf("trade split produced no legs for investment %d", inv.ID)
	}

	for _, leg := range legs {
		share := leg.Amount.Div(total)
		details, _ := json.Marshal(accrualDetails{
			Pair:         leg.Pair,
			Side:         leg.Side,
			Share:        share.Round(6).String(),
			BaseAmount:   baseAmount.String(),
			BoostAmount:  boostAmount.String(),
			TotalAmount:  total.String(),
			BoostPercent: boostPercent.String(),
			AccrualDate:  today.Format("2006-01-02"),
		})

		entry := models.Transaction{
			Reference:           uuid.New().String(),
			UserID:              inv.UserID,
			Type:                models.TransactionTypeROIEarning,
			Amount:              leg.Amount.Abs(),
			NetAmount:           leg.Amount,
			Status:              models.TransactionStatusCompleted,
			SourceType:          "trade",
			SourceDetails:       string(details),
			RelatedInvestmentID: &inv.ID,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to write trade entry: %w", err)
		}
	}
	return nil
}

func accrualSeed(investmentID uint, day time.Time) int64 {
	return int64(investmentID)*1000003 + day.Unix()/86400
}

// dayStart truncates a time to midnight of its day
func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
