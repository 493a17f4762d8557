package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"invest-engine/internal/models"
)

func newROIService(db *gorm.DB) *ROIService {
	settings := NewSettingsService(db)
	referrals := NewReferralService(db)
	wallets := NewWalletService(db)
	return NewROIService(db, settings, referrals, wallets)
}

func setROIProcessing(t *testing.T, db *gorm.DB, boosterEnabled bool, maxLimit string, allowDuplicate bool) {
	settings := NewSettingsService(db)
	value := map[string]interface{}{
		"booster_enabled":     boosterEnabled,
		"allow_duplicate_day": allowDuplicate,
	}
	if maxLimit != "" {
		value["max_limit"] = maxLimit
	}
	if err := settings.SetValue(models.SettingKeyROIProcessing, value); err != nil {
		t.Fatalf("failed to set roi_processing: %v", err)
	}
}

func TestSweepDailyBaseAccrual(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(db)

	service := newROIService(db)
	users := createUserChain(t, db, 1)
	createWallet(t, db, users[0].ID, 1000, 0, 0)
	plan := createPlan(t, db, 1.0)
	inv := createInvestment(t, db, users[0].ID, plan.ID, 1000)

	report, err := service.SweepDaily(context.Background())
	if err != nil {
		t.Fatalf("SweepDaily failed: %v", err)
	}

	if report.Successful != 1 {
		t.Fatalf("expected 1 successful accrual, got %d (failed %d, skipped %d)",
			report.Successful, report.Failed, report.Skipped)
	}
	if !report.TotalAccrued.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected accrued 10, got %s", report.TotalAccrued)
	}

	var updated models.Investment
	if err := db.First(&updated, inv.ID).Error; err != nil {
		t.Fatalf("failed to reload investment: %v", err)
	}
	if !updated.TotalEarned.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected total earned 10, got %s", updated.TotalEarned)
	}
	if !updated.CurrentValue.Equal(decimal.NewFromInt(1010)) {
		t.Errorf("expected current value 1010, got %s", updated.CurrentValue)
	}
	if updated.LastROIDate == nil {
		t.Error("expected last_roi_date to be set")
	}

	var wallet models.Wallet
	db.Where("user_id = ?", users[0].ID).First(&wallet)
	if !wallet.ROIBalance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected roi balance 10, got %s", wallet.ROIBalance)
	}
}

func TestSweepDailyWritesTradeDecomposition(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(db)

	service := newROIService(db)
	users := createUserChain(t, db, 1)
	createWallet(t, db, users[0].ID, 1000, 0, 0)
	plan := createPlan(t, db, 1.0)
	inv := createInvestment(t, db, users[0].ID, plan.ID, 1000)

	if _, err := service.SweepDaily(context.Background()); err != nil {
		t.Fatalf("SweepDaily failed: %v", err)
	}

	var entries []models.Transaction
	err := db.Where("type = ? AND related_investment_id = ?", models.TransactionTypeROIEarning, inv.ID).
		Find(&entries).Error
	if err != nil {
		t.Fatalf("failed to load trade entries: %v", err)
	}

	if len(entries) < 3 || len(entries) > 5 {
		t.Fatalf("expected 3-5 trade entries, got %d", len(entries))
	}

	sum := decimal.Zero
	profits := 0
	for _, e := range entries {
		sum = sum.Add(e.NetAmount)
		if e.NetAmount.IsPositive() {
			profits++
		}
	}
	if !sum.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected trade legs to sum to 10, got %s", sum)
	}
	if float64(profits) < 0.6*float64(len(entries)) {
		t.Errorf("expected at least 60%% profitable legs, got %d of %d", profits, len(entries))
	}
}

func TestSweepDailyBoosterFromEarlyReferrals(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(db)

	service := newROIService(db)
	setROIProcessing(t, db, true, "", false)

	users := createUserChain(t, db, 1)
	investor := users[0]
	createWallet(t, db, investor.ID, 1000, 0, 0)
	plan := createPlan(t, db, 1.0)
	inv := createInvestment(t, db, investor.ID, plan.ID, 1000)

	// Two active direct referrals joined within 7 days of the first
	// investment start date: +0.10% tier.
	for i := 0; i < 2; i++ {
		ref := models.User{
			WalletAddress: "boost_ref_" + string(rune('a'+i)),
			Nickname:      "boost_ref_" + string(rune('a'+i)),
			Status:        models.UserStatusActive,
			ReferrerID:    &investor.ID,
			CreatedAt:     inv.StartDate.Add(time.Duration(i+1) * 24 * time.Hour),
		}
		if err := db.Create(&ref).Error; err != nil {
			t.Fatalf("failed to create referral: %v", err)
		}
	}

	report, err := service.SweepDaily(context.Background())
	if err != nil {
		t.Fatalf("SweepDaily failed: %v", err)
	}
	if report.Successful != 1 {
		t.Fatalf("expected 1 successful accrual, got %d", report.Successful)
	}

	// 1000 * (1.0% + 0.10%) = 11.
	result := report.Results[0]
	if !result.TotalAmount.Equal(decimal.NewFromInt(11)) {
		t.Errorf("expected total 11, got %s", result.TotalAmount)
	}
	if !result.BaseAmount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected base 10, got %s", result.BaseAmount)
	}
	if !result.BoostAmount.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected boost 1, got %s", result.BoostAmount)
	}
}

func TestSweepDailyCapsAtLifetimeLimit(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(db)

	service := newROIService(db)
	users := createUserChain(t, db, 1)
	createWallet(t, db, users[0].ID, 1000, 0, 0)
	plan := createPlan(t, db, 1.0)
	inv := createInvestment(t, db, users[0].ID, plan.ID, 1000)

	// 10 of headroom left until the 2x lifetime limit.
	err := db.Model(&models.Investment{}).Where("id = ?", inv.ID).
		Update("total_earned", decimal.NewFromInt(1990)).Error
	if err != nil {
		t.Fatalf("failed to seed total_earned: %v", err)
	}

	report, err := service.SweepDaily(context.Background())
	if err != nil {
		t.Fatalf("SweepDaily failed: %v", err)
	}
	if report.Successful != 1 {
		t.Fatalf("expected 1 successful accrual, got %d", report.Successful)
	}

	result := report.Results[0]
	if !result.TotalAmount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected capped total 10, got %s", result.TotalAmount)
	}
	if !result.Completed {
		t.Error("expected investment to be marked completed")
	}

	var updated models.Investment
	db.First(&updated, inv.ID)
	if updated.Status != models.InvestmentStatusCompleted {
		t.Errorf("expected status COMPLETED, got %s", updated.Status)
	}
	if !updated.TotalEarned.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("expected total earned exactly 2000, got %s", updated.TotalEarned)
	}
}

func TestSweepDailySkipsExhaustedInvestment(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(db)

	service := newROIService(db)
	users := createUserChain(t, db, 1)
	createWallet(t, db, users[0].ID, 1000, 0, 0)
	plan := createPlan(t, db, 1.0)
	inv := createInvestment(t, db, users[0].ID, plan.ID, 1000)

	err := db.Model(&models.Investment{}).Where("id = ?", inv.ID).
		Update("total_earned", decimal.NewFromInt(2000)).Error
	if err != nil {
		t.Fatalf("failed to seed total_earned: %v", err)
	}

	report, err := service.SweepDaily(context.Background())
	if err != nil {
		t.Fatalf("SweepDaily failed: %v", err)
	}
	if report.Skipped != 1 {
		t.Fatalf("expected 1 skipped, got skipped=%d successful=%d", report.Skipped, report.Successful)
	}
	if report.Results[0].Reason != "ROI limit reached" {
		t.Errorf("unexpected skip reason: %s", report.Results[0].Reason)
	}
}

func TestSweepDailyIdempotentPerDay(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(db)

	service := newROIService(db)
	users := createUserChain(t, db, 1)
	createWallet(t, db, users[0].ID, 1000, 0, 0)
	plan := createPlan(t, db, 1.0)
	createInvestment(t, db, users[0].ID, plan.ID, 1000)

	first, err := service.SweepDaily(context.Background())
	if err != nil {
		t.Fatalf("first sweep failed: %v", err)
	}
	if first.Successful != 1 {
		t.Fatalf("expected 1 successful accrual, got %d", first.Successful)
	}

	second, err := service.SweepDaily(context.Background())
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if second.Processed != 0 {
		t.Errorf("expected second sweep to select nothing, processed %d", second.Processed)
	}

	var wallet models.Wallet
	db.Where("user_id = ?", users[0].ID).First(&wallet)
	if !wallet.ROIBalance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected roi balance 10 after double sweep, got %s", wallet.ROIBalance)
	}
}

func TestSweepDailyIgnoresInactivePlan(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(db)

	service := newROIService(db)
	users := createUserChain(t, db, 1)
	createWallet(t, db, users[0].ID, 1000, 0, 0)
	plan := createPlan(t, db, 1.0)
	createInvestment(t, db, users[0].ID, plan.ID, 1000)

	if err := db.Model(&plan).Update("is_active", false).Error; err != nil {
		t.Fatalf("failed to deactivate plan: %v", err)
	}

	report, err := service.SweepDaily(context.Background())
	if err != nil {
		t.Fatalf("SweepDaily failed: %v", err)
	}
	if report.Processed != 0 {
		t.Errorf("expected no eligible investments, processed %d", report.Processed)
	}
}

func TestAccrueForUserScopesToOneUser(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(db)

	service := newROIService(db)
	users := createUserChain(t, db, 2)
	createWallet(t, db, users[0].ID, 1000, 0, 0)
	createWallet(t, db, users[1].ID, 1000, 0, 0)
	plan := createPlan(t, db, 1.0)
	createInvestment(t, db, users[0].ID, plan.ID, 1000)
	createInvestment(t, db, users[1].ID, plan.ID, 500)

	report, err := service.AccrueForUser(context.Background(), users[1].ID)
	if err != nil {
		t.Fatalf("AccrueForUser failed: %v", err)
	}
	if report.Successful != 1 {
		t.Fatalf("expected 1 accrual, got %d", report.Successful)
	}
	if !report.TotalAccrued.Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected accrued 5, got %s", report.TotalAccrued)
	}

	var untouched models.Wallet
	db.Where("user_id = ?", users[0].ID).First(&untouched)
	if !untouched.ROIBalance.IsZero() {
		t.Errorf("expected other user's wallet untouched, got roi %s", untouched.ROIBalance)
	}
}
