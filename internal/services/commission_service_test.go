package services

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"invest-engine/internal/models"
)

func newCommissionService(db *gorm.DB) *CommissionService {
	settings := NewSettingsService(db)
	referrals := NewReferralService(db)
	wallets := NewWalletService(db)
	return NewCommissionService(db, settings, referrals, wallets)
}

func enableDirectIncome(t *testing.T, db *gorm.DB, maxLevel int) {
	settings := NewSettingsService(db)
	err := settings.SetValue(models.SettingKeyDirectIncome, map[string]interface{}{
		"enabled":   true,
		"max_level": maxLevel,
	})
	if err != nil {
		t.Fatalf("failed to enable direct income: %v", err)
	}
}

func createWallet(t *testing.T, db *gorm.DB, userID uint, invested, roi, commission float64) models.Wallet {
	wallet := models.Wallet{
		UserID:            userID,
		TotalInvested:     decimal.NewFromFloat(invested),
		ROIBalance:        decimal.NewFromFloat(roi),
		CommissionBalance: decimal.NewFromFloat(commission),
	}
	if err := db.Create(&wallet).Error; err != nil {
		t.Fatalf("failed to create wallet for user %d: %v", userID, err)
	}
	return wallet
}

func createInvestment(t *testing.T, db *gorm.DB, userID, planID uint, amount float64) models.Investment {
	now := time.Now().UTC()
	inv := models.Investment{
		UserID:         userID,
		PlanID:         planID,
		InvestedAmount: decimal.NewFromFloat(amount),
		CurrentValue:   decimal.NewFromFloat(amount),
		Status:         models.InvestmentStatusActive,
		StartDate:      dayStart(now),
		EndDate:        dayStart(now).AddDate(0, 0, 200),
	}
	if err := db.Create(&inv).Error; err != nil {
		t.Fatalf("failed to create investment: %v", err)
	}
	return inv
}

func createPlan(t *testing.T, db *gorm.DB, dailyPercent float64) models.Plan {
	plan := models.Plan{
		Name:               "Test Plan",
		DailyROIPercentage: decimal.NewFromFloat(dailyPercent),
		DurationDays:       200,
		MinAmount:          decimal.NewFromInt(10),
		MaxAmount:          decimal.NewFromInt(100000),
		IsActive:           true,
	}
	if err := db.Create(&plan).Error; err != nil {
		t.Fatalf("failed to create plan: %v", err)
	}
	return plan
}

func TestDistributeDefaultSchedule(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(db)

	service := newCommissionService(db)
	enableDirectIncome(t, db, 4)

	// Chain of 4: users[0] <- users[1] <- users[2] <- users[3] (investor).
	users := createUserChain(t, db, 4)
	for _, u := range users {
		createWallet(t, db, u.ID, 1000, 0, 0)
	}
	plan := createPlan(t, db, 1.0)
	inv := createInvestment(t, db, users[3].ID, plan.ID, 1000)

	summary, err := service.Distribute(db, &inv)
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}

	// Default schedule on 1000: L1 5% = 50, L2 2% = 20, L3 1% = 10.
	if summary.LevelsProcessed != 3 {
		t.Fatalf("expected 3 levels, got %d", summary.LevelsProcessed)
	}
	if summary.Successful != 3 {
		t.Errorf("expected 3 successful levels, got %d", summary.Successful)
	}
	if !summary.TotalDistributed.Equal(decimal.NewFromInt(80)) {
		t.Errorf("expected total 80, got %s", summary.TotalDistributed)
	}

	expected := map[uint]decimal.Decimal{
		users[2].ID: decimal.NewFromInt(50),
		users[1].ID: decimal.NewFromInt(20),
		users[0].ID: decimal.NewFromInt(10),
	}
	for userID, want := range expected {
		var wallet models.Wallet
		if err := db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
			t.Fatalf("failed to load wallet for user %d: %v", userID, err)
		}
		if !wallet.CommissionBalance.Equal(want) {
			t.Errorf("user %d: expected commission %s, got %s", userID, want, wallet.CommissionBalance)
		}
		if !wallet.TotalEarned.Equal(want) {
			t.Errorf("user %d: expected total earned %s, got %s", userID, want, wallet.TotalEarned)
		}
	}

	var count int64
	db.Model(&models.Transaction{}).Where("type = ?", models.TransactionTypeDirectBonus).Count(&count)
	if count != 3 {
		t.Errorf("expected 3 direct_bonus entries, got %d", count)
	}
}

func TestDistributePartialAtEarningCap(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(db)

	service := newCommissionService(db)
	enableDirectIncome(t, db, 4)

	users := createUserChain(t, db, 2)
	// Sponsor invested 100, already earned 395 of the 400 cap.
	createWallet(t, db, users[0].ID, 100, 395, 0)
	createWallet(t, db, users[1].ID, 1000, 0, 0)
	plan := createPlan(t, db, 1.0)
	inv := createInvestment(t, db, users[1].ID, plan.ID, 1000)

	summary, err := service.Distribute(db, &inv)
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}

	if summary.Successful != 1 {
		t.Fatalf("expected 1 successful level, got %d", summary.Successful)
	}
	level := summary.Levels[0]
	if !level.Requested.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected requested 50, got %s", level.Requested)
	}
	if !level.Actual.Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected actual 5, got %s", level.Actual)
	}
	if !level.Capped.Equal(decimal.NewFromInt(45)) {
		t.Errorf("expected capped 45, got %s", level.Capped)
	}

	var wallet models.Wallet
	db.Where("user_id = ?", users[0].ID).First(&wallet)
	if !wallet.RemainingEarningCapacity().IsZero() {
		t.Errorf("expected wallet exactly at cap, remaining %s", wallet.RemainingEarningCapacity())
	}
}

func TestDistributeSkipsWalletAtCap(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(db)

	service := newCommissionService(db)
	enableDirectIncome(t, db, 4)

	users := createUserChain(t, db, 2)
	createWallet(t, db, users[0].ID, 100, 400, 0)
	createWallet(t, db, users[1].ID, 1000, 0, 0)
	plan := createPlan(t, db, 1.0)
	inv := createInvestment(t, db, users[1].ID, plan.ID, 1000)

	summary, err := service.Distribute(db, &inv)
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}

	if summary.Skipped != 1 {
		t.Fatalf("expected 1 skipped level, got %d", summary.Skipped)
	}
	if summary.Levels[0].Outcome != LevelOutcomeSkippedCap {
		t.Errorf("expected outcome %s, got %s", LevelOutcomeSkippedCap, summary.Levels[0].Outcome)
	}

	// A fully capped level writes no ledger entry at all.
	var count int64
	db.Model(&models.Transaction{}).Where("type = ?", models.TransactionTypeDirectBonus).Count(&count)
	if count != 0 {
		t.Errorf("expected no direct_bonus entries, got %d", count)
	}
}

func TestDistributeIsolatesFailedLevel(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(db)

	service := newCommissionService(db)
	enableDirectIncome(t, db, 4)

	// The middle ancestor has no wallet row, so its credit fails inside
	// its own savepoint; the levels around it still commit.
	users := createUserChain(t, db, 4)
	createWallet(t, db, users[0].ID, 1000, 0, 0)
	createWallet(t, db, users[2].ID, 1000, 0, 0)
	createWallet(t, db, users[3].ID, 1000, 0, 0)
	plan := createPlan(t, db, 1.0)
	inv := createInvestment(t, db, users[3].ID, plan.ID, 1000)

	summary, err := service.Distribute(db, &inv)
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}

	if summary.Failed != 1 {
		t.Fatalf("expected 1 failed level, got %d", summary.Failed)
	}
	if summary.Successful != 2 {
		t.Fatalf("expected 2 successful levels, got %d", summary.Successful)
	}
	// L1 (50) and L3 (10) landed; L2's 20 did not.
	if !summary.TotalDistributed.Equal(decimal.NewFromInt(60)) {
		t.Errorf("expected total 60, got %s", summary.TotalDistributed)
	}

	var sponsor models.Wallet
	db.Where("user_id = ?", users[2].ID).First(&sponsor)
	if !sponsor.CommissionBalance.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected L1 commission 50, got %s", sponsor.CommissionBalance)
	}
	var greatGrandSponsor models.Wallet
	db.Where("user_id = ?", users[0].ID).First(&greatGrandSponsor)
	if !greatGrandSponsor.CommissionBalance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected L3 commission 10, got %s", greatGrandSponsor.CommissionBalance)
	}
}

func TestDistributeNeverExceedsEarningCapUnderRandomLoad(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(db)

	service := newCommissionService(db)
	enableDirectIncome(t, db, 4)

	users := createUserChain(t, db, 2)
	// Sponsor cap: 500 invested, 2000 lifetime earning ceiling.
	createWallet(t, db, users[0].ID, 500, 0, 0)
	createWallet(t, db, users[1].ID, 100000, 0, 0)
	plan := createPlan(t, db, 1.0)

	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 60; i++ {
		amount := float64(50 + rng.Intn(20000))
		inv := createInvestment(t, db, users[1].ID, plan.ID, amount)

		if _, err := service.Distribute(db, &inv); err != nil {
			t.Fatalf("Distribute %d failed: %v", i, err)
		}

		var wallet models.Wallet
		if err := db.Where("user_id = ?", users[0].ID).First(&wallet).Error; err != nil {
			t.Fatalf("failed to reload sponsor wallet: %v", err)
		}
		if wallet.RemainingEarningCapacity().IsNegative() {
			t.Fatalf("credit %d drove wallet past the cap: roi+commission=%s invested=%s",
				i, wallet.ROIBalance.Add(wallet.CommissionBalance), wallet.TotalInvested)
		}
	}

	// Sixty 5% cuts of amounts this size far exceed 2000, so the run
	// must end pinned exactly at the ceiling.
	var wallet models.Wallet
	db.Where("user_id = ?", users[0].ID).First(&wallet)
	if !wallet.RemainingEarningCapacity().IsZero() {
		t.Errorf("expected wallet exactly at cap, remaining %s", wallet.RemainingEarningCapacity())
	}
}

func TestDistributeDisabledOrMissingSchedule(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(db)

	service := newCommissionService(db)

	users := createUserChain(t, db, 2)
	createWallet(t, db, users[0].ID, 1000, 0, 0)
	createWallet(t, db, users[1].ID, 1000, 0, 0)
	plan := createPlan(t, db, 1.0)
	inv := createInvestment(t, db, users[1].ID, plan.ID, 1000)

	// No direct_income setting at all.
	summary, err := service.Distribute(db, &inv)
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}
	if summary.LevelsProcessed != 0 {
		t.Errorf("expected no levels with missing schedule, got %d", summary.LevelsProcessed)
	}

	// Malformed JSON degrades to disabled, never errors.
	db.Create(&models.Setting{Key: models.SettingKeyDirectIncome, Value: "{not json"})
	summary, err = service.Distribute(db, &inv)
	if err != nil {
		t.Fatalf("Distribute with malformed setting failed: %v", err)
	}
	if summary.LevelsProcessed != 0 {
		t.Errorf("expected no levels with malformed schedule, got %d", summary.LevelsProcessed)
	}
}

func TestDistributeCustomSchedule(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(db)

	service := newCommissionService(db)
	settings := NewSettingsService(db)
	err := settings.SetValue(models.SettingKeyDirectIncome, map[string]interface{}{
		"enabled":   true,
		"max_level": 2,
		"percentages": map[string]string{
			"1": "10",
			"2": "3",
		},
	})
	if err != nil {
		t.Fatalf("failed to set schedule: %v", err)
	}

	users := createUserChain(t, db, 4)
	for _, u := range users {
		createWallet(t, db, u.ID, 1000, 0, 0)
	}
	plan := createPlan(t, db, 1.0)
	inv := createInvestment(t, db, users[3].ID, plan.ID, 500)

	summary, err := service.Distribute(db, &inv)
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}

	// max_level 2 cuts the walk even though 3 ancestors exist.
	if summary.LevelsProcessed != 2 {
		t.Fatalf("expected 2 levels, got %d", summary.LevelsProcessed)
	}
	if !summary.TotalDistributed.Equal(decimal.NewFromInt(65)) {
		t.Errorf("expected total 65 (50+15), got %s", summary.TotalDistributed)
	}
}
