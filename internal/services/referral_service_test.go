package services

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"invest-engine/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// :memory: with cache=shared keeps one database alive for the whole
	// test binary, so every test cleans the tables it touches first.
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.ReferralCode{},
		&models.BoosterRecord{},
		&models.Plan{},
		&models.Investment{},
		&models.Wallet{},
		&models.Transaction{},
		&models.WithdrawalRequest{},
		&models.Setting{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func cleanTables(db *gorm.DB) {
	for _, table := range []string{
		"transactions", "withdrawal_requests", "investments", "wallets",
		"booster_records", "referral_codes", "settings", "plans", "users",
	} {
		db.Exec("DELETE FROM " + table)
	}
}

// createUserChain creates count users where each user refers the next one:
// users[0] has no referrer, users[i] is referred by users[i-1]. The last
// user is the natural "investor" at the bottom of the chain.
func createUserChain(t *testing.T, db *gorm.DB, count int) []models.User {
	users := make([]models.User, count)
	for i := 0; i < count; i++ {
		users[i] = models.User{
			WalletAddress: "wallet_" + string(rune('A'+i)),
			Nickname:      "user_" + string(rune('A'+i)),
			Status:        models.UserStatusActive,
		}
		if i > 0 {
			users[i].ReferrerID = &users[i-1].ID
		}
		if err := db.Create(&users[i]).Error; err != nil {
			t.Fatalf("failed to create user %d: %v", i, err)
		}
	}
	return users
}

func TestResolveChainWalksUpToLimit(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(db)

	service := NewReferralService(db)
	users := createUserChain(t, db, 6)
	investor := users[5]

	chain, err := service.ResolveChain(db, investor.ID, 4)
	if err != nil {
		t.Fatalf("ResolveChain failed: %v", err)
	}
	if len(chain) != 4 {
		t.Fatalf("expected chain of 4, got %d", len(chain))
	}

	// Nearest sponsor first.
	for i, want := range []uint{users[4].ID, users[3].ID, users[2].ID, users[1].ID} {
		if chain[i].ID != want {
			t.Errorf("level %d: expected user %d, got %d", i+1, want, chain[i].ID)
		}
	}
}

func TestResolveChainStopsAtInactiveAncestor(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(db)

	service := NewReferralService(db)
	users := createUserChain(t, db, 4)

	// Suspend the middle ancestor; everyone above it becomes unreachable.
	if err := db.Model(&users[1]).Update("status", models.UserStatusSuspended).Error; err != nil {
		t.Fatalf("failed to suspend user: %v", err)
	}

	chain, err := service.ResolveChain(db, users[3].ID, 4)
	if err != nil {
		t.Fatalf("ResolveChain failed: %v", err)
	}
	if len(chain) != 1 {
		t.Fatalf("expected chain of 1, got %d", len(chain))
	}
	if chain[0].ID != users[2].ID {
		t.Errorf("expected only user %d in chain, got %d", users[2].ID, chain[0].ID)
	}
}

func TestResolveChainNoReferrer(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(db)

	service := NewReferralService(db)
	users := createUserChain(t, db, 1)

	chain, err := service.ResolveChain(db, users[0].ID, 4)
	if err != nil {
		t.Fatalf("ResolveChain failed: %v", err)
	}
	if len(chain) != 0 {
		t.Errorf("expected empty chain, got %d entries", len(chain))
	}

	if _, err := service.ResolveChain(db, 98765, 4); err == nil {
		t.Error("expected error for unknown user")
	}
	if _, err := service.ResolveChain(db, users[0].ID, 0); err == nil {
		t.Error("expected error for maxLevel 0")
	}
}

func TestCountDirectReferralsJoinedWithin(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(db)

	service := NewReferralService(db)

	sponsor := models.User{WalletAddress: "sponsor", Nickname: "sponsor", Status: models.UserStatusActive}
	if err := db.Create(&sponsor).Error; err != nil {
		t.Fatalf("failed to create sponsor: %v", err)
	}

	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	window := 7 * 24 * time.Hour

	refs := []struct {
		name   string
		joined time.Time
		status models.UserStatus
	}{
		{"in_window_1", start.Add(24 * time.Hour), models.UserStatusActive},
		{"in_window_2", start.Add(6 * 24 * time.Hour), models.UserStatusActive},
		{"too_late", start.Add(8 * 24 * time.Hour), models.UserStatusActive},
		{"inactive", start.Add(24 * time.Hour), models.UserStatusInactive},
	}
	for _, r := range refs {
		u := models.User{
			WalletAddress: r.name,
			Nickname:      r.name,
			Status:        r.status,
			ReferrerID:    &sponsor.ID,
			CreatedAt:     r.joined,
		}
		if err := db.Create(&u).Error; err != nil {
			t.Fatalf("failed to create referral %s: %v", r.name, err)
		}
	}

	count, err := service.CountDirectReferralsJoinedWithin(db, sponsor.ID, start, window)
	if err != nil {
		t.Fatalf("CountDirectReferralsJoinedWithin failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 referrals in window, got %d", count)
	}
}

func TestUserReferralCodeIsStable(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(db)

	service := NewReferralService(db)
	users := createUserChain(t, db, 1)

	first, err := service.GetUserReferralCode(users[0].ID)
	if err != nil {
		t.Fatalf("GetUserReferralCode failed: %v", err)
	}
	if first.Code == "" {
		t.Fatal("expected non-empty code")
	}

	second, err := service.GetUserReferralCode(users[0].ID)
	if err != nil {
		t.Fatalf("second GetUserReferralCode failed: %v", err)
	}
	if second.Code != first.Code {
		t.Errorf("expected same code on repeat call, got %s then %s", first.Code, second.Code)
	}

	referrer, err := service.FindReferrerByCode(first.Code)
	if err != nil {
		t.Fatalf("FindReferrerByCode failed: %v", err)
	}
	if referrer.ID != users[0].ID {
		t.Errorf("expected referrer %d, got %d", users[0].ID, referrer.ID)
	}
}
