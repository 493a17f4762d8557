package services

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"invest-engine/internal/models"
)

// ReferralService manages referral codes and the upline chain walk
type ReferralService struct {
	db *gorm.DB
}

// NewReferralService creates a new ReferralService
func NewReferralService(db *gorm.DB) *ReferralService {
	return &ReferralService{db: db}
}

// GenerateReferralCode generates a unique referral code for a user
func (s *ReferralService) GenerateReferralCode(userID uint) (*models.ReferralCode, error) {
	code, err := s.generateRandomCode()
	if err != nil {
		return nil, err
	}

	referralCode := models.ReferralCode{
		UserID:   userID,
		Code:     code,
		IsActive: true,
	}

	if err := s.db.Create(&referralCode).Error; err != nil {
		return nil, fmt.Errorf("failed to create referral code: %w", err)
	}

	log.Printf("Generated referral code %s for user %d", code, userID)
	return &referralCode, nil
}

// generateRandomCode generates a random 8-character code
func (s *ReferralService) generateRandomCode() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b)[:8], nil
}

// GetUserReferralCode gets or creates a referral code for a user
func (s *ReferralService) GetUserReferralCode(userID uint) (*models.ReferralCode, error) {
	var code models.ReferralCode
	result := s.db.Where("user_id = ? AND is_active = ?", userID, true).First(&code)

	if result.Error == gorm.ErrRecordNotFound {
		return s.GenerateReferralCode(userID)
	}

	if result.Error != nil {
		return nil, result.Error
	}

	return &code, nil
}

// FindReferrerByCode resolves an active referral code to its owning user
func (s *ReferralService) FindReferrerByCode(code string) (*models.User, error) {
	var referralCode models.ReferralCode
	if err := s.db.Where("code = ? AND is_active = ?", code, true).First(&referralCode).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("invalid referral code")
		}
		return nil, err
	}

	var referrer models.User
	if err := s.db.Where("id = ?", referralCode.UserID).First(&referrer).Error; err != nil {
		return nil, err
	}
	return &referrer, nil
}

// ResolveChain walks the referrer chain upward from a user, one hop at a
// time, stopping at the first missing or non-active ancestor or at
// maxLevel. The result is ordered nearest sponsor first and its length is
// 0..maxLevel; an empty chain is a valid "no upline" outcome.
//
// The walk is iterative with an explicit bound so a cyclic or pathological
// referrer_id chain can never recurse unboundedly.
func (s *ReferralService) ResolveChain(tx *gorm.DB, userID uint, maxLevel int) ([]models.User, error) {
	if maxLevel < 1 {
		return nil, fmt.Errorf("maxLevel must be >= 1, got %d", maxLevel)
	}

	var start models.User
	if err := tx.Where("id = ?", userID).First(&start).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("user %d not found", userID)
		}
		return nil, err
	}

	chain := make([]models.User, 0, maxLevel)
	current := start
	for level := 1; level <= maxLevel; level++ {
		if current.ReferrerID == nil {
			break
		}

		var referrer models.User
		err := tx.Where("id = ?", *current.ReferrerID).First(&referrer).Error
		if err == gorm.ErrRecordNotFound {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load referrer at level %d: %w", level, err)
		}
		if !referrer.IsActive() {
			break
		}

		chain = append(chain, referrer)
		current = referrer
	}

	return chain, nil
}

// CountDirectReferralsJoinedWithin counts the user's active direct
// referrals whose account was created inside the window [start,
// start+window].
func (s *ReferralService) CountDirectReferralsJoinedWithin(tx *gorm.DB, userID uint, start time.Time, window time.Duration) (int64, error) {
	var count int64
	err := tx.Model(&models.User{}).
		Where("referrer_id = ? AND status = ? AND created_at >= ? AND created_at <= ?",
			userID, models.UserStatusActive, start, start.Add(window)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count direct referrals: %w", err)
	}
	return count, nil
}

// GetUserReferrals returns the direct referrals of a user
func (s *ReferralService) GetUserReferrals(userID uint) ([]models.User, error) {
	var referrals []models.User
	if err := s.db.Where("referrer_id = ?", userID).Order("created_at DESC").Find(&referrals).Error; err != nil {
		return nil, err
	}
	return referrals, nil
}

// GetCommissionHistory returns the user's commission and reward ledger
// entries, newest first.
func (s *ReferralService) GetCommissionHistory(userID uint, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var entries []models.Transaction
	err := s.db.
		Where("user_id = ? AND type IN ?", userID, []models.TransactionType{
			models.TransactionTypeDirectBonus,
			models.TransactionTypeWithdrawalUplineReward,
		}).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
