package services

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"invest-engine/internal/models"
	"invest-engine/internal/utils"
)

// AuthService handles authentication business logic
type AuthService struct {
	db        *gorm.DB
	referrals *ReferralService
	wallets   *WalletService
}

// NewAuthService creates a new AuthService
func NewAuthService(db *gorm.DB, referrals *ReferralService, wallets *WalletService) *AuthService {
	return &AuthService{
		db:        db,
		referrals: referrals,
		wallets:   wallets,
	}
}

// ProcessWalletLogin finds or creates a user by wallet address. A referral
// code, when present and valid, pins the new user's referrer once; an
// invalid code is ignored rather than failing signup.
func (s *AuthService) ProcessWalletLogin(walletAddress string, referralCode string) (*models.User, error) {
	var user models.User

	result := s.db.Where("wallet_address = ?", walletAddress).First(&user)

	if result.Error == gorm.ErrRecordNotFound {
		nickname, err := utils.GenerateNickname()
		if err != nil {
			return nil, fmt.Errorf("failed to generate nickname: %w", err)
		}

		user = models.User{
			WalletAddress: walletAddress,
			Nickname:      nickname,
			Status:        models.UserStatusActive,
		}

		if referralCode != "" {
			referrer, err := s.referrals.FindReferrerByCode(referralCode)
			if err != nil {
				log.Printf("Warning: referral code %q rejected at signup: %v", referralCode, err)
			} else if referrer.IsActive() {
				user.ReferrerID = &referrer.ID
			}
		}

		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}

		if _, err := s.wallets.GetOrCreate(user.ID); err != nil {
			log.Printf("Warning: failed to create wallet for user %d: %v", user.ID, err)
		}
		if _, err := s.referrals.GenerateReferralCode(user.ID); err != nil {
			log.Printf("Warning: failed to generate referral code for user %d: %v", user.ID, err)
		}

		log.Printf("New user created: wallet=%s (ID: %d)", walletAddress, user.ID)
	} else if result.Error != nil {
		return nil, fmt.Errorf("database error: %w", result.Error)
	} else {
		log.Printf("User logged in: wallet=%s (ID: %d)", walletAddress, user.ID)
	}

	return &user, nil
}

// GetUserByID retrieves a user by their ID
func (s *AuthService) GetUserByID(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
