package services

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"invest-engine/internal/models"
)

// WalletService owns access to wallet rows. Balances are only ever changed
// together with a ledger Transaction inside the same database transaction,
// and capacity checks read the row under SELECT ... FOR UPDATE so two
// concurrent credits cannot both size themselves against a stale balance.
type WalletService struct {
	db *gorm.DB
}

// NewWalletService creates a new WalletService
func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{db: db}
}

// GetOrCreate returns the user's wallet, creating an empty one if needed
func (s *WalletService) GetOrCreate(userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	result := s.db.Where("user_id = ?", userID).First(&wallet)

	if result.Error == gorm.ErrRecordNotFound {
		wallet = models.Wallet{UserID: userID}
		if err := s.db.Create(&wallet).Error; err != nil {
			return nil, fmt.Errorf("failed to create wallet for user %d: %w", userID, err)
		}
		return &wallet, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}

	return &wallet, nil
}

// GetByUserID returns the user's wallet without locking
func (s *WalletService) GetByUserID(userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := s.db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// ForUpdate loads the user's wallet row under a row-level write lock. Must
// be called inside a transaction; the lock is held until commit/rollback.
func (s *WalletService) ForUpdate(tx *gorm.DB, userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := rowLock(tx).
		Where("user_id = ?", userID).
		First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// rowLock applies SELECT ... FOR UPDATE where the dialect supports it.
// SQLite serializes writers at the database level and rejects the clause.
func rowLock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
