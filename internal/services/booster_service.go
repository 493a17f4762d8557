package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"invest-engine/internal/models"
)

// BoosterService manages manually activated booster levels. These records
// are a separate concept from the referral-count booster used by the
// accrual engine; they drive admin-granted level activation only.
type BoosterService struct {
	db *gorm.DB
}

// NewBoosterService creates a new BoosterService
func NewBoosterService(db *gorm.DB) *BoosterService {
	return &BoosterService{db: db}
}

// Grant activates a booster level for a user for the given number of days
func (s *BoosterService) Grant(userID uint, level, days int) (*models.BoosterRecord, error) {
	if level < 1 {
		return nil, fmt.Errorf("booster level must be >= 1, got %d", level)
	}
	if days < 1 {
		return nil, fmt.Errorf("booster days must be >= 1, got %d", days)
	}

	var user models.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, fmt.Errorf("user %d not found: %w", userID, err)
	}

	record := models.BoosterRecord{
		UserID:    userID,
		Level:     level,
		Days:      days,
		StartedAt: time.Now().UTC(),
	}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to create booster record: %w", err)
	}
	return &record, nil
}

// HighestActiveLevel returns the highest booster level still running for a
// user at the given time; zero when none are active. Multiple boosters may
// coexist, only the highest counts.
func (s *BoosterService) HighestActiveLevel(userID uint, now time.Time) (int, error) {
	var records []models.BoosterRecord
	if err := s.db.Where("user_id = ?", userID).Find(&records).Error; err != nil {
		return 0, err
	}

	highest := 0
	for i := range records {
		if records[i].ActiveAt(now) && records[i].Level > highest {
			highest = records[i].Level
		}
	}
	return highest, nil
}

// GetUserBoosters returns all booster records for a user, newest first
func (s *BoosterService) GetUserBoosters(userID uint) ([]models.BoosterRecord, error) {
	var records []models.BoosterRecord
	if err := s.db.Where("user_id = ?", userID).Order("started_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
