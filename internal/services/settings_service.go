package services

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"invest-engine/internal/models"
)

// SettingsService reads the key/JSON settings table. Values are fetched
// fresh for every operation; malformed or missing settings degrade to a
// disabled feature, never to an error that blocks a financial operation.
type SettingsService struct {
	db *gorm.DB
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

// DefaultCommissionPercentages is the hard-coded fallback schedule when the
// direct_income setting carries no per-level percentages.
var DefaultCommissionPercentages = map[int]decimal.Decimal{
	1: decimal.NewFromFloat(5),
	2: decimal.NewFromFloat(2),
	3: decimal.NewFromFloat(1),
	4: decimal.NewFromFloat(0.5),
}

// DefaultROIMaxLimit caps lifetime earnings of an investment at this
// multiple of principal.
var DefaultROIMaxLimit = decimal.NewFromInt(2)

// DirectIncomeConfig is the commission schedule for investment fan-out
type DirectIncomeConfig struct {
	Enabled     bool
	MaxLevel    int
	Percentages map[int]decimal.Decimal
}

// PercentageForLevel returns the schedule percentage for a 1-indexed level,
// falling back to the hard-coded defaults when unset.
func (c DirectIncomeConfig) PercentageForLevel(level int) decimal.Decimal {
	if p, ok := c.Percentages[level]; ok {
		return p
	}
	if p, ok := DefaultCommissionPercentages[level]; ok {
		return p
	}
	return decimal.Zero
}

// ROIProcessingConfig controls the daily accrual engine
type ROIProcessingConfig struct {
	BoosterEnabled    bool
	MaxLimit          decimal.Decimal
	AllowDuplicateDay bool
}

// WithdrawalRewardConfig is the independent schedule for upline rewards on
// completed withdrawals.
type WithdrawalRewardConfig struct {
	Enabled     bool
	MaxLevel    int
	Percentages map[int]decimal.Decimal
}

// PercentageForLevel returns the reward percentage for a 1-indexed level
func (c WithdrawalRewardConfig) PercentageForLevel(level int) decimal.Decimal {
	if p, ok := c.Percentages[level]; ok {
		return p
	}
	return decimal.Zero
}

// rawValue returns the JSON value for a key, or nil when the key is absent
func (s *SettingsService) rawValue(key string) ([]byte, error) {
	var setting models.Setting
	err := s.db.Where("key = ?", key).First(&setting).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return []byte(setting.Value), nil
}

// SetValue upserts a setting row
func (s *SettingsService) SetValue(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal setting %s: %w", key, err)
	}

	var setting models.Setting
	result := s.db.Where("key = ?", key).First(&setting)
	if result.Error == gorm.ErrRecordNotFound {
		return s.db.Create(&models.Setting{Key: key, Value: string(raw)}).Error
	}
	if result.Error != nil {
		return result.Error
	}
	return s.db.Model(&setting).Update("value", string(raw)).Error
}

type levelScheduleJSON struct {
	Enabled     bool              `json:"enabled"`
	MaxLevel    int               `json:"max_level"`
	Percentages map[string]string `json:"percentages"`
}

type roiProcessingJSON struct {
	BoosterEnabled    bool   `json:"booster_enabled"`
	MaxLimit          string `json:"max_limit"`
	AllowDuplicateDay bool   `json:"allow_duplicate_day"`
}

// DirectIncomeConfig loads the commission schedule. A missing or malformed
// setting yields a disabled schedule.
func (s *SettingsService) DirectIncomeConfig() (DirectIncomeConfig, error) {
	raw, err := s.rawValue(models.SettingKeyDirectIncome)
	if err != nil {
		return DirectIncomeConfig{}, err
	}
	if raw == nil {
		return DirectIncomeConfig{}, nil
	}

	var parsed levelScheduleJSON
	if err := json.Unmarshal(raw, &parsed); err != nil {
		log.Printf("Warning: malformed %s setting, treating as disabled: %v", models.SettingKeyDirectIncome, err)
		return DirectIncomeConfig{}, nil
	}

	cfg := DirectIncomeConfig{
		Enabled:     parsed.Enabled,
		MaxLevel:    parsed.MaxLevel,
		Percentages: parseLevelPercentages(parsed.Percentages),
	}
	if cfg.MaxLevel <= 0 {
		cfg.MaxLevel = len(DefaultCommissionPercentages)
	}
	return cfg, nil
}

// ROIProcessingConfig loads accrual engine flags. A missing or malformed
// setting yields the defaults with the booster disabled.
func (s *SettingsService) ROIProcessingConfig() (ROIProcessingConfig, error) {
	cfg := ROIProcessingConfig{MaxLimit: DefaultROIMaxLimit}

	raw, err := s.rawValue(models.SettingKeyROIProcessing)
	if err != nil {
		return cfg, err
	}
	if raw == nil {
		return cfg, nil
	}

	var parsed roiProcessingJSON
	if err := json.Unmarshal(raw, &parsed); err != nil {
		log.Printf("Warning: malformed %s setting, using defaults: %v", models.SettingKeyROIProcessing, err)
		return cfg, nil
	}

	cfg.BoosterEnabled = parsed.BoosterEnabled
	cfg.AllowDuplicateDay = parsed.AllowDuplicateDay
	if parsed.MaxLimit != "" {
		if limit, err := decimal.NewFromString(parsed.MaxLimit); err == nil && limit.IsPositive() {
			cfg.MaxLimit = limit
		}
	}
	return cfg, nil
}

// WithdrawalRewardConfig loads the upline reward schedule for completed
// withdrawals. Missing or malformed yields a disabled schedule.
func (s *SettingsService) WithdrawalRewardConfig() (WithdrawalRewardConfig, error) {
	raw, err := s.rawValue(models.SettingKeyWithdrawalReward)
	if err != nil {
		return WithdrawalRewardConfig{}, err
	}
	if raw == nil {
		return WithdrawalRewardConfig{}, nil
	}

	var parsed levelScheduleJSON
	if err := json.Unmarshal(raw, &parsed); err != nil {
		log.Printf("Warning: malformed %s setting, treating as disabled: %v", models.SettingKeyWithdrawalReward, err)
		return WithdrawalRewardConfig{}, nil
	}

	cfg := WithdrawalRewardConfig{
		Enabled:     parsed.Enabled,
		MaxLevel:    parsed.MaxLevel,
		Percentages: parseLevelPercentages(parsed.Percentages),
	}
	if cfg.MaxLevel <= 0 {
		cfg.Enabled = false
	}
	return cfg, nil
}

func parseLevelPercentages(raw map[string]string) map[int]decimal.Decimal {
	percentages := make(map[int]decimal.Decimal, len(raw))
	for key, value := range raw {
		level, err := strconv.Atoi(key)
		if err != nil || level < 1 {
			continue
		}
		percent, err := decimal.NewFromString(value)
		if err != nil || percent.IsNegative() {
			continue
		}
		percentages[level] = percent
	}
	return percentages
}
