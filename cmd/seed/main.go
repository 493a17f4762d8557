package main

import (
	"log"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"invest-engine/internal/config"
	"invest-engine/internal/models"
	"invest-engine/internal/services"
)

// Seeds the plan catalogue and the default engine settings. Safe to run
// repeatedly: existing plans and settings keys are left untouched.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	seedPlans(db)
	seedSettings(db)

	log.Println("Seed completed")
}

func seedPlans(db *gorm.DB) {
	plans := []models.Plan{
		{
			Name:               "Starter",
			DailyROIPercentage: decimal.NewFromFloat(1.0),
			DurationDays:       200,
			MinAmount:          decimal.NewFromInt(100),
			MaxAmount:          decimal.NewFromInt(5000),
			IsActive:           true,
		},
		{
			Name:               "Growth",
			DailyROIPercentage: decimal.NewFromFloat(1.3),
			DurationDays:       180,
			MinAmount:          decimal.NewFromInt(5000),
			MaxAmount:          decimal.NewFromInt(50000),
			IsActive:           true,
		},
		{
			Name:               "Elite",
			DailyROIPercentage: decimal.NewFromFloat(1.5),
			DurationDays:       150,
			MinAmount:          decimal.NewFromInt(50000),
			MaxAmount:          decimal.NewFromInt(500000),
			IsActive:           true,
		},
	}

	for _, plan := range plans {
		var existing models.Plan
		if err := db.Where("name = ?", plan.Name).First(&existing).Error; err == gorm.ErrRecordNotFound {
			if err := db.Create(&plan).Error; err != nil {
				log.Printf("Warning: failed to seed plan %s: %v", plan.Name, err)
				continue
			}
			log.Printf("Seeded plan %s", plan.Name)
		}
	}
}

func seedSettings(db *gorm.DB) {
	settings := services.NewSettingsService(db)

	defaults := map[string]interface{}{
		models.SettingKeyDirectIncome: map[string]interface{}{
			"enabled":   true,
			"max_level": 4,
			"percentages": map[string]string{
				"1": "5", "2": "2", "3": "1", "4": "0.5",
			},
		},
		models.SettingKeyROIProcessing: map[string]interface{}{
			"booster_enabled":     true,
			"max_limit":           "2",
			"allow_duplicate_day": false,
		},
		models.SettingKeyWithdrawalReward: map[string]interface{}{
			"enabled":   true,
			"max_level": 3,
			"percentages": map[string]string{
				"1": "1", "2": "0.5", "3": "0.25",
			},
		},
	}

	for key, value := range defaults {
		var existing models.Setting
		if err := db.Where("key = ?", key).First(&existing).Error; err == gorm.ErrRecordNotFound {
			if err := settings.SetValue(key, value); err != nil {
				log.Printf("Warning: failed to seed setting %s: %v", key, err)
				continue
			}
			log.Printf("Seeded setting %s", key)
		}
	}
}
