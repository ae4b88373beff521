package database

import (
	"droply/config"
	"droply/internal/domain"
	"droply/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.ClaimCode{},
		&models.CodeClaim{},
		&models.StoredFile{},
		&models.BotSetting{},
		&models.WithdrawLog{},
		&models.ClaimLog{},
	)
}

// SeedSettings creates the pool counters at zero if they don't exist yet.
func SeedSettings(db *gorm.DB) error {
	for _, key := range []string{domain.SettingWithdrawFiles, domain.SettingClaimFiles} {
		var count int64
		db.Model(&models.BotSetting{}).Where("`key` = ?", key).Count(&count)
		if count == 0 {
			if err := db.Create(&models.BotSetting{Key: key, Value: 0}).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
