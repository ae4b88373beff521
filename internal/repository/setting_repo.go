package repository

import (
	"droply/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

func (r *SettingRepository) Get(key string) (int, error) {
	var s models.BotSetting
	if err := r.db.Where("`key` = ?", key).First(&s).Error; err != nil {
		return 0, err
	}
	return s.Value, nil
}

func (r *SettingRepository) Set(key string, value int) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&models.BotSetting{Key: key, Value: value}).Error
}

// Increment adds delta to the counter atomically.
func (r *SettingRepository) Increment(key string, delta int) error {
	return r.db.Model(&models.BotSetting{}).
		Where("`key` = ?", key).
		UpdateColumn("value", gorm.Expr("value + ?", delta)).Error
}

// DecrementFloor decrements the counter by one, refusing to go below zero.
// Returns true when the decrement happened. The WHERE guard makes concurrent
// decrements race-safe: only as many succeed as the counter held.
func (r *SettingRepository) DecrementFloor(key string) (bool, error) {
	return decrementFloorTx(r.db, key)
}

func decrementFloorTx(tx *gorm.DB, key string) (bool, error) {
	res := tx.Model(&models.BotSetting{}).
		Where("`key` = ? AND value > 0", key).
		UpdateColumn("value", gorm.Expr("value - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
