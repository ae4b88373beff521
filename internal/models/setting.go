package models

import "time"

// BotSetting is a named non-negative counter, e.g. the per-category file pool
// counts. Mutated only through atomic increment/decrement in the setting repo.
type BotSetting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100;not null" json:"key"`
	Value     int       `gorm:"not null;default:0" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BotSetting) TableName() string { return "bot_settings" }
