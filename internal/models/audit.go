package models

import "time"

// WithdrawLog is a write-only audit record of a delivered withdrawal.
// Purged after the log retention window; never read by the engine.
type WithdrawLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   string    `gorm:"size:36;uniqueIndex;not null" json:"event_id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	Username  string    `gorm:"size:64" json:"username"`
	FileID    string    `gorm:"size:256" json:"file_id"`
	FileName  string    `gorm:"size:256" json:"file_name"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (WithdrawLog) TableName() string { return "withdraw_logs" }

// ClaimLog is a write-only audit record of a delivered code claim.
type ClaimLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   string    `gorm:"size:36;uniqueIndex;not null" json:"event_id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	Username  string    `gorm:"size:64" json:"username"`
	FileID    string    `gorm:"size:256" json:"file_id"`
	FileName  string    `gorm:"size:256" json:"file_name"`
	ClaimCode string    `gorm:"size:64" json:"claim_code"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (ClaimLog) TableName() string { return "claim_logs" }
