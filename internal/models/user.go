package models

import (
	"time"
)

// User is one end user of the bot, keyed by their platform id.
type User struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	TelegramID int64  `gorm:"uniqueIndex;not null" json:"telegram_id"`
	Username   string `gorm:"size:64" json:"username"`
	FirstName  string `gorm:"size:128" json:"first_name"`
	// Points is the spendable balance; withdrawals debit it and referrals credit it.
	// Guarded updates keep it from ever going negative.
	Points         int        `gorm:"not null;default:0" json:"points"`
	ReferredBy     *int64     `gorm:"index" json:"referred_by"` // TelegramID of the referrer; nil when organic
	LastWithdrawal *time.Time `json:"last_withdrawal"`
	JoinedAt       time.Time  `gorm:"autoCreateTime" json:"joined_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// CooldownRemaining returns how long until the user may withdraw again, given the
// cooldown window. Zero when no withdrawal has happened or the window has passed.
func (u *User) CooldownRemaining(window time.Duration, now time.Time) time.Duration {
	if u.LastWithdrawal == nil {
		return 0
	}
	next := u.LastWithdrawal.Add(window)
	if !now.Before(next) {
		return 0
	}
	return next.Sub(now)
}
