package models

import "time"

// ClaimCode is a redemption code good for UsesRemaining single-file claims.
// Codes are stored uppercase and deleted once exhausted; the same code string may
// later be minted again as a new row with a new ID.
type ClaimCode struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Code          string    `gorm:"uniqueIndex;size:64;not null" json:"code"`
	UsesRemaining int       `gorm:"not null" json:"uses_remaining"`
	CreatedBy     int64     `gorm:"not null" json:"created_by"` // TelegramID of the minter
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (ClaimCode) TableName() string { return "claim_codes" }

// CodeClaim records that a user consumed one use of a specific code row.
// The (user_id, code_id) unique index is the double-claim guard: it is keyed on the
// code's row id rather than its string, so a reminted code with the same string is
// claimable again. Rows are purged after the retention window.
type CodeClaim struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"uniqueIndex:idx_code_claims_user_code;not null" json:"user_id"`
	CodeID    uint      `gorm:"uniqueIndex:idx_code_claims_user_code;not null" json:"code_id"`
	Code      string    `gorm:"size:64;not null" json:"code"` // audit copy of the string
	ClaimedAt time.Time `gorm:"autoCreateTime;index" json:"claimed_at"`
}

func (CodeClaim) TableName() string { return "code_claims" }
