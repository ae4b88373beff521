package models

import "time"

// StoredFile references one deliverable file held by the chat platform.
// FileID is the platform's opaque handle; the payload itself is never stored here.
// A row is consumed (selected and deleted) per successful withdrawal or claim.
type StoredFile struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FileID     string    `gorm:"size:256;not null;index" json:"file_id"`
	Category   string    `gorm:"size:16;not null;index" json:"category"` // withdraw | claim
	FileName   string    `gorm:"size:256" json:"file_name"`
	UploadedBy int64     `gorm:"not null" json:"uploaded_by"`
	UploadedAt time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

func (StoredFile) TableName() string { return "files" }
