package repository

import (
	"time"

	"droply/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditRepository holds the write-only withdrawal/claim trails. Nothing in the
// engine reads these back; they exist for operators and are purged on schedule.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) LogWithdrawal(userID int64, username, fileID, fileName string) (*models.WithdrawLog, error) {
	entry := &models.WithdrawLog{
		EventID:  uuid.New().String(),
		UserID:   userID,
		Username: username,
		FileID:   fileID,
		FileName: fileName,
	}
	if err := r.db.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *AuditRepository) LogClaim(userID int64, username, fileID, fileName, claimCode string) (*models.ClaimLog, error) {
	entry := &models.ClaimLog{
		EventID:   uuid.New().String(),
		UserID:    userID,
		Username:  username,
		FileID:    fileID,
		FileName:  fileName,
		ClaimCode: claimCode,
	}
	if err := r.db.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// PurgeOlderThan deletes audit rows past their retention windows and code-claim
// rows past theirs. Returns total rows removed.
func (r *AuditRepository) PurgeOlderThan(logCutoff, claimCutoff time.Time) (int64, error) {
	var total int64
	res := r.db.Where("created_at < ?", logCutoff).Delete(&models.WithdrawLog{})
	if res.Error != nil {
		return total, res.Error
	}
	total += res.RowsAffected
	res = r.db.Where("created_at < ?", logCutoff).Delete(&models.ClaimLog{})
	if res.Error != nil {
		return total, res.Error
	}
	total += res.RowsAffected
	res = r.db.Where("claimed_at < ?", claimCutoff).Delete(&models.CodeClaim{})
	if res.Error != nil {
		return total, res.Error
	}
	total += res.RowsAffected
	return total, nil
}
