package repository

import (
	"errors"

	"droply/internal/models"

	"gorm.io/gorm"
)

var (
	ErrCodeExists     = errors.New("code already exists")
	ErrCodeNotFound   = errors.New("code not found")
	ErrAlreadyClaimed = errors.New("code already claimed by user")
	ErrCodeExhausted  = errors.New("code has no uses left")
)

type CodeRepository struct {
	db *gorm.DB
}

func NewCodeRepository(db *gorm.DB) *CodeRepository {
	return &CodeRepository{db: db}
}

// Create inserts a new active code; a duplicate code string reports ErrCodeExists.
func (r *CodeRepository) Create(c *models.ClaimCode) error {
	if err := r.db.Create(c).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrCodeExists
		}
		return err
	}
	return nil
}

func (r *CodeRepository) GetActiveByCode(code string) (*models.ClaimCode, error) {
	var c models.ClaimCode
	err := r.db.Where("code = ? AND is_active = ?", code, true).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *CodeRepository) HasClaim(userID int64, codeID uint) (bool, error) {
	var n int64
	err := r.db.Model(&models.CodeClaim{}).
		Where("user_id = ? AND code_id = ?", userID, codeID).
		Count(&n).Error
	return n > 0, err
}

// DeleteIfExhausted removes the code row only if its uses are spent — the
// delete-if-matches self-heal for zero-use codes found lingering.
func (r *CodeRepository) DeleteIfExhausted(codeID uint) error {
	return r.db.Where("id = ? AND uses_remaining <= 0", codeID).Delete(&models.ClaimCode{}).Error
}

// Redeem commits one claim of the code by the user: it records the claim, spends
// one use, drains one unit from the claim-files pool counter (floored at zero) and
// deletes the code once its last use is spent. Everything happens in a single
// transaction, so a raced exhaustion or duplicate claim leaves no partial state.
// Returns the post-decrement uses remaining (0 when the code was deleted).
func (r *CodeRepository) Redeem(userID int64, code *models.ClaimCode, poolKey string) (int, error) {
	remaining := 0
	err := r.db.Transaction(func(tx *gorm.DB) error {
		claim := &models.CodeClaim{UserID: userID, CodeID: code.ID, Code: code.Code}
		if err := tx.Create(claim).Error; err != nil {
			// The unique (user_id, code_id) index is the authoritative guard;
			// losing the insert race is a normal duplicate claim, not a fault.
			if isDuplicateKey(err) {
				return ErrAlreadyClaimed
			}
			return err
		}

		res := tx.Model(&models.ClaimCode{}).
			Where("id = ? AND uses_remaining > 0", code.ID).
			UpdateColumn("uses_remaining", gorm.Expr("uses_remaining - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Raced to exhaustion between lookup and decrement; the rollback
			// discards the claim record.
			return ErrCodeExhausted
		}

		if _, err := decrementFloorTx(tx, poolKey); err != nil {
			return err
		}

		var after models.ClaimCode
		if err := tx.First(&after, code.ID).Error; err != nil {
			return err
		}
		remaining = after.UsesRemaining
		if remaining <= 0 {
			if err := tx.Where("id = ? AND uses_remaining <= 0", code.ID).
				Delete(&models.ClaimCode{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

func (r *CodeRepository) CountActive() (int64, error) {
	var n int64
	err := r.db.Model(&models.ClaimCode{}).Where("is_active = ?", true).Count(&n).Error
	return n, err
}

func (r *CodeRepository) ListActive() ([]models.ClaimCode, error) {
	var list []models.ClaimCode
	err := r.db.Where("is_active = ?", true).Order("created_at DESC").Find(&list).Error
	return list, err
}
