package repository

import (
	"errors"
	"time"

	"droply/internal/models"

	"gorm.io/gorm"
)

var (
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrPoolEmpty          = errors.New("file pool empty")
)

type WithdrawalRepository struct {
	db *gorm.DB
}

func NewWithdrawalRepository(db *gorm.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

// Commit performs the atomic state transition of a withdrawal: drain one unit from
// the pool counter, select and remove a random file of the category, charge the
// user and stamp the cooldown. The file is secured before any charge so a
// counter/pool desync (counter positive, no file rows) rolls the whole transaction
// back and the user keeps their points. Returns the consumed file and the user's
// remaining balance.
func (r *WithdrawalRepository) Commit(telegramID int64, cost int, poolKey, category string, now time.Time) (*models.StoredFile, int, error) {
	var (
		file      *models.StoredFile
		remaining int
	)
	err := r.db.Transaction(func(tx *gorm.DB) error {
		ok, err := decrementFloorTx(tx, poolKey)
		if err != nil {
			return err
		}
		if !ok {
			return ErrPoolEmpty
		}

		f, err := consumeRandomTx(tx, category)
		if err != nil {
			if errors.Is(err, ErrNoFiles) {
				return ErrPoolEmpty
			}
			return err
		}

		res := tx.Model(&models.User{}).
			Where("telegram_id = ? AND points >= ?", telegramID, cost).
			UpdateColumns(map[string]interface{}{
				"points":          gorm.Expr("points - ?", cost),
				"last_withdrawal": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientPoints
		}

		var u models.User
		if err := tx.Where("telegram_id = ?", telegramID).First(&u).Error; err != nil {
			return err
		}
		file, remaining = f, u.Points
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return file, remaining, nil
}
