package repository

import (
	"errors"
	"strings"

	"droply/internal/models"

	"gorm.io/gorm"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByTelegramID(telegramID int64) (*models.User, error) {
	var u models.User
	err := r.db.Where("telegram_id = ?", telegramID).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user. The unique index on telegram_id makes this idempotent:
// a second insert for the same id reports ErrUserExists and changes nothing.
func (r *UserRepository) Create(u *models.User) error {
	if err := r.db.Create(u).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrUserExists
		}
		return err
	}
	return nil
}

// AddPoints credits points atomically. delta must be positive.
func (r *UserRepository) AddPoints(telegramID int64, delta int) error {
	return r.db.Model(&models.User{}).
		Where("telegram_id = ?", telegramID).
		UpdateColumn("points", gorm.Expr("points + ?", delta)).Error
}

func (r *UserRepository) CountUsers() (int64, error) {
	var n int64
	err := r.db.Model(&models.User{}).Count(&n).Error
	return n, err
}

// isDuplicateKey matches unique-constraint violations across the MySQL driver used
// in production and the SQLite driver used in tests.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
