package repository

import (
	"crypto/rand"
	"errors"
	"math/big"

	"droply/internal/models"

	"gorm.io/gorm"
)

var ErrNoFiles = errors.New("no files available")

type FileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(f *models.StoredFile) error {
	return r.db.Create(f).Error
}

func (r *FileRepository) CountByCategory(category string) (int64, error) {
	var n int64
	err := r.db.Model(&models.StoredFile{}).Where("category = ?", category).Count(&n).Error
	return n, err
}

// PickRandom returns a uniformly random file of the category without removing it.
func (r *FileRepository) PickRandom(category string) (*models.StoredFile, error) {
	return pickRandomTx(r.db, category)
}

// ConsumeRandom atomically selects and removes one random file of the category.
// The conditioned DELETE arbitrates races: if another consumer took the picked row
// first, the pick is retried against the remaining rows.
func (r *FileRepository) ConsumeRandom(category string) (*models.StoredFile, error) {
	var out *models.StoredFile
	err := r.db.Transaction(func(tx *gorm.DB) error {
		f, err := consumeRandomTx(tx, category)
		if err != nil {
			return err
		}
		out = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func pickRandomTx(tx *gorm.DB, category string) (*models.StoredFile, error) {
	var ids []uint
	if err := tx.Model(&models.StoredFile{}).Where("category = ?", category).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNoFiles
	}
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(ids))))
	if err != nil {
		return nil, err
	}
	var f models.StoredFile
	if err := tx.First(&f, ids[idx.Int64()]).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoFiles
		}
		return nil, err
	}
	return &f, nil
}

func consumeRandomTx(tx *gorm.DB, category string) (*models.StoredFile, error) {
	var ids []uint
	if err := tx.Model(&models.StoredFile{}).Where("category = ?", category).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return consumeCandidates(tx, category, ids)
}

// consumeCandidates tries the candidate ids in random order until one conditioned
// DELETE lands. Each id is attempted at most once: under REPEATABLE READ the
// transaction's reads keep serving the original snapshot, so re-plucking after a
// lost race would return the same stale rows and never terminate. A candidate set
// fully consumed by concurrent transactions reports ErrNoFiles.
func consumeCandidates(tx *gorm.DB, category string, ids []uint) (*models.StoredFile, error) {
	for len(ids) > 0 {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(ids))))
		if err != nil {
			return nil, err
		}
		idx := n.Int64()
		id := ids[idx]
		ids = append(ids[:idx], ids[idx+1:]...)

		var f models.StoredFile
		if err := tx.First(&f, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		res := tx.Where("id = ? AND category = ?", id, category).Delete(&models.StoredFile{})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected > 0 {
			return &f, nil
		}
		// Lost the row to a concurrent consumer; next candidate.
	}
	return nil, ErrNoFiles
}
