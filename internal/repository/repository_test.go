package repository

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"droply/internal/database"
	"droply/internal/domain"
	"droply/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Per-test in-memory database to avoid cross-test interference.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// SQLite handles one writer at a time; a single connection serializes
	// transactions instead of returning busy errors.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.SeedSettings(db))
	return db
}

func TestUserCreateIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)

	require.NoError(t, repo.Create(&models.User{TelegramID: 100, FirstName: "Alice"}))
	err := repo.Create(&models.User{TelegramID: 100, FirstName: "Alice again"})
	require.ErrorIs(t, err, ErrUserExists)

	u, err := repo.GetByTelegramID(100)
	require.NoError(t, err)
	require.Equal(t, "Alice", u.FirstName)
	require.Zero(t, u.Points)

	_, err = repo.GetByTelegramID(999)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserAddPoints(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	require.NoError(t, repo.Create(&models.User{TelegramID: 100}))

	require.NoError(t, repo.AddPoints(100, 8))
	require.NoError(t, repo.AddPoints(100, 4))

	u, err := repo.GetByTelegramID(100)
	require.NoError(t, err)
	require.Equal(t, 12, u.Points)
}

func TestSettingDecrementFloorStopsAtZero(t *testing.T) {
	db := newTestDB(t)
	repo := NewSettingRepository(db)
	require.NoError(t, repo.Set(domain.SettingClaimFiles, 1))

	ok, err := repo.DecrementFloor(domain.SettingClaimFiles)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.DecrementFloor(domain.SettingClaimFiles)
	require.NoError(t, err)
	require.False(t, ok)

	n, err := repo.Get(domain.SettingClaimFiles)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestConsumeRandomRemovesFile(t *testing.T) {
	db := newTestDB(t)
	repo := NewFileRepository(db)
	require.NoError(t, repo.Create(&models.StoredFile{FileID: "f1", Category: domain.CategoryWithdraw, FileName: "a.pdf", UploadedBy: 1}))

	f, err := repo.ConsumeRandom(domain.CategoryWithdraw)
	require.NoError(t, err)
	require.Equal(t, "f1", f.FileID)

	n, err := repo.CountByCategory(domain.CategoryWithdraw)
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = repo.ConsumeRandom(domain.CategoryWithdraw)
	require.ErrorIs(t, err, ErrNoFiles)
}

func TestConsumeRandomIgnoresOtherCategory(t *testing.T) {
	db := newTestDB(t)
	repo := NewFileRepository(db)
	require.NoError(t, repo.Create(&models.StoredFile{FileID: "c1", Category: domain.CategoryClaim, FileName: "c.pdf", UploadedBy: 1}))

	_, err := repo.ConsumeRandom(domain.CategoryWithdraw)
	require.ErrorIs(t, err, ErrNoFiles)

	n, err := repo.CountByCategory(domain.CategoryClaim)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestConsumeCandidatesStaleSetTerminates(t *testing.T) {
	db := newTestDB(t)
	repo := NewFileRepository(db)
	f := &models.StoredFile{FileID: "f1", Category: domain.CategoryWithdraw, FileName: "a.pdf", UploadedBy: 1}
	require.NoError(t, repo.Create(f))
	staleID := f.ID
	require.NoError(t, db.Delete(&models.StoredFile{}, staleID).Error)

	// A candidate list referencing only rows other transactions already consumed
	// must report an empty pool, not retry forever.
	_, err := consumeCandidates(db, domain.CategoryWithdraw, []uint{staleID})
	require.ErrorIs(t, err, ErrNoFiles)

	// A live candidate among stale ones is still found and consumed.
	live := &models.StoredFile{FileID: "f2", Category: domain.CategoryWithdraw, FileName: "b.pdf", UploadedBy: 1}
	require.NoError(t, repo.Create(live))
	got, err := consumeCandidates(db, domain.CategoryWithdraw, []uint{staleID, live.ID})
	require.NoError(t, err)
	require.Equal(t, "f2", got.FileID)
	n, err := repo.CountByCategory(domain.CategoryWithdraw)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestWithdrawalCommitInsufficientPointsRollsBack(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	files := NewFileRepository(db)
	settings := NewSettingRepository(db)
	withdrawals := NewWithdrawalRepository(db)

	require.NoError(t, users.Create(&models.User{TelegramID: 100, Points: 10}))
	require.NoError(t, files.Create(&models.StoredFile{FileID: "f1", Category: domain.CategoryWithdraw, FileName: "a.pdf", UploadedBy: 1}))
	require.NoError(t, settings.Set(domain.SettingWithdrawFiles, 1))

	_, _, err := withdrawals.Commit(100, 16, domain.SettingWithdrawFiles, domain.CategoryWithdraw, time.Now())
	require.ErrorIs(t, err, ErrInsufficientPoints)

	// The rollback keeps both the file and the counter.
	n, err := files.CountByCategory(domain.CategoryWithdraw)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	counter, err := settings.Get(domain.SettingWithdrawFiles)
	require.NoError(t, err)
	require.Equal(t, 1, counter)
	u, err := users.GetByTelegramID(100)
	require.NoError(t, err)
	require.Equal(t, 10, u.Points)
}

func TestWithdrawalCommitDebitsAndConsumes(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	files := NewFileRepository(db)
	settings := NewSettingRepository(db)
	withdrawals := NewWithdrawalRepository(db)

	require.NoError(t, users.Create(&models.User{TelegramID: 100, Points: 20}))
	require.NoError(t, files.Create(&models.StoredFile{FileID: "f1", Category: domain.CategoryWithdraw, FileName: "a.pdf", UploadedBy: 1}))
	require.NoError(t, settings.Set(domain.SettingWithdrawFiles, 1))

	now := time.Now()
	f, remaining, err := withdrawals.Commit(100, 16, domain.SettingWithdrawFiles, domain.CategoryWithdraw, now)
	require.NoError(t, err)
	require.Equal(t, "f1", f.FileID)
	require.Equal(t, 4, remaining)

	u, err := users.GetByTelegramID(100)
	require.NoError(t, err)
	require.Equal(t, 4, u.Points)
	require.NotNil(t, u.LastWithdrawal)

	counter, err := settings.Get(domain.SettingWithdrawFiles)
	require.NoError(t, err)
	require.Zero(t, counter)
}

func TestWithdrawalCommitEmptyPool(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	withdrawals := NewWithdrawalRepository(db)
	require.NoError(t, users.Create(&models.User{TelegramID: 100, Points: 20}))

	_, _, err := withdrawals.Commit(100, 16, domain.SettingWithdrawFiles, domain.CategoryWithdraw, time.Now())
	require.ErrorIs(t, err, ErrPoolEmpty)

	u, err := users.GetByTelegramID(100)
	require.NoError(t, err)
	require.Equal(t, 20, u.Points)
}

func TestRedeemLifecycle(t *testing.T) {
	db := newTestDB(t)
	codes := NewCodeRepository(db)
	settings := NewSettingRepository(db)
	require.NoError(t, settings.Set(domain.SettingClaimFiles, 10))

	code := &models.ClaimCode{Code: "PROMO2024", UsesRemaining: 2, CreatedBy: 1, IsActive: true}
	require.NoError(t, codes.Create(code))
	require.ErrorIs(t, codes.Create(&models.ClaimCode{Code: "PROMO2024", UsesRemaining: 5, CreatedBy: 1, IsActive: true}), ErrCodeExists)

	remaining, err := codes.Redeem(100, code, domain.SettingClaimFiles)
	require.NoError(t, err)
	require.Equal(t, 1, remaining)

	// Same user again: the unique (user, code) index rejects it.
	_, err = codes.Redeem(100, code, domain.SettingClaimFiles)
	require.ErrorIs(t, err, ErrAlreadyClaimed)

	remaining, err = codes.Redeem(200, code, domain.SettingClaimFiles)
	require.NoError(t, err)
	require.Zero(t, remaining)

	// The last use deleted the row.
	_, err = codes.GetActiveByCode("PROMO2024")
	require.ErrorIs(t, err, ErrCodeNotFound)

	_, err = codes.Redeem(300, code, domain.SettingClaimFiles)
	require.ErrorIs(t, err, ErrCodeExhausted)

	// Two uses spent, two units drained.
	pool, err := settings.Get(domain.SettingClaimFiles)
	require.NoError(t, err)
	require.Equal(t, 8, pool)
}

func TestRedeemSameStringReminted(t *testing.T) {
	db := newTestDB(t)
	codes := NewCodeRepository(db)
	settings := NewSettingRepository(db)
	require.NoError(t, settings.Set(domain.SettingClaimFiles, 10))

	first := &models.ClaimCode{Code: "AGAIN44", UsesRemaining: 1, CreatedBy: 1, IsActive: true}
	require.NoError(t, codes.Create(first))
	_, err := codes.Redeem(100, first, domain.SettingClaimFiles)
	require.NoError(t, err)

	// Exhaustion deleted the row, so the string can be minted again and the
	// same user may claim the new row.
	second := &models.ClaimCode{Code: "AGAIN44", UsesRemaining: 1, CreatedBy: 1, IsActive: true}
	require.NoError(t, codes.Create(second))
	_, err = codes.Redeem(100, second, domain.SettingClaimFiles)
	require.NoError(t, err)
}

func TestRedeemSingleUseConcurrent(t *testing.T) {
	db := newTestDB(t)
	codes := NewCodeRepository(db)
	settings := NewSettingRepository(db)
	require.NoError(t, settings.Set(domain.SettingClaimFiles, 10))

	code := &models.ClaimCode{Code: "ONESHOT1", UsesRemaining: 1, CreatedBy: 1, IsActive: true}
	require.NoError(t, codes.Create(code))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = codes.Redeem(int64(100+i), code, domain.SettingClaimFiles)
		}(i)
	}
	wg.Wait()

	var successes, exhausted int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		default:
			require.ErrorIs(t, err, ErrCodeExhausted)
			exhausted++
		}
	}
	require.Equal(t, 1, successes)
	require.Equal(t, 1, exhausted)

	pool, err := settings.Get(domain.SettingClaimFiles)
	require.NoError(t, err)
	require.Equal(t, 9, pool)
}

func TestAuditPurgeOlderThan(t *testing.T) {
	db := newTestDB(t)
	audit := NewAuditRepository(db)

	_, err := audit.LogWithdrawal(100, "alice", "f1", "a.pdf")
	require.NoError(t, err)
	_, err = audit.LogClaim(100, "alice", "f2", "b.pdf", "PROMO2024")
	require.NoError(t, err)

	// Cutoffs in the past purge nothing.
	n, err := audit.PurgeOlderThan(time.Now().Add(-time.Hour), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Zero(t, n)

	// Cutoffs in the future purge both log rows.
	n, err = audit.PurgeOlderThan(time.Now().Add(time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}
