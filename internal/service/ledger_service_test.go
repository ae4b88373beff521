package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"droply/internal/database"
	"droply/internal/domain"
	"droply/internal/models"
	"droply/internal/repository"
	"droply/pkg/telegram"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testChannels = []string{"@chan1", "@chan2"}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.SeedSettings(db))
	return db
}

type ledgerFixture struct {
	db       *gorm.DB
	svc      *LedgerService
	stub     *telegram.Stub
	users    *repository.UserRepository
	files    *repository.FileRepository
	settings *repository.SettingRepository
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	db := newTestDB(t)
	stub := telegram.NewStub()
	users := repository.NewUserRepository(db)
	files := repository.NewFileRepository(db)
	settings := repository.NewSettingRepository(db)
	svc := NewLedgerService(users, repository.NewWithdrawalRepository(db), settings, files, stub, testChannels, time.Second)
	return &ledgerFixture{db: db, svc: svc, stub: stub, users: users, files: files, settings: settings}
}

func (f *ledgerFixture) seedWithdrawable(t *testing.T, userID int64, points int) {
	t.Helper()
	require.NoError(t, f.users.Create(&models.User{TelegramID: userID, Points: points}))
	require.NoError(t, f.files.Create(&models.StoredFile{FileID: "f1", Category: domain.CategoryWithdraw, FileName: "a.pdf", UploadedBy: 1}))
	require.NoError(t, f.settings.Set(domain.SettingWithdrawFiles, 1))
}

func TestIsMemberRequiresEveryChannel(t *testing.T) {
	f := newLedgerFixture(t)
	f.stub.Join("@chan1", 100)
	require.False(t, f.svc.IsMember(context.Background(), 100))

	f.stub.Join("@chan2", 100)
	require.True(t, f.svc.IsMember(context.Background(), 100))
}

func TestIsMemberFailsClosedOnOracleError(t *testing.T) {
	f := newLedgerFixture(t)
	f.stub.Join("@chan1", 100)
	f.stub.Join("@chan2", 100)
	f.stub.FailOracle = true
	require.False(t, f.svc.IsMember(context.Background(), 100))
}

func TestCreditReferral(t *testing.T) {
	f := newLedgerFixture(t)
	require.NoError(t, f.users.Create(&models.User{TelegramID: 100}))
	require.NoError(t, f.users.Create(&models.User{TelegramID: 200}))

	f.svc.CreditReferral(100, 200)

	referrer, err := f.users.GetByTelegramID(100)
	require.NoError(t, err)
	require.Equal(t, domain.ReferralBonusOwner, referrer.Points)
	referred, err := f.users.GetByTelegramID(200)
	require.NoError(t, err)
	require.Equal(t, domain.ReferralBonusNew, referred.Points)
}

func TestCreditReferralNoOps(t *testing.T) {
	f := newLedgerFixture(t)
	require.NoError(t, f.users.Create(&models.User{TelegramID: 100}))

	// Self-referral and unknown referrer credit nothing.
	f.svc.CreditReferral(100, 100)
	f.svc.CreditReferral(999, 100)

	u, err := f.users.GetByTelegramID(100)
	require.NoError(t, err)
	require.Zero(t, u.Points)
}

func TestWithdrawMembershipBeforeBalance(t *testing.T) {
	f := newLedgerFixture(t)
	// Zero points AND not a member: the membership error wins.
	require.NoError(t, f.users.Create(&models.User{TelegramID: 100}))

	_, _, err := f.svc.Withdraw(context.Background(), 100)
	require.ErrorIs(t, err, ErrNotMember)
}

func TestWithdrawInsufficientPoints(t *testing.T) {
	f := newLedgerFixture(t)
	f.stub.AllMembers = true
	f.seedWithdrawable(t, 100, domain.WithdrawCost-1)

	_, points, err := f.svc.Withdraw(context.Background(), 100)
	require.ErrorIs(t, err, repository.ErrInsufficientPoints)
	require.Equal(t, domain.WithdrawCost-1, points)
}

func TestWithdrawCooldownBoundary(t *testing.T) {
	f := newLedgerFixture(t)
	f.stub.AllMembers = true
	f.seedWithdrawable(t, 100, domain.WithdrawCost)

	// One minute short of the window: still cooling down.
	last := time.Now().Add(-(domain.WithdrawCooldown - time.Minute))
	require.NoError(t, setLastWithdrawal(f, 100, last))

	_, _, err := f.svc.Withdraw(context.Background(), 100)
	var cooldown *CooldownError
	require.ErrorAs(t, err, &cooldown)
	require.InDelta(t, time.Minute.Seconds(), cooldown.Remaining.Seconds(), 5)

	// Past the full window: allowed.
	require.NoError(t, setLastWithdrawal(f, 100, time.Now().Add(-domain.WithdrawCooldown-time.Minute)))
	file, remaining, err := f.svc.Withdraw(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, "f1", file.FileID)
	require.Zero(t, remaining)
}

func TestWithdrawSuccessDebitsOnce(t *testing.T) {
	f := newLedgerFixture(t)
	f.stub.AllMembers = true
	f.seedWithdrawable(t, 100, domain.WithdrawCost+5)

	file, remaining, err := f.svc.Withdraw(context.Background(), 100)
	require.NoError(t, err)
	require.NotNil(t, file)
	require.Equal(t, 5, remaining)

	u, err := f.users.GetByTelegramID(100)
	require.NoError(t, err)
	require.Equal(t, 5, u.Points)
	require.NotNil(t, u.LastWithdrawal)

	// Pool drained on both axes.
	n, err := f.files.CountByCategory(domain.CategoryWithdraw)
	require.NoError(t, err)
	require.Zero(t, n)
	counter, err := f.settings.Get(domain.SettingWithdrawFiles)
	require.NoError(t, err)
	require.Zero(t, counter)

	// Immediately again: cooldown, no charge.
	_, _, err = f.svc.Withdraw(context.Background(), 100)
	var cooldown *CooldownError
	require.ErrorAs(t, err, &cooldown)
	u, err = f.users.GetByTelegramID(100)
	require.NoError(t, err)
	require.Equal(t, 5, u.Points)
}

func TestWithdrawEmptyPool(t *testing.T) {
	f := newLedgerFixture(t)
	f.stub.AllMembers = true
	require.NoError(t, f.users.Create(&models.User{TelegramID: 100, Points: 100}))

	_, _, err := f.svc.Withdraw(context.Background(), 100)
	require.ErrorIs(t, err, repository.ErrPoolEmpty)

	u, err := f.users.GetByTelegramID(100)
	require.NoError(t, err)
	require.Equal(t, 100, u.Points)
}

func TestWithdrawDesyncHealsCounter(t *testing.T) {
	f := newLedgerFixture(t)
	f.stub.AllMembers = true
	require.NoError(t, f.users.Create(&models.User{TelegramID: 100, Points: 100}))
	// Counter claims files exist but the pool is empty.
	require.NoError(t, f.settings.Set(domain.SettingWithdrawFiles, 3))

	_, _, err := f.svc.Withdraw(context.Background(), 100)
	require.ErrorIs(t, err, repository.ErrPoolEmpty)

	// No charge, and the counter was resynced to the real pool size.
	u, err := f.users.GetByTelegramID(100)
	require.NoError(t, err)
	require.Equal(t, 100, u.Points)
	counter, err := f.settings.Get(domain.SettingWithdrawFiles)
	require.NoError(t, err)
	require.Zero(t, counter)
}

func TestHealPoolCounterAdjustsRelatively(t *testing.T) {
	f := newLedgerFixture(t)
	require.NoError(t, f.files.Create(&models.StoredFile{FileID: "f1", Category: domain.CategoryWithdraw, FileName: "a.pdf", UploadedBy: 1}))
	require.NoError(t, f.files.Create(&models.StoredFile{FileID: "f2", Category: domain.CategoryWithdraw, FileName: "b.pdf", UploadedBy: 1}))

	// Counter overshot the pool: adjusted down to the real size.
	require.NoError(t, f.settings.Set(domain.SettingWithdrawFiles, 5))
	f.svc.healPoolCounter()
	counter, err := f.settings.Get(domain.SettingWithdrawFiles)
	require.NoError(t, err)
	require.Equal(t, 2, counter)

	// Counter undershot: adjusted up, never stomped to an absolute value by a
	// stale write.
	require.NoError(t, f.settings.Set(domain.SettingWithdrawFiles, 0))
	f.svc.healPoolCounter()
	counter, err = f.settings.Get(domain.SettingWithdrawFiles)
	require.NoError(t, err)
	require.Equal(t, 2, counter)

	// An upload's increment landing between the count and the correction is
	// kept: the correction is a delta, so the final value carries both.
	require.NoError(t, f.settings.Set(domain.SettingWithdrawFiles, 2))
	require.NoError(t, f.settings.Increment(domain.SettingWithdrawFiles, 1))
	require.NoError(t, f.files.Create(&models.StoredFile{FileID: "f3", Category: domain.CategoryWithdraw, FileName: "c.pdf", UploadedBy: 1}))
	f.svc.healPoolCounter()
	counter, err = f.settings.Get(domain.SettingWithdrawFiles)
	require.NoError(t, err)
	require.Equal(t, 3, counter)
}

func setLastWithdrawal(f *ledgerFixture, telegramID int64, at time.Time) error {
	return f.db.Model(&models.User{}).
		Where("telegram_id = ?", telegramID).
		UpdateColumn("last_withdrawal", at).Error
}
