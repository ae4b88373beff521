package service

import (
	"context"
	"errors"
	"log"
	"time"

	"droply/internal/domain"
	"droply/internal/models"
	"droply/internal/repository"
)

var ErrNotMember = errors.New("user is not a member of all required channels")

// CooldownError reports an active withdrawal cooldown and how long is left.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return "withdrawal cooldown active, " + e.Remaining.Round(time.Minute).String() + " remaining"
}

// MembershipChecker answers whether a user currently belongs to a channel.
// Implementations may fail or time out; callers treat any error as "not a member".
type MembershipChecker interface {
	IsChatMember(ctx context.Context, chatID string, userID int64) (bool, error)
}

// LedgerService owns point balances: referral credits and point-funded,
// cooldown-gated withdrawals.
type LedgerService struct {
	userRepo       *repository.UserRepository
	withdrawalRepo *repository.WithdrawalRepository
	settingRepo    *repository.SettingRepository
	fileRepo       *repository.FileRepository
	membership     MembershipChecker
	channels       []string
	oracleTimeout  time.Duration
}

func NewLedgerService(
	userRepo *repository.UserRepository,
	withdrawalRepo *repository.WithdrawalRepository,
	settingRepo *repository.SettingRepository,
	fileRepo *repository.FileRepository,
	membership MembershipChecker,
	channels []string,
	oracleTimeout time.Duration,
) *LedgerService {
	return &LedgerService{
		userRepo:       userRepo,
		withdrawalRepo: withdrawalRepo,
		settingRepo:    settingRepo,
		fileRepo:       fileRepo,
		membership:     membership,
		channels:       channels,
		oracleTimeout:  oracleTimeout,
	}
}

// IsMember reports whether the user belongs to every required channel.
// Fail-closed: an oracle error or timeout on any channel counts as not a member.
func (s *LedgerService) IsMember(ctx context.Context, userID int64) bool {
	for _, ch := range s.channels {
		cctx, cancel := context.WithTimeout(ctx, s.oracleTimeout)
		ok, err := s.membership.IsChatMember(cctx, ch, userID)
		cancel()
		if err != nil {
			log.Printf("[ledger] membership check %s for %d failed: %v", ch, userID, err)
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}

// CreditReferral applies the signup bonus for a referred join: the referrer gets
// the larger credit, the new user the smaller one. Silently a no-op when the
// referrer id is the new user's own id or the referrer is unknown.
func (s *LedgerService) CreditReferral(referrerID, newUserID int64) {
	if referrerID == 0 || referrerID == newUserID {
		return
	}
	if _, err := s.userRepo.GetByTelegramID(referrerID); err != nil {
		return
	}
	if err := s.userRepo.AddPoints(referrerID, domain.ReferralBonusOwner); err != nil {
		log.Printf("[ledger] failed to credit referrer %d: %v", referrerID, err)
		return
	}
	if err := s.userRepo.AddPoints(newUserID, domain.ReferralBonusNew); err != nil {
		log.Printf("[ledger] failed to credit referred %d: %v", newUserID, err)
	}
}

// Withdraw runs the full withdrawal: preconditions in fixed order (membership,
// balance, cooldown, pool), then the atomic commit that secures a file before any
// charge. Returns the file to deliver and the user's remaining points.
func (s *LedgerService) Withdraw(ctx context.Context, userID int64) (*models.StoredFile, int, error) {
	if !s.IsMember(ctx, userID) {
		return nil, 0, ErrNotMember
	}

	u, err := s.userRepo.GetByTelegramID(userID)
	if err != nil {
		return nil, 0, err
	}
	if u.Points < domain.WithdrawCost {
		return nil, u.Points, repository.ErrInsufficientPoints
	}
	if rem := u.CooldownRemaining(domain.WithdrawCooldown, time.Now()); rem > 0 {
		return nil, u.Points, &CooldownError{Remaining: rem}
	}
	if n, err := s.settingRepo.Get(domain.SettingWithdrawFiles); err != nil || n <= 0 {
		return nil, u.Points, repository.ErrPoolEmpty
	}

	file, remaining, err := s.withdrawalRepo.Commit(
		userID, domain.WithdrawCost,
		domain.SettingWithdrawFiles, domain.CategoryWithdraw,
		time.Now(),
	)
	if err != nil {
		if errors.Is(err, repository.ErrPoolEmpty) {
			s.healPoolCounter()
		}
		return nil, u.Points, err
	}
	return file, remaining, nil
}

// healPoolCounter resyncs the withdraw counter to the actual pool size after a
// counter/pool desync was detected. The correction is applied as a relative
// adjustment so an upload's increment landing mid-resync is preserved rather
// than overwritten.
func (s *LedgerService) healPoolCounter() {
	n, err := s.fileRepo.CountByCategory(domain.CategoryWithdraw)
	if err != nil {
		log.Printf("[ledger] pool resync count failed: %v", err)
		return
	}
	cur, err := s.settingRepo.Get(domain.SettingWithdrawFiles)
	if err != nil {
		log.Printf("[ledger] pool resync read failed: %v", err)
		return
	}
	delta := int(n) - cur
	if delta == 0 {
		return
	}
	if err := s.settingRepo.Increment(domain.SettingWithdrawFiles, delta); err != nil {
		log.Printf("[ledger] pool resync failed: %v", err)
		return
	}
	log.Printf("[ledger] withdraw pool counter adjusted by %d to %d", delta, n)
}
