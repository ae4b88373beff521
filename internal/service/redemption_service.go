package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"droply/internal/domain"
	"droply/internal/models"
	"droply/internal/repository"
)

var (
	ErrCodeTooShort   = errors.New("code must be at least 4 characters")
	ErrInvalidMaxUses = errors.New("max uses must be a positive number")
)

// RedemptionService owns the claim-code lifecycle: minting, redemption and
// exhaustion cleanup.
type RedemptionService struct {
	codeRepo    *repository.CodeRepository
	settingRepo *repository.SettingRepository
}

func NewRedemptionService(codeRepo *repository.CodeRepository, settingRepo *repository.SettingRepository) *RedemptionService {
	return &RedemptionService{codeRepo: codeRepo, settingRepo: settingRepo}
}

// CreateCode mints an active code with maxUses claims. The string is normalized to
// uppercase; a duplicate reports repository.ErrCodeExists. Minting never touches
// the claim-files pool counter; the pool drains one unit per successful claim.
func (s *RedemptionService) CreateCode(code string, maxUses int, creator int64) (*models.ClaimCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < domain.CodeMinLength {
		return nil, ErrCodeTooShort
	}
	if maxUses <= 0 {
		return nil, ErrInvalidMaxUses
	}
	c := &models.ClaimCode{
		Code:          code,
		UsesRemaining: maxUses,
		CreatedBy:     creator,
		IsActive:      true,
	}
	if err := s.codeRepo.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateRandomCode mints a code with a generated string, retrying on the unlikely
// duplicate.
func (s *RedemptionService) CreateRandomCode(maxUses int, creator int64) (*models.ClaimCode, error) {
	for i := 0; i < 10; i++ {
		code, err := GenerateCode()
		if err != nil {
			return nil, err
		}
		c, err := s.CreateCode(code, maxUses, creator)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, repository.ErrCodeExists) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to generate a unique code after retries")
}

// Redeem consumes one use of the code for the user. Returns the uses remaining
// after this claim (0 when the code was deleted). Failure modes:
// repository.ErrCodeNotFound, repository.ErrAlreadyClaimed,
// repository.ErrCodeExhausted. A zero-use code found lingering is deleted on
// access. File selection and delivery are the caller's step after a successful
// redeem; a committed claim is never rolled back for a delivery failure.
func (s *RedemptionService) Redeem(userID int64, rawCode string) (int, error) {
	code := strings.ToUpper(strings.TrimSpace(rawCode))

	c, err := s.codeRepo.GetActiveByCode(code)
	if err != nil {
		return 0, err
	}

	claimed, err := s.codeRepo.HasClaim(userID, c.ID)
	if err != nil {
		return 0, err
	}
	if claimed {
		return 0, repository.ErrAlreadyClaimed
	}

	if c.UsesRemaining <= 0 {
		if err := s.codeRepo.DeleteIfExhausted(c.ID); err != nil {
			return 0, err
		}
		return 0, repository.ErrCodeExhausted
	}

	remaining, err := s.codeRepo.Redeem(userID, c, domain.SettingClaimFiles)
	if err != nil {
		if errors.Is(err, repository.ErrCodeExhausted) {
			// Lost the last use to a concurrent claim; clean the husk up.
			_ = s.codeRepo.DeleteIfExhausted(c.ID)
		}
		return 0, err
	}
	return remaining, nil
}

// ClaimPool returns the current claim-files pool counter.
func (s *RedemptionService) ClaimPool() (int, error) {
	return s.settingRepo.Get(domain.SettingClaimFiles)
}

// GenerateCode produces an 8-character code over uppercase letters and digits from
// a cryptographically strong source.
func GenerateCode() (string, error) {
	b := make([]byte, domain.CodeLength)
	max := big.NewInt(int64(len(domain.CodeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = domain.CodeAlphabet[n.Int64()]
	}
	return string(b), nil
}
