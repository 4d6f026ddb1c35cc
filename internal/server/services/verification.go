// Package services contains server-side business logic. This file implements
// VerificationService, which owns the lifecycle of one-time verification
// codes: handing back a live code, refreshing an expired one in place,
// creating a fresh one, or consuming a code exactly once.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
)

// ResolvedCode is the challenge handed back to the caller. JustCreated is
// true only when a brand-new row was inserted; a refreshed-in-place code
// reports false even though its value changed.
type ResolvedCode struct {
	Code        string
	ExpiresAt   time.Time
	JustCreated bool
}

// VerificationService decides, per (user, purpose), whether to reuse,
// refresh, create, or reject a verification code.
type VerificationService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	codeValidity time.Duration
}

// NewVerificationService constructs a VerificationService using repositories
// and server config.
func NewVerificationService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *VerificationService {
	return &VerificationService{
		db:           db,
		repomanager:  m,
		codeValidity: cfg.CodeValidityDuration,
	}
}

// Resolve returns the live code for (userID, purpose), creating or
// refreshing a row as needed. See ResolveTx for the policy.
func (s *VerificationService) Resolve(ctx context.Context, userID int64, purpose models.CodePurpose) (*ResolvedCode, error) {
	return s.ResolveTx(ctx, s.db, userID, purpose)
}

// ResolveTx is Resolve bound to the caller's transaction handle, so code
// creation can be atomic with user creation.
//
// Policy:
//   - no unused row: insert a fresh one, JustCreated=true.
//   - unused row still valid: return it unchanged (idempotent re-request,
//     prevents spamming new codes).
//   - unused row expired: overwrite code and expiry on the same row,
//     JustCreated=false.
func (s *VerificationService) ResolveTx(ctx context.Context, tx dbx.DBTX, userID int64, purpose models.CodePurpose) (*ResolvedCode, error) {
	repo := s.repomanager.VerificationCodes(tx)

	existing, err := repo.GetLatestUnused(ctx, userID, purpose)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("error looking up verification code: %w", err)
		}

		value, err := common.MakeRandDigitCode(common.VerificationCodeLength)
		if err != nil {
			return nil, common.ErrorInternal
		}
		code := &models.VerificationCode{
			UserID:    userID,
			Purpose:   purpose,
			Code:      value,
			ExpiresAt: time.Now().Add(s.codeValidity),
		}
		if _, err := repo.Create(ctx, code); err != nil {
			return nil, fmt.Errorf("error creating verification code: %w", err)
		}
		return &ResolvedCode{Code: code.Code, ExpiresAt: code.ExpiresAt, JustCreated: true}, nil
	}

	if !existing.Expired() {
		return &ResolvedCode{Code: existing.Code, ExpiresAt: existing.ExpiresAt}, nil
	}

	value, err := common.MakeRandDigitCode(common.VerificationCodeLength)
	if err != nil {
		return nil, common.ErrorInternal
	}
	expiresAt := time.Now().Add(s.codeValidity)
	if err := repo.Refresh(ctx, existing.ID, value, expiresAt); err != nil {
		return nil, fmt.Errorf("error refreshing verification code: %w", err)
	}
	return &ResolvedCode{Code: value, ExpiresAt: expiresAt}, nil
}

// Consume marks the code for (userID, purpose) as used if supplied matches.
// It runs on the caller's DBTX so the mutation can be atomic with dependent
// state changes such as flipping the user's verified flag.
//
// The used check deliberately precedes the value comparison: submitting any
// value against a consumed row reports ErrCodeAlreadyUsed, never
// ErrCodeMismatch. Expiry is not re-checked here; codes expire at issuance
// time only.
func (s *VerificationService) Consume(ctx context.Context, tx dbx.DBTX, userID int64, purpose models.CodePurpose, supplied string) error {
	repo := s.repomanager.VerificationCodes(tx)

	code, err := repo.GetLatest(ctx, userID, purpose)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrCodeNotFound
		}
		return fmt.Errorf("error looking up verification code: %w", err)
	}

	if code.Used {
		return common.ErrCodeAlreadyUsed
	}

	if code.Code != supplied {
		return common.ErrCodeMismatch
	}

	if err := repo.MarkUsed(ctx, code.ID); err != nil {
		return fmt.Errorf("error consuming verification code: %w", err)
	}
	return nil
}
