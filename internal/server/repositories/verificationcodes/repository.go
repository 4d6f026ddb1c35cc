package verificationcodes

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, code *models.VerificationCode) (*models.VerificationCode, error)

	// GetLatest returns the most recent row for (userID, purpose) regardless
	// of its used state. Consumption needs it to tell "already used" apart
	// from "never issued".
	GetLatest(ctx context.Context, userID int64, purpose models.CodePurpose) (*models.VerificationCode, error)

	// GetLatestUnused returns the most recent unused row for (userID,
	// purpose) — the candidate for reuse or refresh-in-place.
	GetLatestUnused(ctx context.Context, userID int64, purpose models.CodePurpose) (*models.VerificationCode, error)

	// Refresh overwrites the code value and expiry of an existing row,
	// keeping its ID and leaving used untouched.
	Refresh(ctx context.Context, id int64, code string, expiresAt time.Time) error

	// MarkUsed permanently consumes a code row.
	MarkUsed(ctx context.Context, id int64) error
}
