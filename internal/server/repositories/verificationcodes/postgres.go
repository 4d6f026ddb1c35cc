// Package verificationcodes provides a PostgreSQL-backed repository for
// one-time verification codes.
package verificationcodes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const codeColumns = `id, user_id, purpose, code, expires_at, used, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, code *models.VerificationCode) (*models.VerificationCode, error) {

	query :=
		`INSERT INTO verification_codes (user_id, purpose, code, expires_at)
         VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		code.UserID, code.Purpose, code.Code, code.ExpiresAt).
		Scan(&code.ID, &code.CreatedAt, &code.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return code, nil
}

func (r *PostgresRepository) getLatest(ctx context.Context, query string, userID int64, purpose models.CodePurpose) (*models.VerificationCode, error) {
	code := &models.VerificationCode{}
	err := r.db.QueryRowContext(ctx, query, userID, purpose).Scan(
		&code.ID, &code.UserID, &code.Purpose, &code.Code,
		&code.ExpiresAt, &code.Used, &code.CreatedAt, &code.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return code, nil
}

func (r *PostgresRepository) GetLatest(ctx context.Context, userID int64, purpose models.CodePurpose) (*models.VerificationCode, error) {
	query := `SELECT ` + codeColumns + `
		 FROM verification_codes
		 WHERE user_id = $1 AND purpose = $2
		 ORDER BY created_at DESC
		 LIMIT 1`
	return r.getLatest(ctx, query, userID, purpose)
}

func (r *PostgresRepository) GetLatestUnused(ctx context.Context, userID int64, purpose models.CodePurpose) (*models.VerificationCode, error) {
	query := `SELECT ` + codeColumns + `
		 FROM verification_codes
		 WHERE user_id = $1 AND purpose = $2 AND used = FALSE
		 ORDER BY created_at DESC
		 LIMIT 1`
	return r.getLatest(ctx, query, userID, purpose)
}

func (r *PostgresRepository) Refresh(ctx context.Context, id int64, code string, expiresAt time.Time) error {
	query :=
		`UPDATE verification_codes
		 SET code = $2, expires_at = $3, updated_at = now()
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, code, expiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// MarkUsed sets used = TRUE. The used flag is monotonic: no code path ever
// resets it to FALSE.
func (r *PostgresRepository) MarkUsed(ctx context.Context, id int64) error {
	query :=
		`UPDATE verification_codes
		 SET used = TRUE, updated_at = now()
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
