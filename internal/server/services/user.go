// This file implements UserService: registration (with resume for unverified
// accounts), registration verification, login, password change/reset, and
// current-user lookup. Multi-step mutations (create user + create code,
// consume code + dependent write) run inside a single DB transaction.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// AuthResult bundles a user with a freshly issued bearer token.
type AuthResult struct {
	User        *models.User
	AccessToken string
}

// RegistrationResult is the outcome of a registration request. Resumed is
// true when the email already belonged to an unverified account and the
// existing registration was picked up instead of creating a new user.
type RegistrationResult struct {
	User    *models.User
	Code    *ResolvedCode
	Resumed bool
}

// UserService provides the account state machine and the authentication
// flows composed on top of VerificationService.
type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	verification                *VerificationService
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, v *VerificationService, cfg *config.Config) *UserService {
	return &UserService{
		db:                          db,
		repomanager:                 m,
		verification:                v,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// Register validates the input and either creates a new unverified user with
// a fresh registration code, or resumes an unfinished registration by
// resolving the existing user's code. An email or username held by a
// verified account is a conflict.
func (s *UserService) Register(ctx context.Context, username, password, email string) (*RegistrationResult, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	existing, err := repo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorInternal
	}
	if existing != nil {
		if existing.Verified {
			return nil, common.ErrorAlreadyExists
		}
		// Resume registration: hand back the live or refreshed code instead
		// of raising a duplicate-user error.
		code, err := s.verification.Resolve(ctx, existing.ID, models.PurposeRegister)
		if err != nil {
			return nil, err
		}
		return &RegistrationResult{User: existing, Code: code, Resumed: true}, nil
	}

	// The email is free; a username collision at this point is a conflict
	// regardless of the holder's verified state, since usernames are unique.
	if _, err := repo.GetByUsername(ctx, username); err == nil {
		return nil, common.ErrorAlreadyExists
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorInternal
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	var result *RegistrationResult
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.repomanager.Users(tx).Create(ctx, &models.User{
			Username: username,
			Email:    email,
			Password: hash,
		})
		if err != nil {
			return fmt.Errorf("error creating user: %w", err)
		}
		code, err := s.verification.ResolveTx(ctx, tx, user.ID, models.PurposeRegister)
		if err != nil {
			return err
		}
		result = &RegistrationResult{User: user, Code: code}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// VerifyRegistration consumes the registration code and flips the user's
// verified flag in one transaction, then issues a bearer token.
// An already-verified user fails with common.ErrAlreadyVerified.
func (s *UserService) VerifyRegistration(ctx context.Context, email, code string) (*AuthResult, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	if user.Verified {
		return nil, common.ErrAlreadyVerified
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.verification.Consume(ctx, tx, user.ID, models.PurposeRegister, code); err != nil {
			return err
		}
		return s.repomanager.Users(tx).SetVerified(ctx, user.ID)
	})
	if err != nil {
		return nil, err
	}
	user.Verified = true

	token, err := s.generateAccessToken(user)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return &AuthResult{User: user, AccessToken: token}, nil
}

// Login verifies the password against the stored hash and issues a token.
// Unknown emails report ErrorNotFound; a wrong password reports
// ErrorUnauthorized. Nothing beyond that split is revealed.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	if !s.checkPassword(user.Password, password) {
		return nil, common.ErrorUnauthorized
	}

	token, err := s.generateAccessToken(user)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return &AuthResult{User: user, AccessToken: token}, nil
}

// ChangePassword checks the caller's current password and hands back a
// password-change code challenge. The actual overwrite happens in
// ConfirmPasswordChange once the code is presented back.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword, confirmPassword string) (*ResolvedCode, error) {
	if currentPassword == "" || newPassword == "" || confirmPassword == "" {
		return nil, fmt.Errorf("%w: current, new and confirm passwords are required", common.ErrorMissingField)
	}
	if newPassword != confirmPassword {
		return nil, fmt.Errorf("%w: new and confirm passwords do not match", common.ErrorValidation)
	}
	if newPassword == currentPassword {
		return nil, fmt.Errorf("%w: new password must differ from the current one", common.ErrorValidation)
	}
	if err := validatePassword(newPassword); err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	if !s.checkPassword(user.Password, currentPassword) {
		return nil, common.ErrorUnauthorized
	}

	return s.verification.Resolve(ctx, user.ID, models.PurposePasswordChange)
}

// ConfirmPasswordChange consumes the password-change code and overwrites the
// stored hash in one transaction.
func (s *UserService) ConfirmPasswordChange(ctx context.Context, userID int64, code, newPassword string) error {
	if code == "" || newPassword == "" {
		return fmt.Errorf("%w: code and new password are required", common.ErrorMissingField)
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return common.ErrorInternal
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.verification.Consume(ctx, tx, userID, models.PurposePasswordChange, code); err != nil {
			return err
		}
		return s.repomanager.Users(tx).UpdatePassword(ctx, userID, hash)
	})
}

// RequestPasswordReset resolves a reset code for the account with the given
// email. Unlike ChangePassword it needs no bearer token, only the email.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) (*ResolvedCode, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return s.verification.Resolve(ctx, user.ID, models.PurposePasswordReset)
}

// ResetPassword consumes the reset code and overwrites the stored hash in
// one transaction.
func (s *UserService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if code == "" || newPassword == "" {
		return fmt.Errorf("%w: code and new password are required", common.ErrorMissingField)
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return common.ErrorInternal
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.verification.Consume(ctx, tx, user.ID, models.PurposePasswordReset, code); err != nil {
			return err
		}
		return s.repomanager.Users(tx).UpdatePassword(ctx, user.ID, hash)
	})
}

// CurrentUser returns the account matching the email claim embedded in a
// validated bearer token.
func (s *UserService) CurrentUser(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return user, nil
}

// --- helpers below ---

func (s *UserService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *UserService) checkPassword(hash, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}

func (s *UserService) generateAccessToken(user *models.User) (string, error) {
	return auth.GenerateToken(user.ID, user.Email, s.jwtSecret, s.accessTokenValidityDuration)
}
