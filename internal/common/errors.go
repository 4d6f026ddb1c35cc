// Package common defines shared constants and sentinel errors used across
// authkeeper components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrorAlreadyExists = errors.New("already exists")

	// Input validation errors. Missing fields are reported separately from
	// malformed values because the HTTP layer maps them to different codes.
	ErrorValidation   = errors.New("validation error")
	ErrorMissingField = errors.New("missing field")

	// Verification-code lifecycle errors.
	ErrCodeNotFound    = errors.New("verification code not found")
	ErrCodeAlreadyUsed = errors.New("verification code already used")
	ErrCodeMismatch    = errors.New("verification code mismatch")

	// Account state errors.
	ErrAlreadyVerified = errors.New("user already verified")

	// Token lifecycle errors.
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenMalformed   = errors.New("token malformed")
	ErrSignatureInvalid = errors.New("token signature invalid")
)
