package models

import "time"

// CodePurpose is the reason a verification code was issued.
type CodePurpose string

const (
	PurposeRegister       CodePurpose = "register"
	PurposePasswordChange CodePurpose = "password_change"
	PurposePasswordReset  CodePurpose = "password_reset"
)

// VerificationCode is a one-time code tied to a user and a purpose. A row is
// refreshed in place when it expires while still needed; Used is monotonic
// and never resets to false. Expiry is checked lazily against the clock,
// there is no background sweeper.
type VerificationCode struct {
	ID        int64
	UserID    int64
	Purpose   CodePurpose
	Code      string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the code's validity window has passed.
func (c *VerificationCode) Expired() bool {
	return !time.Now().Before(c.ExpiresAt)
}
