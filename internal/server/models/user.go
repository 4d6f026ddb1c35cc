package models

import "time"

// User is a registered account. Password always holds the bcrypt hash, never
// the plaintext. Verified starts false and flips to true exactly once, when
// the registration code is consumed.
type User struct {
	ID           int64
	Username     string
	Email        string
	Password     string
	Verified     bool
	EULAAccepted bool
	DateJoined   time.Time
}
