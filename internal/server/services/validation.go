package services

import (
	"fmt"
	"regexp"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

const (
	minUsernameLength = 4
	minPasswordLength = 4
)

var validEmail = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` +
	"`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?" +
	"(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")

func validateUsername(username string) error {
	if len(username) < minUsernameLength {
		return fmt.Errorf("%w: username must be at least %d characters", common.ErrorValidation, minUsernameLength)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrorValidation, minPasswordLength)
	}
	return nil
}

func validateEmail(email string) error {
	if !validEmail.MatchString(email) {
		return fmt.Errorf("%w: malformed email", common.ErrorValidation)
	}
	return nil
}
