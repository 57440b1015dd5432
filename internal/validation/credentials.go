// Package validation holds the credential rules applied before any account
// mutation touches the database.
package validation

import (
	"errors"
	"regexp"
)

var validCharsHandle = regexp.MustCompile(`^[A-Za-z\d_.-]+$`)

// CheckRegistration validates the profile fields of an invite redemption.
// Invite validity itself is checked transactionally by the auth service.
func CheckRegistration(handle, displayName, password string) error {
	if err := ValidateHandle(handle); err != nil {
		return err
	}
	if len(displayName) > 48 {
		return errors.New("display name too long. Must be 48 characters or less")
	}
	return ValidatePassword(password)
}

// ValidateHandle returns user-friendly errors.
func ValidateHandle(handle string) error {
	if len(handle) == 0 {
		return errors.New("empty handle")
	}
	if len(handle) > 24 {
		return errors.New("handle too long. Must be 24 characters or less")
	}
	if valid := validCharsHandle.MatchString(handle); !valid {
		return errors.New("invalid character(s) detected. only letters, numbers, '_', '.' and '-' allowed")
	}
	return nil
}

// ValidatePassword returns user-friendly errors.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password too short. Must be at least 8 characters")
	}
	if len(password) > 72 {
		// bcrypt truncates past 72 bytes
		return errors.New("password too long. Must be 72 characters or less")
	}
	return nil
}
