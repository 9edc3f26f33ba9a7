// Package auth provides password hashing, password policy checks and session
// token issuance.
package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{4,20}$`)

// PasswordCheck reports which password requirements a candidate satisfies.
// It backs the live checklist on the change-password page.
type PasswordCheck struct {
	Length  bool `json:"length"`  // at least 8 characters
	Letter  bool `json:"letter"`  // at least one letter
	Number  bool `json:"number"`  // at least one digit
	Special bool `json:"special"` // at least one non-alphanumeric character
}

// OK reports whether every requirement is met.
func (c PasswordCheck) OK() bool {
	return c.Length && c.Letter && c.Number && c.Special
}

// CheckPassword evaluates the password policy requirement by requirement.
func CheckPassword(password string) PasswordCheck {
	check := PasswordCheck{Length: len(password) >= 8}
	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			check.Letter = true
		case unicode.IsNumber(char):
			check.Number = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			check.Special = true
		}
	}
	return check
}

// ValidPassword reports whether the password meets the full policy.
func ValidPassword(password string) bool {
	return CheckPassword(password).OK()
}

// ValidUsername reports whether a username is well-formed: 4-20 characters,
// letters, digits and underscores only.
func ValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// HashPassword hashes a password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// ComparePassword checks a password against a bcrypt hash, returning an
// error on mismatch.
func ComparePassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

const passwordCharset = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*()_+"

// GenerateRandomPassword returns a random password of the given length drawn
// from letters, digits and specials. Used by the email reset flow.
func GenerateRandomPassword(length int) (string, error) {
	password := make([]byte, length)
	for i := range password {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(passwordCharset))))
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		password[i] = passwordCharset[num.Int64()]
	}
	return string(password), nil
}
