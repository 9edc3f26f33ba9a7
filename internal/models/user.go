package models

import "time"

// User represents a registered account.
type User struct {
	ID                     int       `json:"id"`
	Username               string    `json:"username"`
	PasswordHash           string    `json:"-"` // never exposed in JSON
	PrimaryContactEmail    string    `json:"primary_contact_email,omitempty"`
	SecondaryContactEmails string    `json:"secondary_contact_emails,omitempty"` // comma-separated, ordered
	SecurityQuestion       string    `json:"security_question,omitempty"`
	SecurityAnswer         string    `json:"security_answer,omitempty"`
	ForcePasswordChange    bool      `json:"-"`
	CreatedAt              time.Time `json:"-"`
	UpdatedAt              time.Time `json:"-"`
}

// PrivacySettings controls what other users may do to an account.
// All flags default to true for accounts that never saved settings.
type PrivacySettings struct {
	CanReceiveMessages bool `json:"canReceiveMessages"`
	CanBeSeen          bool `json:"canBeSeen"`
	CanReceiveGifts    bool `json:"canReceiveGifts"`
}

// DefaultPrivacySettings returns the settings applied to accounts with no
// stored row.
func DefaultPrivacySettings() PrivacySettings {
	return PrivacySettings{
		CanReceiveMessages: true,
		CanBeSeen:          true,
		CanReceiveGifts:    true,
	}
}
