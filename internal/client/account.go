package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
)

// LoginResult is the login response.
type LoginResult struct {
	Token       string `json:"token"`
	ForceChange bool   `json:"forceChange"`
}

// AccountDetails mirrors the personal details payload shared by
// registration and /update-emails.
type AccountDetails struct {
	Username               string `json:"username"`
	Password               string `json:"password,omitempty"`
	PrimaryContactEmail    string `json:"primary_contact_email,omitempty"`
	SecondaryContactEmails string `json:"secondary_contact_emails,omitempty"`
	SecurityQuestion       string `json:"security_question,omitempty"`
	SecurityAnswer         string `json:"security_answer,omitempty"`
}

// SecurityInfo is the security-question lookup response.
type SecurityInfo struct {
	Username string `json:"username"`
	Question string `json:"securityQuestion"`
}

// PrivacySettings mirrors the server's privacy flags.
type PrivacySettings struct {
	CanReceiveMessages bool `json:"canReceiveMessages"`
	CanBeSeen          bool `json:"canBeSeen"`
	CanReceiveGifts    bool `json:"canReceiveGifts"`
}

// Login authenticates and returns the session token plus the forced
// password-change flag.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body, err := c.postJSON(ctx, "/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	var result LoginResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateAccount registers a new user and returns the server's
// acknowledgement text.
func (c *Client) CreateAccount(ctx context.Context, details AccountDetails) (string, error) {
	body, err := c.postJSON(ctx, "/create-account", details)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// ResetPassword requests an email-based reset. The returned string is the
// server's status text, shown to the user verbatim.
func (c *Client) ResetPassword(ctx context.Context, email string) (string, error) {
	body, err := c.postJSON(ctx, "/reset-password", map[string]string{"email": email})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// GetSecurityInfo resolves the stored security question and account
// username from an email address.
func (c *Client) GetSecurityInfo(ctx context.Context, email string) (*SecurityInfo, error) {
	body, err := c.postJSON(ctx, "/get-security-info", map[string]string{"email": email})
	if err != nil {
		return nil, err
	}
	var info SecurityInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// VerifySecurityAnswer checks a security answer for the given username.
func (c *Client) VerifySecurityAnswer(ctx context.Context, username, answer string) error {
	_, err := c.postJSON(ctx, "/verify-security-answer", map[string]string{
		"username":       username,
		"securityAnswer": answer,
	})
	return err
}

// ChangePassword sets a new password for the username.
func (c *Client) ChangePassword(ctx context.Context, username, newPassword string) error {
	_, err := c.postJSON(ctx, "/change-password", map[string]string{
		"username":    username,
		"newPassword": newPassword,
	})
	return err
}

// AccountDetails fetches the stored personal details for a username.
func (c *Client) AccountDetails(ctx context.Context, username string) (*AccountDetails, error) {
	body, err := c.get(ctx, "/update-emails?username="+url.QueryEscape(username))
	if err != nil {
		return nil, err
	}
	var details AccountDetails
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// UpdateAccountDetails writes personal details back.
func (c *Client) UpdateAccountDetails(ctx context.Context, details AccountDetails) error {
	_, err := c.postJSON(ctx, "/update-emails", details)
	return err
}

// Privacy fetches the privacy flags for a username.
func (c *Client) Privacy(ctx context.Context, username string) (*PrivacySettings, error) {
	body, err := c.get(ctx, "/get-privacy?username="+url.QueryEscape(username))
	if err != nil {
		return nil, err
	}
	var settings PrivacySettings
	if err := json.Unmarshal(body, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdatePrivacy writes privacy flags for a username.
func (c *Client) UpdatePrivacy(ctx context.Context, username string, settings PrivacySettings) error {
	_, err := c.postJSON(ctx, "/update-privacy", struct {
		Username string `json:"username"`
		PrivacySettings
	}{Username: username, PrivacySettings: settings})
	return err
}
