// Package service implements the application logic between the HTTP
// handlers and the repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/parting-gifts/internal/auth"
	"github.com/parting-gifts/internal/logging"
	"github.com/parting-gifts/internal/mail"
	"github.com/parting-gifts/internal/models"
	"github.com/parting-gifts/internal/storage"
)

// Sentinel errors the API layer maps onto status codes.
var (
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrUsernameTaken       = errors.New("username is taken")
	ErrInvalidUsername     = errors.New("invalid username")
	ErrWeakPassword        = errors.New("password does not meet requirements")
	ErrUserNotFound        = errors.New("user not found")
	ErrSecurityNotSetup    = errors.New("security question not set up")
	ErrWrongSecurityAnswer = errors.New("incorrect security answer")
)

// UserStore is the persistence surface AccountService needs.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	IDByUsername(ctx context.Context, username string) (int, error)
	UpdatePassword(ctx context.Context, username, passwordHash string, forceChange bool) error
	UpdateDetails(ctx context.Context, username, primary, secondary, question, answer string) error
	SetForceChange(ctx context.Context, username string, force bool) error
	GetPrivacy(ctx context.Context, userID int) (models.PrivacySettings, error)
	UpsertPrivacy(ctx context.Context, userID int, settings models.PrivacySettings) error
}

// AccountService handles registration, login and account recovery
type AccountService struct {
	users  UserStore
	mailer mail.Sender
	tokens *auth.TokenIssuer
	logger *logging.Logger
}

// NewAccountService creates a new account service
func NewAccountService(users UserStore, mailer mail.Sender, tokens *auth.TokenIssuer) *AccountService {
	return &AccountService{
		users:  users,
		mailer: mailer,
		tokens: tokens,
		logger: logging.GetGlobalLogger().WithField("service", "account"),
	}
}

// RegisterRequest carries everything needed to create an account.
type RegisterRequest struct {
	Username               string
	Password               string
	PrimaryContactEmail    string
	SecondaryContactEmails string
	SecurityQuestion       string
	SecurityAnswer         string
}

// Register creates a new account with default privacy settings.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) error {
	if !auth.ValidUsername(req.Username) {
		return ErrInvalidUsername
	}
	if !auth.ValidPassword(req.Password) {
		return ErrWeakPassword
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:               req.Username,
		PasswordHash:           hash,
		PrimaryContactEmail:    req.PrimaryContactEmail,
		SecondaryContactEmails: req.SecondaryContactEmails,
		SecurityQuestion:       req.SecurityQuestion,
		SecurityAnswer:         req.SecurityAnswer,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUsernameTaken) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.users.UpsertPrivacy(ctx, user.ID, models.DefaultPrivacySettings()); err != nil {
		s.logger.WithError(err).WithField("username", user.Username).Warn("failed to seed privacy settings")
	}

	s.logger.WithField("username", user.Username).Info("account created")
	return nil
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Token       string
	ForceChange bool
}

// Login verifies credentials and issues a session token.
func (s *AccountService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &LoginResult{Token: token, ForceChange: user.ForcePasswordChange}, nil
}

// ResetPassword generates a temporary password, stores it with the
// force-change flag set, and mails it to the account's primary address.
func (s *AccountService) ResetPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to look up email: %w", err)
	}

	tempPassword, err := auth.GenerateRandomPassword(12)
	if err != nil {
		return fmt.Errorf("failed to generate password: %w", err)
	}
	hash, err := auth.HashPassword(tempPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.Username, hash, true); err != nil {
		return fmt.Errorf("failed to store temporary password: %w", err)
	}

	body := fmt.Sprintf(
		"Hello,\n\nYour new password is: %s\n\nYou will be required to change your password on next login.",
		tempPassword,
	)
	// A mail failure is not surfaced to the caller; the temporary password
	// is already stored and the address may simply be unreachable.
	if err := s.mailer.SendPlain(email, "Your New Password", body); err != nil {
		s.logger.WithError(err).WithField("username", user.Username).Error("failed to send reset email")
	} else {
		s.logger.WithField("username", user.Username).Info("password reset email sent")
	}
	return nil
}

// SecurityInfo returns the username and security question for an email.
func (s *AccountService) SecurityInfo(ctx context.Context, email string) (username, question string, err error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", "", ErrUserNotFound
		}
		return "", "", fmt.Errorf("failed to look up email: %w", err)
	}
	return user.Username, user.SecurityQuestion, nil
}

// VerifySecurityAnswer checks a recovery answer. Comparison ignores case
// and surrounding whitespace. On success the account is flagged for a
// forced password change.
func (s *AccountService) VerifySecurityAnswer(ctx context.Context, username, answer string) error {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	if user.SecurityQuestion == "" || user.SecurityAnswer == "" {
		return ErrSecurityNotSetup
	}

	given := strings.ToLower(strings.TrimSpace(answer))
	stored := strings.ToLower(strings.TrimSpace(user.SecurityAnswer))
	if given != stored {
		return ErrWrongSecurityAnswer
	}

	// Recovering through the security answer forces a password change on
	// the next login.
	if err := s.users.SetForceChange(ctx, user.Username, true); err != nil {
		s.logger.WithError(err).WithField("username", user.Username).Warn("failed to flag password change")
	}
	return nil
}

// ChangePassword replaces a user's password and clears the force-change flag.
func (s *AccountService) ChangePassword(ctx context.Context, username, newPassword string) error {
	if !auth.ValidPassword(newPassword) {
		return ErrWeakPassword
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, username, hash, false); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update password: %w", err)
	}
	s.logger.WithField("username", username).Info("password changed")
	return nil
}

// Details returns a user's contact addresses and security question setup.
func (s *AccountService) Details(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// UpdateDetails replaces a user's contact addresses and security question.
func (s *AccountService) UpdateDetails(ctx context.Context, username, primary, secondary, question, answer string) error {
	if err := s.users.UpdateDetails(ctx, username, primary, secondary, question, answer); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update details: %w", err)
	}
	return nil
}

// Privacy returns a user's privacy settings.
func (s *AccountService) Privacy(ctx context.Context, username string) (models.PrivacySettings, error) {
	userID, err := s.users.IDByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.PrivacySettings{}, ErrUserNotFound
		}
		return models.PrivacySettings{}, fmt.Errorf("failed to resolve user: %w", err)
	}
	return s.users.GetPrivacy(ctx, userID)
}

// UpdatePrivacy replaces a user's privacy settings.
func (s *AccountService) UpdatePrivacy(ctx context.Context, username string, settings models.PrivacySettings) error {
	userID, err := s.users.IDByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to resolve user: %w", err)
	}
	return s.users.UpsertPrivacy(ctx, userID, settings)
}
