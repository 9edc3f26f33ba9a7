package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/parting-gifts/internal/models"
)

// UserRepository handles user persistence
type UserRepository struct {
	db *PostgresDB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *PostgresDB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and fills in the generated ID.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, password_hash, primary_contact_email,
			secondary_contact_emails, security_question, security_answer,
			force_password_change)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool().QueryRow(ctx, query,
		user.Username,
		user.PasswordHash,
		user.PrimaryContactEmail,
		user.SecondaryContactEmails,
		user.SecurityQuestion,
		user.SecurityAnswer,
		user.ForcePasswordChange,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

const userColumns = `id, username, password_hash, primary_contact_email,
	secondary_contact_emails, security_question, security_answer,
	force_password_change, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.PrimaryContactEmail,
		&user.SecondaryContactEmails,
		&user.SecurityQuestion,
		&user.SecurityAnswer,
		&user.ForcePasswordChange,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.Pool().QueryRow(ctx, query, username))
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.Pool().QueryRow(ctx, query, id))
}

// GetByEmail retrieves a user whose primary or secondary contact emails
// contain the given address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE primary_contact_email = $1
		   OR secondary_contact_emails LIKE '%' || $1 || '%'
		LIMIT 1
	`
	return scanUser(r.db.Pool().QueryRow(ctx, query, email))
}

// IDByUsername resolves a username to its user ID.
func (r *UserRepository) IDByUsername(ctx context.Context, username string) (int, error) {
	var id int
	err := r.db.Pool().QueryRow(ctx, `SELECT id FROM users WHERE username = $1`, username).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to resolve username: %w", err)
	}
	return id, nil
}

// UpdatePassword replaces a user's password hash and sets the force-change flag.
func (r *UserRepository) UpdatePassword(ctx context.Context, username, passwordHash string, forceChange bool) error {
	query := `
		UPDATE users
		SET password_hash = $1, force_password_change = $2, updated_at = NOW()
		WHERE username = $3
	`
	tag, err := r.db.Pool().Exec(ctx, query, passwordHash, forceChange, username)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateDetails replaces a user's contact email addresses and security
// question setup.
func (r *UserRepository) UpdateDetails(ctx context.Context, username, primary, secondary, question, answer string) error {
	query := `
		UPDATE users
		SET primary_contact_email = $1,
			secondary_contact_emails = $2,
			security_question = $3,
			security_answer = $4,
			updated_at = NOW()
		WHERE username = $5
	`
	tag, err := r.db.Pool().Exec(ctx, query, primary, secondary, question, answer, username)
	if err != nil {
		return fmt.Errorf("failed to update details: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetForceChange sets or clears the force-password-change flag.
func (r *UserRepository) SetForceChange(ctx context.Context, username string, force bool) error {
	query := `UPDATE users SET force_password_change = $1, updated_at = NOW() WHERE username = $2`
	tag, err := r.db.Pool().Exec(ctx, query, force, username)
	if err != nil {
		return fmt.Errorf("failed to set force change flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetPrivacy returns a user's privacy settings, falling back to the
// defaults when no row exists yet.
func (r *UserRepository) GetPrivacy(ctx context.Context, userID int) (models.PrivacySettings, error) {
	var settings models.PrivacySettings
	query := `
		SELECT can_receive_messages, can_be_seen, can_receive_gifts
		FROM privacy_settings
		WHERE user_id = $1
	`
	err := r.db.Pool().QueryRow(ctx, query, userID).Scan(
		&settings.CanReceiveMessages,
		&settings.CanBeSeen,
		&settings.CanReceiveGifts,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.DefaultPrivacySettings(), nil
		}
		return settings, fmt.Errorf("failed to get privacy settings: %w", err)
	}
	return settings, nil
}

// UpsertPrivacy creates or replaces a user's privacy settings.
func (r *UserRepository) UpsertPrivacy(ctx context.Context, userID int, settings models.PrivacySettings) error {
	query := `
		INSERT INTO privacy_settings (user_id, can_receive_messages, can_be_seen, can_receive_gifts)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			can_receive_messages = EXCLUDED.can_receive_messages,
			can_be_seen = EXCLUDED.can_be_seen,
			can_receive_gifts = EXCLUDED.can_receive_gifts
	`
	_, err := r.db.Pool().Exec(ctx, query, userID,
		settings.CanReceiveMessages,
		settings.CanBeSeen,
		settings.CanReceiveGifts,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert privacy settings: %w", err)
	}
	return nil
}
