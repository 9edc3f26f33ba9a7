package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/parting-gifts/internal/models"
)

// InactivityRepository tracks scheduled inactivity checks. Each user has at
// most one active check; scheduling again replaces the previous one.
type InactivityRepository struct {
	db *PostgresDB
}

// NewInactivityRepository creates a new inactivity repository
func NewInactivityRepository(db *PostgresDB) *InactivityRepository {
	return &InactivityRepository{db: db}
}

// Schedule records an inactivity check for a user. The user is warned at
// notifyAt and their pending gifts are released at releaseAt.
func (r *InactivityRepository) Schedule(ctx context.Context, userID int, notifyAt, releaseAt time.Time) error {
	query := `
		INSERT INTO inactivity_checks (user_id, notify_at, release_at, notified)
		VALUES ($1, $2, $3, FALSE)
		ON CONFLICT (user_id) DO UPDATE SET
			notify_at = EXCLUDED.notify_at,
			release_at = EXCLUDED.release_at,
			notified = FALSE,
			created_at = NOW()
	`
	_, err := r.db.Pool().Exec(ctx, query, userID, notifyAt, releaseAt)
	if err != nil {
		return fmt.Errorf("failed to schedule inactivity check: %w", err)
	}
	return nil
}

// Cancel removes any pending inactivity check for a user.
func (r *InactivityRepository) Cancel(ctx context.Context, userID int) error {
	_, err := r.db.Pool().Exec(ctx,
		`DELETE FROM inactivity_checks WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to cancel inactivity check: %w", err)
	}
	return nil
}

// DueForNotify returns checks whose warning time has passed and that have
// not been warned yet.
func (r *InactivityRepository) DueForNotify(ctx context.Context, now time.Time) ([]*models.InactivityCheck, error) {
	query := `
		SELECT user_id, notify_at, release_at, notified
		FROM inactivity_checks
		WHERE notified = FALSE AND notify_at <= $1
	`
	return r.queryChecks(ctx, query, now)
}

// DueForRelease returns checks whose release time has passed.
func (r *InactivityRepository) DueForRelease(ctx context.Context, now time.Time) ([]*models.InactivityCheck, error) {
	query := `
		SELECT user_id, notify_at, release_at, notified
		FROM inactivity_checks
		WHERE release_at <= $1
	`
	return r.queryChecks(ctx, query, now)
}

// MarkNotified records that the warning email for a check has been sent.
func (r *InactivityRepository) MarkNotified(ctx context.Context, userID int) error {
	_, err := r.db.Pool().Exec(ctx,
		`UPDATE inactivity_checks SET notified = TRUE WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to mark check notified: %w", err)
	}
	return nil
}

func (r *InactivityRepository) queryChecks(ctx context.Context, query string, now time.Time) ([]*models.InactivityCheck, error) {
	rows, err := r.db.Pool().Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list inactivity checks: %w", err)
	}
	defer rows.Close()

	var checks []*models.InactivityCheck
	for rows.Next() {
		var c models.InactivityCheck
		if err := rows.Scan(&c.UserID, &c.NotifyAt, &c.ReleaseAt, &c.Notified); err != nil {
			return nil, fmt.Errorf("failed to scan inactivity check: %w", err)
		}
		checks = append(checks, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inactivity checks: %w", err)
	}
	return checks, nil
}
