package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/parting-gifts/internal/models"
)

// GiftRepository handles gift persistence
type GiftRepository struct {
	db *PostgresDB
}

// NewGiftRepository creates a new gift repository
func NewGiftRepository(db *PostgresDB) *GiftRepository {
	return &GiftRepository{db: db}
}

// Create inserts a new gift and fills in the generated ID.
func (r *GiftRepository) Create(ctx context.Context, gift *models.Gift) error {
	query := `
		INSERT INTO gifts (user_id, file_name, file_data, custom_message, pending, receivers)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, upload_time
	`
	err := r.db.Pool().QueryRow(ctx, query,
		gift.UserID,
		gift.FileName,
		gift.FileData,
		gift.CustomMessage,
		gift.Pending,
		gift.Receivers,
	).Scan(&gift.ID, &gift.UploadTime)
	if err != nil {
		return fmt.Errorf("failed to create gift: %w", err)
	}
	return nil
}

// ListByUser returns a user's gifts without file contents, newest first.
func (r *GiftRepository) ListByUser(ctx context.Context, userID int) ([]*models.Gift, error) {
	query := `
		SELECT id, user_id, file_name, custom_message, pending, receivers, upload_time, scheduled_release
		FROM gifts
		WHERE user_id = $1
		ORDER BY upload_time DESC
	`
	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list gifts: %w", err)
	}
	defer rows.Close()

	return scanGifts(rows)
}

func scanGifts(rows pgx.Rows) ([]*models.Gift, error) {
	var gifts []*models.Gift
	for rows.Next() {
		var g models.Gift
		err := rows.Scan(
			&g.ID,
			&g.UserID,
			&g.FileName,
			&g.CustomMessage,
			&g.Pending,
			&g.Receivers,
			&g.UploadTime,
			&g.ScheduledRelease,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gift: %w", err)
		}
		gifts = append(gifts, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating gifts: %w", err)
	}
	return gifts, nil
}

// CountByUser returns the total number of gifts a user has uploaded.
func (r *GiftRepository) CountByUser(ctx context.Context, userID int) (int, error) {
	var count int
	err := r.db.Pool().QueryRow(ctx,
		`SELECT COUNT(*) FROM gifts WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count gifts: %w", err)
	}
	return count, nil
}

// CountPendingByUser returns the number of gifts still waiting for release.
func (r *GiftRepository) CountPendingByUser(ctx context.Context, userID int) (int, error) {
	var count int
	err := r.db.Pool().QueryRow(ctx,
		`SELECT COUNT(*) FROM gifts WHERE user_id = $1 AND pending = TRUE`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending gifts: %w", err)
	}
	return count, nil
}

// Get retrieves a single gift including its file contents.
func (r *GiftRepository) Get(ctx context.Context, id int) (*models.Gift, error) {
	query := `
		SELECT id, user_id, file_name, file_data, custom_message, pending, receivers, upload_time, scheduled_release
		FROM gifts
		WHERE id = $1
	`
	var g models.Gift
	err := r.db.Pool().QueryRow(ctx, query, id).Scan(
		&g.ID,
		&g.UserID,
		&g.FileName,
		&g.FileData,
		&g.CustomMessage,
		&g.Pending,
		&g.Receivers,
		&g.UploadTime,
		&g.ScheduledRelease,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get gift: %w", err)
	}
	return &g, nil
}

// Delete removes a gift.
func (r *GiftRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Pool().Exec(ctx,
		`DELETE FROM gifts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete gift: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetReceivers records the recipient list and the release time for a gift.
func (r *GiftRepository) SetReceivers(ctx context.Context, id int, receivers string, releaseAt time.Time) error {
	query := `
		UPDATE gifts
		SET receivers = $1, scheduled_release = $2
		WHERE id = $3
	`
	tag, err := r.db.Pool().Exec(ctx, query, receivers, releaseAt, id)
	if err != nil {
		return fmt.Errorf("failed to set receivers: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReceiversByUser returns the distinct recipient addresses across all of a
// user's gifts. Addresses are stored comma separated per gift.
func (r *GiftRepository) ReceiversByUser(ctx context.Context, userID int) ([]string, error) {
	query := `
		SELECT DISTINCT TRIM(addr)
		FROM gifts, UNNEST(STRING_TO_ARRAY(receivers, ',')) AS addr
		WHERE user_id = $1 AND receivers <> ''
		ORDER BY 1
	`
	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list receivers: %w", err)
	}
	defer rows.Close()

	var receivers []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("failed to scan receiver: %w", err)
		}
		if addr != "" {
			receivers = append(receivers, addr)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating receivers: %w", err)
	}
	return receivers, nil
}

// DueForRelease returns pending gifts whose scheduled release time has
// passed and that have at least one recipient.
func (r *GiftRepository) DueForRelease(ctx context.Context, now time.Time) ([]*models.Gift, error) {
	query := `
		SELECT id, user_id, file_name, file_data, custom_message, pending, receivers, upload_time, scheduled_release
		FROM gifts
		WHERE pending = TRUE
		  AND receivers <> ''
		  AND scheduled_release IS NOT NULL
		  AND scheduled_release <= $1
		ORDER BY scheduled_release
	`
	rows, err := r.db.Pool().Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due gifts: %w", err)
	}
	defer rows.Close()

	var gifts []*models.Gift
	for rows.Next() {
		var g models.Gift
		err := rows.Scan(
			&g.ID,
			&g.UserID,
			&g.FileName,
			&g.FileData,
			&g.CustomMessage,
			&g.Pending,
			&g.Receivers,
			&g.UploadTime,
			&g.ScheduledRelease,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gift: %w", err)
		}
		gifts = append(gifts, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due gifts: %w", err)
	}
	return gifts, nil
}

// PendingByUser returns a user's pending gifts including file contents.
func (r *GiftRepository) PendingByUser(ctx context.Context, userID int) ([]*models.Gift, error) {
	query := `
		SELECT id, user_id, file_name, file_data, custom_message, pending, receivers, upload_time, scheduled_release
		FROM gifts
		WHERE user_id = $1 AND pending = TRUE
	`
	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending gifts: %w", err)
	}
	defer rows.Close()

	var gifts []*models.Gift
	for rows.Next() {
		var g models.Gift
		err := rows.Scan(
			&g.ID,
			&g.UserID,
			&g.FileName,
			&g.FileData,
			&g.CustomMessage,
			&g.Pending,
			&g.Receivers,
			&g.UploadTime,
			&g.ScheduledRelease,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gift: %w", err)
		}
		gifts = append(gifts, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending gifts: %w", err)
	}
	return gifts, nil
}

// MarkReleased flips a gift out of the pending state.
func (r *GiftRepository) MarkReleased(ctx context.Context, id int) error {
	tag, err := r.db.Pool().Exec(ctx,
		`UPDATE gifts SET pending = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark gift released: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
