package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// FollowRepository handles the social graph
type FollowRepository struct {
	db *PostgresDB
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *PostgresDB) *FollowRepository {
	return &FollowRepository{db: db}
}

// Follow records that follower follows followee. Following an already
// followed user is a no-op.
func (r *FollowRepository) Follow(ctx context.Context, followerID, followeeID int) error {
	query := `
		INSERT INTO follows (follower_id, followee_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, followee_id) DO NOTHING
	`
	_, err := r.db.Pool().Exec(ctx, query, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("failed to follow: %w", err)
	}
	return nil
}

// Unfollow removes a follow edge. Removing an absent edge is a no-op.
func (r *FollowRepository) Unfollow(ctx context.Context, followerID, followeeID int) error {
	_, err := r.db.Pool().Exec(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`,
		followerID, followeeID)
	if err != nil {
		return fmt.Errorf("failed to unfollow: %w", err)
	}
	return nil
}

// Following returns the usernames the given user follows.
func (r *FollowRepository) Following(ctx context.Context, userID int) ([]string, error) {
	query := `
		SELECT u.username
		FROM follows f
		JOIN users u ON u.id = f.followee_id
		WHERE f.follower_id = $1
		ORDER BY u.username
	`
	return r.queryUsernames(ctx, query, userID)
}

// Followers returns the usernames that follow the given user.
func (r *FollowRepository) Followers(ctx context.Context, userID int) ([]string, error) {
	query := `
		SELECT u.username
		FROM follows f
		JOIN users u ON u.id = f.follower_id
		WHERE f.followee_id = $1
		ORDER BY u.username
	`
	return r.queryUsernames(ctx, query, userID)
}

// Mutuals returns the usernames with a follow edge in both directions.
func (r *FollowRepository) Mutuals(ctx context.Context, userID int) ([]string, error) {
	query := `
		SELECT u.username
		FROM follows f
		JOIN follows back ON back.follower_id = f.followee_id AND back.followee_id = f.follower_id
		JOIN users u ON u.id = f.followee_id
		WHERE f.follower_id = $1
		ORDER BY u.username
	`
	return r.queryUsernames(ctx, query, userID)
}

// Discover returns visible users the given user does not yet follow.
func (r *FollowRepository) Discover(ctx context.Context, userID, limit int) ([]string, error) {
	query := `
		SELECT u.username
		FROM users u
		LEFT JOIN privacy_settings p ON p.user_id = u.id
		WHERE u.id <> $1
		  AND COALESCE(p.can_be_seen, TRUE)
		  AND NOT EXISTS (
			SELECT 1 FROM follows f
			WHERE f.follower_id = $1 AND f.followee_id = u.id
		  )
		ORDER BY u.username
		LIMIT $2
	`
	rows, err := r.db.Pool().Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to discover users: %w", err)
	}
	defer rows.Close()
	return scanUsernames(rows)
}

// Search returns visible users whose username contains the query string,
// excluding the searcher.
func (r *FollowRepository) Search(ctx context.Context, userID int, q string) ([]string, error) {
	query := `
		SELECT u.username
		FROM users u
		LEFT JOIN privacy_settings p ON p.user_id = u.id
		WHERE u.id <> $1
		  AND COALESCE(p.can_be_seen, TRUE)
		  AND u.username ILIKE '%' || $2 || '%'
		ORDER BY u.username
	`
	rows, err := r.db.Pool().Query(ctx, query, userID, q)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()
	return scanUsernames(rows)
}

func (r *FollowRepository) queryUsernames(ctx context.Context, query string, userID int) ([]string, error) {
	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list usernames: %w", err)
	}
	defer rows.Close()
	return scanUsernames(rows)
}

func scanUsernames(rows pgx.Rows) ([]string, error) {
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan username: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usernames: %w", err)
	}
	return names, nil
}
