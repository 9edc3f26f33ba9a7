package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/parting-gifts/internal/models"
)

// MessageRepository handles direct message persistence. Message bodies are
// stored as ciphertext; encryption happens in the service layer.
type MessageRepository struct {
	db *PostgresDB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *PostgresDB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a new message. A fresh UUID is assigned when the ID is empty.
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	query := `
		INSERT INTO messages (id, sender_id, receiver_id, content, is_read)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.Pool().QueryRow(ctx, query,
		msg.ID,
		msg.SenderID,
		msg.ReceiverID,
		msg.Content,
		msg.IsRead,
	).Scan(&msg.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// InboxRow is one received message joined with its sender's username.
type InboxRow struct {
	From      string
	Content   string
	Timestamp time.Time
}

// InboxByReceiver returns a user's received messages, newest first.
func (r *MessageRepository) InboxByReceiver(ctx context.Context, receiverID int) ([]InboxRow, error) {
	query := `
		SELECT u.username, m.content, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.receiver_id = $1
		ORDER BY m.created_at DESC
	`
	rows, err := r.db.Pool().Query(ctx, query, receiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inbox: %w", err)
	}
	defer rows.Close()

	var inbox []InboxRow
	for rows.Next() {
		var row InboxRow
		if err := rows.Scan(&row.From, &row.Content, &row.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		inbox = append(inbox, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inbox: %w", err)
	}
	return inbox, nil
}

// UnreadCount returns the number of unread messages for a user.
func (r *MessageRepository) UnreadCount(ctx context.Context, receiverID int) (int, error) {
	var count int
	err := r.db.Pool().QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND is_read = FALSE`,
		receiverID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

// MarkAllRead flags every message for a user as read.
func (r *MessageRepository) MarkAllRead(ctx context.Context, receiverID int) error {
	_, err := r.db.Pool().Exec(ctx,
		`UPDATE messages SET is_read = TRUE WHERE receiver_id = $1 AND is_read = FALSE`,
		receiverID)
	if err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	return nil
}
