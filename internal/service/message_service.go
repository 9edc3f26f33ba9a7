package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/parting-gifts/internal/crypto"
	"github.com/parting-gifts/internal/logging"
	"github.com/parting-gifts/internal/models"
	"github.com/parting-gifts/internal/storage"
)

// ErrMessagingRefused is returned when the recipient's privacy settings
// block incoming messages.
var ErrMessagingRefused = errors.New("user does not accept messages")

var (
	ErrSenderNotFound   = errors.New("sender not found")
	ErrReceiverNotFound = errors.New("receiver not found")
)

// MessageStore is the persistence surface MessageService needs.
type MessageStore interface {
	Create(ctx context.Context, msg *models.Message) error
	InboxByReceiver(ctx context.Context, receiverID int) ([]storage.InboxRow, error)
	UnreadCount(ctx context.Context, receiverID int) (int, error)
	MarkAllRead(ctx context.Context, receiverID int) error
}

// UnreadCache caches per-user unread counts.
type UnreadCache interface {
	GetUnreadCount(ctx context.Context, username string) (int, error)
	SetUnreadCount(ctx context.Context, username string, count int) error
	InvalidateUnreadCount(ctx context.Context, username string) error
}

// MessageService handles direct messages. Bodies are encrypted at rest.
type MessageService struct {
	messages MessageStore
	users    UserStore
	cipher   *crypto.Cipher
	cache    UnreadCache
	logger   *logging.Logger
}

// NewMessageService creates a new message service
func NewMessageService(messages MessageStore, users UserStore, cipher *crypto.Cipher, cache UnreadCache) *MessageService {
	return &MessageService{
		messages: messages,
		users:    users,
		cipher:   cipher,
		cache:    cache,
		logger:   logging.GetGlobalLogger().WithField("service", "message"),
	}
}

// Send stores an encrypted message from one user to another. The recipient
// must accept messages.
func (s *MessageService) Send(ctx context.Context, fromUsername, toUsername, content string) error {
	senderID, err := s.resolve(ctx, fromUsername)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrSenderNotFound
		}
		return err
	}
	receiverID, err := s.resolve(ctx, toUsername)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrReceiverNotFound
		}
		return err
	}

	settings, err := s.users.GetPrivacy(ctx, receiverID)
	if err != nil {
		return fmt.Errorf("failed to load privacy settings: %w", err)
	}
	if !settings.CanReceiveMessages {
		return ErrMessagingRefused
	}

	ciphertext, err := s.cipher.Encrypt(content)
	if err != nil {
		return fmt.Errorf("failed to encrypt message: %w", err)
	}

	msg := &models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    ciphertext,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidateUnreadCount(ctx, toUsername); err != nil {
			s.logger.WithError(err).Warn("failed to invalidate unread cache")
		}
	}
	return nil
}

// Inbox returns a user's received messages, newest first, decrypted.
// Fetching the inbox marks its messages as read.
func (s *MessageService) Inbox(ctx context.Context, username string) ([]models.InboxMessage, error) {
	userID, err := s.resolve(ctx, username)
	if err != nil {
		return nil, err
	}

	rows, err := s.messages.InboxByReceiver(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load inbox: %w", err)
	}

	inbox := make([]models.InboxMessage, 0, len(rows))
	for _, row := range rows {
		plaintext, err := s.cipher.Decrypt(row.Content)
		if err != nil {
			s.logger.WithError(err).WithField("from", row.From).Warn("failed to decrypt message")
			plaintext = "[Could not decrypt]"
		}
		inbox = append(inbox, models.InboxMessage{
			From:      row.From,
			Content:   plaintext,
			Timestamp: row.Timestamp.UTC().Format(time.RFC3339),
		})
	}

	if err := s.markAllRead(ctx, username, userID); err != nil {
		s.logger.WithError(err).Warn("failed to mark inbox as read")
	}
	return inbox, nil
}

// UnreadCount returns the number of unread messages for a user, served
// from cache when fresh.
func (s *MessageService) UnreadCount(ctx context.Context, username string) (int, error) {
	if s.cache != nil {
		if count, err := s.cache.GetUnreadCount(ctx, username); err == nil {
			return count, nil
		}
	}

	userID, err := s.resolve(ctx, username)
	if err != nil {
		return 0, err
	}
	count, err := s.messages.UnreadCount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetUnreadCount(ctx, username, count); err != nil {
			s.logger.WithError(err).Warn("failed to cache unread count")
		}
	}
	return count, nil
}

func (s *MessageService) markAllRead(ctx context.Context, username string, userID int) error {
	if err := s.messages.MarkAllRead(ctx, userID); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateUnreadCount(ctx, username); err != nil {
			s.logger.WithError(err).Warn("failed to invalidate unread cache")
		}
	}
	return nil
}

func (s *MessageService) resolve(ctx context.Context, username string) (int, error) {
	userID, err := s.users.IDByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to resolve user: %w", err)
	}
	return userID, nil
}
