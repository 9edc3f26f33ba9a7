package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/parting-gifts/internal/logging"
	"github.com/parting-gifts/internal/mail"
	"github.com/parting-gifts/internal/models"
	"github.com/parting-gifts/internal/storage"
)

var (
	ErrGiftNotFound = errors.New("gift not found")
	ErrEmptyGift    = errors.New("gift needs a file or a message")
	ErrNoReceivers  = errors.New("at least one receiver is required")
	ErrGiftsRefused = errors.New("user has disabled gift receiving")
)

// GiftStore is the persistence surface GiftService needs.
type GiftStore interface {
	Create(ctx context.Context, gift *models.Gift) error
	ListByUser(ctx context.Context, userID int) ([]*models.Gift, error)
	CountByUser(ctx context.Context, userID int) (int, error)
	CountPendingByUser(ctx context.Context, userID int) (int, error)
	Get(ctx context.Context, id int) (*models.Gift, error)
	Delete(ctx context.Context, id int) error
	SetReceivers(ctx context.Context, id int, receivers string, releaseAt time.Time) error
	ReceiversByUser(ctx context.Context, userID int) ([]string, error)
	DueForRelease(ctx context.Context, now time.Time) ([]*models.Gift, error)
	PendingByUser(ctx context.Context, userID int) ([]*models.Gift, error)
	MarkReleased(ctx context.Context, id int) error
}

// InactivityStore is the persistence surface for scheduled inactivity checks.
type InactivityStore interface {
	Schedule(ctx context.Context, userID int, notifyAt, releaseAt time.Time) error
	Cancel(ctx context.Context, userID int) error
	DueForNotify(ctx context.Context, now time.Time) ([]*models.InactivityCheck, error)
	DueForRelease(ctx context.Context, now time.Time) ([]*models.InactivityCheck, error)
	MarkNotified(ctx context.Context, userID int) error
}

// GiftService handles gift upload, scheduling and delivery
type GiftService struct {
	gifts          GiftStore
	users          UserStore
	checks         InactivityStore
	mailer         mail.Sender
	defaultDelay   time.Duration
	inactivityWait time.Duration
	logger         *logging.Logger
}

// NewGiftService creates a new gift service
func NewGiftService(
	gifts GiftStore,
	users UserStore,
	checks InactivityStore,
	mailer mail.Sender,
	defaultDelay time.Duration,
	inactivityWait time.Duration,
) *GiftService {
	return &GiftService{
		gifts:          gifts,
		users:          users,
		checks:         checks,
		mailer:         mailer,
		defaultDelay:   defaultDelay,
		inactivityWait: inactivityWait,
		logger:         logging.GetGlobalLogger().WithField("service", "gift"),
	}
}

// Upload stores a new pending gift and returns its ID. A gift needs either
// file contents or a custom message.
func (s *GiftService) Upload(ctx context.Context, username, fileName string, fileData []byte, customMessage string) (int, error) {
	if len(fileData) == 0 && customMessage == "" {
		return 0, ErrEmptyGift
	}

	userID, err := s.resolveUser(ctx, username)
	if err != nil {
		return 0, err
	}

	settings, err := s.users.GetPrivacy(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load privacy settings: %w", err)
	}
	if !settings.CanReceiveGifts {
		return 0, ErrGiftsRefused
	}

	gift := &models.Gift{
		UserID:        userID,
		FileName:      fileName,
		FileData:      fileData,
		CustomMessage: customMessage,
		Pending:       true,
	}
	if err := s.gifts.Create(ctx, gift); err != nil {
		return 0, fmt.Errorf("failed to store gift: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"username": username,
		"gift_id":  gift.ID,
	}).Info("gift uploaded")
	return gift.ID, nil
}

// List returns a user's gifts without file contents, newest first.
func (s *GiftService) List(ctx context.Context, username string) ([]*models.Gift, error) {
	userID, err := s.resolveUser(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.gifts.ListByUser(ctx, userID)
}

// Count returns the total number of gifts a user has uploaded.
func (s *GiftService) Count(ctx context.Context, username string) (int, error) {
	userID, err := s.resolveUser(ctx, username)
	if err != nil {
		return 0, err
	}
	return s.gifts.CountByUser(ctx, userID)
}

// PendingCount returns the number of gifts still scheduled for release.
func (s *GiftService) PendingCount(ctx context.Context, username string) (int, error) {
	userID, err := s.resolveUser(ctx, username)
	if err != nil {
		return 0, err
	}
	return s.gifts.CountPendingByUser(ctx, userID)
}

// StopPending deletes a pending gift before it is released.
func (s *GiftService) StopPending(ctx context.Context, giftID int) error {
	if err := s.gifts.Delete(ctx, giftID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrGiftNotFound
		}
		return fmt.Errorf("failed to delete gift: %w", err)
	}
	s.logger.WithField("gift_id", giftID).Info("pending gift stopped")
	return nil
}

// Download returns a gift with its file contents for inline viewing.
func (s *GiftService) Download(ctx context.Context, giftID int) (*models.Gift, error) {
	gift, err := s.gifts.Get(ctx, giftID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrGiftNotFound
		}
		return nil, fmt.Errorf("failed to load gift: %w", err)
	}
	return gift, nil
}

// SetupReceivers records the recipient list for a gift and schedules its
// release. When no release time is given the gift is released after the
// configured default delay.
func (s *GiftService) SetupReceivers(ctx context.Context, giftID int, receivers string, releaseAt *time.Time) error {
	if receivers == "" {
		return ErrNoReceivers
	}
	if _, err := s.gifts.Get(ctx, giftID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrGiftNotFound
		}
		return fmt.Errorf("failed to load gift: %w", err)
	}

	when := time.Now().Add(s.defaultDelay)
	if releaseAt != nil {
		when = *releaseAt
	}
	if err := s.gifts.SetReceivers(ctx, giftID, receivers, when); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrGiftNotFound
		}
		return fmt.Errorf("failed to set receivers: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"gift_id":    giftID,
		"release_at": when.Format(time.RFC3339),
	}).Info("gift scheduled")
	return nil
}

// Receivers returns the distinct recipient addresses across a user's gifts.
func (s *GiftService) Receivers(ctx context.Context, username string) ([]string, error) {
	userID, err := s.resolveUser(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.gifts.ReceiversByUser(ctx, userID)
}

// Calendar returns a user's gifts projected onto the release calendar,
// unscheduled gifts first, then by release time.
func (s *GiftService) Calendar(ctx context.Context, username string) ([]models.CalendarEvent, error) {
	gifts, err := s.List(ctx, username)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(gifts, func(i, j int) bool {
		a, b := gifts[i].ScheduledRelease, gifts[j].ScheduledRelease
		switch {
		case a == nil:
			return b != nil
		case b == nil:
			return false
		default:
			return a.Before(*b)
		}
	})

	events := make([]models.CalendarEvent, 0, len(gifts))
	for _, g := range gifts {
		event := models.CalendarEvent{
			ID:        g.ID,
			Title:     g.EventTitle(),
			Message:   g.CustomMessage,
			IsPending: g.Pending,
			Receivers: g.Receivers,
		}
		if g.ScheduledRelease != nil {
			event.ReleaseDate = g.ScheduledRelease.UTC().Format(time.RFC3339)
		}
		events = append(events, event)
	}
	return events, nil
}

// ReleaseDue sends every pending gift whose release time has passed and
// marks it as released. Called from the scheduler worker.
func (s *GiftService) ReleaseDue(ctx context.Context, now time.Time) error {
	due, err := s.gifts.DueForRelease(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list due gifts: %w", err)
	}

	for _, gift := range due {
		body := gift.CustomMessage
		if body == "" {
			body = "Someone left you a parting gift."
		}
		sent := true
		for _, addr := range mail.SplitRecipients(gift.Receivers) {
			if err := s.mailer.SendGift(addr, gift.FileName, gift.FileData, body); err != nil {
				s.logger.WithError(err).WithField("gift_id", gift.ID).Error("failed to send gift email")
				sent = false
			}
		}
		if !sent {
			continue // retried on the next poll
		}
		if err := s.gifts.MarkReleased(ctx, gift.ID); err != nil {
			s.logger.WithError(err).WithField("gift_id", gift.ID).Error("failed to mark gift released")
			continue
		}
		s.logger.WithField("gift_id", gift.ID).Info("gift released")
	}
	return nil
}

// ScheduleInactivityCheck arms the two-phase inactivity check for a user.
// The user is warned after the configured wait and, a further wait later,
// their pending gifts are sent to their recipients.
func (s *GiftService) ScheduleInactivityCheck(ctx context.Context, username string) error {
	userID, err := s.resolveUser(ctx, username)
	if err != nil {
		return err
	}
	now := time.Now()
	notifyAt := now.Add(s.inactivityWait)
	releaseAt := notifyAt.Add(s.inactivityWait)
	if err := s.checks.Schedule(ctx, userID, notifyAt, releaseAt); err != nil {
		return fmt.Errorf("failed to schedule inactivity check: %w", err)
	}
	s.logger.WithField("username", username).Info("inactivity check scheduled")
	return nil
}

// ProcessInactivity advances armed inactivity checks: warning emails first,
// then gift release for checks past their release time. A check whose user
// no longer has pending gifts is cancelled.
func (s *GiftService) ProcessInactivity(ctx context.Context, now time.Time) error {
	if err := s.notifyDueChecks(ctx, now); err != nil {
		return err
	}
	return s.releaseDueChecks(ctx, now)
}

func (s *GiftService) notifyDueChecks(ctx context.Context, now time.Time) error {
	due, err := s.checks.DueForNotify(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list checks due for notify: %w", err)
	}
	for _, check := range due {
		pending, err := s.gifts.CountPendingByUser(ctx, check.UserID)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", check.UserID).Error("failed to count pending gifts")
			continue
		}
		if pending == 0 {
			if err := s.checks.Cancel(ctx, check.UserID); err != nil {
				s.logger.WithError(err).WithField("user_id", check.UserID).Error("failed to cancel check")
			}
			continue
		}

		email, err := s.primaryEmail(ctx, check.UserID)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", check.UserID).Error("failed to load primary email")
			continue
		}
		subject := "Are you still alive? Your gifts will be sent soon"
		body := "Hello,\n\nWe noticed you haven't been active recently. If you are still there, please log in and click the 'Stop' button to cancel the gift sending process."
		if err := s.mailer.SendPlain(email, subject, body); err != nil {
			s.logger.WithError(err).WithField("user_id", check.UserID).Error("failed to send warning email")
			continue
		}
		if err := s.checks.MarkNotified(ctx, check.UserID); err != nil {
			s.logger.WithError(err).WithField("user_id", check.UserID).Error("failed to mark check notified")
		}
	}
	return nil
}

func (s *GiftService) releaseDueChecks(ctx context.Context, now time.Time) error {
	due, err := s.checks.DueForRelease(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list checks due for release: %w", err)
	}
	for _, check := range due {
		gifts, err := s.gifts.PendingByUser(ctx, check.UserID)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", check.UserID).Error("failed to load pending gifts")
			continue
		}

		released := true
		for _, gift := range gifts {
			if gift.Receivers == "" {
				continue
			}
			body := gift.CustomMessage
			if body == "" {
				body = "Someone left you a parting gift."
			}
			for _, addr := range mail.SplitRecipients(gift.Receivers) {
				if err := s.mailer.SendGift(addr, gift.FileName, gift.FileData, body); err != nil {
					s.logger.WithError(err).WithField("gift_id", gift.ID).Error("failed to send gift email")
					released = false
				}
			}
			if err := s.gifts.MarkReleased(ctx, gift.ID); err != nil {
				s.logger.WithError(err).WithField("gift_id", gift.ID).Error("failed to mark gift released")
				released = false
			}
		}
		if released {
			if err := s.checks.Cancel(ctx, check.UserID); err != nil {
				s.logger.WithError(err).WithField("user_id", check.UserID).Error("failed to clear check")
			}
		}
	}
	return nil
}

func (s *GiftService) primaryEmail(ctx context.Context, userID int) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.PrimaryContactEmail, nil
}

func (s *GiftService) resolveUser(ctx context.Context, username string) (int, error) {
	userID, err := s.users.IDByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to resolve user: %w", err)
	}
	return userID, nil
}
