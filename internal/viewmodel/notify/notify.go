// Package notify is the view-model behind the notification bell: a
// periodic unread poll, the five-newest dropdown and message composing.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/parting-gifts/internal/client"
	"github.com/parting-gifts/internal/logging"
)

const (
	defaultPollInterval = 30 * time.Second
	dropdownSize        = 5
)

// ErrEmptyDraft is returned when the compose form is submitted without
// both a recipient and a body.
var ErrEmptyDraft = errors.New("recipient and message are required")

// ErrIneligibleRecipient is returned when the chosen recipient is not a
// mutual-follow contact.
var ErrIneligibleRecipient = errors.New("recipient is not an eligible contact")

// API is the slice of the REST client the widget consumes.
type API interface {
	UnreadCount(ctx context.Context, username string) (int, error)
	Messages(ctx context.Context, username string) ([]client.InboxMessage, error)
	EligibleContacts(ctx context.Context, username string) ([]string, error)
	SendMessage(ctx context.Context, sender, receiver, content string) error
}

// Widget polls for unread messages while mounted. Start and Stop bound
// its lifetime; an unstopped widget leaks its ticker goroutine.
type Widget struct {
	api          API
	logger       *logging.Logger
	username     string
	pollInterval time.Duration

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	unread   int
	messages []client.InboxMessage
	eligible []string

	draftTo   string
	draftBody string
}

// New creates a widget for the given user.
func New(api API, username string, pollInterval time.Duration, logger *logging.Logger) *Widget {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Widget{
		api:          api,
		logger:       logger,
		username:     username,
		pollInterval: pollInterval,
		messages:     []client.InboxMessage{},
		eligible:     []string{},
	}
}

// Start begins polling. It polls once immediately so the badge is
// populated without waiting a full interval.
func (w *Widget) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("notification widget already started")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.pollLoop(ctx)
	return nil
}

// Stop cancels the poll ticker and waits for the loop to exit.
func (w *Widget) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	<-done
}

// IsRunning reports whether the poll loop is active.
func (w *Widget) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Widget) pollLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.poll(ctx)
	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll issues the unread-count and message-list requests independently;
// either may fail without affecting the other.
func (w *Widget) poll(ctx context.Context) {
	count, countErr := w.api.UnreadCount(ctx, w.username)
	msgs, msgsErr := w.api.Messages(ctx, w.username)

	w.mu.Lock()
	defer w.mu.Unlock()

	if countErr != nil {
		w.logger.WithField("error", countErr.Error()).Warn("Unread count poll failed")
	} else {
		w.unread = count
	}
	if msgsErr != nil {
		w.logger.WithField("error", msgsErr.Error()).Warn("Message poll failed")
	} else {
		if msgs == nil {
			msgs = []client.InboxMessage{}
		}
		w.messages = msgs
	}
}

// Refresh forces an immediate poll outside the ticker.
func (w *Widget) Refresh(ctx context.Context) {
	w.poll(ctx)
}

// LoadContacts fetches the eligible recipients for composing.
func (w *Widget) LoadContacts(ctx context.Context) {
	contacts, err := w.api.EligibleContacts(ctx, w.username)
	if err != nil {
		w.logger.WithField("error", err.Error()).Warn("Eligible contacts fetch failed")
		return
	}
	if contacts == nil {
		contacts = []string{}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.eligible = contacts
}

// ShowBadge reports whether the unread badge renders.
func (w *Widget) ShowBadge() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.unread > 0
}

// Unread returns the unread count.
func (w *Widget) Unread() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.unread
}

// Dropdown returns up to the five newest messages. The server already
// orders newest first.
func (w *Widget) Dropdown() []client.InboxMessage {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := len(w.messages)
	if n > dropdownSize {
		n = dropdownSize
	}
	return append([]client.InboxMessage{}, w.messages[:n]...)
}

// Contacts returns the eligible recipients, never nil.
func (w *Widget) Contacts() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string{}, w.eligible...)
}

// SetDraft stores the compose form state.
func (w *Widget) SetDraft(to, body string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draftTo = to
	w.draftBody = body
}

// Draft returns the compose form state.
func (w *Widget) Draft() (to, body string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draftTo, w.draftBody
}

// Send submits the draft. Validation happens before any network call;
// a send failure keeps the draft so the user can retry, while success
// clears it.
func (w *Widget) Send(ctx context.Context) error {
	w.mu.Lock()
	to, body := w.draftTo, w.draftBody
	eligible := false
	for _, c := range w.eligible {
		if c == to {
			eligible = true
			break
		}
	}
	w.mu.Unlock()

	if to == "" || body == "" {
		return ErrEmptyDraft
	}
	if !eligible {
		return ErrIneligibleRecipient
	}

	if err := w.api.SendMessage(ctx, w.username, to, body); err != nil {
		return err
	}

	w.mu.Lock()
	w.draftTo = ""
	w.draftBody = ""
	w.mu.Unlock()
	return nil
}
