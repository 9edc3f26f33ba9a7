// Package dashboard is the view-model behind the gift collection page:
// the user's gifts partitioned into pending and delivered, plus the
// unwrap animation state.
package dashboard

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/parting-gifts/internal/client"
	"github.com/parting-gifts/internal/logging"
)

// ErrInvalidGiftID is returned when a cancel request carries a
// malformed or non-positive id. No network call is made.
var ErrInvalidGiftID = errors.New("invalid gift id")

// API is the slice of the REST client the dashboard consumes.
type API interface {
	GiftCount(ctx context.Context, username string) (int, error)
	Gifts(ctx context.Context, username string) ([]client.Gift, error)
	Receivers(ctx context.Context, username string) ([]string, error)
	PendingCount(ctx context.Context, username string) (int, error)
	StopPendingGift(ctx context.Context, giftID int) error
}

// Model holds the dashboard state for one user.
type Model struct {
	mu       sync.Mutex
	api      API
	logger   *logging.Logger
	username string

	count        int
	pendingCount int
	pending      []client.Gift
	delivered    []client.Gift
	receivers    []string

	// unwrap animation state, reset on every Load
	opened     map[int]bool
	openingID  int
	selectedID int
}

// New creates a dashboard model for the given user.
func New(api API, username string, logger *logging.Logger) *Model {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Model{
		api:      api,
		logger:   logger,
		username: username,
		opened:   make(map[int]bool),
	}
}

// Load fetches count, gifts, receivers and pending count concurrently.
// Each fetch fails independently to an empty default; failures are
// logged, never fatal to the page.
func (m *Model) Load(ctx context.Context) {
	var (
		wg           sync.WaitGroup
		count        int
		pendingCount int
		gifts        []client.Gift
		receivers    []string
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		n, err := m.api.GiftCount(ctx, m.username)
		if err != nil {
			m.logger.WithField("error", err.Error()).Warn("Gift count fetch failed")
			return
		}
		count = n
	}()
	go func() {
		defer wg.Done()
		list, err := m.api.Gifts(ctx, m.username)
		if err != nil {
			m.logger.WithField("error", err.Error()).Warn("Gift list fetch failed")
			return
		}
		gifts = list
	}()
	go func() {
		defer wg.Done()
		list, err := m.api.Receivers(ctx, m.username)
		if err != nil {
			m.logger.WithField("error", err.Error()).Warn("Receiver list fetch failed")
			return
		}
		receivers = list
	}()
	go func() {
		defer wg.Done()
		n, err := m.api.PendingCount(ctx, m.username)
		if err != nil {
			m.logger.WithField("error", err.Error()).Warn("Pending count fetch failed")
			return
		}
		pendingCount = n
	}()
	wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.count = count
	m.pendingCount = pendingCount
	m.receivers = receivers
	if m.receivers == nil {
		m.receivers = []string{}
	}

	m.pending = m.pending[:0]
	m.delivered = m.delivered[:0]
	for _, g := range gifts {
		if g.Pending {
			m.pending = append(m.pending, g)
		} else {
			m.delivered = append(m.delivered, g)
		}
	}

	// unwrap state never survives a reload
	m.opened = make(map[int]bool)
	m.openingID = 0
	m.selectedID = 0
}

// Count returns the total gift count.
func (m *Model) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// PendingCount returns the pending-message badge count.
func (m *Model) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pendingCount
}

// Pending returns the gifts awaiting delivery.
func (m *Model) Pending() []client.Gift {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]client.Gift(nil), m.pending...)
}

// Delivered returns the already-available gifts.
func (m *Model) Delivered() []client.Gift {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]client.Gift(nil), m.delivered...)
}

// Receivers returns the distinct receiver emails, never nil.
func (m *Model) Receivers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.receivers...)
}

// BeginUnwrap starts the opening animation for a gift. It reports false
// when another gift is already opening or this one is already open.
func (m *Model) BeginUnwrap(giftID int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openingID != 0 || m.opened[giftID] {
		return false
	}
	m.openingID = giftID
	return true
}

// CompleteUnwrap finishes the in-flight animation: the gift becomes
// open and selected, and the opening slot frees up.
func (m *Model) CompleteUnwrap() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openingID == 0 {
		return
	}
	m.opened[m.openingID] = true
	m.selectedID = m.openingID
	m.openingID = 0
}

// Opening returns the id of the gift currently animating, 0 when none.
func (m *Model) Opening() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openingID
}

// Selected returns the id of the gift shown in the detail view, 0 when
// none has been unwrapped yet.
func (m *Model) Selected() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectedID
}

// IsUnwrapped reports whether a gift has been opened this page load.
func (m *Model) IsUnwrapped(giftID int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opened[giftID]
}

// StopPendingGift cancels a pending gift. The raw id is validated as a
// positive integer before any network call; on success the gift leaves
// the local pending list.
func (m *Model) StopPendingGift(ctx context.Context, rawID string) error {
	id, err := strconv.Atoi(rawID)
	if err != nil || id <= 0 {
		return ErrInvalidGiftID
	}

	if err := m.api.StopPendingGift(ctx, id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, g := range m.pending {
		if g.ID == id {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			break
		}
	}
	return nil
}
