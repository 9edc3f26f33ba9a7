// Package calendar is the view-model behind the gift release calendar:
// events bucketed by display day, a Sunday-first month grid, and ±1
// month navigation over data fetched once per open.
package calendar

import (
	"context"
	"sync"
	"time"

	"github.com/parting-gifts/internal/client"
	"github.com/parting-gifts/internal/logging"
)

// displayOffset shifts stored UTC timestamps into display time. The
// fixed 4 hour value is the historical wire contract and is applied
// identically to bucketing and the is-today check; it is not DST-aware.
// TODO: replace with a real timezone once the backend contract allows it.
const displayOffset = 4 * time.Hour

// DayKey maps an instant to its display-day bucket key.
func DayKey(t time.Time) string {
	return t.UTC().Add(displayOffset).Format("2006-01-02")
}

// API is the slice of the REST client the calendar consumes.
type API interface {
	Calendar(ctx context.Context, username string) ([]client.CalendarEvent, error)
}

// Event is one calendar entry annotated for display.
type Event struct {
	ID      int
	Title   string
	Status  string // "Pending" or "Released"
	Message string
}

// Cell is one grid position. Day 0 marks a leading or trailing blank.
type Cell struct {
	Day       int
	Key       string
	HasEvents bool
	IsToday   bool
}

// Model holds the calendar state for one user.
type Model struct {
	mu       sync.Mutex
	api      API
	logger   *logging.Logger
	username string
	now      func() time.Time

	events   map[string][]Event
	loadErr  string
	loaded   bool
	year     int
	month    time.Month
}

// New creates a calendar model for the given user.
func New(api API, username string, logger *logging.Logger) *Model {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	m := &Model{
		api:      api,
		logger:   logger,
		username: username,
		now:      time.Now,
		events:   make(map[string][]Event),
	}
	shifted := m.now().UTC().Add(displayOffset)
	m.year, m.month = shifted.Year(), shifted.Month()
	return m
}

// Open fetches the event list. A fetch failure stores an inline error
// and suppresses the grid; there is no automatic retry.
func (m *Model) Open(ctx context.Context) {
	events, err := m.api.Calendar(ctx, m.username)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.loaded = false
		m.loadErr = err.Error()
		return
	}

	m.loadErr = ""
	m.loaded = true
	m.events = make(map[string][]Event)
	for _, ev := range events {
		if ev.ReleaseDate == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, ev.ReleaseDate)
		if err != nil {
			m.logger.WithField("releaseDate", ev.ReleaseDate).Warn("Skipping event with unparseable release date")
			continue
		}
		status := "Released"
		if ev.IsPending {
			status = "Pending"
		}
		key := DayKey(t)
		m.events[key] = append(m.events[key], Event{
			ID:      ev.ID,
			Title:   ev.Title,
			Status:  status,
			Message: ev.Message,
		})
	}
}

// Error returns the inline fetch error, empty when the last open
// succeeded.
func (m *Model) Error() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadErr
}

// Loaded reports whether the grid may render.
func (m *Model) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// Month returns the currently displayed year and month.
func (m *Model) Month() (int, time.Month) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.year, m.month
}

// NextMonth moves the displayed month forward without refetching.
func (m *Model) NextMonth() {
	m.shiftMonth(1)
}

// PrevMonth moves the displayed month back without refetching.
func (m *Model) PrevMonth() {
	m.shiftMonth(-1)
}

func (m *Model) shiftMonth(delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := time.Date(m.year, m.month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, delta, 0)
	m.year, m.month = t.Year(), t.Month()
}

// Grid returns the Sunday-first month grid for the displayed month,
// padded with blank cells to whole weeks. It returns nil until a
// successful Open.
func (m *Model) Grid() []Cell {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		return nil
	}

	first := time.Date(m.year, m.month, 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()
	todayKey := DayKey(m.now())

	cells := make([]Cell, 0, 42)
	for i := 0; i < int(first.Weekday()); i++ {
		cells = append(cells, Cell{})
	}
	for day := 1; day <= daysInMonth; day++ {
		key := time.Date(m.year, m.month, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		cells = append(cells, Cell{
			Day:       day,
			Key:       key,
			HasEvents: len(m.events[key]) > 0,
			IsToday:   key == todayKey,
		})
	}
	for len(cells)%7 != 0 {
		cells = append(cells, Cell{})
	}
	return cells
}

// EventsOn returns the events bucketed under a day key, never nil.
func (m *Model) EventsOn(key string) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event{}, m.events[key]...)
}
