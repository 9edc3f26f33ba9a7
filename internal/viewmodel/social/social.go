// Package social is the view-model behind the friends page: the four
// user lists plus follow/unfollow mutations with targeted refresh.
package social

import (
	"context"
	"sync"

	"github.com/parting-gifts/internal/logging"
)

// API is the slice of the REST client the friends page consumes.
type API interface {
	Followers(ctx context.Context, username string) ([]string, error)
	Following(ctx context.Context, username string) ([]string, error)
	Discover(ctx context.Context, username string) ([]string, error)
	SearchUsers(ctx context.Context, username, query string) ([]string, error)
	Follow(ctx context.Context, username, friendUsername string) error
	Unfollow(ctx context.Context, username, friendUsername string) error
}

// Model holds the social graph lists for one user. All lists are
// non-nil at all times.
type Model struct {
	mu       sync.Mutex
	api      API
	logger   *logging.Logger
	username string

	followers []string
	following []string
	discover  []string
	results   []string
}

// New creates a social model for the given user.
func New(api API, username string, logger *logging.Logger) *Model {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Model{
		api:       api,
		logger:    logger,
		username:  username,
		followers: []string{},
		following: []string{},
		discover:  []string{},
		results:   []string{},
	}
}

// Load fetches followers, following and discover. Each list fails
// independently to empty; failures are logged.
func (m *Model) Load(ctx context.Context) {
	followers := m.fetch(ctx, "followers", m.api.Followers)
	following := m.fetch(ctx, "following", m.api.Following)
	discover := m.fetch(ctx, "discover", m.api.Discover)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.followers = followers
	m.following = following
	m.discover = discover
}

func (m *Model) fetch(ctx context.Context, name string, fn func(context.Context, string) ([]string, error)) []string {
	list, err := fn(ctx, m.username)
	if err != nil {
		m.logger.WithField("list", name).WithField("error", err.Error()).Warn("Social list fetch failed")
		return []string{}
	}
	if list == nil {
		return []string{}
	}
	return list
}

// Followers returns the follower list.
func (m *Model) Followers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.followers...)
}

// Following returns the following list.
func (m *Model) Following() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.following...)
}

// Discover returns the suggested users list.
func (m *Model) Discover() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.discover...)
}

// SearchResults returns the last search's results.
func (m *Model) SearchResults() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.results...)
}

// Search runs a user search. Failures clear the results and are
// returned so the page can surface them inline.
func (m *Model) Search(ctx context.Context, query string) error {
	list, err := m.api.SearchUsers(ctx, m.username, query)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.results = []string{}
		return err
	}
	if list == nil {
		list = []string{}
	}
	m.results = list
	return nil
}

// IsFollowing reports membership in the current following list.
func (m *Model) IsFollowing(username string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.following {
		if u == username {
			return true
		}
	}
	return false
}

// Follow follows a user and, on success, refetches following and
// discover. Followers is server-derived and left alone.
func (m *Model) Follow(ctx context.Context, friendUsername string) error {
	if err := m.api.Follow(ctx, m.username, friendUsername); err != nil {
		return err
	}
	m.refreshAfterMutation(ctx)
	return nil
}

// Unfollow unfollows a user; unfollowing a non-followed user is a
// server-side no-op and must not error the page.
func (m *Model) Unfollow(ctx context.Context, friendUsername string) error {
	if err := m.api.Unfollow(ctx, m.username, friendUsername); err != nil {
		return err
	}
	m.refreshAfterMutation(ctx)
	return nil
}

func (m *Model) refreshAfterMutation(ctx context.Context) {
	following := m.fetch(ctx, "following", m.api.Following)
	discover := m.fetch(ctx, "discover", m.api.Discover)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.following = following
	m.discover = discover
}
