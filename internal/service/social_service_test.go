package service

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/parting-gifts/internal/models"
	"github.com/parting-gifts/internal/storage"
)

type edge struct{ follower, followee int }

type mockFollowStore struct {
	users *mockUserStore
	edges map[edge]bool
}

func newMockFollowStore(users *mockUserStore) *mockFollowStore {
	return &mockFollowStore{users: users, edges: make(map[edge]bool)}
}

func (m *mockFollowStore) Follow(ctx context.Context, followerID, followeeID int) error {
	m.edges[edge{followerID, followeeID}] = true
	return nil
}

func (m *mockFollowStore) Unfollow(ctx context.Context, followerID, followeeID int) error {
	delete(m.edges, edge{followerID, followeeID})
	return nil
}

func (m *mockFollowStore) username(id int) string {
	for name, u := range m.users.users {
		if u.ID == id {
			return name
		}
	}
	return ""
}

func (m *mockFollowStore) Following(ctx context.Context, userID int) ([]string, error) {
	var out []string
	for e := range m.edges {
		if e.follower == userID {
			out = append(out, m.username(e.followee))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *mockFollowStore) Followers(ctx context.Context, userID int) ([]string, error) {
	var out []string
	for e := range m.edges {
		if e.followee == userID {
			out = append(out, m.username(e.follower))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *mockFollowStore) Mutuals(ctx context.Context, userID int) ([]string, error) {
	var out []string
	for e := range m.edges {
		if e.follower == userID && m.edges[edge{e.followee, e.follower}] {
			out = append(out, m.username(e.followee))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *mockFollowStore) Discover(ctx context.Context, userID, limit int) ([]string, error) {
	var out []string
	for name, u := range m.users.users {
		if u.ID == userID || m.edges[edge{userID, u.ID}] {
			continue
		}
		if settings, ok := m.users.privacy[u.ID]; ok && !settings.CanBeSeen {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockFollowStore) Search(ctx context.Context, userID int, q string) ([]string, error) {
	var out []string
	for name, u := range m.users.users {
		if u.ID == userID || !strings.Contains(strings.ToLower(name), strings.ToLower(q)) {
			continue
		}
		if settings, ok := m.users.privacy[u.ID]; ok && !settings.CanBeSeen {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

type mockDiscoverCache struct {
	lists       map[string][]string
	invalidated []string
}

func newMockDiscoverCache() *mockDiscoverCache {
	return &mockDiscoverCache{lists: make(map[string][]string)}
}

func (m *mockDiscoverCache) GetDiscover(ctx context.Context, username string) ([]string, error) {
	if list, ok := m.lists[username]; ok {
		return list, nil
	}
	return nil, storage.ErrCacheMiss
}

func (m *mockDiscoverCache) SetDiscover(ctx context.Context, username string, users []string) error {
	m.lists[username] = users
	return nil
}

func (m *mockDiscoverCache) InvalidateDiscover(ctx context.Context, username string) error {
	delete(m.lists, username)
	m.invalidated = append(m.invalidated, username)
	return nil
}

func newTestSocialService(t *testing.T, names ...string) (*SocialService, *mockUserStore, *mockFollowStore, *mockDiscoverCache) {
	t.Helper()
	users := newMockUserStore()
	for _, name := range names {
		if err := users.Create(context.Background(), &models.User{Username: name}); err != nil {
			t.Fatalf("seed user %s: %v", name, err)
		}
	}
	follows := newMockFollowStore(users)
	cache := newMockDiscoverCache()
	return NewSocialService(follows, users, cache), users, follows, cache
}

func TestFollowUnfollow(t *testing.T) {
	svc, _, _, _ := newTestSocialService(t, "alice", "bob")
	ctx := context.Background()

	if err := svc.Follow(ctx, "alice", "alice"); err != ErrSelfFollow {
		t.Errorf("self follow: error = %v, want ErrSelfFollow", err)
	}
	if err := svc.Follow(ctx, "alice", "nobody"); err != ErrUserNotFound {
		t.Errorf("unknown friend: error = %v, want ErrUserNotFound", err)
	}

	if err := svc.Follow(ctx, "alice", "bob"); err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	// Following twice is a no-op
	if err := svc.Follow(ctx, "alice", "bob"); err != nil {
		t.Fatalf("repeat Follow() error = %v", err)
	}

	following, err := svc.Following(ctx, "alice")
	if err != nil {
		t.Fatalf("Following() error = %v", err)
	}
	if len(following) != 1 || following[0] != "bob" {
		t.Errorf("following = %v, want [bob]", following)
	}

	followers, err := svc.Followers(ctx, "bob")
	if err != nil {
		t.Fatalf("Followers() error = %v", err)
	}
	if len(followers) != 1 || followers[0] != "alice" {
		t.Errorf("followers = %v, want [alice]", followers)
	}

	if err := svc.Unfollow(ctx, "alice", "bob"); err != nil {
		t.Fatalf("Unfollow() error = %v", err)
	}
	// Unfollowing an unfollowed user is a no-op
	if err := svc.Unfollow(ctx, "alice", "bob"); err != nil {
		t.Fatalf("repeat Unfollow() error = %v", err)
	}

	following, _ = svc.Following(ctx, "alice")
	if len(following) != 0 {
		t.Errorf("following after unfollow = %v, want empty", following)
	}
}

func TestDiscover_UsesCache(t *testing.T) {
	svc, _, follows, cache := newTestSocialService(t, "alice", "bob", "carol")
	ctx := context.Background()

	got, err := svc.Discover(ctx, "alice")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("discover = %v, want bob and carol", got)
	}

	// A second call is served from the cache even when the graph changed
	// underneath it.
	follows.Follow(ctx, 1, 2)
	got, err = svc.Discover(ctx, "alice")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("cached discover = %v, want the stale 2 entries", got)
	}

	// A follow through the service invalidates the cache.
	if err := svc.Follow(ctx, "alice", "carol"); err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	got, err = svc.Discover(ctx, "alice")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("discover after follows = %v, want empty", got)
	}
	if len(cache.invalidated) == 0 {
		t.Error("follow should invalidate the discover cache")
	}
}

func TestDiscover_HiddenUsers(t *testing.T) {
	svc, users, _, _ := newTestSocialService(t, "alice", "bob", "carol")
	ctx := context.Background()

	hidden := models.DefaultPrivacySettings()
	hidden.CanBeSeen = false
	users.UpsertPrivacy(ctx, users.users["carol"].ID, hidden)

	got, err := svc.Discover(ctx, "alice")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(got) != 1 || got[0] != "bob" {
		t.Errorf("discover = %v, want only bob", got)
	}
}

func TestSearch(t *testing.T) {
	svc, _, _, _ := newTestSocialService(t, "alice", "bobby", "bobbytables")
	ctx := context.Background()

	got, err := svc.Search(ctx, "alice", "bobby")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("search = %v, want both bobby users", got)
	}

	got, err = svc.Search(ctx, "alice", "alice")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("search should exclude the searcher, got %v", got)
	}
}

func TestEligibleForMessaging(t *testing.T) {
	svc, _, _, _ := newTestSocialService(t, "alice", "bob", "carol")
	ctx := context.Background()

	// alice and bob follow each other; carol only follows alice.
	svc.Follow(ctx, "alice", "bob")
	svc.Follow(ctx, "bob", "alice")
	svc.Follow(ctx, "carol", "alice")

	got, err := svc.EligibleForMessaging(ctx, "alice")
	if err != nil {
		t.Fatalf("EligibleForMessaging() error = %v", err)
	}
	if len(got) != 1 || got[0] != "bob" {
		t.Errorf("eligible = %v, want only the mutual follow", got)
	}
}
