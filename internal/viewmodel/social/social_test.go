package social

import (
	"context"
	"errors"
	"testing"
)

type mockAPI struct {
	followers     []string
	following     []string
	discover      []string
	searchResults []string
	searchErr     error

	followersCalls int
	followingCalls int
	discoverCalls  int
	followed       []string
	unfollowed     []string
}

func (m *mockAPI) Followers(ctx context.Context, username string) ([]string, error) {
	m.followersCalls++
	return m.followers, nil
}

func (m *mockAPI) Following(ctx context.Context, username string) ([]string, error) {
	m.followingCalls++
	return m.following, nil
}

func (m *mockAPI) Discover(ctx context.Context, username string) ([]string, error) {
	m.discoverCalls++
	return m.discover, nil
}

func (m *mockAPI) SearchUsers(ctx context.Context, username, query string) ([]string, error) {
	return m.searchResults, m.searchErr
}

func (m *mockAPI) Follow(ctx context.Context, username, friendUsername string) error {
	m.followed = append(m.followed, friendUsername)
	m.following = append(m.following, friendUsername)
	return nil
}

func (m *mockAPI) Unfollow(ctx context.Context, username, friendUsername string) error {
	m.unfollowed = append(m.unfollowed, friendUsername)
	for i, u := range m.following {
		if u == friendUsername {
			m.following = append(m.following[:i], m.following[i+1:]...)
			break
		}
	}
	return nil
}

// TestLoad_NeverNil tests that nil server lists become empty slices
func TestLoad_NeverNil(t *testing.T) {
	m := New(&mockAPI{}, "alice", nil)
	m.Load(context.Background())

	for name, list := range map[string][]string{
		"followers": m.Followers(),
		"following": m.Following(),
		"discover":  m.Discover(),
		"results":   m.SearchResults(),
	} {
		if list == nil {
			t.Errorf("%s must never be nil", name)
		}
	}
}

// TestFollow_RefetchesFollowingAndDiscover tests the targeted refresh
func TestFollow_RefetchesFollowingAndDiscover(t *testing.T) {
	api := &mockAPI{discover: []string{"bob", "carol"}}
	m := New(api, "alice", nil)
	m.Load(context.Background())

	followersBefore := api.followersCalls

	if err := m.Follow(context.Background(), "bob"); err != nil {
		t.Fatalf("Follow failed: %v", err)
	}
	if !m.IsFollowing("bob") {
		t.Error("bob should appear in following after refetch")
	}
	if api.followersCalls != followersBefore {
		t.Error("Follow must not refetch followers")
	}
	if api.followingCalls != 2 || api.discoverCalls != 2 {
		t.Errorf("Expected following/discover refetch, got %d/%d calls",
			api.followingCalls, api.discoverCalls)
	}
}

// TestUnfollow_Idempotent tests unfollowing a user never followed
func TestUnfollow_Idempotent(t *testing.T) {
	api := &mockAPI{}
	m := New(api, "alice", nil)
	m.Load(context.Background())

	if err := m.Unfollow(context.Background(), "stranger"); err != nil {
		t.Fatalf("Unfollowing a non-followed user must not error: %v", err)
	}
	if m.IsFollowing("stranger") {
		t.Error("stranger must not appear in following")
	}
}

// TestIsFollowing tests the pure membership check
func TestIsFollowing(t *testing.T) {
	api := &mockAPI{following: []string{"bob"}}
	m := New(api, "alice", nil)
	m.Load(context.Background())

	if !m.IsFollowing("bob") {
		t.Error("Expected bob to be followed")
	}
	if m.IsFollowing("carol") {
		t.Error("Expected carol not to be followed")
	}
}

// TestSearch tests result handling including failure
func TestSearch(t *testing.T) {
	api := &mockAPI{searchResults: []string{"bob", "bobby"}}
	m := New(api, "alice", nil)

	if err := m.Search(context.Background(), "bob"); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(m.SearchResults()) != 2 {
		t.Errorf("Expected 2 results, got %d", len(m.SearchResults()))
	}

	api.searchErr = errors.New("boom")
	if err := m.Search(context.Background(), "bob"); err == nil {
		t.Fatal("Expected search error to surface")
	}
	if got := m.SearchResults(); got == nil || len(got) != 0 {
		t.Errorf("Failed search must clear results to empty, got %v", got)
	}
}
