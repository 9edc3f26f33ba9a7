package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/parting-gifts/internal/client"
)

type mockAPI struct {
	gifts       []client.Gift
	giftsErr    error
	count       int
	countErr    error
	receivers   []string
	pendingN    int
	stopErr     error
	stopCalls   []int
}

func (m *mockAPI) GiftCount(ctx context.Context, username string) (int, error) {
	return m.count, m.countErr
}

func (m *mockAPI) Gifts(ctx context.Context, username string) ([]client.Gift, error) {
	return m.gifts, m.giftsErr
}

func (m *mockAPI) Receivers(ctx context.Context, username string) ([]string, error) {
	return m.receivers, nil
}

func (m *mockAPI) PendingCount(ctx context.Context, username string) (int, error) {
	return m.pendingN, nil
}

func (m *mockAPI) StopPendingGift(ctx context.Context, giftID int) error {
	m.stopCalls = append(m.stopCalls, giftID)
	return m.stopErr
}

// TestLoad_Partition tests the pending/delivered split
func TestLoad_Partition(t *testing.T) {
	api := &mockAPI{
		count: 3,
		gifts: []client.Gift{
			{ID: 1, FileName: "a.jpg", Pending: true},
			{ID: 2, FileName: "b.jpg", Pending: false},
			{ID: 3, CustomMessage: "hi", Pending: true},
		},
		receivers: []string{"mom@example.com"},
		pendingN:  2,
	}
	m := New(api, "alice", nil)
	m.Load(context.Background())

	if m.Count() != 3 {
		t.Errorf("Expected count 3, got %d", m.Count())
	}
	if len(m.Pending()) != 2 {
		t.Errorf("Expected 2 pending gifts, got %d", len(m.Pending()))
	}
	if len(m.Delivered()) != 1 {
		t.Errorf("Expected 1 delivered gift, got %d", len(m.Delivered()))
	}
	if m.PendingCount() != 2 {
		t.Errorf("Expected pending count 2, got %d", m.PendingCount())
	}
}

// TestLoad_PartialFailure tests that one failed fetch does not block the rest
func TestLoad_PartialFailure(t *testing.T) {
	api := &mockAPI{
		countErr: errors.New("boom"),
		gifts:    []client.Gift{{ID: 1, Pending: false}},
		pendingN: 1,
	}
	m := New(api, "alice", nil)
	m.Load(context.Background())

	if m.Count() != 0 {
		t.Errorf("Expected fallback count 0, got %d", m.Count())
	}
	if len(m.Delivered()) != 1 {
		t.Errorf("Gift list should still load, got %d delivered", len(m.Delivered()))
	}
	if got := m.Receivers(); got == nil {
		t.Error("Receivers should never be nil")
	}
}

// TestUnwrap_SingleOpening tests the one-at-a-time opening invariant
func TestUnwrap_SingleOpening(t *testing.T) {
	m := New(&mockAPI{}, "alice", nil)

	if !m.BeginUnwrap(1) {
		t.Fatal("First unwrap should start")
	}
	if m.BeginUnwrap(2) {
		t.Error("Second unwrap must be refused while one is opening")
	}
	if m.Opening() != 1 {
		t.Errorf("Expected opening id 1, got %d", m.Opening())
	}

	m.CompleteUnwrap()
	if m.Opening() != 0 {
		t.Error("Completing should clear the opening pointer")
	}
	if m.Selected() != 1 {
		t.Errorf("Completing should select the gift, got %d", m.Selected())
	}
	if !m.IsUnwrapped(1) {
		t.Error("Gift should be marked unwrapped")
	}

	if m.BeginUnwrap(1) {
		t.Error("An already-open gift cannot be unwrapped again")
	}
	if !m.BeginUnwrap(2) {
		t.Error("A different gift may now be unwrapped")
	}
}

// TestUnwrap_ResetOnLoad tests that reloading clears unwrap state
func TestUnwrap_ResetOnLoad(t *testing.T) {
	api := &mockAPI{gifts: []client.Gift{{ID: 1, Pending: false}}}
	m := New(api, "alice", nil)
	m.Load(context.Background())

	m.BeginUnwrap(1)
	m.CompleteUnwrap()
	if !m.IsUnwrapped(1) {
		t.Fatal("Gift should be unwrapped before reload")
	}

	m.Load(context.Background())
	if m.IsUnwrapped(1) {
		t.Error("Unwrap state must reset on every load")
	}
	if m.Selected() != 0 || m.Opening() != 0 {
		t.Error("Selection and opening pointer must reset on load")
	}
}

// TestStopPendingGift tests cancellation including id validation
func TestStopPendingGift(t *testing.T) {
	api := &mockAPI{
		gifts: []client.Gift{{ID: 5, Pending: true}},
	}
	m := New(api, "alice", nil)
	m.Load(context.Background())

	// malformed ids never reach the network
	for _, raw := range []string{"", "abc", "NaN", "-1", "0"} {
		if err := m.StopPendingGift(context.Background(), raw); !errors.Is(err, ErrInvalidGiftID) {
			t.Errorf("Expected ErrInvalidGiftID for %q, got %v", raw, err)
		}
	}
	if len(api.stopCalls) != 0 {
		t.Fatalf("Invalid ids must not issue network calls, got %v", api.stopCalls)
	}

	if err := m.StopPendingGift(context.Background(), "5"); err != nil {
		t.Fatalf("StopPendingGift failed: %v", err)
	}
	if len(api.stopCalls) != 1 || api.stopCalls[0] != 5 {
		t.Errorf("Expected one stop call for 5, got %v", api.stopCalls)
	}
	if len(m.Pending()) != 0 {
		t.Error("Cancelled gift should leave the pending list")
	}
}

// TestStopPendingGift_ServerError tests that failures keep local state
func TestStopPendingGift_ServerError(t *testing.T) {
	api := &mockAPI{
		gifts:   []client.Gift{{ID: 5, Pending: true}},
		stopErr: &client.ServerError{StatusCode: 404, Message: "Gift not found"},
	}
	m := New(api, "alice", nil)
	m.Load(context.Background())

	err := m.StopPendingGift(context.Background(), "5")
	if err == nil || err.Error() != "Gift not found" {
		t.Fatalf("Expected server error text verbatim, got %v", err)
	}
	if len(m.Pending()) != 1 {
		t.Error("Failed cancellation must not mutate local state")
	}
}
