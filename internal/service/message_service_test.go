package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/parting-gifts/internal/crypto"
	"github.com/parting-gifts/internal/models"
	"github.com/parting-gifts/internal/storage"
)

type mockMessageStore struct {
	users    *mockUserStore
	messages []*models.Message
	nextID   int
}

func newMockMessageStore(users *mockUserStore) *mockMessageStore {
	return &mockMessageStore{users: users}
}

func (m *mockMessageStore) Create(ctx context.Context, msg *models.Message) error {
	m.nextID++
	if msg.ID == "" {
		msg.ID = string(rune('a' + m.nextID))
	}
	msg.Timestamp = time.Now().Add(time.Duration(m.nextID) * time.Second)
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockMessageStore) InboxByReceiver(ctx context.Context, receiverID int) ([]storage.InboxRow, error) {
	var rows []storage.InboxRow
	for _, msg := range m.messages {
		if msg.ReceiverID != receiverID {
			continue
		}
		from := ""
		for name, u := range m.users.users {
			if u.ID == msg.SenderID {
				from = name
			}
		}
		rows = append(rows, storage.InboxRow{From: from, Content: msg.Content, Timestamp: msg.Timestamp})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Timestamp.After(rows[j].Timestamp) })
	return rows, nil
}

func (m *mockMessageStore) UnreadCount(ctx context.Context, receiverID int) (int, error) {
	count := 0
	for _, msg := range m.messages {
		if msg.ReceiverID == receiverID && !msg.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *mockMessageStore) MarkAllRead(ctx context.Context, receiverID int) error {
	for _, msg := range m.messages {
		if msg.ReceiverID == receiverID {
			msg.IsRead = true
		}
	}
	return nil
}

type mockUnreadCache struct {
	counts map[string]int
}

func newMockUnreadCache() *mockUnreadCache {
	return &mockUnreadCache{counts: make(map[string]int)}
}

func (m *mockUnreadCache) GetUnreadCount(ctx context.Context, username string) (int, error) {
	if count, ok := m.counts[username]; ok {
		return count, nil
	}
	return 0, storage.ErrCacheMiss
}

func (m *mockUnreadCache) SetUnreadCount(ctx context.Context, username string, count int) error {
	m.counts[username] = count
	return nil
}

func (m *mockUnreadCache) InvalidateUnreadCount(ctx context.Context, username string) error {
	delete(m.counts, username)
	return nil
}

func newTestMessageService(t *testing.T) (*MessageService, *mockUserStore, *mockMessageStore, *mockUnreadCache) {
	t.Helper()
	users := newMockUserStore()
	for _, name := range []string{"alice", "bob"} {
		if err := users.Create(context.Background(), &models.User{Username: name}); err != nil {
			t.Fatalf("seed user %s: %v", name, err)
		}
	}
	messages := newMockMessageStore(users)
	cache := newMockUnreadCache()

	cipher, err := crypto.NewCipher([]byte("0123456789abcdef"))
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}
	return NewMessageService(messages, users, cipher, cache), users, messages, cache
}

func TestSendAndInbox(t *testing.T) {
	svc, _, messages, _ := newTestMessageService(t)
	ctx := context.Background()

	if err := svc.Send(ctx, "alice", "bob", "see you soon"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := svc.Send(ctx, "alice", "bob", "second thoughts"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	// Stored content is ciphertext, not the plaintext.
	for _, msg := range messages.messages {
		if msg.Content == "see you soon" || msg.Content == "second thoughts" {
			t.Fatal("message stored in plaintext")
		}
	}

	inbox, err := svc.Inbox(ctx, "bob")
	if err != nil {
		t.Fatalf("Inbox() error = %v", err)
	}
	if len(inbox) != 2 {
		t.Fatalf("inbox size = %d, want 2", len(inbox))
	}
	// Newest first
	if inbox[0].Content != "second thoughts" || inbox[1].Content != "see you soon" {
		t.Errorf("inbox order wrong: %+v", inbox)
	}
	if inbox[0].From != "alice" {
		t.Errorf("from = %q, want alice", inbox[0].From)
	}
	if _, err := time.Parse(time.RFC3339, inbox[0].Timestamp); err != nil {
		t.Errorf("timestamp %q is not RFC3339: %v", inbox[0].Timestamp, err)
	}
}

func TestInbox_UndecryptableContent(t *testing.T) {
	svc, users, messages, _ := newTestMessageService(t)
	ctx := context.Background()

	messages.messages = append(messages.messages, &models.Message{
		SenderID:   users.users["alice"].ID,
		ReceiverID: users.users["bob"].ID,
		Content:    "not-a-ciphertext",
		Timestamp:  time.Now(),
	})

	inbox, err := svc.Inbox(ctx, "bob")
	if err != nil {
		t.Fatalf("Inbox() error = %v", err)
	}
	if len(inbox) != 1 {
		t.Fatalf("inbox size = %d, want 1", len(inbox))
	}
	if inbox[0].Content != "[Could not decrypt]" {
		t.Errorf("content = %q, want placeholder", inbox[0].Content)
	}
}

func TestSend_PrivacyRefused(t *testing.T) {
	svc, users, _, _ := newTestMessageService(t)
	ctx := context.Background()

	closed := models.DefaultPrivacySettings()
	closed.CanReceiveMessages = false
	users.UpsertPrivacy(ctx, users.users["bob"].ID, closed)

	if err := svc.Send(ctx, "alice", "bob", "hello?"); err != ErrMessagingRefused {
		t.Errorf("Send() error = %v, want ErrMessagingRefused", err)
	}

	inbox, err := svc.Inbox(ctx, "bob")
	if err != nil {
		t.Fatalf("Inbox() error = %v", err)
	}
	if len(inbox) != 0 {
		t.Errorf("refused message must not be stored, inbox = %+v", inbox)
	}
}

func TestSend_UnknownUsers(t *testing.T) {
	svc, _, _, _ := newTestMessageService(t)
	ctx := context.Background()

	if err := svc.Send(ctx, "nobody", "bob", "hi"); err != ErrSenderNotFound {
		t.Errorf("unknown sender: error = %v, want ErrSenderNotFound", err)
	}
	if err := svc.Send(ctx, "alice", "nobody", "hi"); err != ErrReceiverNotFound {
		t.Errorf("unknown receiver: error = %v, want ErrReceiverNotFound", err)
	}
}

func TestUnreadCount(t *testing.T) {
	svc, _, _, cache := newTestMessageService(t)
	ctx := context.Background()

	count, err := svc.UnreadCount(ctx, "bob")
	if err != nil {
		t.Fatalf("UnreadCount() error = %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}

	if err := svc.Send(ctx, "alice", "bob", "ping"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	// The send invalidated the cached zero, so the fresh count is seen.
	count, err = svc.UnreadCount(ctx, "bob")
	if err != nil {
		t.Fatalf("UnreadCount() error = %v", err)
	}
	if count != 1 {
		t.Errorf("count after send = %d, want 1", count)
	}

	// Fetching the inbox marks everything read.
	if _, err := svc.Inbox(ctx, "bob"); err != nil {
		t.Fatalf("Inbox() error = %v", err)
	}
	count, err = svc.UnreadCount(ctx, "bob")
	if err != nil {
		t.Fatalf("UnreadCount() error = %v", err)
	}
	if count != 0 {
		t.Errorf("count after inbox fetch = %d, want 0", count)
	}
	if _, ok := cache.counts["bob"]; !ok {
		t.Error("count should be re-cached after the read-through")
	}
}
