// Package session holds the per-login client state. Nothing here is
// global; each UI surface receives a *Session explicitly.
package session

import "sync"

// Session is the state created at login and discarded at logout or after
// a password change.
type Session struct {
	mu sync.RWMutex

	username    string
	token       string
	forceChange bool

	// one-shot flag armed after a successful security-answer
	// verification, consumed by the next page exactly once
	securityVerified bool

	// scratch state carried between the upload and scheduling views
	currentGiftID  int
	receiverEmails []string
}

// New returns an empty, logged-out session.
func New() *Session {
	return &Session{}
}

// Start records a successful login.
func (s *Session) Start(username, token string, forceChange bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = username
	s.token = token
	s.forceChange = forceChange
}

// Clear resets the session to logged-out state.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = ""
	s.token = ""
	s.forceChange = false
	s.securityVerified = false
	s.currentGiftID = 0
	s.receiverEmails = nil
}

// Username returns the logged-in username, empty when logged out.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// Token returns the session token.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Active reports whether a user is logged in.
func (s *Session) Active() bool {
	return s.Username() != ""
}

// ForceChange reports whether the server demanded a password change at
// login.
func (s *Session) ForceChange() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.forceChange
}

// SetVerified stores the username resolved during security-question
// recovery and arms the one-shot verified banner.
func (s *Session) SetVerified(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = username
	s.securityVerified = true
}

// ConsumeVerifiedBanner reports whether the verified banner should show,
// clearing the flag so it shows at most once.
func (s *Session) ConsumeVerifiedBanner() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	armed := s.securityVerified
	s.securityVerified = false
	return armed
}

// SetCurrentGift remembers the gift id being scheduled after an upload.
func (s *Session) SetCurrentGift(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentGiftID = id
}

// CurrentGift returns the gift id stored by SetCurrentGift, 0 when none.
func (s *Session) CurrentGift() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentGiftID
}

// SetReceiverEmails caches the receiver list for the scheduling view.
func (s *Session) SetReceiverEmails(emails []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receiverEmails = append([]string(nil), emails...)
}

// ReceiverEmails returns the cached receiver list, never nil.
func (s *Session) ReceiverEmails() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.receiverEmails == nil {
		return []string{}
	}
	return append([]string(nil), s.receiverEmails...)
}
