// Package recovery drives the two-path password recovery flow: an
// email-reset request that terminates immediately, or a security-question
// path that ends in a forced password change.
package recovery

import (
	"context"
	"errors"

	"github.com/parting-gifts/internal/auth"
	"github.com/parting-gifts/internal/client"
	"github.com/parting-gifts/internal/session"
)

// State is the flow position.
type State int

const (
	ChooseMethod State = iota
	EmailSent
	AwaitingSecurityAnswer
	Verified
	PasswordChangeRequired
)

// ErrNotVerified is returned when the password-change step is attempted
// without a verified username in the session.
var ErrNotVerified = errors.New("password change requires a verified user")

// ErrChecklistUnmet is returned when the new password fails the policy
// checklist or its confirmation.
var ErrChecklistUnmet = errors.New("password requirements not met")

// API is the slice of the REST client the recovery flow consumes.
type API interface {
	ResetPassword(ctx context.Context, email string) (string, error)
	GetSecurityInfo(ctx context.Context, email string) (*client.SecurityInfo, error)
	VerifySecurityAnswer(ctx context.Context, username, answer string) error
	ChangePassword(ctx context.Context, username, newPassword string) error
}

// Flow is the recovery state machine. It owns no goroutines; every
// transition is an explicit user action.
type Flow struct {
	api     API
	session *session.Session

	state    State
	username string // resolved via get-security-info
	question string
	status   string // server text shown verbatim
}

// NewFlow starts a recovery flow at ChooseMethod.
func NewFlow(api API, sess *session.Session) *Flow {
	return &Flow{api: api, session: sess, state: ChooseMethod}
}

// State returns the current flow position.
func (f *Flow) State() State {
	return f.state
}

// Status returns the server's last status text, verbatim.
func (f *Flow) Status() string {
	return f.status
}

// Question returns the account's stored security question once resolved.
func (f *Flow) Question() string {
	return f.question
}

// SubmitEmailReset requests an email-based reset. On success the flow
// terminates at EmailSent with the server's acknowledgement text.
func (f *Flow) SubmitEmailReset(ctx context.Context, email string) error {
	if f.state != ChooseMethod {
		return errors.New("email reset is only available from the method choice")
	}
	text, err := f.api.ResetPassword(ctx, email)
	if err != nil {
		f.status = err.Error()
		return err
	}
	f.state = EmailSent
	f.status = text
	return nil
}

// ChooseSecurityQuestion resolves the account's stored question from an
// email. The question is the server's, never chosen client-side.
func (f *Flow) ChooseSecurityQuestion(ctx context.Context, email string) error {
	if f.state != ChooseMethod {
		return errors.New("security path is only available from the method choice")
	}
	info, err := f.api.GetSecurityInfo(ctx, email)
	if err != nil {
		f.status = err.Error()
		return err
	}
	f.state = AwaitingSecurityAnswer
	f.username = info.Username
	f.question = info.Question
	return nil
}

// SubmitAnswer verifies the security answer. Success stores the username
// in the session and arms the one-shot verified banner.
func (f *Flow) SubmitAnswer(ctx context.Context, answer string) error {
	if f.state != AwaitingSecurityAnswer {
		return errors.New("no security question pending")
	}
	if err := f.api.VerifySecurityAnswer(ctx, f.username, answer); err != nil {
		f.status = err.Error()
		return err
	}
	f.session.SetVerified(f.username)
	f.state = Verified
	return nil
}

// RequirePasswordChange moves a verified flow onto the change-password
// step.
func (f *Flow) RequirePasswordChange() error {
	if f.state != Verified {
		return ErrNotVerified
	}
	f.state = PasswordChangeRequired
	return nil
}

// Checklist reports which password requirements the candidate meets.
// The confirm match is reported separately so the page can show a live
// per-requirement checklist.
type Checklist struct {
	auth.PasswordCheck
	ConfirmMatch bool
}

// OK reports whether the password may be submitted.
func (c Checklist) OK() bool {
	return c.PasswordCheck.OK() && c.ConfirmMatch
}

// Check evaluates a candidate password against the checklist.
func Check(password, confirm string) Checklist {
	return Checklist{
		PasswordCheck: auth.CheckPassword(password),
		ConfirmMatch:  password != "" && password == confirm,
	}
}

// SubmitNewPassword sets the new password for the verified user. It is
// unreachable without a session username and enforces the full checklist
// client-side before any network call.
func (f *Flow) SubmitNewPassword(ctx context.Context, password, confirm string) error {
	username := f.session.Username()
	if username == "" {
		return ErrNotVerified
	}
	if !Check(password, confirm).OK() {
		return ErrChecklistUnmet
	}
	if err := f.api.ChangePassword(ctx, username, password); err != nil {
		f.status = err.Error()
		return err
	}
	// a password change invalidates the session; the user logs in again
	f.session.Clear()
	f.state = ChooseMethod
	return nil
}
