// Package mail sends the reset, inactivity-check and gift delivery emails.
package mail

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/parting-gifts/internal/config"
)

// Sender is the mail surface the services depend on. Tests substitute a fake.
type Sender interface {
	SendPlain(to, subject, body string) error
	SendGift(to, fileName string, fileData []byte, body string) error
}

// Mailer sends email over SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	sender string
}

// NewMailer creates a Mailer from SMTP configuration.
func NewMailer(cfg *config.MailConfig) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Sender, cfg.Password),
		sender: cfg.Sender,
	}
}

// SendPlain sends a plain-text email.
func (m *Mailer) SendPlain(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SendGift sends a gift email with the stored file attached. When the gift
// has no file, the body alone is sent.
func (m *Mailer) SendGift(to, fileName string, fileData []byte, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your Parting Gift")
	msg.SetBody("text/plain", body)

	if fileName != "" && len(fileData) > 0 {
		msg.Attach(fileName, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(fileData)
			return err
		}))
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send gift email: %w", err)
	}
	return nil
}

// SplitRecipients parses a comma-separated recipient list, dropping empties.
func SplitRecipients(receivers string) []string {
	var out []string
	for _, part := range strings.Split(receivers, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
