// Package notify delivers outbound notifications. Email is the only
// channel workflows dispatch today.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"sync"

	"github.com/borgframework/borg/internal/borg"
)

// SMTPSettings carries the server credentials a Mailer sends through.
type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends plain-text email over SMTP. Settings may be updated at
// runtime through the email settings API.
type Mailer struct {
	mu       sync.RWMutex
	settings SMTPSettings
	// send is swappable for tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailer(settings SMTPSettings) *Mailer {
	return &Mailer{settings: normalize(settings), send: smtp.SendMail}
}

func normalize(settings SMTPSettings) SMTPSettings {
	if settings.Port == 0 {
		settings.Port = 587
	}
	if settings.From == "" {
		settings.From = settings.Username
	}
	return settings
}

// Settings returns the current SMTP settings.
func (m *Mailer) Settings() SMTPSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Configure replaces the SMTP settings. Subsequent sends use the new
// server and credentials.
func (m *Mailer) Configure(settings SMTPSettings) {
	m.mu.Lock()
	m.settings = normalize(settings)
	m.mu.Unlock()
}

// Send delivers one message. Recipients are comma-separated in to.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	settings := m.Settings()
	if settings.Host == "" || settings.From == "" {
		return borg.NewAdapterError(borg.ErrInvalidConfiguration, "smtp host or sender address not configured", nil)
	}
	recipients := splitRecipients(to)
	if len(recipients) == 0 {
		return borg.NewAdapterError(borg.ErrInvalidConfiguration, "email has no recipients", nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", settings.Host, settings.Port)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		settings.From, strings.Join(recipients, ", "), subject, body)

	var auth smtp.Auth
	if settings.Password != "" {
		auth = smtp.PlainAuth("", settings.Username, settings.Password, settings.Host)
	}

	if err := m.send(addr, auth, settings.From, recipients, []byte(msg)); err != nil {
		return borg.NewAdapterError(borg.ErrProviderUnavailable, "smtp send failed", err)
	}
	return nil
}

func splitRecipients(to string) []string {
	var out []string
	for _, part := range strings.Split(to, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
