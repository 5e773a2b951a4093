// Package mailer is the outbound delivery collaborator. Report code only
// sees the Mailer interface; the SMTP transport lives here and is never
// imported by the compute layer.
package mailer

import (
	"errors"
	"fmt"
	"net/smtp"
	"os"
	"strings"
)

type Mailer interface {
	Send(recipient string, subject string, body string) error
}

// SMTPMailer sends through a plain SMTP relay. Credentials are optional:
// with no username configured the dial is unauthenticated (local relay).
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// NewSMTPMailerFromEnv builds the mailer from SMTP_* env vars. Returns an
// error naming the missing vars so the send tool can fail loudly instead
// of dropping mail silently.
func NewSMTPMailerFromEnv() (*SMTPMailer, error) {
	m := &SMTPMailer{
		host:     strings.TrimSpace(os.Getenv("SMTP_HOST")),
		port:     strings.TrimSpace(os.Getenv("SMTP_PORT")),
		username: strings.TrimSpace(os.Getenv("SMTP_USERNAME")),
		password: strings.TrimSpace(os.Getenv("SMTP_PASSWORD")),
		from:     strings.TrimSpace(os.Getenv("SMTP_FROM")),
	}
	if m.port == "" {
		m.port = "587"
	}

	var missing []string
	if m.host == "" {
		missing = append(missing, "SMTP_HOST")
	}
	if m.from == "" {
		missing = append(missing, "SMTP_FROM")
	}
	if len(missing) > 0 {
		return nil, errors.New("missing required env vars: " + strings.Join(missing, ", "))
	}
	return m, nil
}

func (m *SMTPMailer) Send(recipient string, subject string, body string) error {
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + recipient,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		body,
	}, "\r\n")

	addr := m.host + ":" + m.port
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	if err := smtp.SendMail(addr, auth, m.from, []string{recipient}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", recipient, err)
	}
	return nil
}
