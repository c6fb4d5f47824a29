package service

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// SMTPConfig holds outgoing mail settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends sign-in links over SMTP with PLAIN auth.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendMagicLink(ctx context.Context, to, link string) error {
	addr := net.JoinHostPort(m.cfg.Host, fmt.Sprint(m.cfg.Port))
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	msg := buildMagicLinkMail(m.cfg.From, to, link, time.Now())

	done := make(chan error, 1)
	go func() { done <- smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildMagicLinkMail(from, to, link string, now time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: Sign in to AI LABBEN\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString("Use the link below to sign in. It can be used once.\r\n\r\n")
	b.WriteString(link + "\r\n")
	return []byte(b.String())
}

// LogMailer writes links to the log instead of sending them.  Used in
// development when no SMTP host is configured.
type LogMailer struct{}

func (LogMailer) SendMagicLink(_ context.Context, to, link string) error {
	log.Info().Str("to", to).Str("link", link).Msg("magic link (not mailed)")
	return nil
}
