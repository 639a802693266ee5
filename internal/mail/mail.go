// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

// Package mail sends password reset emails over SMTP. When SMTP is disabled
// a LogSender records the link instead so development setups still work.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	netmail "net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/splay/internal/config"
	"github.com/tomtom215/splay/internal/logging"
)

// Sender delivers password reset links.
type Sender interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}

// New returns an SMTPSender when SMTP is enabled, otherwise a LogSender.
func New(cfg config.SMTPConfig, appName string) Sender {
	if !cfg.Enabled {
		return LogSender{}
	}
	return NewSMTPSender(cfg, appName)
}

// SMTPSender sends mail through one SMTP relay, upgrading to TLS when the
// server offers STARTTLS.
type SMTPSender struct {
	cfg     config.SMTPConfig
	appName string
	now     func() time.Time
}

// NewSMTPSender creates an SMTP sender.
func NewSMTPSender(cfg config.SMTPConfig, appName string) *SMTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if appName == "" {
		appName = "Splay"
	}
	return &SMTPSender{cfg: cfg, appName: appName, now: time.Now}
}

// SendPasswordReset mails link to to.
func (s *SMTPSender) SendPasswordReset(ctx context.Context, to, link string) error {
	if _, err := netmail.ParseAddress(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	subject := "Reset your " + s.appName + " password"
	body := fmt.Sprintf("Hello,\r\n\r\n"+
		"Click the link below to reset your password.\r\n\r\n"+
		"%s\r\n\r\n"+
		"If you did not ask to reset your password you can ignore this email.\r\n\r\n"+
		"Thanks,\r\n%s team\r\n", link, s.appName)

	if err := s.send(ctx, to, s.buildMessage(to, subject, body)); err != nil {
		return err
	}
	logging.Ctx(ctx).Info().Str("to", logging.SanitizeEmail(to)).Msg("Password reset email sent")
	return nil
}

func (s *SMTPSender) buildMessage(to, subject, body string) string {
	from := (&netmail.Address{Name: s.cfg.FromName, Address: s.cfg.FromAddress}).String()

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&msg, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	fmt.Fprintf(&msg, "Message-ID: <%s@%s>\r\n", uuid.NewString(), s.cfg.Host)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return msg.String()
}

func (s *SMTPSender) send(ctx context.Context, to, msg string) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	dialer := &net.Dialer{Timeout: s.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() { _ = conn.Close() }()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(s.cfg.Timeout))
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }()

	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsConfig := &tls.Config{
			ServerName: s.cfg.Host,
			MinVersion: tls.VersionTLS12,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(s.cfg.FromAddress); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return client.Quit()
}

// LogSender logs reset links instead of mailing them.
type LogSender struct{}

// SendPasswordReset logs link at warn level.
func (LogSender) SendPasswordReset(ctx context.Context, to, link string) error {
	logging.Ctx(ctx).Warn().
		Str("to", logging.SanitizeEmail(to)).
		Str("link", link).
		Msg("SMTP disabled, password reset link not emailed")
	return nil
}
