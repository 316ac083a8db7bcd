// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ExamReg Contributors

// Package mail provides outbound message delivery for reset links:
// an authenticated SMTP relay for real deployments and a console sink
// for development.
package mail

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"strings"

	"github.com/samber/oops"
)

// Mailer delivers a plain-text message to a single recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer relays messages through an authenticated SMTP server.
// smtp.SendMail negotiates STARTTLS when the server advertises it.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPMailer creates an SMTPMailer. All fields are required; the
// caller is expected to have validated the configuration.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, username: username, password: password, from: from}
}

// Send relays the message. Failures are returned to the caller, which
// must treat them as non-fatal: the reset-request flow responds the
// same way regardless of delivery outcome.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("MAIL_CANCELLED").Wrap(err)
	}

	msg := buildMessage(m.from, to, subject, body)
	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))
	auth := smtp.PlainAuth("", m.username, m.password, m.host)

	if err := smtp.SendMail(addr, auth, m.from, []string{to}, msg); err != nil {
		return oops.Code("MAIL_DELIVERY_FAILED").
			With("host", m.host).
			With("to", to).
			Wrap(err)
	}
	return nil
}

// buildMessage assembles a minimal RFC 5322 message.
func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// ConsoleMailer writes messages to a local sink instead of sending
// them, so reset links can be inspected during development.
type ConsoleMailer struct {
	out io.Writer
}

// NewConsoleMailer creates a ConsoleMailer writing to stdout.
func NewConsoleMailer() *ConsoleMailer {
	return &ConsoleMailer{out: os.Stdout}
}

// NewConsoleMailerTo creates a ConsoleMailer writing to w.
func NewConsoleMailerTo(w io.Writer) *ConsoleMailer {
	return &ConsoleMailer{out: w}
}

// Send writes the framed message to the sink.
func (m *ConsoleMailer) Send(_ context.Context, to, subject, body string) error {
	_, err := fmt.Fprintf(m.out, "=== EMAIL (console) ===\nTo: %s\nSubject: %s\n%s\n=======================\n", to, subject, body)
	if err != nil {
		return oops.Code("MAIL_CONSOLE_WRITE_FAILED").Wrap(err)
	}
	return nil
}

// Compile-time interface checks.
var (
	_ Mailer = (*SMTPMailer)(nil)
	_ Mailer = (*ConsoleMailer)(nil)
)
