// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ExamReg Contributors

package mail

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleMailer_Send(t *testing.T) {
	var buf bytes.Buffer
	mailer := NewConsoleMailerTo(&buf)

	err := mailer.Send(context.Background(), "8001234567@student.csn.edu", "Reset your ExamReg password", "Open this link: http://localhost:8080/reset/abc")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "=== EMAIL (console) ===")
	assert.Contains(t, out, "To: 8001234567@student.csn.edu")
	assert.Contains(t, out, "Subject: Reset your ExamReg password")
	assert.Contains(t, out, "http://localhost:8080/reset/abc")
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("noreply@csn.edu", "8001234567@student.csn.edu", "Hello", "Body text"))

	assert.True(t, strings.HasPrefix(msg, "From: noreply@csn.edu\r\n"))
	assert.Contains(t, msg, "To: 8001234567@student.csn.edu\r\n")
	assert.Contains(t, msg, "Subject: Hello\r\n")
	assert.Contains(t, msg, "Content-Type: text/plain; charset=utf-8\r\n")

	headerEnd := strings.Index(msg, "\r\n\r\n")
	require.Positive(t, headerEnd)
	assert.Equal(t, "Body text", msg[headerEnd+4:])
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	mailer := NewSMTPMailer("smtp.csn.edu", 587, "user", "pass", "noreply@csn.edu")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := mailer.Send(ctx, "8001234567@student.csn.edu", "Hello", "Body")
	assert.Error(t, err)
}
