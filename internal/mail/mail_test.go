// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package mail

import (
	"context"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleRecordsMessages(t *testing.T) {
	c := NewConsole("EventCert", "noreply@eventcert.local")
	msg := Message{
		To:      mail.Address{Name: "Ana", Address: "ana@college.edu"},
		Subject: "Your certificate",
		Text:    "Download it here",
	}
	require.NoError(t, c.Send(context.Background(), msg))
	sent := c.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "ana@college.edu", sent[0].To.Address)
}

func TestSendersRejectMissingRecipient(t *testing.T) {
	senders := map[string]Sender{
		"console":  NewConsole("EventCert", "noreply@eventcert.local"),
		"sendgrid": NewSendGrid("key", "EventCert", "noreply@eventcert.local"),
	}
	for name, s := range senders {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, s.Send(context.Background(), Message{Subject: "x"}), ErrNoRecipient)
		})
	}
}

func TestConsoleHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewConsole("EventCert", "noreply@eventcert.local")
	err := c.Send(ctx, Message{To: mail.Address{Address: "a@b.c"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, c.Sent())
}

func TestSendGridPrepare(t *testing.T) {
	s := NewSendGrid("key", "EventCert", "noreply@eventcert.local")
	m := s.prepare(Message{
		To:      mail.Address{Name: "Ana", Address: "ana@college.edu"},
		Subject: "Your certificate",
		Text:    "plain",
		HTML:    "<p>html</p>",
	})
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[EventCert] Your certificate", m.Personalizations[0].Subject)
	require.Len(t, m.Personalizations[0].To, 1)
	assert.Equal(t, "ana@college.edu", m.Personalizations[0].To[0].Address)
	assert.Len(t, m.Content, 2)
	assert.Equal(t, "noreply@eventcert.local", m.From.Address)
}
