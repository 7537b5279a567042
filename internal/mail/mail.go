// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package mail sends outbound email. SendGrid is used in production; the
// console sender logs messages instead and is the development default.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"sync"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

// ErrNoRecipient is returned for a message without a To address.
var ErrNoRecipient = errors.New("mail: message has no recipient")

// Message is a single outbound email.
type Message struct {
	To      mail.Address
	Subject string
	Text    string
	HTML    string
}

// Sender delivers messages. Send returns only after the provider accepted
// the message (or refused it).
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendGrid delivers mail through the SendGrid v3 API.
type SendGrid struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
}

// NewSendGrid creates a SendGrid sender.
func NewSendGrid(key, fromName, fromAddress string) *SendGrid {
	return &SendGrid{
		key:        key,
		from:       sgmail.NewEmail(fromName, fromAddress),
		subjPrefix: "[" + fromName + "] ",
	}
}

func (s *SendGrid) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = s.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.To.Name, msg.To.Address))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}
	return m
}

// Send posts the message to SendGrid.
func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if msg.To.Address == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	req := sendgrid.GetRequest(s.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid send: status %d: %s", res.StatusCode, res.Body)
	}
	slog.Info("mail sent", "to", msg.To.Address, "subject", msg.Subject, "status", res.StatusCode)
	return nil
}

// Console logs messages instead of sending them and keeps a copy of each.
type Console struct {
	from mail.Address

	mu   sync.Mutex
	sent []Message
}

// NewConsole creates a console sender.
func NewConsole(fromName, fromAddress string) *Console {
	return &Console{from: mail.Address{Name: fromName, Address: fromAddress}}
}

// Send logs the message.
func (c *Console) Send(ctx context.Context, msg Message) error {
	if msg.To.Address == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	slog.Info("mail (console)",
		"from", c.from.String(),
		"to", msg.To.String(),
		"subject", msg.Subject,
		"text", msg.Text,
	)
	c.mu.Lock()
	c.sent = append(c.sent, msg)
	c.mu.Unlock()
	return nil
}

// Sent returns a copy of every message sent so far.
func (c *Console) Sent() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.sent...)
}
