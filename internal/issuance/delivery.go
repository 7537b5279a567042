// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package issuance

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	netmail "net/mail"

	"github.com/google/uuid"

	"eventcert/internal/apperr"
	"eventcert/internal/mail"
	"eventcert/internal/models"
	"eventcert/internal/storage"
)

var certificateEmail = template.Must(template.New("certificate").Parse(
	`<p>Hi {{.Name}},</p>
<p>Your certificate for <strong>{{.Event}}</strong> is ready.</p>
<p><a href="{{.Link}}">Download your certificate</a></p>
<p>The link is valid for 7 days.</p>`))

// Delivery emails issued certificates to their recipients.
type Delivery struct {
	workflow *Workflow
	events   EventReader
	objects  ObjectStore
	sender   mail.Sender
}

// NewDelivery creates a Delivery.
func NewDelivery(workflow *Workflow, events EventReader, objects ObjectStore, sender mail.Sender) *Delivery {
	return &Delivery{workflow: workflow, events: events, objects: objects, sender: sender}
}

// DownloadLink returns a time-limited link to a certificate's artifact.
func (d *Delivery) DownloadLink(ctx context.Context, cert *models.IssuedCertificate) (string, error) {
	if cert.ArtifactURL == nil {
		return "", &apperr.InvalidStateError{Entity: "certificate", From: string(cert.Status), To: "download"}
	}
	bucket, key, ok := d.objects.ExtractS3Key(*cert.ArtifactURL)
	if !ok {
		// Artifacts hosted elsewhere are already directly reachable.
		return *cert.ArtifactURL, nil
	}
	link, err := d.objects.PresignedURL(ctx, bucket, key, storage.MaxPresignExpiry)
	if err != nil {
		return "", fmt.Errorf("presign certificate: %w: %w", apperr.ErrTransient, err)
	}
	return link, nil
}

// Send emails the recipient a download link and marks the record sent.
// If the mail provider refuses the message the record stays issued.
func (d *Delivery) Send(ctx context.Context, actor Actor, certID uuid.UUID) (*models.IssuedCertificate, error) {
	cert, err := d.workflow.Get(ctx, certID)
	if err != nil {
		return nil, err
	}
	if err := allowed(cert, models.CertificateSent); err != nil {
		return nil, err
	}

	event, err := d.events.FindByID(ctx, cert.EventID)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if event == nil {
		return nil, apperr.NotFound("event", cert.EventID)
	}

	link, err := d.DownloadLink(ctx, cert)
	if err != nil {
		return nil, err
	}

	var html bytes.Buffer
	if err := certificateEmail.Execute(&html, map[string]string{
		"Name":  cert.RecipientName,
		"Event": event.Title,
		"Link":  link,
	}); err != nil {
		return nil, fmt.Errorf("render certificate email: %w", err)
	}

	msg := mail.Message{
		To:      netmail.Address{Name: cert.RecipientName, Address: cert.RecipientEmail},
		Subject: "Your certificate for " + event.Title,
		Text: fmt.Sprintf("Hi %s,\n\nYour certificate for %s is ready: %s\n\nThe link is valid for 7 days.\n",
			cert.RecipientName, event.Title, link),
		HTML: html.String(),
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		return nil, fmt.Errorf("deliver certificate: %w: %w", apperr.ErrTransient, err)
	}

	return d.workflow.MarkSent(ctx, actor, cert.ID)
}
