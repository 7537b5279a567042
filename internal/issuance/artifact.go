// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package issuance

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"eventcert/internal/apperr"
	"eventcert/internal/canvas"
	"eventcert/internal/imaging"
	"eventcert/internal/models"
	"eventcert/internal/storage"
)

// EventReader loads events by id.
type EventReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// Renderer draws a scene.
type Renderer interface {
	Render(ctx context.Context, scene *canvas.Scene) (*image.RGBA, error)
}

// ObjectStore is the part of object storage the generator and delivery use.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader, size int64) error
	PrivateBucket() string
	PrivateURL(key string) string
	ExtractS3Key(rawURL string) (bucket, key string, ok bool)
	PresignedURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
	Delete(ctx context.Context, bucket, key string) error
}

// Generator renders pending certificates and marks them issued.
type Generator struct {
	workflow  *Workflow
	templates TemplateReader
	events    EventReader
	renderer  Renderer
	objects   ObjectStore
}

// NewGenerator creates a Generator.
func NewGenerator(workflow *Workflow, templates TemplateReader, events EventReader, renderer Renderer, objects ObjectStore) *Generator {
	return &Generator{
		workflow:  workflow,
		templates: templates,
		events:    events,
		renderer:  renderer,
		objects:   objects,
	}
}

// Generate renders the certificate for its recipient, uploads the PNG to
// the private bucket and marks the record issued.
func (g *Generator) Generate(ctx context.Context, actor Actor, certID uuid.UUID) (*models.IssuedCertificate, error) {
	cert, err := g.workflow.Get(ctx, certID)
	if err != nil {
		return nil, err
	}
	// Fail before the expensive part when the record cannot move.
	if err := allowed(cert, models.CertificateIssued); err != nil {
		return nil, err
	}

	tmpl, err := g.templates.FindByID(ctx, cert.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	if tmpl == nil {
		return nil, apperr.NotFound("template", cert.TemplateID)
	}
	event, err := g.events.FindByID(ctx, cert.EventID)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if event == nil {
		return nil, apperr.NotFound("event", cert.EventID)
	}

	elems := Personalize(tmpl.Elements, Fields{
		Name:  cert.RecipientName,
		Email: cert.RecipientEmail,
		Event: event.Title,
		Date:  event.Date,
	})
	scene, warnings := canvas.Deserialize(tmpl.Background(), elems)
	if len(warnings) > 0 {
		slog.Warn("certificate template has skipped elements", "template_id", tmpl.ID, "count", len(warnings))
	}

	img, err := g.renderer.Render(ctx, scene)
	if err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	out, err := imaging.Encode(img)
	if err != nil {
		return nil, err
	}

	key := storage.ArtifactKey(cert.EventID, cert.ID)
	if err := g.objects.Upload(ctx, g.objects.PrivateBucket(), key, out.ContentType, bytes.NewReader(out.Data), int64(len(out.Data))); err != nil {
		return nil, fmt.Errorf("upload certificate: %w: %w", apperr.ErrTransient, err)
	}

	return g.workflow.MarkIssued(ctx, actor, cert.ID, g.objects.PrivateURL(key))
}

// Revoke deletes the certificate record and then its stored artifact.
// Artifacts linked from outside our buckets are left alone, and a failed
// object delete only logs since the record is already gone.
func (g *Generator) Revoke(ctx context.Context, actor Actor, certID uuid.UUID) error {
	cert, err := g.workflow.Get(ctx, certID)
	if err != nil {
		return err
	}
	if err := g.workflow.Revoke(ctx, actor, certID); err != nil {
		return err
	}
	if cert.ArtifactURL == nil {
		return nil
	}
	bucket, key, ok := g.objects.ExtractS3Key(*cert.ArtifactURL)
	if !ok {
		return nil
	}
	if err := g.objects.Delete(ctx, bucket, key); err != nil {
		slog.Warn("failed to delete revoked certificate artifact", "certificate_id", certID, "key", key, "error", err)
	}
	return nil
}

// Fields are the values substituted into text elements.
type Fields struct {
	Name  string
	Email string
	Event string
	Date  string
}

// Personalize returns a copy of elems with {{name}}, {{email}}, {{event}}
// and {{date}} replaced in every text element.
func Personalize(elems []models.TemplateElement, f Fields) []models.TemplateElement {
	r := strings.NewReplacer(
		"{{name}}", f.Name,
		"{{email}}", f.Email,
		"{{event}}", f.Event,
		"{{date}}", f.Date,
	)
	out := models.CloneElements(elems)
	for i := range out {
		if out[i].Kind == models.ElementText {
			out[i].Content = r.Replace(out[i].Content)
		}
	}
	return out
}
