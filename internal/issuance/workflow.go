// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package issuance turns a saved certificate template and a set of
// registrations into tracked certificate records and moves each record
// through pending -> issued -> sent.
//
// A batch never fails as a whole once the template is found: every
// recipient gets its own outcome so callers can retry just the failures.
package issuance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"eventcert/internal/apperr"
	"eventcert/internal/models"
)

// DefaultConcurrency bounds how many recipients are written at once.
const DefaultConcurrency = 4

// Actor is the authenticated admin performing an operation.
type Actor struct {
	UserID uuid.UUID
	Email  string
}

// TemplateReader loads templates by id.
type TemplateReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Template, error)
}

// RegistrationReader loads registrations by id.
type RegistrationReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
}

// CertificateStore persists issued certificates.
type CertificateStore interface {
	// Issue inserts c as pending and supersedes every earlier live record
	// for the same template and recipient in one transaction.
	Issue(ctx context.Context, c *models.IssuedCertificate) (*models.IssuedCertificate, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.IssuedCertificate, error)
	// Transition moves a live record from one status to another. It
	// returns (nil, nil) when the record is not in status from.
	Transition(ctx context.Context, id uuid.UUID, from, to models.CertificateStatus, artifactURL *string) (*models.IssuedCertificate, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListForEvent(ctx context.Context, eventID uuid.UUID) ([]models.IssuedCertificate, error)
}

// AuditLog records certificate state changes. Implementations must not
// fail the caller.
type AuditLog interface {
	Record(ctx context.Context, actor uuid.UUID, entity string, entityID uuid.UUID, action string)
}

// Outcome is the result for one recipient of a batch.
type Outcome struct {
	RecipientID uuid.UUID                 `json:"recipient_id"`
	Certificate *models.IssuedCertificate `json:"certificate,omitempty"`
	Err         error                     `json:"-"`
	Error       string                    `json:"error,omitempty"`
}

// Batch is the result of Issue, in request order.
type Batch struct {
	TemplateID uuid.UUID `json:"template_id"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Succeeded returns the number of recipients whose record was created.
func (b *Batch) Succeeded() int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// Workflow implements issue, markIssued, markSent and revoke.
type Workflow struct {
	templates     TemplateReader
	registrations RegistrationReader
	certs         CertificateStore
	audit         AuditLog
	concurrency   int
	now           func() time.Time
}

// NewWorkflow creates a Workflow. audit may be nil.
func NewWorkflow(templates TemplateReader, registrations RegistrationReader, certs CertificateStore, audit AuditLog, concurrency int) *Workflow {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Workflow{
		templates:     templates,
		registrations: registrations,
		certs:         certs,
		audit:         audit,
		concurrency:   concurrency,
		now:           time.Now,
	}
}

func (w *Workflow) record(ctx context.Context, actor Actor, id uuid.UUID, action string) {
	if w.audit != nil {
		w.audit.Record(ctx, actor.UserID, "certificate", id, action)
	}
}

// Issue creates one pending certificate per distinct recipient. It fails
// as a whole only when the input is invalid or the template cannot be
// loaded or is not the event's active version; otherwise each
// recipient's result is reported in the batch.
func (w *Workflow) Issue(ctx context.Context, actor Actor, templateID uuid.UUID, recipientIDs []uuid.UUID) (*Batch, error) {
	if actor.UserID == uuid.Nil {
		return nil, apperr.Validation("issued_by", "an authenticated admin is required")
	}
	recipients := dedupe(recipientIDs)
	if len(recipients) == 0 {
		return nil, apperr.Validation("recipient_ids", "at least one recipient is required")
	}

	tmpl, err := w.templates.FindByID(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("issue: load template: %w", err)
	}
	if tmpl == nil {
		return nil, apperr.NotFound("template", templateID)
	}
	if !tmpl.IsActive {
		return nil, apperr.Conflict("template has been replaced by a newer version; issue from the active template")
	}

	batch := &Batch{TemplateID: templateID, Outcomes: make([]Outcome, len(recipients))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for i, rid := range recipients {
		g.Go(func() error {
			cert, err := w.issueOne(gctx, actor, tmpl, rid)
			o := Outcome{RecipientID: rid, Certificate: cert, Err: err}
			if err != nil {
				o.Error = err.Error()
				slog.Warn("certificate issue failed", "template_id", templateID, "recipient_id", rid, "error", err)
			}
			batch.Outcomes[i] = o
			// Per-recipient failures never cancel the rest of the batch.
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("certificates issued",
		"template_id", templateID,
		"requested", len(recipients),
		"succeeded", batch.Succeeded(),
		"issued_by", actor.UserID,
	)
	return batch, nil
}

func (w *Workflow) issueOne(ctx context.Context, actor Actor, tmpl *models.Template, recipientID uuid.UUID) (*models.IssuedCertificate, error) {
	reg, err := w.registrations.FindByID(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("load registration: %w", err)
	}
	if reg == nil {
		return nil, apperr.NotFound("registration", recipientID)
	}
	if reg.EventID != tmpl.EventID {
		return nil, apperr.Validation("recipient_ids", "registration belongs to another event")
	}
	if reg.Status == models.RegistrationCancelled {
		return nil, apperr.Validation("recipient_ids", "registration is cancelled")
	}

	cert, err := w.certs.Issue(ctx, &models.IssuedCertificate{
		TemplateID:     tmpl.ID,
		EventID:        tmpl.EventID,
		RecipientID:    reg.ID,
		RecipientName:  reg.UserName,
		RecipientEmail: reg.UserEmail,
		IssuedAt:       w.now(),
		IssuedBy:       actor.UserID,
		Status:         models.CertificatePending,
	})
	if err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}
	w.record(ctx, actor, cert.ID, "issue")
	return cert, nil
}

// MarkIssued attaches the rendered artifact and moves a pending record to
// issued.
func (w *Workflow) MarkIssued(ctx context.Context, actor Actor, id uuid.UUID, artifactURL string) (*models.IssuedCertificate, error) {
	if artifactURL == "" {
		return nil, apperr.Validation("artifact_url", "artifact_url is required")
	}
	return w.transition(ctx, actor, id, models.CertificateIssued, &artifactURL)
}

// MarkSent moves an issued record to sent.
func (w *Workflow) MarkSent(ctx context.Context, actor Actor, id uuid.UUID) (*models.IssuedCertificate, error) {
	return w.transition(ctx, actor, id, models.CertificateSent, nil)
}

func (w *Workflow) transition(ctx context.Context, actor Actor, id uuid.UUID, to models.CertificateStatus, artifactURL *string) (*models.IssuedCertificate, error) {
	cur, err := w.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := allowed(cur, to); err != nil {
		return nil, err
	}

	updated, err := w.certs.Transition(ctx, id, cur.Status, to, artifactURL)
	if err != nil {
		return nil, fmt.Errorf("transition certificate: %w", err)
	}
	if updated == nil {
		// Lost a race with another transition or a re-issue.
		latest, err := w.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := allowed(latest, to); err != nil {
			return nil, err
		}
		return nil, &apperr.InvalidStateError{Entity: "certificate", From: string(latest.Status), To: string(to)}
	}

	w.record(ctx, actor, id, string(to))
	slog.Info("certificate status changed", "certificate_id", id, "from", cur.Status, "to", to)
	return updated, nil
}

func allowed(c *models.IssuedCertificate, to models.CertificateStatus) error {
	if c.Superseded() {
		return &apperr.InvalidStateError{Entity: "certificate", From: "superseded", To: string(to)}
	}
	if !c.Status.CanTransition(to) {
		return &apperr.InvalidStateError{Entity: "certificate", From: string(c.Status), To: string(to)}
	}
	return nil
}

// Revoke hard-deletes a certificate in any state.
func (w *Workflow) Revoke(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := w.Get(ctx, id); err != nil {
		return err
	}
	if err := w.certs.Delete(ctx, id); err != nil {
		return fmt.Errorf("revoke certificate: %w", err)
	}
	w.record(ctx, actor, id, "revoke")
	slog.Info("certificate revoked", "certificate_id", id, "revoked_by", actor.UserID)
	return nil
}

// Get returns a certificate or an ErrNotFound error.
func (w *Workflow) Get(ctx context.Context, id uuid.UUID) (*models.IssuedCertificate, error) {
	c, err := w.certs.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}
	if c == nil {
		return nil, apperr.NotFound("certificate", id)
	}
	return c, nil
}

// ListForEvent lists live certificates for an event, newest first.
func (w *Workflow) ListForEvent(ctx context.Context, eventID uuid.UUID) ([]models.IssuedCertificate, error) {
	certs, err := w.certs.ListForEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return certs, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// IsRetryable reports whether an outcome error is worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, apperr.ErrTransient)
}
