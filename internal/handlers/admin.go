// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"eventcert/internal/apperr"
	"eventcert/internal/models"
	"eventcert/internal/store"
)

// TemplateStore is the certificate template persistence used by the
// admin handlers.
type TemplateStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Template, error)
	FindActiveByEvent(ctx context.Context, eventID uuid.UUID) (*models.Template, error)
	ListVersions(ctx context.Context, eventID uuid.UUID) ([]models.Template, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// AuditReader lists recent audit entries.
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]store.AuditEntry, error)
}

// Admin groups the admin handlers for events, registrations and
// templates. Every mutation drops the affected public cache entries.
type Admin struct {
	events        EventStore
	registrations RegistrationStore
	templates     TemplateStore
	audit         AuditReader
	objects       ObjectUploader
	cache         EventCache
}

// NewAdmin creates a new Admin handler group. objects and responses may
// be nil when object storage or Valkey are not configured.
func NewAdmin(events EventStore, registrations RegistrationStore, templates TemplateStore, audit AuditReader, objects ObjectUploader, responses EventCache) *Admin {
	return &Admin{
		events:        events,
		registrations: registrations,
		templates:     templates,
		audit:         audit,
		objects:       objects,
		cache:         responses,
	}
}

func (a *Admin) invalidate(ctx context.Context, eventID uuid.UUID) {
	if a.cache != nil {
		a.cache.InvalidateEvent(ctx, eventID)
	}
}

// --- Events ---

// ListEvents returns all events for the admin dashboard.
func (a *Admin) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := a.events.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, list(events))
}

// CreateEvent validates and stores a new event.
func (a *Admin) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var form models.EventForm
	if err := decode(w, r, &form); err != nil {
		writeError(w, r, err)
		return
	}
	event, err := a.events.Create(r.Context(), &form)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("event created", "event_id", event.ID, "title", event.Title)
	a.invalidate(r.Context(), event.ID)
	respond(w, r, http.StatusCreated, event)
}

// GetEvent returns one event.
func (a *Admin) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	event, err := a.events.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if event == nil {
		writeError(w, r, apperr.NotFound("event", id))
		return
	}
	respond(w, r, http.StatusOK, event)
}

// UpdateEvent applies a partial update.
func (a *Admin) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch models.EventPatch
	if err := decode(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	event, err := a.events.Update(r.Context(), id, &patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("event updated", "event_id", id)
	a.invalidate(r.Context(), id)
	respond(w, r, http.StatusOK, event)
}

// DeleteEvent removes an event with its registrations and templates.
func (a *Admin) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.events.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("event deleted", "event_id", id)
	a.invalidate(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

// --- Registrations ---

// ListRegistrations returns every registration, newest first.
func (a *Admin) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := a.registrations.ListAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, list(regs))
}

// ListEventRegistrations returns the registrations of one event.
func (a *Admin) ListEventRegistrations(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	regs, err := a.registrations.ListForEvent(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, list(regs))
}

// UpdateRegistrationStatus marks a registration attended or cancelled.
func (a *Admin) UpdateRegistrationStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.StatusUpdate
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reg, err := a.registrations.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.invalidate(r.Context(), reg.EventID)
	respond(w, r, http.StatusOK, reg)
}

// DeleteRegistration removes a registration.
func (a *Admin) DeleteRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	reg, err := a.registrations.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if reg == nil {
		writeError(w, r, apperr.NotFound("registration", id))
		return
	}
	if err := a.registrations.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	a.invalidate(r.Context(), reg.EventID)
	w.WriteHeader(http.StatusNoContent)
}

// --- Templates ---

// GetEventTemplate returns the active template of an event.
func (a *Admin) GetEventTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tmpl, err := a.templates.FindActiveByEvent(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tmpl == nil {
		writeError(w, r, apperr.NotFound("template for event", id))
		return
	}
	respond(w, r, http.StatusOK, tmpl)
}

// ListTemplateVersions returns every saved template of an event.
func (a *Admin) ListTemplateVersions(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	versions, err := a.templates.ListVersions(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, list(versions))
}

// DeleteEventTemplate hard deletes the active template of an event. It is
// refused while certificates issued from the template are live.
func (a *Admin) DeleteEventTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tmpl, err := a.templates.FindActiveByEvent(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tmpl == nil {
		writeError(w, r, apperr.NotFound("template for event", id))
		return
	}
	if err := a.templates.Delete(r.Context(), tmpl.ID); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("template deleted", "event_id", id, "template_id", tmpl.ID)
	a.invalidate(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

// --- Audit ---

// AuditLog returns the most recent audit entries. ?limit= caps the count.
func (a *Admin) AuditLog(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, r, apperr.Validation("limit", "must be between 1 and 1000"))
			return
		}
		limit = n
	}
	entries, err := a.audit.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, list(entries))
}
