// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"eventcert/internal/apperr"
	"eventcert/internal/cache"
	"eventcert/internal/markdown"
	"eventcert/internal/models"
)

// EventStore is the event persistence used by the handlers.
type EventStore interface {
	List(ctx context.Context) ([]models.Event, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	Create(ctx context.Context, f *models.EventForm) (*models.Event, error)
	Update(ctx context.Context, id uuid.UUID, p *models.EventPatch) (*models.Event, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// RegistrationStore is the registration persistence used by the handlers.
type RegistrationStore interface {
	Register(ctx context.Context, eventID uuid.UUID, info *models.RecipientInfo) (*models.Registration, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	ListForEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error)
	ListAll(ctx context.Context) ([]models.Registration, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.RegistrationStatus) (*models.Registration, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Public groups the unauthenticated handlers: event browsing and
// registration. Event responses are served from the Valkey response cache
// when one is configured.
type Public struct {
	events        EventStore
	registrations RegistrationStore
	cache         *cache.ResponseCache
}

// NewPublic creates a new Public handler group. responses may be nil.
func NewPublic(events EventStore, registrations RegistrationStore, responses *cache.ResponseCache) *Public {
	return &Public{events: events, registrations: registrations, cache: responses}
}

// ListEvents returns every event ordered by date.
func (p *Public) ListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if p.serveCached(w, r, cache.EventListKey()) {
		return
	}

	events, err := p.events.List(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	for i := range events {
		withDescriptionHTML(&events[i])
	}
	p.store(ctx, cache.EventListKey(), list(events))
	respond(w, r, http.StatusOK, list(events))
}

// GetEvent returns one event.
func (p *Public) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	if p.serveCached(w, r, cache.EventKey(id)) {
		return
	}

	event, err := p.events.FindByID(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if event == nil {
		writeError(w, r, apperr.NotFound("event", id))
		return
	}
	withDescriptionHTML(event)
	p.store(ctx, cache.EventKey(id), event)
	respond(w, r, http.StatusOK, event)
}

// Register signs a participant up for an event.
func (p *Public) Register(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var info models.RecipientInfo
	if err := decode(w, r, &info); err != nil {
		writeError(w, r, err)
		return
	}

	reg, err := p.registrations.Register(r.Context(), eventID, &info)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("registration created", "event_id", eventID, "registration_id", reg.ID)
	p.invalidate(r.Context(), eventID)
	respond(w, r, http.StatusCreated, reg)
}

func (p *Public) serveCached(w http.ResponseWriter, r *http.Request, key string) bool {
	if p.cache == nil {
		return false
	}
	body, ok := p.cache.Get(r.Context(), key)
	if !ok {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "HIT")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
	return true
}

func (p *Public) store(ctx context.Context, key string, v any) {
	if p.cache == nil {
		return
	}
	body, err := json.Marshal(v)
	if err != nil {
		slog.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	p.cache.Set(ctx, key, body)
}

func (p *Public) invalidate(ctx context.Context, eventID uuid.UUID) {
	if p.cache != nil {
		p.cache.InvalidateEvent(ctx, eventID)
	}
}

// withDescriptionHTML renders the Markdown description. A rendering
// failure leaves description_html empty; the raw text is still served.
func withDescriptionHTML(e *models.Event) {
	html, err := markdown.ToHTML(e.Description)
	if err != nil {
		slog.Warn("event description render failed", "event_id", e.ID, "error", err)
		return
	}
	e.DescriptionHTML = html
}
