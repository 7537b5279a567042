// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package legacy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"eventcert/internal/models"
)

// Source yields legacy rows. *Reader is the production implementation.
type Source interface {
	Events(ctx context.Context) ([]Event, error)
	Registrations(ctx context.Context) ([]Registration, error)
}

// EventWriter stores imported events.
type EventWriter interface {
	UpsertLegacy(ctx context.Context, legacyID int64, e *models.Event) (uuid.UUID, error)
	RecountAll(ctx context.Context) error
}

// RegistrationWriter stores imported registrations.
type RegistrationWriter interface {
	UpsertLegacy(ctx context.Context, legacyID int64, r *models.Registration) (uuid.UUID, error)
}

// Summary counts what an import did.
type Summary struct {
	Events        int
	Registrations int
	Skipped       int
}

// Import copies every legacy event and registration into the stores and
// recomputes participant counts. Upserts are keyed by legacy id, so
// running it again refreshes rows instead of duplicating them.
// Registrations that point at an unknown event or fail to convert are
// skipped and counted; store errors abort the import.
func Import(ctx context.Context, src Source, events EventWriter, registrations RegistrationWriter) (*Summary, error) {
	legacyEvents, err := src.Events(ctx)
	if err != nil {
		return nil, err
	}
	sum := &Summary{}

	ids := make(map[int64]uuid.UUID, len(legacyEvents))
	for _, le := range legacyEvents {
		e, err := le.Model()
		if err != nil {
			slog.Warn("legacy event skipped", "legacy_id", le.ID, "error", err)
			sum.Skipped++
			continue
		}
		id, err := events.UpsertLegacy(ctx, le.ID, e)
		if err != nil {
			return sum, fmt.Errorf("import event %d: %w", le.ID, err)
		}
		ids[le.ID] = id
		sum.Events++
	}

	legacyRegs, err := src.Registrations(ctx)
	if err != nil {
		return sum, err
	}
	for _, lr := range legacyRegs {
		eventID, ok := ids[lr.EventID]
		if !ok {
			slog.Warn("legacy registration skipped", "legacy_id", lr.ID, "legacy_event_id", lr.EventID, "reason", "unknown event")
			sum.Skipped++
			continue
		}
		reg, err := lr.Model(eventID)
		if err != nil {
			slog.Warn("legacy registration skipped", "legacy_id", lr.ID, "error", err)
			sum.Skipped++
			continue
		}
		if _, err := registrations.UpsertLegacy(ctx, lr.ID, reg); err != nil {
			return sum, fmt.Errorf("import registration %d: %w", lr.ID, err)
		}
		sum.Registrations++
	}

	if err := events.RecountAll(ctx); err != nil {
		return sum, fmt.Errorf("recount participants: %w", err)
	}
	return sum, nil
}

// Model converts a legacy event. Dates keep their calendar day only and
// unknown statuses fall back to upcoming.
func (le Event) Model() (*models.Event, error) {
	title := strings.TrimSpace(le.Title)
	if title == "" {
		return nil, fmt.Errorf("missing title")
	}
	date := strings.TrimSpace(le.Date)
	if len(date) < 10 {
		return nil, fmt.Errorf("invalid date %q", le.Date)
	}

	status := models.EventStatus(le.Status)
	switch status {
	case models.EventUpcoming, models.EventActive, models.EventCompleted:
	default:
		status = models.EventUpcoming
	}

	capacity := 0
	if le.MaxParticipants != nil && *le.MaxParticipants > 0 {
		capacity = *le.MaxParticipants
	}
	created := le.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	var image *string
	if le.ImageURL != nil && strings.TrimSpace(*le.ImageURL) != "" {
		u := strings.TrimSpace(*le.ImageURL)
		image = &u
	}

	return &models.Event{
		Title:           title,
		Description:     deref(le.Description),
		Date:            date[:10],
		Time:            deref(le.Time),
		Location:        deref(le.Location),
		Category:        deref(le.Category),
		Organizer:       deref(le.Organizer),
		MaxParticipants: capacity,
		Status:          status,
		ImageURL:        image,
		CreatedAt:       created,
	}, nil
}

// Model converts a legacy registration for the already imported event.
func (lr Registration) Model(eventID uuid.UUID) (*models.Registration, error) {
	email := strings.TrimSpace(lr.UserEmail)
	if email == "" {
		return nil, fmt.Errorf("missing email")
	}
	registered := lr.RegistrationDate
	if registered.IsZero() {
		registered = time.Now()
	}
	status := models.RegistrationStatus(lr.Status)
	switch status {
	case models.RegistrationRegistered, models.RegistrationAttended, models.RegistrationCancelled:
	default:
		status = models.RegistrationRegistered
	}
	return &models.Registration{
		EventID:          eventID,
		UserName:         strings.TrimSpace(lr.UserName),
		UserEmail:        email,
		UserCollege:      deref(lr.UserCollege),
		UserDepartment:   deref(lr.UserDepartment),
		RegistrationDate: registered,
		Status:           status,
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
