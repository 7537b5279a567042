// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"eventcert/internal/apperr"
	"eventcert/internal/models"
)

// date is stored as DATE and read back as YYYY-MM-DD text.
const eventColumns = `id, title, description, date::text, time, location, category, organizer,
	max_participants, current_participants, status, certificate_ready, image_url,
	created_at, updated_at`

func scanEvent(row scanner) (*models.Event, error) {
	e := &models.Event{}
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Date, &e.Time, &e.Location, &e.Category, &e.Organizer,
		&e.MaxParticipants, &e.CurrentParticipants, &e.Status, &e.CertificateReady, &e.ImageURL,
		&e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// EventStore handles all event-related database operations.
type EventStore struct {
	db *sql.DB
}

// NewEventStore creates a new EventStore.
func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

// List returns all events ordered by date ascending.
func (s *EventStore) List(ctx context.Context) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM events ORDER BY date ASC, created_at ASC
	`)
	if err != nil {
		return nil, apperr.FromDB("list events", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// FindByID retrieves an event by its UUID. Returns nil if not found.
func (s *EventStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	e, err := scanEvent(s.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+` FROM events WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.FromDB("find event by id", err)
	}
	return e, nil
}

// Create inserts a new event. Participant count and certificate readiness
// start at their defaults.
func (s *EventStore) Create(ctx context.Context, f *models.EventForm) (*models.Event, error) {
	status := f.Status
	if status == "" {
		status = models.EventUpcoming
	}
	e, err := scanEvent(s.db.QueryRowContext(ctx, `
		INSERT INTO events (title, description, date, time, location, category, organizer,
			max_participants, status, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+eventColumns+`
	`, f.Title, f.Description, f.Date, f.Time, f.Location, f.Category, f.Organizer,
		f.MaxParticipants, status, f.ImageURL))
	if err != nil {
		return nil, apperr.FromDB("create event", err)
	}
	return e, nil
}

// Update applies a partial update. The row is locked while the patch is
// merged so concurrent updates do not lose fields.
func (s *EventStore) Update(ctx context.Context, id uuid.UUID, p *models.EventPatch) (*models.Event, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.FromDB("begin tx", err)
	}
	defer tx.Rollback()

	cur, err := scanEvent(tx.QueryRowContext(ctx, `
		SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("event", id)
	}
	if err != nil {
		return nil, apperr.FromDB("load event", err)
	}
	p.Apply(cur)

	e, err := scanEvent(tx.QueryRowContext(ctx, `
		UPDATE events SET
			title = $1, description = $2, date = $3, time = $4, location = $5,
			category = $6, organizer = $7, max_participants = $8, status = $9,
			image_url = $10, updated_at = NOW()
		WHERE id = $11
		RETURNING `+eventColumns+`
	`, cur.Title, cur.Description, cur.Date, cur.Time, cur.Location,
		cur.Category, cur.Organizer, cur.MaxParticipants, cur.Status,
		cur.ImageURL, id))
	if err != nil {
		return nil, apperr.FromDB("update event", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.FromDB("commit event update", err)
	}
	return e, nil
}

// Delete removes an event together with its registrations, templates and
// certificates.
func (s *EventStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return apperr.FromDB("delete event", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("event", id)
	}
	return nil
}

// UpsertLegacy inserts or refreshes an event imported from the legacy
// project, keyed by its numeric legacy id.
func (s *EventStore) UpsertLegacy(ctx context.Context, legacyID int64, e *models.Event) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO events (legacy_id, title, description, date, time, location, category,
			organizer, max_participants, status, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (legacy_id) DO UPDATE SET
			title = EXCLUDED.title, description = EXCLUDED.description, date = EXCLUDED.date,
			time = EXCLUDED.time, location = EXCLUDED.location, category = EXCLUDED.category,
			organizer = EXCLUDED.organizer, max_participants = EXCLUDED.max_participants,
			status = EXCLUDED.status, image_url = EXCLUDED.image_url, updated_at = NOW()
		RETURNING id
	`, legacyID, e.Title, e.Description, e.Date, e.Time, e.Location, e.Category,
		e.Organizer, e.MaxParticipants, e.Status, e.ImageURL, e.CreatedAt).Scan(&id)
	if err != nil {
		return uuid.Nil, apperr.FromDB("upsert legacy event", err)
	}
	return id, nil
}

// RecountAll recomputes the participant count of every event.
func (s *EventStore) RecountAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE events e SET current_participants = (
			SELECT COUNT(*) FROM registrations r
			WHERE r.event_id = e.id AND r.status <> 'cancelled'
		)
	`)
	if err != nil {
		return apperr.FromDB("recount events", err)
	}
	return nil
}

// recount recomputes one event's participant count from its live
// registrations.
func recount(ctx context.Context, ex execer, eventID uuid.UUID) error {
	_, err := ex.ExecContext(ctx, `
		UPDATE events SET current_participants = (
			SELECT COUNT(*) FROM registrations
			WHERE event_id = $1 AND status <> 'cancelled'
		), updated_at = NOW()
		WHERE id = $1
	`, eventID)
	if err != nil {
		return apperr.FromDB("recount participants", err)
	}
	return nil
}

// syncCertificateReady sets certificate_ready from the presence of an
// active template.
func syncCertificateReady(ctx context.Context, ex execer, eventID uuid.UUID) error {
	_, err := ex.ExecContext(ctx, `
		UPDATE events SET certificate_ready = EXISTS (
			SELECT 1 FROM certificate_templates WHERE event_id = $1 AND is_active
		), updated_at = NOW()
		WHERE id = $1
	`, eventID)
	if err != nil {
		return apperr.FromDB("sync certificate ready", err)
	}
	return nil
}
