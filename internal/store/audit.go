// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// audit.go records state changes (certificate issue, status transitions,
// revocations) in the database for auditing and debugging. Each entry
// captures who acted, on what, and which action was taken.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"eventcert/internal/apperr"
)

// AuditStore handles audit log operations.
type AuditStore struct {
	db *sql.DB
}

// NewAuditStore creates a new AuditStore.
func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

// Record writes an audit entry. A nil actor is stored as NULL.
func (s *AuditStore) Record(ctx context.Context, actor uuid.UUID, entityType string, entityID uuid.UUID, action string) {
	var actorID *uuid.UUID
	if actor != uuid.Nil {
		actorID = &actor
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (actor_id, entity_type, entity_id, action)
		VALUES ($1, $2, $3, $4)
	`, actorID, entityType, entityID, action)
	if err != nil {
		// Log but don't fail, audit logging is best-effort.
		slog.Warn("failed to write audit entry",
			"entity_type", entityType,
			"entity_id", entityID,
			"action", action,
			"error", err,
		)
		return
	}
	slog.Debug("audit entry written",
		"entity_type", entityType,
		"entity_id", entityID,
		"action", action,
	)
}

// Recent returns the most recent audit entries, newest first.
func (s *AuditStore) Recent(ctx context.Context, limit int) ([]AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_id, entity_type, entity_id, action, recorded_at
		FROM audit_log
		ORDER BY recorded_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, apperr.FromDB("query audit log", err)
	}
	defer rows.Close()

	entries := []AuditEntry{}
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.EntityType, &e.EntityID, &e.Action, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AuditEntry represents a single audit event.
type AuditEntry struct {
	ID         int64      `json:"id"`
	ActorID    *uuid.UUID `json:"actor_id"`
	EntityType string     `json:"entity_type"`
	EntityID   uuid.UUID  `json:"entity_id"`
	Action     string     `json:"action"`
	RecordedAt time.Time  `json:"recorded_at"`
}
