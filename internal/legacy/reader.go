// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package legacy reads events and registrations from the hosted Supabase
// project the app used before it had its own database, and copies them
// into the local stores.
package legacy

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	postgrest "github.com/supabase-community/postgrest-go"
)

// DefaultPageSize is how many rows are requested per PostgREST call.
const DefaultPageSize = 500

// Event is a row of the legacy events table.
type Event struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Description     *string   `json:"description"`
	Date            string    `json:"date"`
	Time            *string   `json:"time"`
	Location        *string   `json:"location"`
	Category        *string   `json:"category"`
	Organizer       *string   `json:"organizer"`
	MaxParticipants *int      `json:"max_participants"`
	Status          string    `json:"status"`
	ImageURL        *string   `json:"image_url"`
	CreatedAt       time.Time `json:"created_at"`
}

// Registration is a row of the legacy registrations table.
type Registration struct {
	ID               int64     `json:"id"`
	EventID          int64     `json:"event_id"`
	UserName         string    `json:"user_name"`
	UserEmail        string    `json:"user_email"`
	UserCollege      *string   `json:"user_college"`
	UserDepartment   *string   `json:"user_department"`
	RegistrationDate time.Time `json:"registration_date"`
	Status           string    `json:"status"`
}

// Reader pages through the legacy tables over PostgREST.
type Reader struct {
	client   *postgrest.Client
	pageSize int
}

// NewReader creates a Reader for the Supabase project at projectURL,
// authenticating with key (the service role key so row level security
// does not hide rows).
func NewReader(projectURL, key string, pageSize int) (*Reader, error) {
	if projectURL == "" || key == "" {
		return nil, fmt.Errorf("legacy: project url and key are required")
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	client := postgrest.NewClient(strings.TrimRight(projectURL, "/")+"/rest/v1", "", map[string]string{
		"apikey":        key,
		"Authorization": "Bearer " + key,
	})
	if client.ClientError != nil {
		return nil, fmt.Errorf("legacy: create client: %w", client.ClientError)
	}
	return &Reader{client: client, pageSize: pageSize}, nil
}

// Events returns every legacy event ordered by id.
func (r *Reader) Events(ctx context.Context) ([]Event, error) {
	return fetchAll(ctx, r, "events", func(e Event) int64 { return e.ID })
}

// Registrations returns every legacy registration ordered by id.
func (r *Reader) Registrations(ctx context.Context) ([]Registration, error) {
	return fetchAll(ctx, r, "registrations", func(reg Registration) int64 { return reg.ID })
}

// fetchAll walks table with keyset pagination on id so rows inserted
// while the import runs cannot shift pages.
func fetchAll[T any](ctx context.Context, r *Reader, table string, idOf func(T) int64) ([]T, error) {
	var (
		all    []T
		lastID int64
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var page []T
		_, err := r.client.From(table).
			Select("*", "", false).
			Gt("id", strconv.FormatInt(lastID, 10)).
			Order("id", &postgrest.OrderOpts{Ascending: true}).
			Limit(r.pageSize, "").
			ExecuteTo(&page)
		if err != nil {
			return nil, fmt.Errorf("legacy: read %s after id %d: %w", table, lastID, err)
		}
		if len(page) == 0 {
			return all, nil
		}
		all = append(all, page...)

		next := idOf(page[len(page)-1])
		if next <= lastID || len(page) < r.pageSize {
			return all, nil
		}
		lastID = next
	}
}
