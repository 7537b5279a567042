// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"eventcert/internal/database"
	"eventcert/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "eventcert")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "eventcert")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := testDSN()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	// Run migrations to ensure the schema is current.
	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Downgrade goose global state.
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// cleanUsers removes test users by email pattern. Call in t.Cleanup().
func cleanUsers(t *testing.T, db *sql.DB, emails ...string) {
	t.Helper()
	for _, email := range emails {
		db.Exec("DELETE FROM users WHERE email = $1", email)
	}
}

// testEvent creates an event that is removed (with everything that
// cascades from it) when the test finishes.
func testEvent(t *testing.T, db *sql.DB, title string, max int) *models.Event {
	t.Helper()
	e, err := NewEventStore(db).Create(context.Background(), &models.EventForm{
		Title:           title,
		Date:            "2026-03-14",
		Location:        "Main Hall",
		MaxParticipants: max,
	})
	if err != nil {
		t.Fatalf("create test event: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM events WHERE id = $1", e.ID) })
	return e
}

// testAdmin creates an admin user for foreign keys such as issued_by.
func testAdmin(t *testing.T, db *sql.DB, email string) *models.User {
	t.Helper()
	t.Cleanup(func() {
		db.Exec("DELETE FROM issued_certificates WHERE issued_by IN (SELECT id FROM users WHERE email = $1)", email)
		cleanUsers(t, db, email)
	})
	u, err := NewUserStore(db).Create(context.Background(), email, "pass", "Admin", models.RoleAdmin)
	if err != nil {
		t.Fatalf("create test admin: %v", err)
	}
	return u
}

func participantCount(t *testing.T, db *sql.DB, eventID uuid.UUID) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT current_participants FROM events WHERE id = $1", eventID).Scan(&n); err != nil {
		t.Fatalf("read participant count: %v", err)
	}
	return n
}
