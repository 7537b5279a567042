// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Command eventcert-import copies events and registrations from the legacy
// Supabase project into the EventCert database. It is safe to run more
// than once: rows are matched on their legacy ids.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventcert/internal/config"
	"eventcert/internal/database"
	"eventcert/internal/legacy"
	"eventcert/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
		slog.Error("SUPABASE_URL and SUPABASE_KEY must be set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	reader, err := legacy.NewReader(cfg.SupabaseURL, cfg.SupabaseKey, legacy.DefaultPageSize)
	if err != nil {
		slog.Error("failed to create legacy reader", "error", err)
		os.Exit(1)
	}

	start := time.Now()
	sum, err := legacy.Import(ctx, reader, store.NewEventStore(db), store.NewRegistrationStore(db))
	if err != nil {
		slog.Error("import failed", "error", err)
		os.Exit(1)
	}
	slog.Info("import finished",
		"events", sum.Events,
		"registrations", sum.Registrations,
		"skipped", sum.Skipped,
		"duration", time.Since(start).Round(time.Millisecond),
	)
}
