// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the EventCert API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventcert/internal/cache"
	"eventcert/internal/config"
	"eventcert/internal/database"
	"eventcert/internal/editor"
	"eventcert/internal/handlers"
	"eventcert/internal/issuance"
	"eventcert/internal/mail"
	"eventcert/internal/middleware"
	"eventcert/internal/raster"
	"eventcert/internal/router"
	"eventcert/internal/session"
	"eventcert/internal/storage"
	"eventcert/internal/store"
)

func main() {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (sessions and the public response cache).
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	// In non-development environments, mark session cookies as Secure (HTTPS-only).
	sessionStore := session.NewStore(valkeyClient, !cfg.IsDev())
	responses := cache.NewResponseCache(valkeyClient, cache.DefaultResponseTTL)
	// Migrations or the importer may have changed events since the last run.
	responses.InvalidateAll(context.Background())

	// Initialize data stores.
	userStore := store.NewUserStore(db)
	eventStore := store.NewEventStore(db)
	registrationStore := store.NewRegistrationStore(db)
	templateStore := store.NewTemplateStore(db)
	certificateStore := store.NewCertificateStore(db)
	auditStore := store.NewAuditStore(db)

	// Connect to S3-compatible object storage (optional, backgrounds and
	// rendered certificates are disabled without it).
	storageClient, err := storage.New(storage.Options{
		Endpoint:      cfg.S3Endpoint,
		Region:        cfg.S3Region,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		PublicBucket:  cfg.S3BucketPublic,
		PrivateBucket: cfg.S3BucketPrivate,
		PublicURL:     cfg.S3PublicURL,
	})
	if err != nil {
		slog.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	}
	if storageClient != nil {
		slog.Info("s3 storage connected",
			"endpoint", cfg.S3Endpoint,
			"public_bucket", cfg.S3BucketPublic,
			"private_bucket", cfg.S3BucketPrivate,
		)
	} else {
		slog.Warn("s3 storage not configured, uploads and certificate rendering disabled")
	}

	var sender mail.Sender
	if cfg.SendGridAPIKey != "" {
		sender = mail.NewSendGrid(cfg.SendGridAPIKey, cfg.MailFromName, cfg.MailFromAddress)
	} else {
		slog.Warn("sendgrid not configured, mail is logged to the console")
		sender = mail.NewConsole(cfg.MailFromName, cfg.MailFromAddress)
	}

	renderer := raster.New(storage.NewLoader(storageClient))

	// Certificate workflow. Rendering and delivery need object storage.
	workflow := issuance.NewWorkflow(templateStore, registrationStore, certificateStore, auditStore, cfg.IssueConcurrency)
	var (
		generator *issuance.Generator
		delivery  *issuance.Delivery
		uploader  handlers.ObjectUploader
	)
	if storageClient != nil {
		generator = issuance.NewGenerator(workflow, templateStore, eventStore, renderer, storageClient)
		delivery = issuance.NewDelivery(workflow, eventStore, storageClient, sender)
		uploader = storageClient
	}

	// Editor sessions live in memory; idle ones are swept in the background.
	ctx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	editors := editor.NewManager(templateStore, cfg.EditorHistoryLimit, cfg.EditorIdleTimeout)
	go editors.Run(ctx)

	// Create handler groups with their dependencies.
	r, stopLimiters := router.New(router.Options{
		LoadSession:    middleware.LoadSession(sessionStore),
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, router.Handlers{
		Public:   handlers.NewPublic(eventStore, registrationStore, responses),
		Auth:     handlers.NewAuth(sessionStore, userStore),
		Admin:    handlers.NewAdmin(eventStore, registrationStore, templateStore, auditStore, uploader, responses),
		Editor:   handlers.NewEditor(editors, eventStore, templateStore, renderer, responses),
		Issuance: handlers.NewIssuance(workflow, generator, delivery),
		Users:    handlers.NewUsers(userStore, auditStore),
	})
	defer stopLimiters()

	// WriteTimeout covers batch issuance and certificate rendering.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully", "open_editor_sessions", editors.Len())
}
