// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// eventcert API. It organizes routes into public, auth and admin groups
// with appropriate middleware stacks.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"eventcert/internal/handlers"
	"eventcert/internal/middleware"
)

// Handlers bundles the handler groups the router mounts.
type Handlers struct {
	Public   *handlers.Public
	Auth     *handlers.Auth
	Admin    *handlers.Admin
	Editor   *handlers.Editor
	Issuance *handlers.Issuance
	Users    *handlers.Users
}

// Options configures the router.
type Options struct {
	// LoadSession puts the caller's session in the request context,
	// normally middleware.LoadSession over the Valkey store.
	LoadSession func(http.Handler) http.Handler

	// AllowedOrigins are the admin SPA origins allowed to make
	// credentialed cross-origin requests.
	AllowedOrigins []string
}

// Rate limits for unauthenticated endpoints, in requests per window.
const (
	loginLimit        = 10
	registrationLimit = 20
	limitWindow       = time.Minute
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. The returned stop function ends the rate
// limiters' cleanup goroutines.
func New(opts Options, h Handlers) (chi.Router, func()) {
	loginLimiter := middleware.NewRateLimiter(loginLimit, limitWindow, middleware.ByClientIP)
	// Registration budgets are per event: one crowded signup does not
	// block the same campus network from other events.
	registrationLimiter := middleware.NewRateLimiter(registrationLimit, limitWindow, middleware.ByClientIPAndParam("id"))
	stop := func() {
		loginLimiter.Stop()
		registrationLimiter.Stop()
	}

	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)
	if opts.LoadSession != nil {
		r.Use(opts.LoadSession)
	}

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		// Public event browsing and registration.
		r.Get("/events", h.Public.ListEvents)
		r.Get("/events/{id}", h.Public.GetEvent)
		r.With(registrationLimiter.Middleware).Post("/events/{id}/registrations", h.Public.Register)

		r.Route("/auth", func(r chi.Router) {
			r.With(loginLimiter.Middleware).Post("/login", h.Auth.Login)
			r.Post("/logout", h.Auth.Logout)

			// 2FA requires a session but NOT completed 2FA.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Get("/me", h.Auth.Me)
				r.Get("/2fa/setup", h.Auth.TwoFASetup)
				r.With(loginLimiter.Middleware).Post("/2fa/verify", h.Auth.TwoFAVerify)
			})
		})

		// Authenticated + 2FA-verified admin area.
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.Require2FA)

			r.Route("/events", func(r chi.Router) {
				r.Get("/", h.Admin.ListEvents)
				r.Post("/", h.Admin.CreateEvent)
				r.Get("/{id}", h.Admin.GetEvent)
				r.Patch("/{id}", h.Admin.UpdateEvent)
				r.Delete("/{id}", h.Admin.DeleteEvent)

				r.Get("/{id}/registrations", h.Admin.ListEventRegistrations)
				r.Get("/{id}/template", h.Admin.GetEventTemplate)
				r.Delete("/{id}/template", h.Admin.DeleteEventTemplate)
				r.Get("/{id}/template/versions", h.Admin.ListTemplateVersions)
				r.Post("/{id}/background", h.Admin.UploadBackground)
				r.Post("/{id}/editor", h.Editor.Open)
				r.Get("/{id}/certificates", h.Issuance.ListForEvent)
			})

			r.Route("/registrations", func(r chi.Router) {
				r.Get("/", h.Admin.ListRegistrations)
				r.Put("/{id}/status", h.Admin.UpdateRegistrationStatus)
				r.Delete("/{id}", h.Admin.DeleteRegistration)
			})

			r.Route("/editor/{sid}", func(r chi.Router) {
				r.Get("/", h.Editor.State)
				r.Delete("/", h.Editor.Close)
				r.Post("/elements", h.Editor.AddElement)
				r.Delete("/elements", h.Editor.DeleteSelected)
				r.Patch("/elements/{eid}", h.Editor.UpdateElement)
				r.Post("/elements/{eid}/duplicate", h.Editor.Duplicate)
				r.Post("/elements/{eid}/reorder", h.Editor.Reorder)
				r.Put("/selection", h.Editor.Select)
				r.Delete("/selection", h.Editor.ClearSelection)
				r.Put("/background", h.Editor.SetBackground)
				r.Post("/undo", h.Editor.Undo)
				r.Post("/redo", h.Editor.Redo)
				r.Post("/save", h.Editor.Save)
				r.Get("/preview.png", h.Editor.Preview)
			})

			r.Post("/templates/{id}/issue", h.Issuance.Issue)

			r.Route("/certificates/{id}", func(r chi.Router) {
				r.Get("/", h.Issuance.Get)
				r.Post("/render", h.Issuance.Render)
				r.Post("/issued", h.Issuance.MarkIssued)
				r.Post("/send", h.Issuance.Send)
				// Revocation is admin only.
				r.With(middleware.RequireAdmin).Delete("/", h.Issuance.Revoke)
			})

			// Audit log and account management, admin only.
			r.With(middleware.RequireAdmin).Get("/audit", h.Admin.AuditLog)
			r.Route("/users", func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/", h.Users.List)
				r.Post("/", h.Users.Create)
				r.Delete("/{id}", h.Users.Delete)
				r.Post("/{id}/reset-2fa", h.Users.ResetTwoFA)
			})
		})
	})

	return r, stop
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
