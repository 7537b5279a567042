// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"eventcert/internal/apperr"
	"eventcert/internal/middleware"
	"eventcert/internal/models"
	"eventcert/internal/session"
	"eventcert/internal/store"
)

// memEvents is an in-memory EventStore.
type memEvents struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*models.Event
}

func newMemEvents() *memEvents { return &memEvents{byID: map[uuid.UUID]*models.Event{}} }

func (m *memEvents) List(context.Context) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Event, 0, len(m.byID))
	for _, e := range m.byID {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *memEvents) FindByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.byID[id]; ok {
		c := *e
		return &c, nil
	}
	return nil, nil
}

func (m *memEvents) Create(_ context.Context, f *models.EventForm) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := f.Status
	if status == "" {
		status = models.EventUpcoming
	}
	e := &models.Event{
		ID: uuid.New(), Title: f.Title, Description: f.Description, Date: f.Date, Time: f.Time,
		Location: f.Location, Category: f.Category, Organizer: f.Organizer,
		MaxParticipants: f.MaxParticipants, Status: status, ImageURL: f.ImageURL,
	}
	m.byID[e.ID] = e
	c := *e
	return &c, nil
}

func (m *memEvents) Update(_ context.Context, id uuid.UUID, p *models.EventPatch) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("event", id)
	}
	p.Apply(e)
	c := *e
	return &c, nil
}

func (m *memEvents) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return apperr.NotFound("event", id)
	}
	delete(m.byID, id)
	return nil
}

func (m *memEvents) add(title string, max int) *models.Event {
	e, _ := m.Create(context.Background(), &models.EventForm{Title: title, Date: "2026-03-14", Location: "Main Hall", MaxParticipants: max})
	return e
}

// memRegistrations is an in-memory RegistrationStore that enforces the
// duplicate and capacity rules of the Postgres store.
type memRegistrations struct {
	mu     sync.Mutex
	events *memEvents
	byID   map[uuid.UUID]*models.Registration
	order  []uuid.UUID
}

func newMemRegistrations(events *memEvents) *memRegistrations {
	return &memRegistrations{events: events, byID: map[uuid.UUID]*models.Registration{}}
}

func (m *memRegistrations) Register(_ context.Context, eventID uuid.UUID, info *models.RecipientInfo) (*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events.mu.Lock()
	event, ok := m.events.byID[eventID]
	m.events.mu.Unlock()
	if !ok {
		return nil, apperr.NotFound("event", eventID)
	}
	live := 0
	for _, r := range m.byID {
		if r.EventID != eventID || r.Status == models.RegistrationCancelled {
			continue
		}
		if strings.EqualFold(r.UserEmail, info.Email) {
			return nil, apperr.Conflict("already registered for this event")
		}
		live++
	}
	if event.MaxParticipants > 0 && live >= event.MaxParticipants {
		return nil, apperr.Conflict("event is full")
	}
	r := &models.Registration{
		ID: uuid.New(), EventID: eventID, UserName: strings.TrimSpace(info.Name), UserEmail: strings.TrimSpace(info.Email),
		UserCollege: info.College, UserDepartment: info.Department, Status: models.RegistrationRegistered,
		RegistrationDate: time.Now(),
	}
	m.byID[r.ID] = r
	m.order = append(m.order, r.ID)
	c := *r
	return &c, nil
}

func (m *memRegistrations) FindByID(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.byID[id]; ok {
		c := *r
		return &c, nil
	}
	return nil, nil
}

func (m *memRegistrations) ListForEvent(_ context.Context, eventID uuid.UUID) ([]models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Registration
	for _, id := range m.order {
		if r, ok := m.byID[id]; ok && r.EventID == eventID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memRegistrations) ListAll(context.Context) ([]models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Registration
	for i := len(m.order) - 1; i >= 0; i-- {
		if r, ok := m.byID[m.order[i]]; ok {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memRegistrations) UpdateStatus(_ context.Context, id uuid.UUID, status models.RegistrationStatus) (*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("registration", id)
	}
	r.Status = status
	c := *r
	return &c, nil
}

func (m *memRegistrations) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return apperr.NotFound("registration", id)
	}
	delete(m.byID, id)
	return nil
}

// memTemplates backs the admin handlers, the editor manager and the
// issuance workflow.
type memTemplates struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*models.Template
	certs *memCerts // optional, blocks deletes like the store does
}

func newMemTemplates() *memTemplates { return &memTemplates{byID: map[uuid.UUID]*models.Template{}} }

func (m *memTemplates) FindByID(_ context.Context, id uuid.UUID) (*models.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.byID[id]; ok {
		return t.Clone(), nil
	}
	return nil, nil
}

func (m *memTemplates) FindActiveByEvent(_ context.Context, eventID uuid.UUID) (*models.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.byID {
		if t.EventID == eventID && t.IsActive {
			return t.Clone(), nil
		}
	}
	return nil, nil
}

func (m *memTemplates) ListVersions(_ context.Context, eventID uuid.UUID) ([]models.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Template
	for _, t := range m.byID {
		if t.EventID == eventID {
			out = append(out, *t.Clone())
		}
	}
	return out, nil
}

func (m *memTemplates) Create(_ context.Context, eventID uuid.UUID, t *models.Template) (*models.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, old := range m.byID {
		if old.EventID == eventID {
			old.IsActive = false
		}
	}
	c := t.Clone()
	c.ID, c.EventID, c.Version, c.IsActive = uuid.New(), eventID, 1, true
	m.byID[c.ID] = c
	return c.Clone(), nil
}

func (m *memTemplates) Update(_ context.Context, id uuid.UUID, t *models.Template) (*models.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("template", id)
	}
	c := t.Clone()
	c.Version = old.Version + 1
	c.IsActive = old.IsActive
	m.byID[id] = c
	return c.Clone(), nil
}

func (m *memTemplates) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return apperr.NotFound("template", id)
	}
	if m.certs != nil {
		m.certs.mu.Lock()
		defer m.certs.mu.Unlock()
		for _, c := range m.certs.byID {
			if c.TemplateID == id && c.SupersededAt == nil {
				return apperr.Conflict("template has live certificates; revoke them first")
			}
		}
		for cid, c := range m.certs.byID {
			if c.TemplateID == id {
				delete(m.certs.byID, cid)
			}
		}
	}
	delete(m.byID, id)
	return nil
}

// memCerts is an in-memory issuance.CertificateStore.
type memCerts struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*models.IssuedCertificate
}

func newMemCerts() *memCerts { return &memCerts{byID: map[uuid.UUID]*models.IssuedCertificate{}} }

func (m *memCerts) Issue(_ context.Context, c *models.IssuedCertificate) (*models.IssuedCertificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, old := range m.byID {
		if old.TemplateID == c.TemplateID && old.RecipientID == c.RecipientID && old.SupersededAt == nil {
			old.SupersededAt = &now
		}
	}
	cp := *c
	cp.ID, cp.IssuedAt, cp.UpdatedAt = uuid.New(), now, now
	m.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memCerts) FindByID(_ context.Context, id uuid.UUID) (*models.IssuedCertificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.byID[id]; ok {
		out := *c
		return &out, nil
	}
	return nil, nil
}

func (m *memCerts) Transition(_ context.Context, id uuid.UUID, from, to models.CertificateStatus, artifactURL *string) (*models.IssuedCertificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok || c.Status != from || c.SupersededAt != nil {
		return nil, nil
	}
	c.Status = to
	if artifactURL != nil {
		u := *artifactURL
		c.ArtifactURL = &u
	}
	out := *c
	return &out, nil
}

func (m *memCerts) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

func (m *memCerts) ListForEvent(_ context.Context, eventID uuid.UUID) ([]models.IssuedCertificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.IssuedCertificate
	for _, c := range m.byID {
		if c.EventID == eventID && c.SupersededAt == nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

// memObjects implements ObjectUploader and issuance.ObjectStore.
type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemObjects() *memObjects { return &memObjects{objects: map[string][]byte{}} }

func (m *memObjects) Upload(_ context.Context, bucket, key, _ string, body io.Reader, _ int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = data
	return nil
}

func (m *memObjects) Delete(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, bucket+"/"+key)
	return nil
}

func (m *memObjects) PublicBucket() string        { return "public" }
func (m *memObjects) PrivateBucket() string       { return "private" }
func (m *memObjects) FileURL(key string) string    { return "https://s3.test/public/" + key }
func (m *memObjects) PrivateURL(key string) string { return "https://s3.test/private/" + key }

func (m *memObjects) ExtractS3Key(rawURL string) (string, string, bool) {
	const prefix = "https://s3.test/private/"
	if strings.HasPrefix(rawURL, prefix) {
		return "private", strings.TrimPrefix(rawURL, prefix), true
	}
	return "", "", false
}

func (m *memObjects) PresignedURL(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://s3.test/" + bucket + "/" + key + "?sig=test", nil
}

// memSessions implements SessionStore, keyed by the session cookie.
type memSessions struct {
	mu   sync.Mutex
	byID map[string]*session.Data
}

func newMemSessions() *memSessions { return &memSessions{byID: map[string]*session.Data{}} }

func (m *memSessions) Create(_ context.Context, w http.ResponseWriter, data *session.Data) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	c := *data
	m.byID[id] = &c
	http.SetCookie(w, &http.Cookie{Name: session.CookieName, Value: id, Path: "/"})
	return id, nil
}

func (m *memSessions) Update(_ context.Context, r *http.Request, data *session.Data) error {
	cookie, err := r.Cookie(session.CookieName)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *data
	m.byID[cookie.Value] = &c
	return nil
}

func (m *memSessions) Destroy(_ context.Context, _ http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(session.CookieName)
	if err != nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, cookie.Value)
	return nil
}

func (m *memSessions) get(id string) *session.Data {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

// memUsers implements UserStore with bcrypt hashes like the real store.
type memUsers struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*models.User
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uuid.UUID]*models.User{}} }

func (m *memUsers) add(t *testing.T, email, password string, role models.Role) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	u := &models.User{ID: uuid.New(), Email: email, PasswordHash: string(hash), DisplayName: "Test User", Role: role}
	m.mu.Lock()
	m.byID[u.ID] = u
	m.mu.Unlock()
	return u
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (m *memUsers) SetTOTPSecret(_ context.Context, id uuid.UUID, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return apperr.NotFound("user", id)
	}
	u.TOTPSecret = &secret
	return nil
}

func (m *memUsers) EnableTOTP(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return apperr.NotFound("user", id)
	}
	u.TOTPEnabled = true
	return nil
}

func (m *memUsers) List(context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *memUsers) Create(_ context.Context, email, password, displayName string, role models.Role) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			return nil, apperr.Conflict("users_email_key")
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{ID: uuid.New(), Email: email, PasswordHash: string(hash), DisplayName: displayName, Role: role}
	m.byID[u.ID] = u
	c := *u
	return &c, nil
}

func (m *memUsers) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return apperr.NotFound("user", id)
	}
	delete(m.byID, id)
	return nil
}

func (m *memUsers) ResetTOTP(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return apperr.NotFound("user", id)
	}
	u.TOTPSecret = nil
	u.TOTPEnabled = false
	return nil
}

func (m *memUsers) CheckPassword(u *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

type auditRow struct {
	entity string
	id     uuid.UUID
	action string
}

type memAudit struct {
	mu   sync.Mutex
	rows []auditRow
}

func (m *memAudit) Record(_ context.Context, _ uuid.UUID, entity string, id uuid.UUID, action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, auditRow{entity, id, action})
}

func (m *memAudit) Recent(_ context.Context, limit int) ([]store.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.AuditEntry{}
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		r := m.rows[i]
		out = append(out, store.AuditEntry{ID: int64(i + 1), EntityType: r.entity, EntityID: r.id, Action: r.action})
	}
	return out, nil
}

func (m *memAudit) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = r.action
	}
	return out
}

// --- request helpers ---

// testSession creates a session.Data for testing.
func testSession(role string, twoFADone bool) *session.Data {
	return &session.Data{
		UserID:      uuid.New(),
		Email:       role + "@eventcert.local",
		DisplayName: "Test User",
		Role:        role,
		TwoFADone:   twoFADone,
	}
}

// serve routes one request with an optional JSON body. See route.
func serve(t *testing.T, method, pattern string, h http.HandlerFunc, path string, body any, sess *session.Data) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return route(pattern, h, req, sess)
}

// route serves req through a chi router that has only pattern registered,
// with sess placed where LoadSession would put it.
func route(pattern string, h http.HandlerFunc, req *http.Request, sess *session.Data) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if sess != nil {
				req = req.WithContext(context.WithValue(req.Context(), middleware.SessionKey, sess))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.MethodFunc(req.Method, pattern, h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// decodeBody unmarshals a JSON response body into v.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

// memCache records public cache invalidations.
type memCache struct {
	mu     sync.Mutex
	events []uuid.UUID
}

func (m *memCache) InvalidateEvent(_ context.Context, eventID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, eventID)
}

func (m *memCache) invalidated() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uuid.UUID(nil), m.events...)
}
