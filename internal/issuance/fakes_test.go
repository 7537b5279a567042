// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package issuance

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"eventcert/internal/models"
)

type fakeTemplates map[uuid.UUID]*models.Template

func (f fakeTemplates) FindByID(_ context.Context, id uuid.UUID) (*models.Template, error) {
	if t, ok := f[id]; ok {
		return t.Clone(), nil
	}
	return nil, nil
}

type fakeEvents map[uuid.UUID]*models.Event

func (f fakeEvents) FindByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	if e, ok := f[id]; ok {
		c := *e
		return &c, nil
	}
	return nil, nil
}

type fakeRegistrations struct {
	byID map[uuid.UUID]*models.Registration
	fail map[uuid.UUID]error
}

func (f *fakeRegistrations) FindByID(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	if err, ok := f.fail[id]; ok {
		return nil, err
	}
	if r, ok := f.byID[id]; ok {
		c := *r
		return &c, nil
	}
	return nil, nil
}

// fakeCerts mirrors the Postgres store: Issue supersedes live records for
// the same pair and Transition is conditional on the current status.
type fakeCerts struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*models.IssuedCertificate
	order   []uuid.UUID
	failFor map[uuid.UUID]error // keyed by recipient id
	clock   time.Time
}

func newFakeCerts() *fakeCerts {
	return &fakeCerts{
		byID:    make(map[uuid.UUID]*models.IssuedCertificate),
		failFor: make(map[uuid.UUID]error),
		clock:   time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeCerts) Issue(_ context.Context, c *models.IssuedCertificate) (*models.IssuedCertificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[c.RecipientID]; ok {
		return nil, err
	}
	f.clock = f.clock.Add(time.Second)
	now := f.clock
	for _, existing := range f.byID {
		if existing.TemplateID == c.TemplateID && existing.RecipientID == c.RecipientID && existing.SupersededAt == nil {
			existing.SupersededAt = &now
		}
	}
	cp := *c
	cp.ID = uuid.New()
	cp.UpdatedAt = now
	f.byID[cp.ID] = &cp
	f.order = append(f.order, cp.ID)
	out := cp
	return &out, nil
}

func (f *fakeCerts) FindByID(_ context.Context, id uuid.UUID) (*models.IssuedCertificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.byID[id]; ok {
		out := *c
		return &out, nil
	}
	return nil, nil
}

func (f *fakeCerts) Transition(_ context.Context, id uuid.UUID, from, to models.CertificateStatus, artifactURL *string) (*models.IssuedCertificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
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

func (f *fakeCerts) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}

func (f *fakeCerts) ListForEvent(_ context.Context, eventID uuid.UUID) ([]models.IssuedCertificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.IssuedCertificate
	for _, c := range f.byID {
		if c.EventID == eventID && c.SupersededAt == nil {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakeCerts) setStatus(id uuid.UUID, s models.CertificateStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[id].Status = s
}

type auditEntry struct {
	entityID uuid.UUID
	action   string
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (f *fakeAudit) Record(_ context.Context, _ uuid.UUID, _ string, id uuid.UUID, action string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, auditEntry{id, action})
}

func (f *fakeAudit) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.entries {
		out = append(out, e.action)
	}
	return out
}

type fakeObjects struct {
	mu      sync.Mutex
	objects    map[string][]byte
	failPut    error
	failDelete error
	deletes    int
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) Upload(_ context.Context, bucket, key, _ string, body io.Reader, _ int64) error {
	if f.failPut != nil {
		return f.failPut
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[bucket+"/"+key] = data
	return nil
}

func (f *fakeObjects) Delete(_ context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.failDelete != nil {
		return f.failDelete
	}
	delete(f.objects, bucket+"/"+key)
	return nil
}

func (f *fakeObjects) PrivateBucket() string { return "private" }

func (f *fakeObjects) PrivateURL(key string) string { return "https://s3.test/private/" + key }

func (f *fakeObjects) ExtractS3Key(rawURL string) (string, string, bool) {
	const prefix = "https://s3.test/private/"
	if len(rawURL) > len(prefix) && rawURL[:len(prefix)] == prefix {
		return "private", rawURL[len(prefix):], true
	}
	return "", "", false
}

func (f *fakeObjects) PresignedURL(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://s3.test/" + bucket + "/" + key + "?sig=abc", nil
}

var errBoom = errors.New("boom")

// fixture wires a workflow over fakes with one event, one template and
// three active registrations.
type fixture struct {
	event    *models.Event
	template *models.Template
	regs     []*models.Registration
	certs    *fakeCerts
	audit    *fakeAudit
	objects  *fakeObjects
	registry *fakeRegistrations
	workflow *Workflow
	actor    Actor
}

func newFixture() *fixture {
	event := &models.Event{ID: uuid.New(), Title: "Tech Fest", Date: "2026-03-14"}
	tmpl := &models.Template{
		ID:       uuid.New(),
		EventID:  event.ID,
		Name:     "Tech Fest Certificate",
		IsActive: true,
		Elements: []models.TemplateElement{
			{ID: "text_1", Kind: models.ElementText, Content: "Awarded to {{name}}", Position: models.Point{X: 100, Y: 100}, Size: models.Size{Width: 400}, Scale: models.Scale{X: 1, Y: 1}, FontSize: 24, Fill: "#000000"},
		},
	}
	reg := &fakeRegistrations{byID: map[uuid.UUID]*models.Registration{}, fail: map[uuid.UUID]error{}}
	var regs []*models.Registration
	for _, name := range []string{"Ana", "Bogdan", "Carla"} {
		r := &models.Registration{
			ID:        uuid.New(),
			EventID:   event.ID,
			UserName:  name,
			UserEmail: name + "@college.edu",
			Status:    models.RegistrationRegistered,
		}
		reg.byID[r.ID] = r
		regs = append(regs, r)
	}
	certs := newFakeCerts()
	audit := &fakeAudit{}
	wf := NewWorkflow(fakeTemplates{tmpl.ID: tmpl}, reg, certs, audit, 2)
	return &fixture{
		event:    event,
		template: tmpl,
		regs:     regs,
		certs:    certs,
		audit:    audit,
		objects:  newFakeObjects(),
		registry: reg,
		workflow: wf,
		actor:    Actor{UserID: uuid.New(), Email: "admin@eventcert.local"},
	}
}

func (f *fixture) events() fakeEvents { return fakeEvents{f.event.ID: f.event} }

func (f *fixture) issueOne() *models.IssuedCertificate {
	b, err := f.workflow.Issue(context.Background(), f.actor, f.template.ID, []uuid.UUID{f.regs[0].ID})
	if err != nil {
		panic(err)
	}
	if b.Outcomes[0].Err != nil {
		panic(b.Outcomes[0].Err)
	}
	return b.Outcomes[0].Certificate
}
