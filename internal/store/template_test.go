// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"eventcert/internal/apperr"
	"eventcert/internal/models"
)

func sampleTemplate(name string) *models.Template {
	bg := "https://cdn.test/bg.png"
	return &models.Template{
		Name:          name,
		BackgroundURL: &bg,
		Elements: []models.TemplateElement{
			{ID: "text_1", Kind: models.ElementText, Content: "Awarded to {{name}}", Position: models.Point{X: 100, Y: 100},
				Size: models.Size{Width: 200, Height: 30}, Scale: models.Scale{X: 1, Y: 1}, Fill: "#000000",
				FontSize: 24, FontFamily: "Arial", FontWeight: "bold", FontStyle: "normal", TextAlign: "center"},
			{ID: "circle_2", Kind: models.ElementCircle, Position: models.Point{X: 200, Y: 200},
				Size: models.Size{Width: 60, Height: 60}, Rotation: 15, Scale: models.Scale{X: 1, Y: 1}, Fill: "#e74c3c"},
		},
	}
}

func TestTemplateStoreCreateReplacesActive(t *testing.T) {
	db := testDB(t)
	s := NewTemplateStore(db)
	events := NewEventStore(db)
	ctx := context.Background()
	e := testEvent(t, db, "Store Test Template", 0)

	first, err := s.Create(ctx, e.ID, sampleTemplate("First"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !first.IsActive || first.Version != 1 {
		t.Errorf("new template: active=%v version=%d", first.IsActive, first.Version)
	}
	ev, _ := events.FindByID(ctx, e.ID)
	if !ev.CertificateReady {
		t.Error("expected certificate_ready after create")
	}

	second, err := s.Create(ctx, e.ID, sampleTemplate("Second"))
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	active, err := s.FindActiveByEvent(ctx, e.ID)
	if err != nil {
		t.Fatalf("FindActiveByEvent: %v", err)
	}
	if active == nil || active.ID != second.ID {
		t.Fatalf("active template: got %v, want %s", active, second.ID)
	}
	old, _ := s.FindByID(ctx, first.ID)
	if old.IsActive {
		t.Error("previous template still active")
	}

	versions, err := s.ListVersions(ctx, e.ID)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 2 {
		t.Errorf("versions: got %d, want 2", len(versions))
	}

	_, err = s.Create(ctx, uuid.New(), sampleTemplate("Orphan"))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing event: got %v, want ErrNotFound", err)
	}
}

func TestTemplateStoreElementsRoundTrip(t *testing.T) {
	db := testDB(t)
	s := NewTemplateStore(db)
	ctx := context.Background()
	e := testEvent(t, db, "Store Test Elements", 0)

	want := sampleTemplate("Round Trip")
	created, err := s.Create(ctx, e.ID, want)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := s.FindByID(ctx, created.ID)
	if err != nil || got == nil {
		t.Fatalf("FindByID: %v %v", got, err)
	}
	if len(got.Elements) != len(want.Elements) {
		t.Fatalf("elements: got %d, want %d", len(got.Elements), len(want.Elements))
	}
	for i := range want.Elements {
		if got.Elements[i] != want.Elements[i] {
			t.Errorf("element %d: got %+v, want %+v", i, got.Elements[i], want.Elements[i])
		}
	}
	if got.Background() != want.Background() {
		t.Errorf("background: got %q, want %q", got.Background(), want.Background())
	}
}

func TestTemplateStoreUpdateAndDelete(t *testing.T) {
	db := testDB(t)
	s := NewTemplateStore(db)
	events := NewEventStore(db)
	ctx := context.Background()
	e := testEvent(t, db, "Store Test Template Update", 0)

	created, _ := s.Create(ctx, e.ID, sampleTemplate("Draft"))
	change := sampleTemplate("Final")
	change.BackgroundURL = nil
	change.Elements = nil

	updated, err := s.Update(ctx, created.ID, change)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Version != 2 || updated.Name != "Final" {
		t.Errorf("update: version=%d name=%q", updated.Version, updated.Name)
	}
	if updated.BackgroundURL != nil || len(updated.Elements) != 0 || updated.Elements == nil {
		t.Errorf("update should clear background and elements: %+v", updated)
	}

	_, err = s.Update(ctx, uuid.New(), change)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("update missing: got %v, want ErrNotFound", err)
	}

	if err := s.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ev, _ := events.FindByID(ctx, e.ID)
	if ev.CertificateReady {
		t.Error("expected certificate_ready cleared after delete")
	}
	if err := s.Delete(ctx, created.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second Delete: got %v, want ErrNotFound", err)
	}
}

func TestTemplateStoreDeleteWithCertificates(t *testing.T) {
	db := testDB(t)
	s := NewTemplateStore(db)
	certs := NewCertificateStore(db)
	ctx := context.Background()
	admin := testAdmin(t, db, "template-delete@store-test.local")
	e := testEvent(t, db, "Store Test Template Delete Certificates", 0)

	tmpl, err := s.Create(ctx, e.ID, sampleTemplate("Issued"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	reg, err := NewRegistrationStore(db).Register(ctx, e.ID, &models.RecipientInfo{Name: "Ana", Email: "ana@college.edu"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	c := &models.IssuedCertificate{
		TemplateID: tmpl.ID, EventID: e.ID, RecipientID: reg.ID,
		RecipientName: reg.UserName, RecipientEmail: reg.UserEmail, IssuedBy: admin.ID,
	}
	first, err := certs.Issue(ctx, c)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	live, err := certs.Issue(ctx, c)
	if err != nil {
		t.Fatalf("re-Issue: %v", err)
	}

	if err := s.Delete(ctx, tmpl.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("Delete with a live certificate: got %v, want ErrConflict", err)
	}
	if got, _ := s.FindByID(ctx, tmpl.ID); got == nil {
		t.Fatal("template removed despite the conflict")
	}

	if err := certs.Delete(ctx, live.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := s.Delete(ctx, tmpl.ID); err != nil {
		t.Fatalf("Delete after revoke: %v", err)
	}
	if old, _ := certs.FindByID(ctx, first.ID); old != nil {
		t.Errorf("superseded certificate kept after template delete: %+v", old)
	}
}
