// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package canvas converts between the persisted template element list and
// a scene of drawable objects. The scene is read-only input for renderers;
// the element list owned by the editor stays the source of truth.
//
// Geometry follows the persisted layout: positions are top-left in canvas
// units, circles carry a radius of width/2 and lines store their end point
// as start plus the (width, height) vector.
package canvas

import (
	"fmt"
	"log/slog"

	"eventcert/internal/models"
)

// Canvas dimensions in template units.
const (
	Width  = 800
	Height = 600
)

// Object is a drawable scene node.
type Object interface {
	// ID returns the element id the object was built from.
	ID() string
	// Kind returns the template element kind.
	Kind() models.ElementKind
	// element converts the object back into its persisted form.
	element() models.TemplateElement
}

// Base holds the transform and paint shared by every object.
type Base struct {
	ElementID string
	Left      float64
	Top       float64
	Angle     float64 // degrees, clockwise, around the object's center
	ScaleX    float64
	ScaleY    float64
	Fill      string
}

func (b Base) ID() string { return b.ElementID }

func (b Base) template(kind models.ElementKind) models.TemplateElement {
	return models.TemplateElement{
		ID:       b.ElementID,
		Kind:     kind,
		Position: models.Point{X: b.Left, Y: b.Top},
		Rotation: b.Angle,
		Scale:    models.Scale{X: b.ScaleX, Y: b.ScaleY},
		Fill:     b.Fill,
	}
}

// TextBox is a wrapped block of text.
type TextBox struct {
	Base
	Text       string
	Width      float64
	Height     float64
	FontSize   float64
	FontFamily string
	FontWeight string
	FontStyle  string
	TextAlign  string
}

func (*TextBox) Kind() models.ElementKind { return models.ElementText }

func (o *TextBox) element() models.TemplateElement {
	e := o.template(models.ElementText)
	e.Size = models.Size{Width: o.Width, Height: o.Height}
	e.Content = o.Text
	e.FontSize = o.FontSize
	e.FontFamily = o.FontFamily
	e.FontWeight = o.FontWeight
	e.FontStyle = o.FontStyle
	e.TextAlign = o.TextAlign
	return e
}

// Rect is a filled axis-aligned rectangle before rotation.
type Rect struct {
	Base
	Width  float64
	Height float64
}

func (*Rect) Kind() models.ElementKind { return models.ElementRectangle }

func (o *Rect) element() models.TemplateElement {
	e := o.template(models.ElementRectangle)
	e.Size = models.Size{Width: o.Width, Height: o.Height}
	return e
}

// Circle is a filled circle whose bounding box starts at Left/Top.
type Circle struct {
	Base
	Radius float64
}

func (*Circle) Kind() models.ElementKind { return models.ElementCircle }

func (o *Circle) element() models.TemplateElement {
	e := o.template(models.ElementCircle)
	d := o.Radius * 2
	e.Size = models.Size{Width: d, Height: d}
	return e
}

// Line is a stroked segment from (X1, Y1) to (X2, Y2). Fill is the stroke
// colour.
type Line struct {
	Base
	X1, Y1 float64
	X2, Y2 float64
}

func (*Line) Kind() models.ElementKind { return models.ElementLine }

func (o *Line) element() models.TemplateElement {
	e := o.template(models.ElementLine)
	e.Position = models.Point{X: o.X1, Y: o.Y1}
	e.Size = models.Size{Width: o.X2 - o.X1, Height: o.Y2 - o.Y1}
	return e
}

// Image is a raster placed at Left/Top with an intrinsic size.
type Image struct {
	Base
	Src    string
	Width  float64
	Height float64
}

func (*Image) Kind() models.ElementKind { return models.ElementImage }

func (o *Image) element() models.TemplateElement {
	e := o.template(models.ElementImage)
	e.Size = models.Size{Width: o.Width, Height: o.Height}
	e.Src = o.Src
	return e
}

// Scene is an ordered list of objects. Index 0 is drawn first.
type Scene struct {
	Background string
	Objects    []Object
}

// Warning describes an element that Deserialize skipped.
type Warning struct {
	Index  int
	ID     string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("element %d (%q): %s", w.Index, w.ID, w.Reason)
}

// Deserialize builds a scene from persisted elements, preserving order.
// Elements with an unknown kind, an empty or repeated id, or non-finite or
// out of range geometry are skipped and reported as warnings instead of failing the
// whole template.
func Deserialize(background string, elems []models.TemplateElement) (*Scene, []Warning) {
	scene := &Scene{
		Background: background,
		Objects:    make([]Object, 0, len(elems)),
	}
	var warnings []Warning
	seen := make(map[string]bool, len(elems))

	for i, raw := range elems {
		reason := ""
		switch {
		case !raw.Kind.Valid():
			reason = fmt.Sprintf("unknown kind %q", raw.Kind)
		case raw.ID == "":
			reason = "missing id"
		case seen[raw.ID]:
			reason = "duplicate id"
		case !raw.Finite():
			reason = "non-finite geometry"
		case !raw.Normalize().Drawable():
			reason = "geometry out of range"
		}
		if reason != "" {
			w := Warning{Index: i, ID: raw.ID, Reason: reason}
			slog.Warn("skipping template element", "index", i, "id", raw.ID, "kind", raw.Kind, "reason", reason)
			warnings = append(warnings, w)
			continue
		}
		seen[raw.ID] = true
		scene.Objects = append(scene.Objects, build(raw.Normalize()))
	}
	return scene, warnings
}

func build(e models.TemplateElement) Object {
	base := Base{
		ElementID: e.ID,
		Left:      e.Position.X,
		Top:       e.Position.Y,
		Angle:     e.Rotation,
		ScaleX:    e.Scale.X,
		ScaleY:    e.Scale.Y,
		Fill:      e.Fill,
	}
	switch e.Kind {
	case models.ElementText:
		return &TextBox{
			Base:       base,
			Text:       e.Content,
			Width:      e.Size.Width,
			Height:     e.Size.Height,
			FontSize:   e.FontSize,
			FontFamily: e.FontFamily,
			FontWeight: e.FontWeight,
			FontStyle:  e.FontStyle,
			TextAlign:  e.TextAlign,
		}
	case models.ElementRectangle:
		return &Rect{Base: base, Width: e.Size.Width, Height: e.Size.Height}
	case models.ElementCircle:
		return &Circle{Base: base, Radius: e.Size.Width / 2}
	case models.ElementLine:
		return &Line{
			Base: base,
			X1:   e.Position.X,
			Y1:   e.Position.Y,
			X2:   e.Position.X + e.Size.Width,
			Y2:   e.Position.Y + e.Size.Height,
		}
	default: // models.ElementImage
		return &Image{Base: base, Src: e.Src, Width: e.Size.Width, Height: e.Size.Height}
	}
}

// Serialize walks the scene once, in render order, and emits one element
// per live object. The result is never nil.
func Serialize(scene *Scene) []models.TemplateElement {
	if scene == nil {
		return []models.TemplateElement{}
	}
	out := make([]models.TemplateElement, 0, len(scene.Objects))
	for _, o := range scene.Objects {
		if o == nil {
			continue
		}
		out = append(out, o.element())
	}
	return out
}

// Remove drops the object with the given id from the scene. It reports
// whether an object was removed.
func (s *Scene) Remove(id string) bool {
	for i, o := range s.Objects {
		if o.ID() == id {
			s.Objects = append(s.Objects[:i], s.Objects[i+1:]...)
			return true
		}
	}
	return false
}
