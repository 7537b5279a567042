// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// ElementKind is the closed set of visual primitives a certificate
// template can contain.
type ElementKind string

const (
	ElementText      ElementKind = "text"
	ElementImage     ElementKind = "image"
	ElementRectangle ElementKind = "rectangle"
	ElementCircle    ElementKind = "circle"
	ElementLine      ElementKind = "line"
)

// ElementKinds lists every supported kind in a stable order.
var ElementKinds = []ElementKind{
	ElementText, ElementImage, ElementRectangle, ElementCircle, ElementLine,
}

// Valid reports whether k is one of the supported kinds.
func (k ElementKind) Valid() bool {
	switch k {
	case ElementText, ElementImage, ElementRectangle, ElementCircle, ElementLine:
		return true
	}
	return false
}

// Font weights, styles and alignments accepted on text elements.
const (
	FontWeightNormal = "normal"
	FontWeightBold   = "bold"

	FontStyleNormal = "normal"
	FontStyleItalic = "italic"

	AlignLeft   = "left"
	AlignCenter = "center"
	AlignRight  = "right"
)

// Point is a position in canvas coordinates (top-left origin).
type Point struct {
	X float64 `json:"x" validate:"gte=-10000,lte=10000"`
	Y float64 `json:"y" validate:"gte=-10000,lte=10000"`
}

// Size is an intrinsic element size. For lines it holds the (dx, dy)
// vector from the start point; for circles Height always equals Width.
type Size struct {
	Width  float64 `json:"width" validate:"gte=-10000,lte=10000"`
	Height float64 `json:"height" validate:"gte=-10000,lte=10000"`
}

// Scale holds the multipliers applied after the intrinsic size.
type Scale struct {
	X float64 `json:"scaleX" validate:"gte=-50,lte=50"`
	Y float64 `json:"scaleY" validate:"gte=-50,lte=50"`
}

// TemplateElement is one positioned visual primitive of a certificate
// template. Text-only fields are empty for other kinds, and Src is only
// set on image elements.
type TemplateElement struct {
	ID       string      `json:"id"`
	Kind     ElementKind `json:"kind"`
	Position Point       `json:"position"`
	Size     Size        `json:"size"`
	Rotation float64     `json:"rotation"`
	Scale    Scale       `json:"scale"`
	Fill     string      `json:"fill"`

	Content    string  `json:"content,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`
	FontWeight string  `json:"fontWeight,omitempty"`
	FontStyle  string  `json:"fontStyle,omitempty"`
	TextAlign  string  `json:"textAlign,omitempty"`

	Src string `json:"src,omitempty"`
}

// Normalize drops fields that do not apply to the element's kind and
// enforces the circle invariant (height equals width).
func (e TemplateElement) Normalize() TemplateElement {
	if e.Kind != ElementText {
		e.Content = ""
		e.FontSize = 0
		e.FontFamily = ""
		e.FontWeight = ""
		e.FontStyle = ""
		e.TextAlign = ""
	}
	if e.Kind != ElementImage {
		e.Src = ""
	}
	if e.Kind == ElementCircle {
		e.Size.Height = e.Size.Width
	}
	return e
}

// Finite reports whether every numeric field is a finite number.
func (e TemplateElement) Finite() bool {
	for _, v := range []float64{
		e.Position.X, e.Position.Y, e.Size.Width, e.Size.Height,
		e.Rotation, e.Scale.X, e.Scale.Y, e.FontSize,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Geometry limits. Positions and sizes reach well past the 800x600
// canvas; anything beyond them cannot be drawn meaningfully.
const (
	MaxCoordinate = 10000
	MaxScale      = 50
	MinFontSize   = 1
	MaxFontSize   = 500
)

// Drawable reports whether the element's geometry is finite and within
// the geometry limits. Sizes may be negative (line vectors).
func (e TemplateElement) Drawable() bool {
	if !e.Finite() {
		return false
	}
	for _, v := range []float64{e.Position.X, e.Position.Y, e.Size.Width, e.Size.Height} {
		if math.Abs(v) > MaxCoordinate {
			return false
		}
	}
	if math.Abs(e.Scale.X) > MaxScale || math.Abs(e.Scale.Y) > MaxScale {
		return false
	}
	// Zero font size means the renderer default.
	if e.Kind == ElementText && e.FontSize != 0 && (e.FontSize < MinFontSize || e.FontSize > MaxFontSize) {
		return false
	}
	return true
}

// Template is a certificate layout bound to exactly one event. Elements
// are stored in render order: index 0 is drawn first (bottom-most).
type Template struct {
	ID            uuid.UUID         `json:"id"`
	EventID       uuid.UUID         `json:"eventId"`
	Name          string            `json:"name"`
	BackgroundURL *string           `json:"backgroundUrl"`
	Elements      []TemplateElement `json:"elements"`
	Version       int               `json:"version"`
	IsActive      bool              `json:"isActive"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// Clone returns a deep copy that shares no slices or pointers with t.
func (t *Template) Clone() *Template {
	c := *t
	c.Elements = CloneElements(t.Elements)
	if t.BackgroundURL != nil {
		bg := *t.BackgroundURL
		c.BackgroundURL = &bg
	}
	return &c
}

// Background returns the background URL or an empty string.
func (t *Template) Background() string {
	if t.BackgroundURL == nil {
		return ""
	}
	return *t.BackgroundURL
}

// IndexOf returns the z-index of the element with the given id, or -1.
func (t *Template) IndexOf(id string) int {
	for i := range t.Elements {
		if t.Elements[i].ID == id {
			return i
		}
	}
	return -1
}

// DuplicateID returns the first element id that appears more than once,
// or an empty string when all ids are unique.
func (t *Template) DuplicateID() string {
	seen := make(map[string]bool, len(t.Elements))
	for _, e := range t.Elements {
		if seen[e.ID] {
			return e.ID
		}
		seen[e.ID] = true
	}
	return ""
}

// CloneElements copies an element slice. A nil input yields an empty,
// non-nil slice so the JSON form is always an array.
func CloneElements(in []TemplateElement) []TemplateElement {
	out := make([]TemplateElement, len(in))
	copy(out, in)
	return out
}
