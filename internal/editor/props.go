// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package editor

import "eventcert/internal/models"

// Props is a partial element update. Nil fields are left unchanged. Fields
// that do not apply to the element's kind are ignored.
type Props struct {
	Position *models.Point `json:"position,omitempty"`
	Size     *models.Size  `json:"size,omitempty"`
	Rotation *float64      `json:"rotation,omitempty"`
	Scale    *models.Scale `json:"scale,omitempty"`
	Fill     *string       `json:"fill,omitempty" validate:"omitempty,max=32"`

	Content    *string  `json:"content,omitempty" validate:"omitempty,max=2000"`
	FontSize   *float64 `json:"fontSize,omitempty" validate:"omitempty,gte=1,lte=500"`
	FontFamily *string  `json:"fontFamily,omitempty" validate:"omitempty,max=100"`
	FontWeight *string  `json:"fontWeight,omitempty" validate:"omitempty,oneof=normal bold"`
	FontStyle  *string  `json:"fontStyle,omitempty" validate:"omitempty,oneof=normal italic"`
	TextAlign  *string  `json:"textAlign,omitempty" validate:"omitempty,oneof=left center right"`

	Src *string `json:"src,omitempty" validate:"omitempty,url"`
}

func (p *Props) apply(e *models.TemplateElement) {
	if p == nil {
		return
	}
	if p.Position != nil {
		e.Position = *p.Position
	}
	if p.Size != nil {
		e.Size = *p.Size
	}
	if p.Rotation != nil {
		e.Rotation = *p.Rotation
	}
	if p.Scale != nil {
		e.Scale = *p.Scale
	}
	if p.Fill != nil {
		e.Fill = *p.Fill
	}
	if p.Content != nil {
		e.Content = *p.Content
	}
	if p.FontSize != nil {
		e.FontSize = *p.FontSize
	}
	if p.FontFamily != nil {
		e.FontFamily = *p.FontFamily
	}
	if p.FontWeight != nil {
		e.FontWeight = *p.FontWeight
	}
	if p.FontStyle != nil {
		e.FontStyle = *p.FontStyle
	}
	if p.TextAlign != nil {
		e.TextAlign = *p.TextAlign
	}
	if p.Src != nil {
		e.Src = *p.Src
	}
}

// defaults returns a new element of the given kind placed where the
// editor drops fresh objects.
func defaults(kind models.ElementKind) models.TemplateElement {
	e := models.TemplateElement{
		Kind:  kind,
		Scale: models.Scale{X: 1, Y: 1},
	}
	switch kind {
	case models.ElementText:
		e.Position = models.Point{X: 100, Y: 100}
		e.Size = models.Size{Width: 200, Height: 30}
		e.Fill = "#000000"
		e.Content = "Edit Text"
		e.FontSize = 24
		e.FontFamily = "Arial"
		e.FontWeight = models.FontWeightNormal
		e.FontStyle = models.FontStyleNormal
		e.TextAlign = models.AlignLeft
	case models.ElementRectangle:
		e.Position = models.Point{X: 150, Y: 150}
		e.Size = models.Size{Width: 100, Height: 60}
		e.Fill = "#3498db"
	case models.ElementCircle:
		e.Position = models.Point{X: 200, Y: 200}
		e.Size = models.Size{Width: 60, Height: 60}
		e.Fill = "#e74c3c"
	case models.ElementLine:
		e.Position = models.Point{X: 100, Y: 100}
		e.Size = models.Size{Width: 100, Height: 0}
		e.Fill = "#2ecc71"
	case models.ElementImage:
		e.Position = models.Point{X: 100, Y: 100}
		e.Size = models.Size{Width: 100, Height: 100}
	}
	return e
}
