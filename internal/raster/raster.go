// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package raster draws a canvas scene onto an RGBA image. It only reads
// the scene; nothing here mutates template state.
package raster

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"

	"eventcert/internal/canvas"
)

// ImageLoader fetches remote images referenced by a scene (background and
// image elements).
type ImageLoader interface {
	Load(ctx context.Context, url string) (image.Image, error)
}

// Renderer draws scenes at the canvas resolution.
type Renderer struct {
	loader ImageLoader
}

// New creates a Renderer. A nil loader skips every remote image.
func New(loader ImageLoader) *Renderer {
	return &Renderer{loader: loader}
}

// face is the only built-in font. Text is drawn at its native 13px size
// and scaled to the requested font size.
var face = basicfont.Face7x13

const faceHeight = 13.0

// maxLayer bounds either side of an intermediate layer. Larger objects
// are rasterized at reduced resolution and scaled up when placed.
const maxLayer = 2048

// Render draws the scene on a white 800x600 canvas. Images that fail to
// load are logged and left out; they never fail the render.
func (r *Renderer) Render(ctx context.Context, scene *canvas.Scene) (*image.RGBA, error) {
	dst := image.NewRGBA(image.Rect(0, 0, canvas.Width, canvas.Height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	if scene == nil {
		return dst, nil
	}

	if scene.Background != "" {
		if bg := r.load(ctx, scene.Background); bg != nil {
			draw.CatmullRom.Scale(dst, dst.Bounds(), bg, bg.Bounds(), draw.Over, nil)
		}
	}

	for _, obj := range scene.Objects {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		switch o := obj.(type) {
		case *canvas.Rect:
			src := image.NewUniform(ParseColor(o.Fill))
			b, w, h := fit(o.Base, o.Width, o.Height)
			place(dst, src, image.Rect(0, 0, ceil(w), ceil(h)), b, w, h)
		case *canvas.Circle:
			b, d, _ := fit(o.Base, o.Radius*2, o.Radius*2)
			place(dst, circleMask(d/2, ParseColor(o.Fill)), image.Rect(0, 0, ceil(d), ceil(d)), b, d, d)
		case *canvas.TextBox:
			drawText(dst, o)
		case *canvas.Line:
			drawLine(dst, o)
		case *canvas.Image:
			img := r.load(ctx, o.Src)
			if img == nil {
				continue
			}
			// Stretch the source into the element's intrinsic box first.
			b, w, h := fit(o.Base, o.Width, o.Height)
			box := image.NewRGBA(image.Rect(0, 0, ceil(w), ceil(h)))
			draw.ApproxBiLinear.Scale(box, box.Bounds(), img, img.Bounds(), draw.Src, nil)
			place(dst, box, box.Bounds(), b, w, h)
		}
	}
	return dst, nil
}

func (r *Renderer) load(ctx context.Context, url string) image.Image {
	if r.loader == nil || url == "" {
		return nil
	}
	img, err := r.loader.Load(ctx, url)
	if err != nil {
		slog.Warn("render: image load failed", "url", url, "error", err)
		return nil
	}
	return img
}

// transform returns the source-to-destination matrix for an object whose
// intrinsic box is w x h: scale, then rotate around the scaled box center,
// then translate to Left/Top.
func transform(b canvas.Base, w, h float64) f64.Aff3 {
	rad := b.Angle * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	sx, sy := b.ScaleX, b.ScaleY
	cx, cy := w*sx/2, h*sy/2
	return f64.Aff3{
		cos * sx, -sin * sy, b.Left + cx - (cos*cx - sin*cy),
		sin * sx, cos * sy, b.Top + cy - (sin*cx + cos*cy),
	}
}

// fit shrinks an intrinsic w x h box so neither side exceeds maxLayer,
// moving the difference into the object's scale on that axis. The placed
// result covers the same destination area.
func fit(b canvas.Base, w, h float64) (canvas.Base, float64, float64) {
	if w > maxLayer {
		b.ScaleX *= w / maxLayer
		w = maxLayer
	}
	if h > maxLayer {
		b.ScaleY *= h / maxLayer
		h = maxLayer
	}
	return b, w, h
}

func place(dst draw.Image, src image.Image, sr image.Rectangle, b canvas.Base, w, h float64) {
	placeAt(dst, src, sr, transform(b, w, h), b)
}

// placeAt draws src through m. The transform only visits destination
// pixels, so the cost is bounded by the canvas.
func placeAt(dst draw.Image, src image.Image, sr image.Rectangle, m f64.Aff3, b canvas.Base) {
	if sr.Empty() || b.ScaleX == 0 || b.ScaleY == 0 {
		return
	}
	draw.ApproxBiLinear.Transform(dst, m, src, sr, draw.Over, nil)
}

func circleMask(radius float64, c color.Color) *image.RGBA {
	d := ceil(radius * 2)
	img := image.NewRGBA(image.Rect(0, 0, d, d))
	src := image.NewUniform(c)
	r2 := radius * radius
	for y := 0; y < d; y++ {
		dy := float64(y) + 0.5 - radius
		if dy*dy > r2 {
			continue
		}
		// Pixel centers within half a chord of the middle.
		half := math.Sqrt(r2 - dy*dy)
		x0 := int(math.Ceil(radius - half - 0.5))
		x1 := int(math.Floor(radius+half-0.5)) + 1
		draw.Draw(img, image.Rect(x0, y, x1, y+1), src, image.Point{}, draw.Src)
	}
	return img
}

// drawText lays the text out at native font size inside a box of width
// Width/ratio, then scales it by fontSize/13 and the object's scale.
func drawText(dst draw.Image, o *canvas.TextBox) {
	size := o.FontSize
	if size <= 0 {
		size = faceHeight
	}
	ratio := size / faceHeight
	boxW := math.Min(o.Width/ratio, 1<<24)
	if boxW < 1 {
		boxW = 1
	}
	boxWi := int(math.Ceil(boxW))

	lines := wrap(o.Text, boxW)
	if len(lines) == 0 {
		return
	}
	lineH := face.Metrics().Height.Ceil()
	boxH := len(lines) * lineH

	// The layer only spans the inked columns inside the box, starting at
	// left, and is cut at maxLayer in both directions.
	xs := make([]int, len(lines))
	left, right := math.MaxInt, 0
	for i, line := range lines {
		adv := font.MeasureString(face, line).Ceil() + 1
		switch o.TextAlign {
		case "center":
			xs[i] = (boxWi - adv) / 2
		case "right":
			xs[i] = boxWi - adv
		}
		left = min(left, xs[i])
		right = max(right, xs[i]+adv)
	}
	left, right = max(left, 0), min(right, boxWi)
	if right <= left {
		return
	}
	layer := image.NewRGBA(image.Rect(0, 0, min(right-left, maxLayer), min(boxH, maxLayer)))

	d := &font.Drawer{Dst: layer, Src: image.NewUniform(ParseColor(o.Fill)), Face: face}
	for i, line := range lines {
		y := i*lineH + face.Metrics().Ascent.Ceil()
		if y-lineH > maxLayer {
			break
		}
		x := xs[i] - left
		d.Dot = fixed.P(x, y)
		d.DrawString(line)
		if o.FontWeight == "bold" {
			// Fake bold with a one pixel overstrike.
			d.Dot = fixed.P(x+1, y)
			d.DrawString(line)
		}
	}

	b := o.Base
	b.ScaleX *= ratio
	b.ScaleY *= ratio
	m := transform(b, boxW, float64(boxH))
	// Shift layer column 0 to box column left.
	m[2] += m[0] * float64(left)
	m[5] += m[3] * float64(left)
	placeAt(dst, layer, layer.Bounds(), m, b)
}

// wrap splits text into lines no wider than width pixels of the native
// face. Explicit newlines are kept.
func wrap(text string, width float64) []string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			candidate := line + " " + w
			if float64(font.MeasureString(face, candidate).Ceil()) > width {
				out = append(out, line)
				line = w
				continue
			}
			line = candidate
		}
		out = append(out, line)
	}
	return out
}

// drawLine strokes the segment 2px wide. Rotation turns it around its
// midpoint and scale stretches it from the start point.
func drawLine(dst *image.RGBA, o *canvas.Line) {
	dx := (o.X2 - o.X1) * o.ScaleX
	dy := (o.Y2 - o.Y1) * o.ScaleY
	rad := o.Angle * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	mx, my := o.X1+dx/2, o.Y1+dy/2
	hx, hy := dx/2, dy/2
	x1, y1 := mx-(cos*hx-sin*hy), my-(sin*hx+cos*hy)
	x2, y2 := mx+(cos*hx-sin*hy), my+(sin*hx+cos*hy)

	bounds := dst.Bounds()
	x1, y1, x2, y2, ok := clipSegment(x1, y1, x2, y2,
		float64(bounds.Min.X-2), float64(bounds.Min.Y-2), float64(bounds.Max.X+1), float64(bounds.Max.Y+1))
	if !ok {
		return
	}

	c := ParseColor(o.Fill)
	steps := int(math.Ceil(math.Max(math.Abs(x2-x1), math.Abs(y2-y1))))
	if steps == 0 {
		steps = 1
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		px := int(math.Round(x1 + (x2-x1)*t))
		py := int(math.Round(y1 + (y2-y1)*t))
		for oy := 0; oy < 2; oy++ {
			for ox := 0; ox < 2; ox++ {
				if (image.Point{X: px + ox, Y: py + oy}).In(dst.Bounds()) {
					dst.Set(px+ox, py+oy, c)
				}
			}
		}
	}
}

// clipSegment clips a segment to the rectangle [minX,maxX]x[minY,maxY]
// (Liang-Barsky). ok is false when nothing of it is inside.
func clipSegment(x1, y1, x2, y2, minX, minY, maxX, maxY float64) (float64, float64, float64, float64, bool) {
	dx, dy := x2-x1, y2-y1
	t0, t1 := 0.0, 1.0
	for _, e := range [4][2]float64{
		{-dx, x1 - minX},
		{dx, maxX - x1},
		{-dy, y1 - minY},
		{dy, maxY - y1},
	} {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return 0, 0, 0, 0, false
			}
			t0 = math.Max(t0, r)
		} else {
			if r < t0 {
				return 0, 0, 0, 0, false
			}
			t1 = math.Min(t1, r)
		}
	}
	return x1 + t0*dx, y1 + t0*dy, x1 + t1*dx, y1 + t1*dy, true
}

// ParseColor understands #rgb and #rrggbb. Anything else is black.
func ParseColor(s string) color.RGBA {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{A: 255}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

func ceil(v float64) int {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= maxLayer {
		return maxLayer
	}
	return int(math.Ceil(v))
}
