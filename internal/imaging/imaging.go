// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imaging decodes uploaded certificate backgrounds and produces
// PNG images sized for the template canvas. PNG, JPEG and WebP inputs are
// accepted.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MaxSourcePixels bounds decoded uploads to guard against decompression bombs.
const MaxSourcePixels = 40_000_000

// ErrTooLarge is returned when an upload exceeds MaxSourcePixels.
var ErrTooLarge = errors.New("imaging: image dimensions too large")

// ProcessedImage holds one encoded image ready for upload.
type ProcessedImage struct {
	Width       int
	Height      int
	Data        []byte
	ContentType string // always "image/png"
}

// Normalize decodes an uploaded image and stretches it to exactly
// width x height so it covers the whole canvas, matching how the editor
// lays backgrounds out.
func Normalize(original []byte, width, height int) (*ProcessedImage, error) {
	src, err := Decode(original)
	if err != nil {
		return nil, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return Encode(dst)
}

// Decode reads the image header first and refuses anything over
// MaxSourcePixels before allocating pixel memory.
func Decode(data []byte) (image.Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imaging: read header: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return nil, ErrTooLarge
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode %s: %w", format, err)
	}
	return img, nil
}

// Resize scales img to the given width, keeping its aspect ratio. Images
// already narrower than width are returned unchanged.
func Resize(img image.Image, width int) image.Image {
	b := img.Bounds()
	if width <= 0 || b.Dx() <= width {
		return img
	}
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Encode writes img as PNG.
func Encode(img image.Image) (*ProcessedImage, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("imaging: encode png: %w", err)
	}
	b := img.Bounds()
	return &ProcessedImage{
		Width:       b.Dx(),
		Height:      b.Dy(),
		Data:        buf.Bytes(),
		ContentType: "image/png",
	}, nil
}
