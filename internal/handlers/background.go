// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"eventcert/internal/apperr"
	"eventcert/internal/canvas"
	"eventcert/internal/imaging"
	"eventcert/internal/storage"
)

const (
	// maxUploadSize is the maximum background upload size (10 MB).
	maxUploadSize = 10 << 20
)

// allowedBackgroundTypes lists the image formats accepted as backgrounds.
var allowedBackgroundTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ObjectUploader stores public objects such as template backgrounds.
type ObjectUploader interface {
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader, size int64) error
	PublicBucket() string
	FileURL(key string) string
}

type backgroundResponse struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// UploadBackground accepts a multipart "file" for an event, scales it to
// the canvas and stores it publicly. The returned URL is what the editor
// passes to its background endpoint.
func (a *Admin) UploadBackground(w http.ResponseWriter, r *http.Request) {
	if a.objects == nil {
		fail(w, r, http.StatusServiceUnavailable, "object storage is not configured")
		return
	}
	eventID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	event, err := a.events.FindByID(r.Context(), eventID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if event == nil {
		writeError(w, r, apperr.NotFound("event", eventID))
		return
	}

	// Limit request body to maxUploadSize + some overhead for form fields.
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1024)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		fail(w, r, http.StatusRequestEntityTooLarge, "file too large, maximum size is 10 MB")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, apperr.Validation("file", "no file provided"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}
	if ct := http.DetectContentType(data); !allowedBackgroundTypes[ct] {
		writeError(w, r, apperr.Validation("file", fmt.Sprintf("file type %q is not allowed", ct)))
		return
	}

	img, err := imaging.Normalize(data, canvas.Width, canvas.Height)
	if err != nil {
		if errors.Is(err, imaging.ErrTooLarge) {
			writeError(w, r, apperr.Validation("file", "image dimensions too large"))
			return
		}
		writeError(w, r, apperr.Validation("file", "unreadable image"))
		return
	}

	key := storage.BackgroundKey(event.Title)
	if err := a.objects.Upload(r.Context(), a.objects.PublicBucket(), key, img.ContentType, bytes.NewReader(img.Data), int64(len(img.Data))); err != nil {
		writeError(w, r, fmt.Errorf("upload background: %w: %w", apperr.ErrTransient, err))
		return
	}

	url := a.objects.FileURL(key)
	slog.Info("background uploaded", "event_id", eventID, "key", key, "size", len(img.Data))
	respond(w, r, http.StatusCreated, backgroundResponse{URL: url, Width: img.Width, Height: img.Height})
}
