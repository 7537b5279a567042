// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package storage

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"eventcert/internal/imaging"
)

// maxRemoteImage bounds how much of a remote image Loader will read.
const maxRemoteImage = 20 << 20

// Loader resolves image URLs referenced by templates. URLs that belong to
// the configured storage are read through the S3 API so private objects
// work; anything else is fetched over HTTP.
type Loader struct {
	client *Client // may be nil
	http   *http.Client
}

// NewLoader creates a Loader. client may be nil when storage is disabled.
func NewLoader(client *Client) *Loader {
	return &Loader{
		client: client,
		http:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Load fetches and decodes the image at url. Images larger than
// imaging.MaxSourcePixels are rejected with imaging.ErrTooLarge.
func (l *Loader) Load(ctx context.Context, url string) (image.Image, error) {
	data, err := l.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return img, nil
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	if l.client != nil {
		if bucket, key, ok := l.client.ExtractS3Key(url); ok {
			return l.client.Download(ctx, bucket, key)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("image request: %w", err)
	}
	resp, err := l.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxRemoteImage))
}
