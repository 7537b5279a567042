// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage provides an S3-compatible object storage client for
// certificate backgrounds and rendered certificate artifacts. It wraps the
// AWS SDK v2 and is configured for path-style access.
//
// Backgrounds live in the public bucket so the editor can load them
// directly. Artifacts live in the private bucket and are handed out as
// pre-signed links.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"eventcert/internal/slug"
)

// MaxPresignExpiry is the longest validity S3 allows for a pre-signed URL.
const MaxPresignExpiry = 7 * 24 * time.Hour

// Client wraps an S3 client for the public and private buckets.
type Client struct {
	s3            *s3.Client
	presigner     *s3.PresignClient
	publicBucket  string
	privateBucket string
	endpoint      string
	publicURL     string // optional CDN/direct URL for public files
}

// Options configures New.
type Options struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	PublicBucket  string
	PrivateBucket string
	PublicURL     string
}

// New creates an S3 storage client with path-style addressing. Returns
// (nil, nil) if endpoint or credentials are empty, allowing the app to
// start without storage.
func New(o Options) (*Client, error) {
	if o.Endpoint == "" || o.AccessKey == "" || o.SecretKey == "" {
		return nil, nil
	}
	if o.PublicBucket == "" || o.PrivateBucket == "" {
		return nil, fmt.Errorf("storage: both buckets must be configured")
	}

	endpoint := strings.TrimRight(o.Endpoint, "/")

	s3Client := s3.New(s3.Options{
		Region:       o.Region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, ""),
		UsePathStyle: true,
	})

	return &Client{
		s3:            s3Client,
		presigner:     s3.NewPresignClient(s3Client),
		publicBucket:  o.PublicBucket,
		privateBucket: o.PrivateBucket,
		endpoint:      endpoint,
		publicURL:     strings.TrimRight(o.PublicURL, "/"),
	}, nil
}

// Upload stores an object in the specified bucket. Public bucket objects
// get a public-read ACL.
func (c *Client) Upload(ctx context.Context, bucket, key, contentType string, body io.Reader, size int64) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	}

	if bucket == c.publicBucket {
		input.ACL = s3types.ObjectCannedACLPublicRead
	}

	_, err := c.s3.PutObject(ctx, input)
	if err != nil {
		return fmt.Errorf("s3 upload %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Download retrieves an object and returns its contents.
func (c *Client) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	output, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 download %s/%s: %w", bucket, key, err)
	}
	defer output.Body.Close()
	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read body %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// Delete removes an object from the specified bucket.
func (c *Client) Delete(ctx context.Context, bucket, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

// FileURL returns the public URL for a file in the public bucket.
func (c *Client) FileURL(key string) string {
	if c.publicURL != "" {
		return c.publicURL + "/" + key
	}
	return c.endpoint + "/" + c.publicBucket + "/" + key
}

// PrivateURL returns the canonical, non-signed URL of a private object.
// It is what gets persisted; clients receive PresignedURL links instead.
func (c *Client) PrivateURL(key string) string {
	return c.endpoint + "/" + c.privateBucket + "/" + key
}

// PresignedURL generates a pre-signed GET URL for a private object.
func (c *Client) PresignedURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	if expires > MaxPresignExpiry {
		expires = MaxPresignExpiry
	}
	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("s3 presign %s/%s: %w", bucket, key, err)
	}
	return req.URL, nil
}

// PublicBucket returns the name of the public bucket.
func (c *Client) PublicBucket() string {
	return c.publicBucket
}

// PrivateBucket returns the name of the private bucket.
func (c *Client) PrivateBucket() string {
	return c.privateBucket
}

// ExtractS3Key maps a URL produced by FileURL or PrivateURL back to its
// bucket and key. It returns ok=false for URLs outside this storage.
func (c *Client) ExtractS3Key(rawURL string) (bucket, key string, ok bool) {
	if c.publicURL != "" {
		prefix := c.publicURL + "/"
		if strings.HasPrefix(rawURL, prefix) {
			return c.publicBucket, rawURL[len(prefix):], true
		}
	}
	for _, b := range []string{c.publicBucket, c.privateBucket} {
		prefix := c.endpoint + "/" + b + "/"
		if strings.HasPrefix(rawURL, prefix) {
			return b, rawURL[len(prefix):], true
		}
	}
	return "", "", false
}

// BackgroundKey builds the object key for an uploaded template background.
func BackgroundKey(eventTitle string) string {
	s := slug.Generate(eventTitle)
	if s == "" {
		s = "event"
	}
	return fmt.Sprintf("backgrounds/%s/%s.png", s, uuid.New())
}

// ArtifactKey builds the object key for a rendered certificate.
func ArtifactKey(eventID, certificateID uuid.UUID) string {
	return fmt.Sprintf("certificates/%s/%s.png", eventID, certificateID)
}
