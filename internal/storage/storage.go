// Package storage provides the durable-storage leg of the upload pipeline.
// It defines the Durable port and adapters for Cloudinary (unsigned upload)
// and S3, plus a local spool for artifacts fetched back to disk. Durable
// storage outlives the processing backend: its URLs stay playable after the
// tunnel dies.
package storage

import (
	"context"
	"errors"
	"io"
)

// Static errors for storage operations.
var (
	// ErrDurableNotConfigured is returned when no durable provider is configured.
	ErrDurableNotConfigured = errors.New("storage: durable storage is not configured")
	// ErrDurableUpload is returned when the durable upload fails.
	ErrDurableUpload = errors.New("storage: durable upload failed")
)

// UploadParams carries optional parameters for a durable upload.
type UploadParams struct {
	// PublicID is the caller-chosen identifier for the asset. When empty the
	// provider assigns one.
	PublicID string
	// Folder groups assets on the provider side.
	Folder string
	// Tags annotate the asset for provider-side organization.
	Tags []string
}

// DurableResult describes a stored asset.
type DurableResult struct {
	// SecureURL is the long-lived HTTPS playback URL.
	SecureURL string
	// PublicID is the provider-assigned (or caller-chosen) asset identifier.
	PublicID string
	// ThumbnailURL is a derived still-image URL, when the provider supports it.
	ThumbnailURL string
	// Bytes is the stored size as reported by the provider.
	Bytes int64
	// Format is the stored container format, when reported.
	Format string
	// Duration is the video duration in seconds, when reported.
	Duration float64
}

// Durable is the port for the optional long-lived storage destination.
// Deletion is deliberately absent: it requires a signed, server-side call.
type Durable interface {
	// Upload stores the asset and returns its durable location. onProgress,
	// if non-nil, receives monotonically non-decreasing percentages.
	Upload(ctx context.Context, name string, r io.Reader, size int64, params UploadParams, onProgress func(float64)) (DurableResult, error)

	// PlaybackURL returns the playback URL for a stored asset.
	PlaybackURL(publicID string) string
}

// progressReader reports cumulative read progress as a percentage,
// non-decreasing and capped at 100.
type progressReader struct {
	r          io.Reader
	total      int64
	read       int64
	onProgress func(float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		pct := float64(p.read) / float64(p.total) * 100
		if pct > 100 {
			pct = 100
		}
		p.onProgress(pct)
	}
	return n, err
}

// wrapProgress wraps r with progress reporting when requested.
func wrapProgress(r io.Reader, size int64, onProgress func(float64)) io.Reader {
	if onProgress == nil || size <= 0 {
		return r
	}
	return &progressReader{r: r, total: size, onProgress: onProgress}
}
