package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Static errors for Cloudinary operations.
var (
	// ErrCloudNameRequired is returned when the Cloudinary cloud name is not provided.
	ErrCloudNameRequired = errors.New("storage: cloudinary cloud name is required")
	// ErrUploadPresetRequired is returned when the unsigned upload preset is not provided.
	ErrUploadPresetRequired = errors.New("storage: cloudinary upload preset is required")
)

// Cloudinary uploads videos through Cloudinary's unsigned upload endpoint.
// Unsigned uploads need no API secret on the client; the preset on the
// Cloudinary side constrains what they may do.
type Cloudinary struct {
	cloudName    string
	uploadPreset string
	uploadBase   string
	deliveryBase string
	httpClient   *http.Client
}

// CloudinaryOption configures a Cloudinary adapter.
type CloudinaryOption func(*Cloudinary)

// WithCloudinaryHTTPClient sets a custom HTTP client.
func WithCloudinaryHTTPClient(c *http.Client) CloudinaryOption {
	return func(cl *Cloudinary) {
		cl.httpClient = c
	}
}

// WithCloudinaryUploadBase overrides the upload API base URL.
func WithCloudinaryUploadBase(base string) CloudinaryOption {
	return func(cl *Cloudinary) {
		cl.uploadBase = strings.TrimSuffix(base, "/")
	}
}

// WithCloudinaryDeliveryBase overrides the delivery (res.cloudinary.com) base URL.
func WithCloudinaryDeliveryBase(base string) CloudinaryOption {
	return func(cl *Cloudinary) {
		cl.deliveryBase = strings.TrimSuffix(base, "/")
	}
}

// NewCloudinary creates a Cloudinary durable-storage adapter.
func NewCloudinary(cloudName, uploadPreset string, opts ...CloudinaryOption) (*Cloudinary, error) {
	if cloudName == "" {
		return nil, ErrCloudNameRequired
	}
	if uploadPreset == "" {
		return nil, ErrUploadPresetRequired
	}

	c := &Cloudinary{
		cloudName:    cloudName,
		uploadPreset: uploadPreset,
		uploadBase:   "https://api.cloudinary.com/v1_1",
		deliveryBase: "https://res.cloudinary.com",
		// Large files over a residential uplink take a while.
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// cloudinaryUploadResponse is the subset of the upload API response we use.
type cloudinaryUploadResponse struct {
	SecureURL string  `json:"secure_url"`
	PublicID  string  `json:"public_id"`
	Bytes     int64   `json:"bytes"`
	Format    string  `json:"format"`
	Duration  float64 `json:"duration"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload streams the video to the unsigned upload endpoint as a multipart form.
func (c *Cloudinary) Upload(ctx context.Context, name string, r io.Reader, size int64, params UploadParams, onProgress func(float64)) (DurableResult, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		fields := map[string]string{
			"upload_preset": c.uploadPreset,
			"resource_type": "video",
		}
		if params.Folder != "" {
			fields["folder"] = params.Folder
		}
		if len(params.Tags) > 0 {
			fields["tags"] = strings.Join(params.Tags, ",")
		}
		if params.PublicID != "" {
			fields["public_id"] = sanitizePublicID(params.PublicID)
		}
		for k, v := range fields {
			if err := mw.WriteField(k, v); err != nil {
				pw.CloseWithError(fmt.Errorf("storage: write field %s: %w", k, err))
				return
			}
		}

		part, err := mw.CreateFormFile("file", name)
		if err != nil {
			pw.CloseWithError(fmt.Errorf("storage: create form file: %w", err))
			return
		}
		if _, err := io.Copy(part, wrapProgress(r, size, onProgress)); err != nil {
			pw.CloseWithError(fmt.Errorf("storage: write file part: %w", err))
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	uploadURL := fmt.Sprintf("%s/%s/video/upload", c.uploadBase, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, pr)
	if err != nil {
		return DurableResult{}, fmt.Errorf("storage: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return DurableResult{}, fmt.Errorf("%w: %v", ErrDurableUpload, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return DurableResult{}, fmt.Errorf("%w: read response: %v", ErrDurableUpload, err)
	}

	var decoded cloudinaryUploadResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return DurableResult{}, fmt.Errorf("%w: unmarshal response: %v", ErrDurableUpload, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decoded.Error.Message != "" {
			return DurableResult{}, fmt.Errorf("%w: %s", ErrDurableUpload, decoded.Error.Message)
		}
		return DurableResult{}, fmt.Errorf("%w: status %d", ErrDurableUpload, resp.StatusCode)
	}

	return DurableResult{
		SecureURL:    decoded.SecureURL,
		PublicID:     decoded.PublicID,
		ThumbnailURL: c.thumbnailURL(decoded.PublicID),
		Bytes:        decoded.Bytes,
		Format:       decoded.Format,
		Duration:     decoded.Duration,
	}, nil
}

// PlaybackURL returns the direct mp4 delivery URL for an asset.
func (c *Cloudinary) PlaybackURL(publicID string) string {
	return fmt.Sprintf("%s/%s/video/upload/%s.mp4", c.deliveryBase, c.cloudName, publicID)
}

// thumbnailURL derives a still image from the first frame.
func (c *Cloudinary) thumbnailURL(publicID string) string {
	return fmt.Sprintf("%s/%s/video/upload/so_0/w_400,h_300,c_fill/%s.jpg", c.deliveryBase, c.cloudName, publicID)
}

// sanitizePublicID keeps only characters Cloudinary accepts in a public_id.
func sanitizePublicID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}

// Compile-time check that Cloudinary implements Durable.
var _ Durable = (*Cloudinary)(nil)
