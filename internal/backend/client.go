package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avelar/videoseek/internal/endpoint"
)

// Static errors for backend client operations.
var (
	// ErrTransport is returned on network-level failures (DNS, refused, timeout).
	ErrTransport = errors.New("backend: transport error")
	// ErrProtocol is returned when the backend answers with well-formed HTTP
	// that is not JSON. The usual cause is a tunnel interstitial page, which
	// must be told apart from a real outage so the operator gets a
	// tunnel-specific remediation hint.
	ErrProtocol = errors.New("backend: non-JSON response")
	// ErrBackend is returned when the backend responds with a non-success
	// status and a detail message.
	ErrBackend = errors.New("backend: request rejected")
	// ErrJobIDRequired is returned when a job ID is not provided.
	ErrJobIDRequired = errors.New("backend: job ID is required")
	// ErrNoJobIDReturned is returned when the process response contains no job ID.
	ErrNoJobIDReturned = errors.New("backend: process accepted but no job ID returned")
)

// tunnelBypassHeader instructs an ngrok tunnel to skip its browser warning
// page and forward the request to the backend.
const tunnelBypassHeader = "ngrok-skip-browser-warning"

const defaultUserAgent = "videoseek/1.0"

// Client defines the operations of the video search backend REST surface.
type Client interface {
	// Health fetches the backend health report.
	Health(ctx context.Context) (HealthInfo, error)

	// Stats fetches vector index statistics.
	Stats(ctx context.Context) (IndexStats, error)

	// Dates lists the dates that have indexed videos.
	Dates(ctx context.Context) ([]string, error)

	// Upload streams a video file to the backend's working storage.
	// onProgress, if non-nil, receives monotonically non-decreasing
	// percentages of the file bytes written.
	Upload(ctx context.Context, name string, r io.Reader, size int64, onProgress func(float64)) (UploadReply, error)

	// SubmitProcess starts processing of a previously uploaded file and
	// returns the backend job ID.
	SubmitProcess(ctx context.Context, videoFilename string, req ProcessRequest) (string, error)

	// JobStatus fetches the current state of a job.
	JobStatus(ctx context.Context, jobID string) (JobStatusReply, error)

	// ListJobs lists all jobs known to the backend.
	ListJobs(ctx context.Context) ([]JobStatusReply, error)

	// Search issues a similarity search against the vector index.
	Search(ctx context.Context, req SearchRequest) (SearchReply, error)
}

// HTTPClient is the HTTP implementation of Client. The base URL is read from
// the endpoint registry on every call, so a reconnect takes effect without
// rebuilding the client.
type HTTPClient struct {
	registry   *endpoint.Registry
	httpClient *http.Client
	userAgent  string
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithUserAgent sets a custom User-Agent header value.
func WithUserAgent(ua string) ClientOption {
	return func(hc *HTTPClient) {
		hc.userAgent = ua
	}
}

// NewHTTPClient creates a backend client bound to the given endpoint registry.
func NewHTTPClient(registry *endpoint.Registry, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		registry:   registry,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health fetches the backend health report.
func (c *HTTPClient) Health(ctx context.Context) (HealthInfo, error) {
	var info HealthInfo
	if err := c.doJSON(ctx, http.MethodGet, "/api/health", nil, &info); err != nil {
		return HealthInfo{}, err
	}
	return info, nil
}

// Stats fetches vector index statistics.
func (c *HTTPClient) Stats(ctx context.Context) (IndexStats, error) {
	var stats IndexStats
	if err := c.doJSON(ctx, http.MethodGet, "/api/stats", nil, &stats); err != nil {
		return IndexStats{}, err
	}
	return stats, nil
}

// Dates lists the dates that have indexed videos.
func (c *HTTPClient) Dates(ctx context.Context) ([]string, error) {
	var resp datesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/dates", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Dates, nil
}

// Upload streams a video file to the backend's working storage as a
// multipart form. The body is produced through a pipe so the file is never
// buffered whole in memory.
func (c *HTTPClient) Upload(ctx context.Context, name string, r io.Reader, size int64, onProgress func(float64)) (UploadReply, error) {
	baseURL, ok := c.registry.Get()
	if !ok {
		return UploadReply{}, endpoint.ErrNotConfigured
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", name)
		if err != nil {
			pw.CloseWithError(fmt.Errorf("backend: create form file: %w", err))
			return
		}
		src := io.Reader(r)
		if onProgress != nil && size > 0 {
			src = &progressReader{r: r, total: size, onProgress: onProgress}
		}
		if _, err := io.Copy(part, src); err != nil {
			pw.CloseWithError(fmt.Errorf("backend: write file part: %w", err))
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/upload", pr)
	if err != nil {
		return UploadReply{}, fmt.Errorf("backend: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.setCommonHeaders(req)

	var reply UploadReply
	if err := c.doDecode(req, &reply); err != nil {
		return UploadReply{}, err
	}
	return reply, nil
}

// SubmitProcess starts processing of a previously uploaded file.
func (c *HTTPClient) SubmitProcess(ctx context.Context, videoFilename string, procReq ProcessRequest) (string, error) {
	path := "/api/process?video_filename=" + url.QueryEscape(videoFilename)

	var resp processResponse
	if err := c.doJSON(ctx, http.MethodPost, path, procReq, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", ErrNoJobIDReturned
	}
	return resp.JobID, nil
}

// JobStatus fetches the current state of a job.
func (c *HTTPClient) JobStatus(ctx context.Context, jobID string) (JobStatusReply, error) {
	if jobID == "" {
		return JobStatusReply{}, ErrJobIDRequired
	}

	var reply JobStatusReply
	if err := c.doJSON(ctx, http.MethodGet, "/api/job/"+url.PathEscape(jobID), nil, &reply); err != nil {
		return JobStatusReply{}, err
	}
	return reply, nil
}

// ListJobs lists all jobs known to the backend.
func (c *HTTPClient) ListJobs(ctx context.Context) ([]JobStatusReply, error) {
	var resp jobsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/jobs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// Search issues a similarity search against the vector index.
func (c *HTTPClient) Search(ctx context.Context, req SearchRequest) (SearchReply, error) {
	var reply SearchReply
	if err := c.doJSON(ctx, http.MethodPost, "/api/search", req, &reply); err != nil {
		return SearchReply{}, err
	}
	return reply, nil
}

// doJSON performs a single JSON request against the configured endpoint.
// body, if non-nil, is marshaled as the JSON request body.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	baseURL, ok := c.registry.Get()
	if !ok {
		return endpoint.ErrNotConfigured
	}

	var bodyReader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("backend: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setCommonHeaders(req)

	return c.doDecode(req, result)
}

// doDecode executes a prepared request and decodes the response, classifying
// failures into the transport/protocol/backend taxonomy. Each call is one
// attempt; nothing is retried here.
func (c *HTTPClient) doDecode(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp errorResponse
		if jsonErr := json.Unmarshal(respBody, &errResp); jsonErr == nil && errResp.Detail != "" {
			return fmt.Errorf("%w: %s", ErrBackend, errResp.Detail)
		}
		return fmt.Errorf("%w: status %d: %s", ErrBackend, resp.StatusCode, resp.Status)
	}

	if !isJSONContentType(resp.Header.Get("Content-Type")) {
		return fmt.Errorf("%w (content-type %q): the tunnel may be showing its interstitial page", ErrProtocol, resp.Header.Get("Content-Type"))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: %v", ErrProtocol, err)
		}
	}

	return nil
}

// setCommonHeaders sets the headers every backend request carries.
func (c *HTTPClient) setCommonHeaders(req *http.Request) {
	req.Header.Set(tunnelBypassHeader, "true")
	req.Header.Set("User-Agent", c.userAgent)
}

// isJSONContentType reports whether a Content-Type header denotes JSON.
func isJSONContentType(ct string) bool {
	return strings.Contains(strings.ToLower(ct), "application/json")
}

// progressReader reports cumulative read progress as a percentage.
// Percentages are non-decreasing and capped at 100.
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

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
