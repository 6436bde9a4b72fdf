// Package search builds and issues filtered similarity-search requests and
// normalizes result records for presentation. Client-detectable violations
// fail before any network round trip.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/avelar/videoseek/internal/backend"
)

// Static errors for search operations.
var (
	// ErrInvalidRequest is returned when a request fails client-side validation.
	ErrInvalidRequest = errors.New("search: invalid request")
	// ErrSearch is returned when the backend rejects a search, carrying its detail.
	ErrSearch = errors.New("search: search failed")
	// ErrStatsUnavailable is returned when the auxiliary stats/dates queries
	// fail for any reason. These feed filter dropdowns; their failure never
	// affects search availability.
	ErrStatsUnavailable = errors.New("search: stats unavailable")
)

// Request is a validated similarity-search request.
type Request struct {
	// Query is the natural-language query text.
	Query string `validate:"required"`
	// TopK is the maximum number of results, 1 to 100.
	TopK int `validate:"min=1,max=100"`
	// SimilarityThreshold is the minimum similarity score, 0 to 1.
	SimilarityThreshold float64 `validate:"min=0,max=1"`
	// DateFilter restricts results to one recording date. Empty means no filter.
	DateFilter string
	// NamespaceFilter restricts results to one index namespace. Empty means no filter.
	NamespaceFilter string
}

// DefaultRequest returns a request with the standard top-k and threshold.
func DefaultRequest(query string) Request {
	return Request{
		Query:               query,
		TopK:                10,
		SimilarityThreshold: 0.5,
	}
}

// Result is a normalized search hit, ready for presentation.
type Result struct {
	// VideoName is the display name of the source video.
	VideoName string
	// CaptionText is the caption that matched the query.
	CaptionText string
	// TimestampSeconds is the frame's offset into the video.
	TimestampSeconds float64
	// TimeFormatted is the offset as M:SS.
	TimeFormatted string
	// SimilarityScore is the normalized relevance in [0,1].
	SimilarityScore float64
	// FrameID identifies the matched frame in the index.
	FrameID string
	// VideoDate is the recording date, when known.
	VideoDate string
	// PlaybackURL is the durable playback URL, when the video has one.
	PlaybackURL string
}

// Response is a normalized search response. Results keep the backend's
// ordering, which is descending by similarity score.
type Response struct {
	Results []Result
	Count   int
}

// IndexStats describes the vector index backing the search.
type IndexStats struct {
	TotalVectors int64
	IndexName    string
	Dimension    int
}

// Client issues search and auxiliary queries against the backend.
type Client struct {
	client   backend.Client
	validate *validator.Validate
	logger   *slog.Logger
}

// NewClient creates a search client.
func NewClient(client backend.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		client:   client,
		validate: validator.New(),
		logger:   logger,
	}
}

// Search validates the request and issues it. Validation failures surface as
// ErrInvalidRequest with zero network calls. Unset filters are omitted from
// the wire request entirely so the backend's "no filter" semantics stay
// unambiguous. Backend rejections surface as ErrSearch with the
// backend-supplied detail.
func (c *Client) Search(ctx context.Context, req Request) (Response, error) {
	req.Query = strings.TrimSpace(req.Query)
	if err := c.validate.Struct(req); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	wireReq := backend.SearchRequest{
		Query:               req.Query,
		TopK:                req.TopK,
		SimilarityThreshold: req.SimilarityThreshold,
	}
	if req.DateFilter != "" {
		wireReq.DateFilter = &req.DateFilter
	}
	if req.NamespaceFilter != "" {
		wireReq.NamespaceFilter = &req.NamespaceFilter
	}

	reply, err := c.client.Search(ctx, wireReq)
	if err != nil {
		if errors.Is(err, backend.ErrBackend) {
			return Response{}, fmt.Errorf("%w: %v", ErrSearch, err)
		}
		return Response{}, err
	}

	results := make([]Result, 0, len(reply.Results))
	for _, rec := range reply.Results {
		results = append(results, normalizeRecord(rec))
	}

	c.logger.Info("search completed",
		slog.String("query", req.Query),
		slog.Int("count", reply.Count),
	)
	return Response{Results: results, Count: reply.Count}, nil
}

// AvailableDates lists the dates that have indexed videos, for filter choices.
func (c *Client) AvailableDates(ctx context.Context) ([]string, error) {
	dates, err := c.client.Dates(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStatsUnavailable, err)
	}
	return dates, nil
}

// IndexStats fetches vector index statistics, for the status display.
func (c *Client) IndexStats(ctx context.Context) (IndexStats, error) {
	stats, err := c.client.Stats(ctx)
	if err != nil {
		return IndexStats{}, fmt.Errorf("%w: %v", ErrStatsUnavailable, err)
	}
	return IndexStats{
		TotalVectors: stats.TotalVectors,
		IndexName:    stats.IndexName,
		Dimension:    stats.Dimension,
	}, nil
}

// normalizeRecord maps a wire record to a presentation result, synthesizing
// the formatted time when the backend omits it.
func normalizeRecord(rec backend.SearchRecord) Result {
	formatted := rec.TimeFormatted
	if formatted == "" {
		formatted = FormatTimestamp(rec.Timestamp)
	}
	return Result{
		VideoName:        rec.VideoName,
		CaptionText:      rec.Caption,
		TimestampSeconds: rec.Timestamp,
		TimeFormatted:    formatted,
		SimilarityScore:  rec.SimilarityScore,
		FrameID:          rec.FrameID,
		VideoDate:        rec.VideoDate,
		PlaybackURL:      rec.CloudinaryURL,
	}
}

// FormatTimestamp renders a second offset as M:SS (or H:MM:SS past an hour).
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
