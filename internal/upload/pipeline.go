// Package upload implements the two-destination upload pipeline. The
// processing leg (backend working storage) is required; the durable leg
// (Cloudinary or S3) is best-effort and its failure degrades to a warning.
// The two legs have no data dependency and run concurrently, joined before
// the pipeline resolves.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/avelar/videoseek/internal/backend"
	"github.com/avelar/videoseek/internal/job/id"
	"github.com/avelar/videoseek/internal/storage"
)

// ErrUploadFailed is returned when the required processing leg fails.
var ErrUploadFailed = errors.New("upload: processing upload failed")

// Stage names reported with progress updates.
const (
	StageDurable    = "durable"
	StageProcessing = "processing"
)

// Progress is one progress update for the combined upload bar.
type Progress struct {
	// Stage is the leg that produced this update.
	Stage string
	// Percent is the overall pipeline percentage, non-decreasing across
	// updates regardless of which leg reported.
	Percent float64
}

// ProgressFunc observes pipeline progress updates.
type ProgressFunc func(Progress)

// Options are per-upload choices.
type Options struct {
	// VideoName, when set, becomes the durable asset's public id.
	VideoName string
	// SkipDurable uploads to the processing backend only.
	SkipDurable bool
}

// Result is the outcome of a completed pipeline run.
type Result struct {
	// VideoID is a session-local identifier for this upload.
	VideoID string
	// StorageHandle is the backend-local file handle for starting processing.
	StorageHandle string
	// ExternalURL is the durable playback URL; empty when the durable leg
	// was skipped or failed.
	ExternalURL string
	// ThumbnailURL is the durable provider's derived thumbnail, when available.
	ThumbnailURL string
	// PublicID is the durable asset identifier, when available.
	PublicID string
	// OriginalName is the uploaded file's base name.
	OriginalName string
	// SizeBytes is the uploaded file's size.
	SizeBytes int64
}

// Pipeline uploads local video files to the processing backend and,
// best-effort, to durable storage.
type Pipeline struct {
	client   backend.Client
	durable  storage.Durable // nil when no durable provider is configured
	logger   *slog.Logger
	maxBytes int64
	folder   string
	tags     []string
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithMaxUploadBytes sets the upload size ceiling.
func WithMaxUploadBytes(n int64) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxBytes = n
		}
	}
}

// WithDurableFolder sets the provider-side folder for durable uploads.
func WithDurableFolder(folder string) PipelineOption {
	return func(p *Pipeline) {
		p.folder = folder
	}
}

// WithDurableTags sets the tags attached to durable uploads.
func WithDurableTags(tags []string) PipelineOption {
	return func(p *Pipeline) {
		p.tags = tags
	}
}

// NewPipeline creates an upload pipeline. durable may be nil, in which case
// every upload is processing-leg only.
func NewPipeline(client backend.Client, durable storage.Durable, logger *slog.Logger, opts ...PipelineOption) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		client:   client,
		durable:  durable,
		logger:   logger,
		maxBytes: DefaultMaxUploadBytes,
		folder:   "capstone-videos",
		tags:     []string{"surveillance", "capstone"},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// durableOutcome is what the durable leg hands back at the join point.
type durableOutcome struct {
	result storage.DurableResult
	err    error
}

// Upload validates the file, runs the requested legs, joins them, and
// returns the combined result. Validation failures surface as ErrInvalidFile
// before any network call. A durable-leg failure is logged and degrades the
// result (no ExternalURL); a processing-leg failure fails the pipeline with
// ErrUploadFailed regardless of the durable outcome.
func (p *Pipeline) Upload(ctx context.Context, path string, onProgress ProgressFunc, opts Options) (Result, error) {
	info, err := validateFile(path, p.maxBytes)
	if err != nil {
		return Result{}, err
	}

	durableRequested := p.durable != nil && !opts.SkipDurable
	tracker := newProgressTracker(durableRequested, onProgress)

	var (
		wg      sync.WaitGroup
		durable durableOutcome
	)
	if durableRequested {
		wg.Add(1)
		go func() {
			defer wg.Done()
			durable.result, durable.err = p.runDurableLeg(ctx, info, opts, tracker)
			if durable.err != nil {
				// Best-effort leg: downgrade to a warning and let the
				// processing leg own the rest of the progress bar.
				p.logger.Warn("durable upload failed, continuing without external URL",
					slog.String("file", info.Name),
					slog.String("error", durable.err.Error()),
				)
				tracker.durableSettled(false)
			} else {
				tracker.durableSettled(true)
			}
		}()
	}

	reply, procErr := p.runProcessingLeg(ctx, info, tracker)

	// Both legs settle before the pipeline resolves.
	wg.Wait()

	if procErr != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUploadFailed, procErr)
	}
	tracker.finish()

	result := Result{
		VideoID:       id.Generate("video"),
		StorageHandle: reply.Filename,
		OriginalName:  info.Name,
		SizeBytes:     info.SizeBytes,
	}
	if durableRequested && durable.err == nil {
		result.ExternalURL = durable.result.SecureURL
		result.ThumbnailURL = durable.result.ThumbnailURL
		result.PublicID = durable.result.PublicID
	}

	p.logger.Info("upload pipeline finished",
		slog.String("file", info.Name),
		slog.String("storage_handle", result.StorageHandle),
		slog.Bool("durable", result.ExternalURL != ""),
	)
	return result, nil
}

// runDurableLeg streams the file to the durable provider.
func (p *Pipeline) runDurableLeg(ctx context.Context, info FileInfo, opts Options, tracker *progressTracker) (storage.DurableResult, error) {
	f, err := os.Open(info.Path) // #nosec G304 - path was validated by the caller
	if err != nil {
		return storage.DurableResult{}, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	params := storage.UploadParams{
		Folder: p.folder,
		Tags:   p.tags,
	}
	if opts.VideoName != "" {
		params.PublicID = opts.VideoName
	}

	return p.durable.Upload(ctx, info.Name, f, info.SizeBytes, params, func(pct float64) {
		tracker.report(StageDurable, pct)
	})
}

// runProcessingLeg streams the file to the backend's working storage.
func (p *Pipeline) runProcessingLeg(ctx context.Context, info FileInfo, tracker *progressTracker) (backend.UploadReply, error) {
	f, err := os.Open(info.Path) // #nosec G304 - path was validated by the caller
	if err != nil {
		return backend.UploadReply{}, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return p.client.Upload(ctx, info.Name, f, info.SizeBytes, func(pct float64) {
		tracker.report(StageProcessing, pct)
	})
}

// progressTracker folds per-leg percentages into one non-decreasing overall
// bar. While the durable leg is live, the legs are weighted half each
// (durable mapping to [0,50), processing to [50,100]); the moment the
// durable leg's failure is known the processing leg takes over the whole
// range for subsequent updates. A clamp keeps the bar monotonic across the
// remap.
type progressTracker struct {
	mu          sync.Mutex
	onProgress  ProgressFunc
	durableLive bool
	durablePct  float64
	procPct     float64
	last        float64
}

func newProgressTracker(durableRequested bool, onProgress ProgressFunc) *progressTracker {
	return &progressTracker{
		onProgress:  onProgress,
		durableLive: durableRequested,
	}
}

// report records a leg percentage and emits the combined value.
func (t *progressTracker) report(stage string, pct float64) {
	if t.onProgress == nil {
		return
	}
	t.mu.Lock()
	switch stage {
	case StageDurable:
		if pct > t.durablePct {
			t.durablePct = pct
		}
	case StageProcessing:
		if pct > t.procPct {
			t.procPct = pct
		}
	}

	var overall float64
	if t.durableLive {
		overall = t.durablePct*0.5 + t.procPct*0.5
	} else {
		overall = t.procPct
	}
	if overall < t.last {
		overall = t.last
	}
	t.last = overall
	t.mu.Unlock()

	t.onProgress(Progress{Stage: stage, Percent: overall})
}

// durableSettled marks the durable leg's outcome. On failure the processing
// leg occupies the full range from here on.
func (t *progressTracker) durableSettled(ok bool) {
	t.mu.Lock()
	if ok {
		t.durablePct = 100
	} else {
		t.durableLive = false
	}
	t.mu.Unlock()
}

// finish emits the terminal 100% update.
func (t *progressTracker) finish() {
	if t.onProgress == nil {
		return
	}
	t.mu.Lock()
	t.last = 100
	t.mu.Unlock()
	t.onProgress(Progress{Stage: StageProcessing, Percent: 100})
}
