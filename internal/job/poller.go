package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/avelar/videoseek/internal/backend"
)

// Static errors for poller operations.
var (
	// ErrSubmission is returned when the backend rejects a processing request
	// synchronously, or when the request fails client-side validation.
	ErrSubmission = errors.New("job: submission rejected")
	// ErrJobFailed is returned when a polled job reaches the failed state.
	// It wraps the backend-supplied error text verbatim.
	ErrJobFailed = errors.New("job: processing failed")
)

// DefaultPollInterval is how often job status is queried during Await.
const DefaultPollInterval = 2 * time.Second

// Options are the operator-chosen parameters for a processing request.
type Options struct {
	// VideoName is the display name stored with the indexed frames.
	VideoName string
	// VideoDate is the recording date, YYYY-MM-DD.
	VideoDate string `validate:"omitempty,datetime=2006-01-02"`
	// VideoID is the session-local identifier from the upload pipeline.
	VideoID string
	// CloudinaryURL is the durable playback URL, when the durable leg succeeded.
	CloudinaryURL string `validate:"omitempty,url"`
	// SaveFrames asks the backend to keep extracted frames on disk.
	SaveFrames bool
	// UploadToPinecone controls whether embeddings are written to the index.
	UploadToPinecone bool
	// UseObjectDetection enables the object detection pass.
	UseObjectDetection bool
}

// DefaultOptions returns the options used when the operator picks nothing:
// index the embeddings, skip frame saving and object detection.
func DefaultOptions() Options {
	return Options{UploadToPinecone: true}
}

// Snapshot is one observed job state, delivered to the update observer on
// every poll, terminal or not.
type Snapshot struct {
	// JobID is the backend job identifier.
	JobID string
	// State is the observed state.
	State State
	// ProgressMessage is the backend's free-form progress text.
	ProgressMessage string
	// Result is set when State is StateCompleted.
	Result *Result
	// Error is set when State is StateFailed.
	Error string
}

// UpdateFunc observes job state snapshots, in poll order.
type UpdateFunc func(Snapshot)

// Poller submits processing requests and drives them to a terminal outcome.
type Poller struct {
	client   backend.Client
	repo     Repository
	validate *validator.Validate
	logger   *slog.Logger
	interval time.Duration
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithPollInterval sets the status poll interval.
func WithPollInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// NewPoller creates a Poller bound to the given backend client and repository.
func NewPoller(client backend.Client, repo Repository, logger *slog.Logger, opts ...PollerOption) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Poller{
		client:   client,
		repo:     repo,
		validate: validator.New(),
		logger:   logger,
		interval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start submits a processing request for an uploaded file and returns the
// backend job ID. Options are validated before any network call; a
// client-side violation or a synchronous backend rejection both surface as
// ErrSubmission. Transport and protocol failures keep their own sentinels.
func (p *Poller) Start(ctx context.Context, storageHandle string, opts Options) (string, error) {
	if err := p.validate.Struct(opts); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}

	req := backend.ProcessRequest{
		VideoName:          optString(opts.VideoName),
		VideoDate:          optString(opts.VideoDate),
		VideoID:            optString(opts.VideoID),
		CloudinaryURL:      optString(opts.CloudinaryURL),
		SaveFrames:         opts.SaveFrames,
		UploadToPinecone:   opts.UploadToPinecone,
		UseObjectDetection: opts.UseObjectDetection,
	}

	jobID, err := p.client.SubmitProcess(ctx, storageHandle, req)
	if err != nil {
		if errors.Is(err, backend.ErrBackend) || errors.Is(err, backend.ErrNoJobIDReturned) {
			return "", fmt.Errorf("%w: %v", ErrSubmission, err)
		}
		return "", err
	}

	record := New(jobID, opts.VideoName, storageHandle)
	if err := p.repo.Save(ctx, record); err != nil {
		p.logger.Warn("failed to record job locally",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}

	p.logger.Info("processing started",
		slog.String("job_id", jobID),
		slog.String("storage_handle", storageHandle),
		slog.Bool("object_detection", opts.UseObjectDetection),
	)
	return jobID, nil
}

// Await polls the job on a fixed interval until it reaches a terminal state.
// Every observed snapshot, terminal or not, is delivered to onUpdate before
// the next poll is scheduled. A transport failure mid-job stops polling
// immediately: a dead tunnel does not recover without operator intervention.
// Cancelling ctx stops the loop with no further requests.
func (p *Poller) Await(ctx context.Context, jobID string, onUpdate UpdateFunc) (Result, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Result{}, fmt.Errorf("job: await cancelled: %w", ctx.Err())
		case <-ticker.C:
		}

		reply, err := p.client.JobStatus(ctx, jobID)
		if err != nil {
			p.logger.Warn("status poll failed, stopping",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
			return Result{}, err
		}

		snapshot := snapshotFromReply(jobID, reply)
		p.recordSnapshot(ctx, snapshot)
		if onUpdate != nil {
			onUpdate(snapshot)
		}

		switch snapshot.State {
		case StateCompleted:
			p.logger.Info("job completed", slog.String("job_id", jobID))
			if snapshot.Result == nil {
				return Result{}, nil
			}
			return *snapshot.Result, nil
		case StateFailed:
			msg := snapshot.Error
			if msg == "" {
				msg = "processing failed"
			}
			return Result{}, fmt.Errorf("%w: %s", ErrJobFailed, msg)
		}
	}
}

// recordSnapshot folds an observed snapshot into the local job record.
func (p *Poller) recordSnapshot(ctx context.Context, s Snapshot) {
	record, err := p.repo.FindByID(ctx, s.JobID)
	if err != nil {
		return
	}

	record.SetProgress(s.ProgressMessage)
	switch s.State {
	case StateCompleted:
		_ = record.Complete(s.Result)
	case StateFailed:
		_ = record.Fail(s.Error)
	default:
		_ = record.TransitionTo(s.State)
	}
	_ = p.repo.Save(ctx, record)
}

// snapshotFromReply maps a backend status reply to a Snapshot.
func snapshotFromReply(jobID string, reply backend.JobStatusReply) Snapshot {
	s := Snapshot{
		JobID:           jobID,
		State:           State(reply.Status),
		ProgressMessage: reply.Progress,
		Error:           reply.Error,
	}
	if reply.Result != nil {
		s.Result = &Result{
			FramesExtracted:       reply.Result.FramesExtracted,
			FramesCaptioned:       reply.Result.FramesCaptioned,
			EmbeddingsGenerated:   reply.Result.EmbeddingsGenerated,
			EmbeddingsIndexed:     reply.Result.EmbeddingsIndexed,
			ProcessingSeconds:     reply.Result.ProcessingSeconds,
			FrameReductionPercent: reply.Result.FrameReductionPercent,
		}
	}
	return s
}

// optString returns a pointer for non-empty values so empty options stay off
// the wire.
func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
