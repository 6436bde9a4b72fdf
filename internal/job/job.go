// Package job tracks backend processing jobs: the local job aggregate with
// its state machine, a session-scoped repository of submitted jobs, and the
// poller that drives a fire-and-forget processing request to a terminal
// outcome.
package job

import (
	"errors"
	"sync"
	"time"
)

// State represents the current state of a processing job, mirroring the
// backend's job states.
type State string

const (
	// StateQueued indicates the job is waiting for the processing worker.
	StateQueued State = "queued"
	// StateProcessing indicates the backend is extracting and indexing frames.
	StateProcessing State = "processing"
	// StateCompleted indicates the job finished successfully.
	StateCompleted State = "completed"
	// StateFailed indicates the job encountered an error.
	StateFailed State = "failed"
)

// IsTerminal returns true if the state is a terminal state.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Static errors for job operations.
var (
	// ErrInvalidTransition is returned when an invalid state transition is attempted.
	ErrInvalidTransition = errors.New("job: invalid state transition")
	// ErrJobNotFound is returned when a job is not in the repository.
	ErrJobNotFound = errors.New("job: job not found")
)

// validTransitions defines which state transitions are allowed. A job may
// skip the processing state entirely when it completes between two polls.
var validTransitions = map[State][]State{
	StateQueued:     {StateProcessing, StateCompleted, StateFailed},
	StateProcessing: {StateCompleted, StateFailed},
	StateCompleted:  {},
	StateFailed:     {},
}

// canTransition checks if a transition from one state to another is valid.
func canTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Result contains the processing statistics of a completed job.
type Result struct {
	// FramesExtracted is the number of frames pulled from the video.
	FramesExtracted uint32
	// FramesCaptioned is the number of frames that received captions.
	FramesCaptioned uint32
	// EmbeddingsGenerated is the number of caption embeddings produced.
	EmbeddingsGenerated uint32
	// EmbeddingsIndexed is the number of embeddings written to the index.
	EmbeddingsIndexed uint32
	// ProcessingSeconds is the wall-clock processing time.
	ProcessingSeconds float64
	// FrameReductionPercent is how much frame dedup shrank the frame set.
	FrameReductionPercent float64
}

// Job is the session-local record of one backend processing job.
// Once terminal, state and outcome are immutable.
type Job struct {
	mu sync.RWMutex

	// ID is the backend-assigned job identifier.
	ID string
	// VideoName is the operator-facing name of the video being processed.
	VideoName string
	// StorageHandle is the backend-local file the job was started from.
	StorageHandle string
	// State is the current job state.
	State State
	// ProgressMessage is the backend's free-form progress text.
	ProgressMessage string
	// Result is set when State is StateCompleted.
	Result *Result
	// Error is the backend-supplied failure text when State is StateFailed.
	Error string
	// CreatedAt is when the job was submitted.
	CreatedAt time.Time
	// UpdatedAt is when the job record was last updated.
	UpdatedAt time.Time
	// CompletedAt is when the job reached a terminal state.
	CompletedAt time.Time
}

// New creates a Job record for a freshly submitted backend job.
func New(id, videoName, storageHandle string) *Job {
	now := time.Now()
	return &Job{
		ID:            id,
		VideoName:     videoName,
		StorageHandle: storageHandle,
		State:         StateQueued,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// TransitionTo attempts to change the job state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(state State) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if state == j.State {
		return nil
	}
	if !canTransition(j.State, state) {
		return ErrInvalidTransition
	}

	j.State = state
	j.UpdatedAt = time.Now()
	if state.IsTerminal() {
		j.CompletedAt = j.UpdatedAt
	}
	return nil
}

// SetProgress records the backend's progress message.
func (j *Job) SetProgress(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ProgressMessage = msg
	j.UpdatedAt = time.Now()
}

// Complete transitions the job to completed with its result.
func (j *Job) Complete(result *Result) error {
	if err := j.TransitionTo(StateCompleted); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Result = result
	return nil
}

// Fail transitions the job to failed with the backend's error text.
func (j *Job) Fail(errMsg string) error {
	if err := j.TransitionTo(StateFailed); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Error = errMsg
	return nil
}

// GetState returns the current job state (thread-safe).
func (j *Job) GetState() State {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.State
}

// IsTerminal returns true if the job reached a terminal state.
func (j *Job) IsTerminal() bool {
	return j.GetState().IsTerminal()
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var result *Result
	if j.Result != nil {
		r := *j.Result
		result = &r
	}

	return &Job{
		ID:              j.ID,
		VideoName:       j.VideoName,
		StorageHandle:   j.StorageHandle,
		State:           j.State,
		ProgressMessage: j.ProgressMessage,
		Result:          result,
		Error:           j.Error,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
		CompletedAt:     j.CompletedAt,
	}
}
