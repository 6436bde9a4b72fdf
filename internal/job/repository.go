package job

import "context"

// Repository persists the session's view of submitted jobs. The backend
// remains the source of truth for job state; the repository only lets the
// operator list what this session started without another round trip.
type Repository interface {
	// Save persists a job record.
	Save(ctx context.Context, job *Job) error

	// FindByID retrieves a job record by its ID.
	// Returns ErrJobNotFound if the job is unknown.
	FindByID(ctx context.Context, id string) (*Job, error)

	// List returns all job records.
	List(ctx context.Context) ([]*Job, error)

	// Delete removes a job record.
	// Returns ErrJobNotFound if the job is unknown.
	Delete(ctx context.Context, id string) error
}
