package domain

import (
	"context"
	"time"
)

// JobRepository defines the interface for download job persistence.
// Implementations enforce the at-most-one terminal transition per job.
type JobRepository interface {
	// Create durably records a new job. Only Pending jobs are accepted.
	Create(ctx context.Context, job *DownloadJob) error

	// FinalizeCompleted moves a Pending job to Completed.
	// Returns ErrAlreadyFinalized if the job is no longer Pending.
	FinalizeCompleted(ctx context.Context, id, filename string, sizeBytes int64) (*DownloadJob, error)

	// FinalizeFailed moves a Pending job to Failed.
	// Returns ErrAlreadyFinalized if the job is no longer Pending.
	FinalizeFailed(ctx context.Context, id, errorMessage string) (*DownloadJob, error)

	// Get finds a job by ID, or returns ErrJobNotFound
	Get(ctx context.Context, id string) (*DownloadJob, error)

	// ListByOwner returns an owner's jobs, newest first
	ListByOwner(ctx context.Context, ownerID string) ([]*DownloadJob, error)

	// FindPending returns Pending jobs created before the cutoff, oldest first
	FindPending(ctx context.Context, createdBefore time.Time) ([]*DownloadJob, error)

	// GetStats returns job counts by status
	GetStats(ctx context.Context) (*JobStats, error)
}

// JobQueue delivers admitted job ids to the fulfillment worker
type JobQueue interface {
	// Enqueue hands a job id over for fulfillment. An id that is already
	// waiting in the queue is not added twice.
	Enqueue(ctx context.Context, jobID string) error

	// Dequeue blocks until a job id is available or ctx is done
	Dequeue(ctx context.Context) (string, error)

	// Close releases the queue's resources
	Close() error
}

// JobLeaser grants expiring, exclusive ownership of a job's fulfillment
// across every process consuming the same queue
type JobLeaser interface {
	// Acquire takes the lease for a job. ok is false when another holder has it.
	Acquire(ctx context.Context, jobID string, ttl time.Duration) (lease JobLease, ok bool, err error)

	// Held reports whether any process currently holds the job's lease
	Held(ctx context.Context, jobID string) (bool, error)
}

// JobLease is one holder's claim on a job
type JobLease interface {
	// Renew extends the lease. Returns ErrLeaseLost once another holder could have taken it.
	Renew(ctx context.Context, ttl time.Duration) error

	// Release gives the lease up. Releasing a lost lease is a no-op.
	Release(ctx context.Context) error
}
