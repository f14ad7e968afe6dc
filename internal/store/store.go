// Package store defines the C3 store adapter contract: all reads and
// writes against the relational schema (jobs, job_objects, findings). The
// interface is the seam tests and the HTTP/worker layers depend on;
// internal/store/postgres is the one production implementation.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"blobscan/internal/job"
)

// FindingRecord is the input shape for a single bulk-insert row; it omits
// ID and CreatedAt, which the store assigns.
type FindingRecord struct {
	JobID       uuid.UUID
	Bucket      string
	Key         string
	EntityTag   string
	Detector    string
	MaskedMatch string
	Context     string
	ByteOffset  int
}

// Store is the C3 contract.
type Store interface {
	// CreateJob inserts the job row. Fails on duplicate id.
	CreateJob(ctx context.Context, j *job.Job) error

	// UpsertObject inserts a job_object row with status queued; on
	// conflict of the natural key (job_id, bucket, key, entity_tag) it
	// does nothing.
	UpsertObject(ctx context.Context, jobID uuid.UUID, bucket, key, entityTag string, now time.Time) error

	// SetObjectStatus updates status and last_error, stamping updated_at.
	SetObjectStatus(ctx context.Context, jobID uuid.UUID, bucket, key, entityTag string, status job.ObjectStatus, lastError *string, now time.Time) error

	// InsertFindings bulk-inserts with ON CONFLICT DO NOTHING on the
	// uniqueness tuple, returning the count actually inserted.
	InsertFindings(ctx context.Context, records []FindingRecord, now time.Time) (int, error)

	// GetJob returns the job row or job.ErrNotFound.
	GetJob(ctx context.Context, jobID uuid.UUID) (*job.Job, error)

	// CountObjectsByStatus returns zero-filled counts over the four
	// statuses for the given job.
	CountObjectsByStatus(ctx context.Context, jobID uuid.UUID) (job.StatusCounts, error)

	// CountFindings returns the total finding count for the given job.
	CountFindings(ctx context.Context, jobID uuid.UUID) (int, error)

	// ListFindings returns rows with id strictly greater than cursor,
	// ordered by id ascending, limited to limit rows, optionally filtered
	// by bucket and/or key prefix.
	ListFindings(ctx context.Context, bucket, prefix string, limit int, cursor int64) ([]job.Finding, error)

	// Close releases the underlying connection pool.
	Close()
}
