// Package job defines the core domain entities shared by the ingestor, the
// worker, and the store adapter: Job, JobObject, and Finding.
package job

import (
	"time"

	"github.com/google/uuid"
)

// ObjectStatus is the lifecycle state of a JobObject.
type ObjectStatus string

const (
	StatusQueued     ObjectStatus = "queued"
	StatusProcessing ObjectStatus = "processing"
	StatusSucceeded  ObjectStatus = "succeeded"
	StatusFailed     ObjectStatus = "failed"
)

// Valid reports whether s is one of the four defined statuses.
func (s ObjectStatus) Valid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusSucceeded, StatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether s is a terminal status for a given entity-tag.
func (s ObjectStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Status is the aggregated lifecycle state of a Job, derived on read from
// its JobObjects.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
)

// Job is one client-initiated scan over a bucket and optional key prefix.
// It is immutable after creation except for UpdatedAt.
type Job struct {
	ID        uuid.UUID
	Bucket    string
	Prefix    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewJob constructs a Job with a fresh version-4 identifier.
func NewJob(bucket, prefix string, now time.Time) *Job {
	return &Job{
		ID:        uuid.New(),
		Bucket:    bucket,
		Prefix:    prefix,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Object is the unit of work: one discovered object version under one job.
// Its natural key is (JobID, Bucket, Key, EntityTag).
type Object struct {
	JobID     uuid.UUID
	Bucket    string
	Key       string
	EntityTag string
	Status    ObjectStatus
	LastError *string
	UpdatedAt time.Time
}

// StatusCounts is a zero-filled mapping over the four ObjectStatus values,
// as returned by Store.CountObjectsByStatus.
type StatusCounts struct {
	Queued     int
	Processing int
	Succeeded  int
	Failed     int
}

// Total returns the sum of all four counts.
func (c StatusCounts) Total() int { return c.Queued + c.Processing + c.Succeeded + c.Failed }

// Completed returns the number of objects that reached a terminal status.
func (c StatusCounts) Completed() int { return c.Succeeded + c.Failed }

// Progress is the derived read-side view of a job's completion, computed
// from StatusCounts per the percentage/status rules in the ingestor spec.
type Progress struct {
	Total      int
	Completed  int
	Percentage int
	Status     Status
}

// DeriveProgress computes Progress from a job's status counts, following:
//
//	completed if total > 0 and completed == total
//	pending   if total > 0 and queued == total
//	otherwise running
func DeriveProgress(c StatusCounts) Progress {
	total := c.Total()
	completed := c.Completed()

	var pct int
	if total > 0 {
		pct = int(roundHalfAwayFromZero(100 * float64(completed) / float64(total)))
	}

	var status Status
	switch {
	case total > 0 && completed == total:
		status = StatusCompleted
	case total > 0 && c.Queued == total:
		status = StatusPending
	default:
		status = StatusRunning
	}

	return Progress{Total: total, Completed: completed, Percentage: pct, Status: status}
}

func roundHalfAwayFromZero(f float64) float64 {
	if f < 0 {
		return -roundHalfAwayFromZero(-f)
	}
	return float64(int64(f + 0.5))
}

// Finding is a single detector hit at a specific byte offset within a
// specific object version. It is never updated after insertion.
type Finding struct {
	ID          int64
	JobID       uuid.UUID
	Bucket      string
	Key         string
	EntityTag   string
	Detector    string
	MaskedMatch string
	Context     string
	ByteOffset  int
	CreatedAt   time.Time
}
