// Package api implements the transport-agnostic CreateScan, GetJob, and
// ListFindings operations (§6) plus the thin chi-routed HTTP shell that
// maps one-to-one onto them.
package api

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"blobscan/internal/ingest"
	"blobscan/internal/job"
	"blobscan/internal/store"
)

// DefaultFindingsLimit and MaxFindingsLimit bound ListFindings' limit
// parameter per §6.
const (
	DefaultFindingsLimit = 100
	MaxFindingsLimit     = 1000
)

// Service implements the three public operations over a store and an
// ingestor. It holds no HTTP concerns; Server (http.go) is the only caller
// outside of tests.
type Service struct {
	store store.Store
	ing   *ingest.Ingestor
}

// New constructs a Service.
func New(st store.Store, ing *ingest.Ingestor) *Service {
	return &Service{store: st, ing: ing}
}

// CreateScanResult is CreateScan's output shape.
type CreateScanResult struct {
	JobID         uuid.UUID
	Message       string
	ObjectCount   int
	EnqueuedCount int
}

// CreateScan validates bucket and delegates to the ingestor.
func (s *Service) CreateScan(ctx context.Context, bucket, prefix string) (CreateScanResult, error) {
	if bucket == "" {
		return CreateScanResult{}, job.ErrInvalidRequest
	}

	result, err := s.ing.Scan(ctx, bucket, prefix)
	if err != nil {
		return CreateScanResult{}, err
	}

	return CreateScanResult{
		JobID:         result.JobID,
		Message:       "scan started",
		ObjectCount:   result.ObjectCount,
		EnqueuedCount: result.EnqueuedCount,
	}, nil
}

// JobView is GetJob's output shape, bundling the job row with its derived
// progress and status counts.
type JobView struct {
	Job           *job.Job
	Progress      job.Progress
	Counts        job.StatusCounts
	FindingsCount int
}

// GetJob parses jobID, loads the job row, and derives its progress from
// the current object-status counts.
func (s *Service) GetJob(ctx context.Context, jobIDStr string) (JobView, error) {
	jobID, err := uuid.Parse(jobIDStr)
	if err != nil {
		return JobView{}, job.ErrInvalidRequest
	}

	j, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return JobView{}, err
	}

	counts, err := s.store.CountObjectsByStatus(ctx, jobID)
	if err != nil {
		return JobView{}, fmt.Errorf("get job: count objects: %w: %v", job.ErrTransport, err)
	}

	findingsCount, err := s.store.CountFindings(ctx, jobID)
	if err != nil {
		return JobView{}, fmt.Errorf("get job: count findings: %w: %v", job.ErrTransport, err)
	}

	return JobView{
		Job:           j,
		Progress:      job.DeriveProgress(counts),
		Counts:        counts,
		FindingsCount: findingsCount,
	}, nil
}

// ListFindingsResult is ListFindings' output shape.
type ListFindingsResult struct {
	Findings   []job.Finding
	Count      int
	NextCursor *int64
}

// ListFindings validates limit and delegates to the store, applying the
// full-page-means-more-pages convention for NextCursor. limit is a pointer
// so an omitted query parameter (nil, defaults to DefaultFindingsLimit) can
// be distinguished from an explicit out-of-range value (e.g. 0 or a
// negative number), which must be rejected rather than silently defaulted.
func (s *Service) ListFindings(ctx context.Context, bucket, prefix string, limit *int, cursor int64) (ListFindingsResult, error) {
	resolved := DefaultFindingsLimit
	if limit != nil {
		resolved = *limit
	}
	if resolved < 1 || resolved > MaxFindingsLimit {
		return ListFindingsResult{}, job.ErrInvalidRequest
	}

	findings, err := s.store.ListFindings(ctx, bucket, prefix, resolved, cursor)
	if err != nil {
		return ListFindingsResult{}, fmt.Errorf("list findings: %w: %v", job.ErrTransport, err)
	}

	result := ListFindingsResult{Findings: findings, Count: len(findings)}
	if len(findings) == resolved {
		last := findings[len(findings)-1].ID
		result.NextCursor = &last
	}
	return result, nil
}
