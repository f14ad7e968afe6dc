// Package memstore is an in-memory reference implementation of
// store.Store, used by tests that exercise the service layer end to end
// without a database; the api and worker binaries use postgres.Store.
// Unlike blobstore and queue, the relational store is not an
// external-collaborator port per the spec — postgres.Store is the only
// production implementation — but a genuine in-memory twin is still useful
// for fast, dependency-free tests of everything above the store seam.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"blobscan/internal/job"
	"blobscan/internal/store"
)

type objectKey struct {
	jobID     uuid.UUID
	bucket    string
	key       string
	entityTag string
}

type findingKey struct {
	bucket     string
	key        string
	entityTag  string
	detector   string
	byteOffset int
}

// Store is a thread-safe, in-memory store.Store.
type Store struct {
	mu        sync.Mutex
	jobs      map[uuid.UUID]*job.Job
	objects   map[objectKey]*job.Object
	findings  []job.Finding
	seenFind  map[findingKey]bool
	nextFindID int64
}

var _ store.Store = (*Store)(nil)

// New constructs an empty Store.
func New() *Store {
	return &Store{
		jobs:     make(map[uuid.UUID]*job.Job),
		objects:  make(map[objectKey]*job.Object),
		seenFind: make(map[findingKey]bool),
	}
}

func (s *Store) CreateJob(_ context.Context, j *job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[j.ID]; exists {
		return job.ErrInvalidRequest
	}
	cp := *j
	s.jobs[j.ID] = &cp
	return nil
}

func (s *Store) UpsertObject(_ context.Context, jobID uuid.UUID, bucket, key, entityTag string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := objectKey{jobID: jobID, bucket: bucket, key: key, entityTag: entityTag}
	if _, exists := s.objects[k]; exists {
		return nil
	}
	s.objects[k] = &job.Object{
		JobID:     jobID,
		Bucket:    bucket,
		Key:       key,
		EntityTag: entityTag,
		Status:    job.StatusQueued,
		UpdatedAt: now,
	}
	return nil
}

func (s *Store) SetObjectStatus(_ context.Context, jobID uuid.UUID, bucket, key, entityTag string, status job.ObjectStatus, lastError *string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := objectKey{jobID: jobID, bucket: bucket, key: key, entityTag: entityTag}
	obj, ok := s.objects[k]
	if !ok {
		return nil // mirrors postgres: a missing row is logged upstream, not an error here
	}
	obj.Status = status
	obj.LastError = lastError
	obj.UpdatedAt = now
	return nil
}

func (s *Store) InsertFindings(_ context.Context, records []store.FindingRecord, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var inserted int
	for _, r := range records {
		k := findingKey{bucket: r.Bucket, key: r.Key, entityTag: r.EntityTag, detector: r.Detector, byteOffset: r.ByteOffset}
		if s.seenFind[k] {
			continue
		}
		s.seenFind[k] = true
		s.nextFindID++
		s.findings = append(s.findings, job.Finding{
			ID:          s.nextFindID,
			JobID:       r.JobID,
			Bucket:      r.Bucket,
			Key:         r.Key,
			EntityTag:   r.EntityTag,
			Detector:    r.Detector,
			MaskedMatch: r.MaskedMatch,
			Context:     r.Context,
			ByteOffset:  r.ByteOffset,
			CreatedAt:   now,
		})
		inserted++
	}
	return inserted, nil
}

func (s *Store) GetJob(_ context.Context, jobID uuid.UUID) (*job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return nil, job.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *Store) CountObjectsByStatus(_ context.Context, jobID uuid.UUID) (job.StatusCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var counts job.StatusCounts
	for k, obj := range s.objects {
		if k.jobID != jobID {
			continue
		}
		switch obj.Status {
		case job.StatusQueued:
			counts.Queued++
		case job.StatusProcessing:
			counts.Processing++
		case job.StatusSucceeded:
			counts.Succeeded++
		case job.StatusFailed:
			counts.Failed++
		}
	}
	return counts, nil
}

func (s *Store) CountFindings(_ context.Context, jobID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for _, f := range s.findings {
		if f.JobID == jobID {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListFindings(_ context.Context, bucket, prefix string, limit int, cursor int64) ([]job.Finding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := make([]job.Finding, len(s.findings))
	copy(sorted, s.findings)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var out []job.Finding
	for _, f := range sorted {
		if f.ID <= cursor {
			continue
		}
		if bucket != "" && f.Bucket != bucket {
			continue
		}
		if prefix != "" && !hasPrefix(f.Key, prefix) {
			continue
		}
		out = append(out, f)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) Close() {}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
