package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blobscan/internal/job"
	"blobscan/internal/store"
)

func TestInsertFindingsDedupesOnUniqueTuple(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	rec := store.FindingRecord{
		JobID: uuid.New(), Bucket: "b", Key: "k", EntityTag: "et", Detector: "SSN", MaskedMatch: "***-**-6789", Context: "ctx", ByteOffset: 14,
	}

	inserted, err := s.InsertFindings(ctx, []store.FindingRecord{rec}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	inserted, err = s.InsertFindings(ctx, []store.FindingRecord{rec}, now)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
}

func TestGetJobNotFound(t *testing.T) {
	s := New()
	_, err := s.GetJob(context.Background(), uuid.New())
	assert.ErrorIs(t, err, job.ErrNotFound)
}

func TestCountObjectsByStatusZeroFilled(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	j := job.NewJob("bucket", "", now)
	require.NoError(t, s.CreateJob(ctx, j))
	require.NoError(t, s.UpsertObject(ctx, j.ID, "bucket", "a.txt", "et-1", now))
	require.NoError(t, s.UpsertObject(ctx, j.ID, "bucket", "b.txt", "et-2", now))
	require.NoError(t, s.SetObjectStatus(ctx, j.ID, "bucket", "a.txt", "et-1", job.StatusSucceeded, nil, now))

	counts, err := s.CountObjectsByStatus(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, job.StatusCounts{Queued: 1, Succeeded: 1}, counts)
}

func TestListFindingsPaginationIsMonotonic(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()
	jobID := uuid.New()

	for i := 0; i < 5; i++ {
		_, err := s.InsertFindings(ctx, []store.FindingRecord{{
			JobID: jobID, Bucket: "b", Key: "k", EntityTag: "et", Detector: "SSN", MaskedMatch: "x", Context: "c", ByteOffset: i,
		}}, now)
		require.NoError(t, err)
	}

	page1, err := s.ListFindings(ctx, "", "", 2, 0)
	require.NoError(t, err)
	require.Len(t, page1, 2)

	page2, err := s.ListFindings(ctx, "", "", 2, page1[len(page1)-1].ID)
	require.NoError(t, err)
	require.Len(t, page2, 2)

	assert.Less(t, page1[len(page1)-1].ID, page2[0].ID)
}
