package worker

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blobscan/internal/blobstore"
	"blobscan/internal/blobstore/memblob"
	"blobscan/internal/detect"
	"blobscan/internal/job"
	"blobscan/internal/logger"
	"blobscan/internal/queue"
	"blobscan/internal/queue/memqueue"
	"blobscan/internal/store"
)

// fakeStore is a minimal, in-memory store.Store recording every call for
// assertions, used in place of the postgres adapter for worker unit tests.
type fakeStore struct {
	mu           sync.Mutex
	statusCalls  []statusCall
	findings     []store.FindingRecord
	insertErr    error
	findingCalls int
}

type statusCall struct {
	bucket, key, entityTag string
	status                 job.ObjectStatus
	lastError              *string
}

func (f *fakeStore) CreateJob(context.Context, *job.Job) error { return nil }

func (f *fakeStore) UpsertObject(context.Context, uuid.UUID, string, string, string, time.Time) error {
	return nil
}

func (f *fakeStore) SetObjectStatus(_ context.Context, _ uuid.UUID, bucket, key, entityTag string, status job.ObjectStatus, lastError *string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, statusCall{bucket: bucket, key: key, entityTag: entityTag, status: status, lastError: lastError})
	return nil
}

func (f *fakeStore) InsertFindings(_ context.Context, records []store.FindingRecord, _ time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findingCalls++
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.findings = append(f.findings, records...)
	return len(records), nil
}

func (f *fakeStore) GetJob(context.Context, uuid.UUID) (*job.Job, error) { return nil, job.ErrNotFound }
func (f *fakeStore) CountObjectsByStatus(context.Context, uuid.UUID) (job.StatusCounts, error) {
	return job.StatusCounts{}, nil
}
func (f *fakeStore) CountFindings(context.Context, uuid.UUID) (int, error) { return 0, nil }
func (f *fakeStore) ListFindings(context.Context, string, string, int, int64) ([]job.Finding, error) {
	return nil, nil
}
func (f *fakeStore) Close() {}

func (f *fakeStore) lastStatus() statusCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls[len(f.statusCalls)-1]
}

func testLogger() *logger.Logger {
	return logger.New(io.Discard, logger.LevelDebug, "worker-test", nil, logger.Events{})
}

func TestWorkerProcessesSupportedObjectAndPersistsFindings(t *testing.T) {
	blob := memblob.New()
	blob.Put("bucket-a", "records.txt", []byte("Employee SSN: 123-45-6789 in record"))

	meta, err := blob.Head(context.Background(), "bucket-a", "records.txt")
	require.NoError(t, err)

	q := memqueue.New(5)
	jobID := uuid.New()
	_, err = q.SendBatch(context.Background(), []queue.WireMessage{
		{JobID: jobID.String(), Bucket: "bucket-a", Key: "records.txt", ETag: meta.EntityTag},
	})
	require.NoError(t, err)

	fs := &fakeStore{}
	w := New(q, blobstore.NewFetcher(blob), detect.NewScanner(), fs, testLogger(), nil, 1)

	msgs, err := q.Receive(context.Background(), queue.ReceiveOptions{})
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	w.process(context.Background(), 0, msgs[0])

	require.Len(t, fs.findings, 1)
	assert.Equal(t, "SSN", fs.findings[0].Detector)
	assert.Equal(t, job.StatusSucceeded, fs.lastStatus().status)
	assert.Equal(t, 0, q.Len())
}

func TestWorkerMarksUnsupportedSucceededAndAcks(t *testing.T) {
	blob := memblob.New()
	blob.Put("bucket-a", "archive.bin", []byte("irrelevant"))
	meta, err := blob.Head(context.Background(), "bucket-a", "archive.bin")
	require.NoError(t, err)

	q := memqueue.New(5)
	jobID := uuid.New()
	_, err = q.SendBatch(context.Background(), []queue.WireMessage{
		{JobID: jobID.String(), Bucket: "bucket-a", Key: "archive.bin", ETag: meta.EntityTag},
	})
	require.NoError(t, err)

	fs := &fakeStore{}
	w := New(q, blobstore.NewFetcher(blob), detect.NewScanner(), fs, testLogger(), nil, 1)

	msgs, err := q.Receive(context.Background(), queue.ReceiveOptions{})
	require.NoError(t, err)

	w.process(context.Background(), 0, msgs[0])

	last := fs.lastStatus()
	assert.Equal(t, job.StatusSucceeded, last.status)
	require.NotNil(t, last.lastError)
	assert.Equal(t, "Unsupported file type - skipped", *last.lastError)
	assert.Equal(t, 0, q.Len())
}

func TestWorkerLeavesMessageOnFetchFailure(t *testing.T) {
	blob := memblob.New() // object never Put: Head will return ErrNotFound

	q := memqueue.New(5)
	jobID := uuid.New()
	_, err := q.SendBatch(context.Background(), []queue.WireMessage{
		{JobID: jobID.String(), Bucket: "bucket-a", Key: "missing.txt", ETag: "etag-1"},
	})
	require.NoError(t, err)

	fs := &fakeStore{}
	w := New(q, blobstore.NewFetcher(blob), detect.NewScanner(), fs, testLogger(), nil, 1)

	msgs, err := q.Receive(context.Background(), queue.ReceiveOptions{WaitTime: time.Millisecond, VisibilityTimeout: time.Hour})
	require.NoError(t, err)

	w.process(context.Background(), 0, msgs[0])

	assert.Equal(t, job.StatusFailed, fs.lastStatus().status)
	// Not acknowledged: the message is still tracked, invisible until its
	// visibility timeout elapses.
	assert.Equal(t, 1, q.Len())
}

func TestWorkerDropsUnparseableMessage(t *testing.T) {
	q := memqueue.New(5)
	fs := &fakeStore{}
	w := New(q, blobstore.NewFetcher(memblob.New()), detect.NewScanner(), fs, testLogger(), nil, 1)

	msg := queue.Message{
		Body:          queue.WireMessage{JobID: "not-a-uuid", Bucket: "b", Key: "k"},
		ReceiptHandle: "handle-1",
	}

	w.process(context.Background(), 0, msg)

	assert.Empty(t, fs.statusCalls)
}
