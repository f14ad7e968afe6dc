// Package ingest implements the C5 ingestor: it creates a job, enumerates
// the objects under a bucket/prefix, and fans out queue messages for the
// worker to pick up.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"blobscan/internal/blobstore"
	"blobscan/internal/job"
	"blobscan/internal/logger"
	"blobscan/internal/metrics"
	"blobscan/internal/queue"
	"blobscan/internal/store"
)

// Result is the outcome of a successful scan call.
type Result struct {
	JobID         uuid.UUID
	ObjectCount   int
	EnqueuedCount int
}

// Ingestor runs the six-step scan algorithm over a blobstore.Store and
// queue.Queue pair, persisting job/job_object rows through a store.Store.
type Ingestor struct {
	blob    blobstore.Store
	queue   queue.Queue
	store   store.Store
	log     *logger.Logger
	metrics metrics.IngestMetrics
}

// New constructs an Ingestor. m may be nil, in which case metrics
// recording is skipped.
func New(blob blobstore.Store, q queue.Queue, st store.Store, log *logger.Logger, m metrics.IngestMetrics) *Ingestor {
	return &Ingestor{blob: blob, queue: q, store: st, log: log, metrics: m}
}

// Scan validates bucket, creates a job, pages through the listing,
// upserts a job_object per non-empty object, and publishes queue messages
// in batches of up to queue.MaxBatchSize. It is not transactional across
// steps 3-5: a crash midway leaves a job with a partial object/message
// set, which the spec accepts because ingestion is a foreground,
// client-retried operation.
func (i *Ingestor) Scan(ctx context.Context, bucket, prefix string) (Result, error) {
	if bucket == "" {
		return Result{}, job.ErrInvalidRequest
	}

	var result Result
	run := func() error {
		now := time.Now().UTC()
		j := job.NewJob(bucket, prefix, now)

		if err := i.store.CreateJob(ctx, j); err != nil {
			return fmt.Errorf("ingest: create job: %w: %v", job.ErrTransport, err)
		}

		objects, err := i.listAll(ctx, bucket, prefix)
		if err != nil {
			return fmt.Errorf("ingest: list objects: %w: %v", job.ErrTransport, err)
		}
		if i.metrics != nil {
			i.metrics.IncObjectsEnumerated(len(objects))
		}

		for _, obj := range objects {
			if err := i.store.UpsertObject(ctx, j.ID, bucket, obj.Key, obj.EntityTag, now); err != nil {
				i.log.Error(ctx, "upsert object failed", "job_id", j.ID.String(), "bucket", bucket, "key", obj.Key, "error", err.Error())
			}
		}

		enqueued := i.publishAll(ctx, j.ID, bucket, objects)
		if i.metrics != nil {
			i.metrics.IncObjectsEnqueued(enqueued)
		}

		result = Result{JobID: j.ID, ObjectCount: len(objects), EnqueuedCount: enqueued}
		return nil
	}

	var err error
	if i.metrics != nil {
		err = i.metrics.TrackScanRequest(run)
	} else {
		err = run()
	}
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

// listAll pages through the bucket listing with prefix, filtering out
// zero-size objects, following continuation tokens until exhausted.
func (i *Ingestor) listAll(ctx context.Context, bucket, prefix string) ([]blobstore.ListedObject, error) {
	var out []blobstore.ListedObject
	pageToken := ""
	for {
		page, err := i.blob.List(ctx, bucket, prefix, pageToken)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Objects {
			if obj.Size == 0 {
				continue
			}
			out = append(out, obj)
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

// publishAll sends queue messages in batches of up to queue.MaxBatchSize,
// tolerating and logging per-entry failures, returning the count of
// successfully published messages as reported by the queue.
func (i *Ingestor) publishAll(ctx context.Context, jobID uuid.UUID, bucket string, objects []blobstore.ListedObject) int {
	var enqueued int
	for start := 0; start < len(objects); start += queue.MaxBatchSize {
		end := start + queue.MaxBatchSize
		if end > len(objects) {
			end = len(objects)
		}
		batch := make([]queue.WireMessage, end-start)
		for idx, obj := range objects[start:end] {
			batch[idx] = queue.WireMessage{
				JobID:  jobID.String(),
				Bucket: bucket,
				Key:    obj.Key,
				ETag:   obj.EntityTag,
			}
		}

		result, err := i.queue.SendBatch(ctx, batch)
		if err != nil {
			i.log.Error(ctx, "publish batch failed", "job_id", jobID.String(), "error", err.Error())
			continue
		}
		if result.Failed > 0 {
			i.log.Warn(ctx, "publish batch had partial failures", "job_id", jobID.String(), "failed", result.Failed)
		}
		enqueued += result.Successful
	}
	return enqueued
}
