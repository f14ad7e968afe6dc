// Package worker implements the C4 worker loop: a pool of independent
// queue-receive loops that each run the ten-step per-message state
// machine (Receive, Parse, Mark processing, Type check, Fetch, Reconcile
// entity-tag, Scan, Persist, Mark success, Acknowledge).
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"blobscan/internal/blobstore"
	"blobscan/internal/detect"
	"blobscan/internal/job"
	"blobscan/internal/logger"
	"blobscan/internal/metrics"
	"blobscan/internal/queue"
	"blobscan/internal/store"
)

// shutdownGrace bounds how long a worker loop waits for its in-flight
// message to finish once ctx is cancelled.
const shutdownGrace = 2 * time.Second

// receiveWait and receiveVisibility are the long-poll parameters §4.4
// fixes for every Receive call.
const (
	receiveWait       = 20 * time.Second
	receiveVisibility = 300 * time.Second
)

// Worker runs N independent queue-consumer loops against a shared store,
// fetcher, and scanner. Per §5, each loop is sequential; concurrency comes
// from running more than one loop, never from processing a message on
// multiple goroutines at once.
type Worker struct {
	queue   queue.Queue
	fetcher *blobstore.Fetcher
	scanner *detect.Scanner
	store   store.Store
	log     *logger.Logger
	metrics metrics.WorkerMetrics

	concurrency int
}

// New constructs a Worker with the given pool of concurrent receive loops.
// m may be nil, in which case metrics recording is skipped.
func New(q queue.Queue, fetcher *blobstore.Fetcher, scanner *detect.Scanner, st store.Store, log *logger.Logger, m metrics.WorkerMetrics, concurrency int) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{queue: q, fetcher: fetcher, scanner: scanner, store: st, log: log, metrics: m, concurrency: concurrency}
}

// Run starts the worker's receive loops and blocks until ctx is cancelled,
// at which point every loop finishes its in-flight message (up to
// shutdownGrace) before returning.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(w.concurrency)
	for i := 0; i < w.concurrency; i++ {
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, id)
		}(i)
	}
	wg.Wait()
}

// loop is one independent receive cycle: Receive, then process whatever
// comes back, then Receive again, until ctx is done.
func (w *Worker) loop(ctx context.Context, id int) {
	w.log.Info(ctx, "worker loop started", "worker_id", id)
	for {
		select {
		case <-ctx.Done():
			w.log.Info(ctx, "worker loop shutting down", "worker_id", id)
			return
		default:
		}

		msgs, err := w.queue.Receive(ctx, queue.ReceiveOptions{
			WaitTime:          receiveWait,
			VisibilityTimeout: receiveVisibility,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Error(ctx, "receive failed", "worker_id", id, "error", err.Error())
			continue
		}
		if len(msgs) == 0 {
			continue
		}
		if w.metrics != nil {
			w.metrics.IncMessagesReceived()
		}

		procCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), receiveVisibility+shutdownGrace)
		stopGrace := context.AfterFunc(ctx, func() {
			time.AfterFunc(shutdownGrace, cancel)
		})
		if w.metrics != nil {
			_ = w.metrics.TrackMessageProcessing(func() error {
				w.process(procCtx, id, msgs[0])
				return nil
			})
		} else {
			w.process(procCtx, id, msgs[0])
		}
		stopGrace()
		cancel()
	}
}

// process runs steps 2-10 of the per-message state machine for one
// received message.
func (w *Worker) process(ctx context.Context, workerID int, msg queue.Message) {
	// Step 2: Parse.
	body, jobID, err := parseBody(msg.Body)
	if err != nil {
		w.log.Warn(ctx, "dropping unparseable message", "worker_id", workerID, "error", err.Error())
		if w.metrics != nil {
			w.metrics.IncMessagesFailed("parse")
		}
		if delErr := w.queue.Delete(ctx, msg.ReceiptHandle); delErr != nil {
			w.log.Error(ctx, "failed to ack unparseable message", "error", delErr.Error())
		}
		return
	}

	now := time.Now().UTC()

	// Step 3: Mark processing.
	if err := w.store.SetObjectStatus(ctx, jobID, body.Bucket, body.Key, body.ETag, job.StatusProcessing, nil, now); err != nil {
		w.log.Error(ctx, "mark processing failed", "job_id", jobID.String(), "bucket", body.Bucket, "key", body.Key, "error", err.Error())
	}

	// Step 4: Type check.
	if !blobstore.Supported(body.Key) {
		note := "Unsupported file type - skipped"
		if err := w.store.SetObjectStatus(ctx, jobID, body.Bucket, body.Key, body.ETag, job.StatusSucceeded, &note, time.Now().UTC()); err != nil {
			w.log.Error(ctx, "mark unsupported failed", "error", err.Error())
		}
		w.ack(ctx, msg.ReceiptHandle)
		if w.metrics != nil {
			w.metrics.IncMessagesAcked()
		}
		return
	}

	// Step 5: Fetch.
	result, err := w.fetcher.Fetch(ctx, body.Bucket, body.Key)
	if err != nil {
		errMsg := err.Error()
		if setErr := w.store.SetObjectStatus(ctx, jobID, body.Bucket, body.Key, body.ETag, job.StatusFailed, &errMsg, time.Now().UTC()); setErr != nil {
			w.log.Error(ctx, "mark failed failed", "error", setErr.Error())
		}
		w.log.Warn(ctx, "fetch failed, leaving message for redelivery",
			"job_id", jobID.String(), "bucket", body.Bucket, "key", body.Key, "error", errMsg)
		if w.metrics != nil {
			w.metrics.IncMessagesFailed("fetch")
		}
		return // do not acknowledge
	}

	// Step 6: Reconcile entity-tag.
	entityTag := body.ETag
	if entityTag == "" {
		entityTag = result.EntityTag
	}

	// Step 7: Scan.
	findings := w.scanner.Scan(result.Content)

	// Step 8: Persist.
	if len(findings) > 0 {
		records := make([]store.FindingRecord, len(findings))
		for i, f := range findings {
			records[i] = store.FindingRecord{
				JobID:       jobID,
				Bucket:      body.Bucket,
				Key:         body.Key,
				EntityTag:   entityTag,
				Detector:    f.Detector,
				MaskedMatch: f.MaskedMatch,
				Context:     f.Context,
				ByteOffset:  f.ByteOffset,
			}
		}
		inserted, err := w.store.InsertFindings(ctx, records, time.Now().UTC())
		if err != nil {
			errMsg := err.Error()
			if setErr := w.store.SetObjectStatus(ctx, jobID, body.Bucket, body.Key, entityTag, job.StatusFailed, &errMsg, time.Now().UTC()); setErr != nil {
				w.log.Error(ctx, "mark failed failed", "error", setErr.Error())
			}
			w.log.Warn(ctx, "persist findings failed, leaving message for redelivery", "error", errMsg)
			if w.metrics != nil {
				w.metrics.IncMessagesFailed("persist")
			}
			return // do not acknowledge
		}
		if w.metrics != nil && inserted > 0 {
			byDetector := make(map[string]int, len(findings))
			for _, f := range findings {
				byDetector[f.Detector]++
			}
			for detector, n := range byDetector {
				w.metrics.IncFindingsByDetector(detector, n)
			}
		}
	}

	// Step 9: Mark success.
	if err := w.store.SetObjectStatus(ctx, jobID, body.Bucket, body.Key, entityTag, job.StatusSucceeded, nil, time.Now().UTC()); err != nil {
		w.log.Error(ctx, "mark success failed", "error", err.Error())
	}

	// Step 10: Acknowledge.
	w.ack(ctx, msg.ReceiptHandle)
	if w.metrics != nil {
		w.metrics.IncMessagesAcked()
	}
}

func (w *Worker) ack(ctx context.Context, receiptHandle string) {
	if err := w.queue.Delete(ctx, receiptHandle); err != nil {
		w.log.Error(ctx, "ack failed", "error", err.Error())
	}
}

// parseBody checks a queue.WireMessage's required fields and parses its
// job id, returning the parsed id alongside the original body.
func parseBody(body queue.WireMessage) (queue.WireMessage, uuid.UUID, error) {
	if body.JobID == "" || body.Bucket == "" || body.Key == "" {
		return body, uuid.UUID{}, errors.New("missing required field")
	}
	jobID, err := uuid.Parse(body.JobID)
	if err != nil {
		return body, uuid.UUID{}, fmt.Errorf("invalid job_id: %w", err)
	}
	return body, jobID, nil
}
