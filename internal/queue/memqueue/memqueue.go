// Package memqueue is an in-memory reference implementation of
// queue.Queue. It genuinely implements the mechanics the spec assigns to
// the external message broker — per-message visibility timeouts,
// redelivery, and dead-letter routing past a max-receive count — rather
// than faking the contract, because the spec's own worker state machine
// (§4.4) depends on those mechanics being real.
package memqueue

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"blobscan/internal/queue"
)

type entry struct {
	receiptHandle string
	body          queue.WireMessage
	receiveCount  int
	visibleAt     time.Time // zero means visible now
}

// Queue is a thread-safe FIFO queue with visibility-timeout semantics and a
// sibling dead-letter queue.
type Queue struct {
	mu              sync.Mutex
	messages        *list.List // of *entry
	byHandle        map[string]*list.Element
	deadLetter      []queue.WireMessage
	maxReceiveCount int
}

// New constructs a Queue. maxReceiveCount is the number of deliveries
// (including the first) allowed before a message is routed to the
// dead-letter queue instead of being redelivered; 0 disables dead-lettering.
func New(maxReceiveCount int) *Queue {
	return &Queue{
		messages:        list.New(),
		byHandle:        make(map[string]*list.Element),
		maxReceiveCount: maxReceiveCount,
	}
}

var _ queue.Queue = (*Queue)(nil)

// SendBatch enqueues up to queue.MaxBatchSize messages, each immediately
// visible to receivers.
func (q *Queue) SendBatch(_ context.Context, msgs []queue.WireMessage) (queue.SendBatchResult, error) {
	if len(msgs) > queue.MaxBatchSize {
		msgs = msgs[:queue.MaxBatchSize]
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	var result queue.SendBatchResult
	for _, m := range msgs {
		e := &entry{receiptHandle: uuid.NewString(), body: m}
		elem := q.messages.PushBack(e)
		q.byHandle[e.receiptHandle] = elem
		result.Successful++
	}
	return result, nil
}

const (
	defaultWaitTime          = 20 * time.Second
	defaultVisibilityTimeout = 300 * time.Second
)

// Receive long-polls for up to one visible message, applying opts.WaitTime
// as the poll budget and opts.VisibilityTimeout as the invisibility window
// granted on delivery. A message that exceeds maxReceiveCount is routed to
// the dead-letter queue instead of being redelivered.
func (q *Queue) Receive(ctx context.Context, opts queue.ReceiveOptions) ([]queue.Message, error) {
	wait := opts.WaitTime
	if wait <= 0 {
		wait = defaultWaitTime
	}
	visibility := opts.VisibilityTimeout
	if visibility <= 0 {
		visibility = defaultVisibilityTimeout
	}

	deadline := time.Now().Add(wait)
	for {
		if msg, ok := q.tryReceiveOne(visibility); ok {
			return []queue.Message{msg}, nil
		}
		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval(deadline)):
		}
	}
}

func pollInterval(deadline time.Time) time.Duration {
	const tick = 20 * time.Millisecond
	if remaining := time.Until(deadline); remaining < tick {
		if remaining < 0 {
			return 0
		}
		return remaining
	}
	return tick
}

func (q *Queue) tryReceiveOne(visibility time.Duration) (queue.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	for elem := q.messages.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*entry)
		if !e.visibleAt.IsZero() && now.Before(e.visibleAt) {
			continue
		}

		e.receiveCount++
		if q.maxReceiveCount > 0 && e.receiveCount > q.maxReceiveCount {
			q.deadLetter = append(q.deadLetter, e.body)
			q.messages.Remove(elem)
			delete(q.byHandle, e.receiptHandle)
			continue
		}

		e.visibleAt = now.Add(visibility)
		return queue.Message{
			Body:          e.body,
			ReceiptHandle: e.receiptHandle,
			ReceiveCount:  e.receiveCount,
		}, true
	}
	return queue.Message{}, false
}

// Delete removes a message permanently, acknowledging it.
func (q *Queue) Delete(_ context.Context, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	elem, ok := q.byHandle[receiptHandle]
	if !ok {
		return nil // already deleted or expired past a redelivery; ack is idempotent
	}
	q.messages.Remove(elem)
	delete(q.byHandle, receiptHandle)
	return nil
}

// DeadLetter returns a snapshot of messages that exceeded maxReceiveCount,
// for tests and operational inspection.
func (q *Queue) DeadLetter() []queue.WireMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]queue.WireMessage, len(q.deadLetter))
	copy(out, q.deadLetter)
	return out
}

// Len returns the number of messages still in the live queue (visible or
// currently invisible), for tests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.messages.Len()
}
