package memqueue

import (
	"context"
	"testing"
	"time"

	"blobscan/internal/queue"
)

func TestSendReceiveDeleteRoundTrip(t *testing.T) {
	q := New(5)
	ctx := context.Background()

	res, err := q.SendBatch(ctx, []queue.WireMessage{{JobID: "j1", Bucket: "b", Key: "k"}})
	if err != nil {
		t.Fatalf("SendBatch: %v", err)
	}
	if res.Successful != 1 {
		t.Fatalf("expected 1 successful send, got %d", res.Successful)
	}

	msgs, err := q.Receive(ctx, queue.ReceiveOptions{WaitTime: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}

	if err := q.Delete(ctx, msgs[0].ReceiptHandle); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if q.Len() != 0 {
		t.Fatalf("expected queue to be empty after delete, got %d", q.Len())
	}
}

func TestRedeliveryAfterVisibilityTimeout(t *testing.T) {
	q := New(5)
	ctx := context.Background()
	q.SendBatch(ctx, []queue.WireMessage{{JobID: "j1", Bucket: "b", Key: "k"}})

	msgs, _ := q.Receive(ctx, queue.ReceiveOptions{WaitTime: 10 * time.Millisecond, VisibilityTimeout: 20 * time.Millisecond})
	if len(msgs) != 1 {
		t.Fatalf("expected first receive to return a message")
	}

	// Immediately re-receiving should see nothing: the message is invisible.
	again, _ := q.Receive(ctx, queue.ReceiveOptions{WaitTime: 5 * time.Millisecond, VisibilityTimeout: 20 * time.Millisecond})
	if len(again) != 0 {
		t.Fatalf("expected no message while still invisible, got %d", len(again))
	}

	time.Sleep(30 * time.Millisecond)

	redelivered, _ := q.Receive(ctx, queue.ReceiveOptions{WaitTime: 10 * time.Millisecond, VisibilityTimeout: 20 * time.Millisecond})
	if len(redelivered) != 1 {
		t.Fatalf("expected redelivery after visibility timeout, got %d messages", len(redelivered))
	}
	if redelivered[0].ReceiveCount != 2 {
		t.Errorf("expected receive count 2, got %d", redelivered[0].ReceiveCount)
	}
}

func TestDeadLetterAfterMaxReceiveCount(t *testing.T) {
	q := New(2)
	ctx := context.Background()
	q.SendBatch(ctx, []queue.WireMessage{{JobID: "j1", Bucket: "b", Key: "k"}})

	opts := queue.ReceiveOptions{WaitTime: 5 * time.Millisecond, VisibilityTimeout: 5 * time.Millisecond}
	for i := 0; i < 2; i++ {
		msgs, _ := q.Receive(ctx, opts)
		if len(msgs) != 1 {
			t.Fatalf("expected a message on attempt %d", i)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Third receive attempt should find the message over its max-receive
	// count and route it to the dead-letter queue instead of redelivering.
	msgs, _ := q.Receive(ctx, opts)
	if len(msgs) != 0 {
		t.Fatalf("expected no redelivery past max receive count, got %d", len(msgs))
	}
	if len(q.DeadLetter()) != 1 {
		t.Fatalf("expected 1 dead-lettered message, got %d", len(q.DeadLetter()))
	}
	if q.Len() != 0 {
		t.Fatalf("expected live queue to be empty after dead-lettering, got %d", q.Len())
	}
}

func TestSendBatchCapsAtMaxBatchSize(t *testing.T) {
	q := New(5)
	ctx := context.Background()

	msgs := make([]queue.WireMessage, 15)
	for i := range msgs {
		msgs[i] = queue.WireMessage{JobID: "j1", Bucket: "b", Key: "k"}
	}

	res, err := q.SendBatch(ctx, msgs)
	if err != nil {
		t.Fatalf("SendBatch: %v", err)
	}
	if res.Successful != queue.MaxBatchSize {
		t.Fatalf("expected batch to be capped at %d, got %d", queue.MaxBatchSize, res.Successful)
	}
}
