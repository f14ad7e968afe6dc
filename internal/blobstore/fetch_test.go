package blobstore_test

import (
	"context"
	"errors"
	"testing"

	"blobscan/internal/blobstore"
	"blobscan/internal/blobstore/memblob"
	"blobscan/internal/job"
)

func TestFetchRoundTrip(t *testing.T) {
	store := memblob.New()
	store.Put("bucket", "report.txt", []byte("hello world"))

	f := blobstore.NewFetcher(store)
	res, err := f.Fetch(context.Background(), "bucket", "report.txt")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Content != "hello world" {
		t.Errorf("content = %q", res.Content)
	}
	if res.EntityTag == "" {
		t.Error("expected a non-empty entity-tag")
	}
}

func TestFetchNotFound(t *testing.T) {
	f := blobstore.NewFetcher(memblob.New())
	_, err := f.Fetch(context.Background(), "bucket", "missing.txt")
	if !errors.Is(err, job.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchTooLarge(t *testing.T) {
	store := memblob.New()
	store.Put("bucket", "huge.txt", make([]byte, blobstore.MaxObjectBytes+1))

	f := blobstore.NewFetcher(store)
	_, err := f.Fetch(context.Background(), "bucket", "huge.txt")
	if !errors.Is(err, job.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestSupportedExtensions(t *testing.T) {
	for _, key := range []string{"a.txt", "a.CSV", "a.json", "a.LOG"} {
		if !blobstore.Supported(key) {
			t.Errorf("expected %q to be supported", key)
		}
	}
	for _, key := range []string{"a.pdf", "a.bin", "a"} {
		if blobstore.Supported(key) {
			t.Errorf("expected %q to be unsupported", key)
		}
	}
}

func TestFetchDecodesInvalidUTF8WithoutFailing(t *testing.T) {
	store := memblob.New()
	store.Put("bucket", "bad.txt", []byte{0x68, 0x69, 0xff, 0xfe, 0x21})

	f := blobstore.NewFetcher(store)
	res, err := f.Fetch(context.Background(), "bucket", "bad.txt")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Content == "" {
		t.Error("expected decoded content, even with invalid byte sequences")
	}
}
