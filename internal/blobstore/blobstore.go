// Package blobstore defines the port through which the ingestor and the
// object fetcher talk to the object store. The store itself — S3 or
// whatever backs it in production — is an external collaborator per the
// spec; this package only owns the contract and ships one reference
// in-memory implementation (see memblob) for tests and local development.
package blobstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by Head/Get when the bucket/key does not exist.
var ErrNotFound = errors.New("blobstore: object not found")

// ObjectMeta describes a single object version.
type ObjectMeta struct {
	Bucket    string
	Key       string
	EntityTag string
	Size      int64
	ModTime   time.Time
}

// ListedObject is one entry in a listing page.
type ListedObject struct {
	Key       string
	EntityTag string
	Size      int64
}

// Page is one page of a bucket listing, following the spec's
// continuation-token pagination (up to 1000 keys per page).
type Page struct {
	Objects       []ListedObject
	NextPageToken string // empty when exhausted
}

// Store is the port the ingestor and fetcher depend on. Implementations
// must be safe for concurrent use.
type Store interface {
	// Head probes object metadata without downloading the body.
	Head(ctx context.Context, bucket, key string) (ObjectMeta, error)

	// Get downloads the full object body alongside its metadata.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectMeta, error)

	// List pages through a bucket listing filtered by prefix, honoring
	// pageToken as a continuation cursor. An empty prefix lists the whole
	// bucket. Implementations should return at most 1000 objects per page.
	List(ctx context.Context, bucket, prefix, pageToken string) (Page, error)
}
