package blobstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"blobscan/internal/job"
)

// MaxObjectBytes is the size cap beyond which an object is rejected without
// being downloaded: 100 MiB.
const MaxObjectBytes = 100 * 1024 * 1024

// SupportedExtensions lists the object-key suffixes the fetcher will
// download and decode. Anything else is the worker's job to short-circuit
// before ever calling Fetch (the worker's type check calls Supported).
var SupportedExtensions = []string{".txt", ".csv", ".json", ".log"}

// Supported reports whether key's suffix is one the fetcher can handle,
// matched case-insensitively.
func Supported(key string) bool {
	ext := strings.ToLower(path.Ext(key))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// FetchResult is the outcome of a successful fetch: decoded text content
// plus the resolved entity-tag.
type FetchResult struct {
	Content   string
	EntityTag string
}

// Fetcher wraps a Store with the size-checked, decode-on-read contract C2
// specifies.
type Fetcher struct {
	store Store
}

// NewFetcher constructs a Fetcher over the given Store.
func NewFetcher(store Store) *Fetcher {
	return &Fetcher{store: store}
}

// Fetch probes the object's size and entity-tag, rejects it without
// downloading if it exceeds MaxObjectBytes, otherwise downloads the full
// body and decodes it as UTF-8 (invalid byte sequences become the
// replacement character, never a decode failure).
func (f *Fetcher) Fetch(ctx context.Context, bucket, key string) (FetchResult, error) {
	meta, err := f.store.Head(ctx, bucket, key)
	if err != nil {
		if err == ErrNotFound {
			return FetchResult{}, fmt.Errorf("blobstore: head %s/%s: %w", bucket, key, job.ErrNotFound)
		}
		return FetchResult{}, fmt.Errorf("blobstore: head %s/%s: %w: %v", bucket, key, job.ErrTransport, err)
	}

	if meta.Size > MaxObjectBytes {
		return FetchResult{}, fmt.Errorf("blobstore: %s/%s is %d bytes, exceeds %d byte cap: %w",
			bucket, key, meta.Size, MaxObjectBytes, job.ErrTooLarge)
	}

	body, getMeta, err := f.store.Get(ctx, bucket, key)
	if err != nil {
		if err == ErrNotFound {
			return FetchResult{}, fmt.Errorf("blobstore: get %s/%s: %w", bucket, key, job.ErrNotFound)
		}
		return FetchResult{}, fmt.Errorf("blobstore: get %s/%s: %w: %v", bucket, key, job.ErrTransport, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return FetchResult{}, fmt.Errorf("blobstore: read %s/%s: %w: %v", bucket, key, job.ErrTransport, err)
	}

	return FetchResult{
		Content:   decodeUTF8(raw),
		EntityTag: strings.Trim(getMeta.EntityTag, `"`),
	}, nil
}

// decodeUTF8 converts raw bytes to a valid UTF-8 string, replacing any
// invalid sequence with the Unicode replacement character rather than
// failing.
func decodeUTF8(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	var b strings.Builder
	b.Grow(len(raw))
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		b.WriteRune(r)
		raw = raw[size:]
	}
	return b.String()
}
