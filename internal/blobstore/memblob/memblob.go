// Package memblob is an in-memory reference implementation of
// blobstore.Store, used by tests and by the API binary's local development
// mode. It is not a production object-storage client — the spec treats the
// real blob store as an external collaborator out of scope for this repo.
package memblob

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"blobscan/internal/blobstore"
)

type object struct {
	data      []byte
	entityTag string
	modTime   time.Time
}

// Store is a thread-safe, in-memory map of bucket/key to object bytes.
type Store struct {
	mu      sync.RWMutex
	buckets map[string]map[string]object
}

// New constructs an empty Store.
func New() *Store {
	return &Store{buckets: make(map[string]map[string]object)}
}

// Put inserts or replaces an object, generating a fresh entity-tag. It is a
// test/seeding helper, not part of the blobstore.Store contract.
func (s *Store) Put(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buckets[bucket] == nil {
		s.buckets[bucket] = make(map[string]object)
	}
	s.buckets[bucket][key] = object{
		data:      data,
		entityTag: strconv.FormatUint(fnv1a(data), 16),
		modTime:   time.Now(),
	}
}

func fnv1a(data []byte) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for _, b := range data {
		h ^= uint64(b)
		h *= prime64
	}
	return h
}

var _ blobstore.Store = (*Store)(nil)

func (s *Store) Head(_ context.Context, bucket, key string) (blobstore.ObjectMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.lookup(bucket, key)
	if !ok {
		return blobstore.ObjectMeta{}, blobstore.ErrNotFound
	}
	return blobstore.ObjectMeta{
		Bucket:    bucket,
		Key:       key,
		EntityTag: obj.entityTag,
		Size:      int64(len(obj.data)),
		ModTime:   obj.modTime,
	}, nil
}

func (s *Store) Get(_ context.Context, bucket, key string) (io.ReadCloser, blobstore.ObjectMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.lookup(bucket, key)
	if !ok {
		return nil, blobstore.ObjectMeta{}, blobstore.ErrNotFound
	}
	meta := blobstore.ObjectMeta{
		Bucket:    bucket,
		Key:       key,
		EntityTag: obj.entityTag,
		Size:      int64(len(obj.data)),
		ModTime:   obj.modTime,
	}
	return io.NopCloser(bytes.NewReader(obj.data)), meta, nil
}

func (s *Store) lookup(bucket, key string) (object, bool) {
	objs, ok := s.buckets[bucket]
	if !ok {
		return object{}, false
	}
	obj, ok := objs[key]
	return obj, ok
}

// List returns keys under prefix in sorted order, up to 1000 per page.
// When more keys follow a full page, NextPageToken is the last key of that
// page; pageToken, when non-empty, is the last key already returned.
func (s *Store) List(_ context.Context, bucket, prefix, pageToken string) (blobstore.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objs := s.buckets[bucket]
	keys := make([]string, 0, len(objs))
	for k := range objs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	const pageSize = 1000
	var page blobstore.Page
	started := pageToken == ""
	for _, k := range keys {
		if !started {
			if k == pageToken {
				started = true
			}
			continue
		}
		if len(prefix) > 0 && !hasPrefix(k, prefix) {
			continue
		}
		if len(page.Objects) == pageSize {
			page.NextPageToken = page.Objects[pageSize-1].Key
			return page, nil
		}
		obj := objs[k]
		page.Objects = append(page.Objects, blobstore.ListedObject{
			Key:       k,
			EntityTag: obj.entityTag,
			Size:      int64(len(obj.data)),
		})
	}
	return page, nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
