package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blobscan/internal/blobstore/memblob"
	"blobscan/internal/ingest"
	"blobscan/internal/logger"
	"blobscan/internal/queue/memqueue"
	"blobscan/internal/store/memstore"
)

func newTestServer() *Server {
	blob := memblob.New()
	blob.Put("reports", "a.txt", []byte("hello"))

	q := memqueue.New(5)
	st := memstore.New()
	log := logger.New(io.Discard, logger.LevelDebug, "api-test", nil, logger.Events{})

	ing := ingest.New(blob, q, st, log, nil)
	svc := New(st, ing)
	return NewServer(svc, log)
}

func TestCreateScanReturnsJobSummary(t *testing.T) {
	srv := newTestServer()

	body, _ := json.Marshal(createScanRequest{Bucket: "reports"})
	req := httptest.NewRequest(http.MethodPost, "/scans", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp createScanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.JobID)
	assert.Equal(t, 1, resp.ObjectCount)
	assert.Equal(t, 1, resp.EnqueuedCount)
}

func TestCreateScanRejectsMissingBucket(t *testing.T) {
	srv := newTestServer()

	body, _ := json.Marshal(createScanRequest{})
	req := httptest.NewRequest(http.MethodPost, "/scans", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJobRejectsMalformedID(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/jobs/not-a-uuid", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJobReturns404ForUnknownID(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/jobs/0d3e8f1a-4b8a-4c1a-9a1a-000000000000", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateScanThenGetJobRoundTrip(t *testing.T) {
	srv := newTestServer()

	body, _ := json.Marshal(createScanRequest{Bucket: "reports"})
	createReq := httptest.NewRequest(http.MethodPost, "/scans", bytes.NewReader(body))
	createRec := httptest.NewRecorder()
	srv.ServeHTTP(createRec, createReq)
	require.Equal(t, http.StatusOK, createRec.Code)

	var created createScanResponse
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))

	getReq := httptest.NewRequest(http.MethodGet, "/jobs/"+created.JobID, nil)
	getRec := httptest.NewRecorder()
	srv.ServeHTTP(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)

	var job getJobResponse
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &job))
	assert.Equal(t, created.JobID, job.JobID)
	assert.Equal(t, "reports", job.Bucket)
}

func TestListFindingsRejectsOutOfRangeLimit(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/findings?limit=5000", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListFindingsRejectsZeroLimit(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/findings?limit=0", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListFindingsRejectsNegativeLimit(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/findings?limit=-5", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListFindingsDefaultsLimitWhenOmitted(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/findings", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
