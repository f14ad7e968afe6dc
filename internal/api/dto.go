package api

import "time"

// createScanRequest is POST /scans' JSON body.
type createScanRequest struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix,omitempty"`
}

// createScanResponse is POST /scans' JSON response.
type createScanResponse struct {
	JobID         string `json:"job_id"`
	Message       string `json:"message"`
	ObjectCount   int    `json:"object_count"`
	EnqueuedCount int    `json:"enqueued_count"`
}

// jobProgressDTO mirrors job.Progress's caller-facing subset.
type jobProgressDTO struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Percentage int `json:"percentage"`
}

// jobCountsDTO mirrors job.StatusCounts.
type jobCountsDTO struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
}

// getJobResponse is GET /jobs/{job_id}'s JSON response.
type getJobResponse struct {
	JobID         string         `json:"job_id"`
	Bucket        string         `json:"bucket"`
	Prefix        string         `json:"prefix"`
	Status        string         `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	Progress      jobProgressDTO `json:"progress"`
	Counts        jobCountsDTO   `json:"counts"`
	FindingsCount int            `json:"findings_count"`
}

// findingDTO is one entry in listFindingsResponse.Findings. ID is encoded
// as a string per §6 ("id: string-encoded int") to avoid precision loss in
// JSON numeric decoders.
type findingDTO struct {
	ID          string    `json:"id"`
	JobID       string    `json:"job_id"`
	Bucket      string    `json:"bucket"`
	Key         string    `json:"key"`
	Detector    string    `json:"detector"`
	MaskedMatch string    `json:"masked_match"`
	Context     string    `json:"context"`
	ByteOffset  int       `json:"byte_offset"`
	CreatedAt   time.Time `json:"created_at"`
}

// listFindingsResponse is GET /findings' JSON response.
type listFindingsResponse struct {
	Findings   []findingDTO `json:"findings"`
	Count      int          `json:"count"`
	NextCursor *int64       `json:"next_cursor"`
}

// errorResponse is the JSON body returned for every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}
