package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"blobscan/internal/job"
	"blobscan/internal/logger"
	"blobscan/internal/telemetry"
)

// Server is the thin HTTP shell over Service: decode request, call the
// transport-agnostic operation, encode response, map error kinds to status
// codes. No business logic lives here.
type Server struct {
	svc    *Service
	log    *logger.Logger
	router *chi.Mux
}

// NewServer builds a chi router wired with the three public routes plus a
// liveness probe.
func NewServer(svc *Service, log *logger.Logger) *Server {
	s := &Server{svc: svc, log: log, router: chi.NewRouter()}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)

	s.routes()
	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			ctx := r.Context()
			s.log.Info(ctx, "request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"trace_id", telemetry.GetTraceID(ctx),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Post("/scans", s.handleCreateScan)
	s.router.Get("/jobs/{job_id}", s.handleGetJob)
	s.router.Get("/findings", s.handleListFindings)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleCreateScan(w http.ResponseWriter, r *http.Request) {
	var req createScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	result, err := s.svc.CreateScan(r.Context(), req.Bucket, req.Prefix)
	if err != nil {
		s.writeMappedError(w, r, "create scan failed", err)
		return
	}

	writeJSON(w, http.StatusOK, createScanResponse{
		JobID:         result.JobID.String(),
		Message:       result.Message,
		ObjectCount:   result.ObjectCount,
		EnqueuedCount: result.EnqueuedCount,
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.GetJob(r.Context(), chi.URLParam(r, "job_id"))
	if err != nil {
		s.writeMappedError(w, r, "get job failed", err)
		return
	}

	writeJSON(w, http.StatusOK, getJobResponse{
		JobID:     view.Job.ID.String(),
		Bucket:    view.Job.Bucket,
		Prefix:    view.Job.Prefix,
		Status:    string(view.Progress.Status),
		CreatedAt: view.Job.CreatedAt,
		UpdatedAt: view.Job.UpdatedAt,
		Progress: jobProgressDTO{
			Total:      view.Progress.Total,
			Completed:  view.Progress.Completed,
			Percentage: view.Progress.Percentage,
		},
		Counts: jobCountsDTO{
			Queued:     view.Counts.Queued,
			Processing: view.Counts.Processing,
			Succeeded:  view.Counts.Succeeded,
			Failed:     view.Counts.Failed,
		},
		FindingsCount: view.FindingsCount,
	})
}

func (s *Server) handleListFindings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var limit *int
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = &parsed
	}

	cursor := int64(0)
	if raw := q.Get("cursor"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "cursor must be an integer")
			return
		}
		cursor = parsed
	}

	result, err := s.svc.ListFindings(r.Context(), q.Get("bucket"), q.Get("prefix"), limit, cursor)
	if err != nil {
		s.writeMappedError(w, r, "list findings failed", err)
		return
	}

	dtos := make([]findingDTO, len(result.Findings))
	for i, f := range result.Findings {
		dtos[i] = findingDTO{
			ID:          strconv.FormatInt(f.ID, 10),
			JobID:       f.JobID.String(),
			Bucket:      f.Bucket,
			Key:         f.Key,
			Detector:    f.Detector,
			MaskedMatch: f.MaskedMatch,
			Context:     f.Context,
			ByteOffset:  f.ByteOffset,
			CreatedAt:   f.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, listFindingsResponse{
		Findings:   dtos,
		Count:      result.Count,
		NextCursor: result.NextCursor,
	})
}

// writeMappedError maps a job error-kind sentinel to its status code per
// §7 and logs the underlying error server-side.
func (s *Server) writeMappedError(w http.ResponseWriter, r *http.Request, logMsg string, err error) {
	s.log.Error(r.Context(), logMsg, "error", err.Error())

	switch {
	case errors.Is(err, job.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, job.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
