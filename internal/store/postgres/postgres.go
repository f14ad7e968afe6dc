// Package postgres is the production implementation of store.Store,
// backed by a pgxpool.Pool and instrumented with an OpenTelemetry pgx
// tracer so every statement produces a span.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/exaring/otelpgx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"blobscan/internal/job"
	"blobscan/internal/store"
)

// Store wraps a pgxpool.Pool and implements store.Store.
type Store struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

var _ store.Store = (*Store)(nil)

// Connect opens a bounded connection pool against dsn, retrying with
// exponential backoff for up to a minute to ride out a database that is
// still starting up (e.g. a container not yet accepting connections).
func Connect(ctx context.Context, dsn string, maxConns int32, tracer trace.Tracer) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parsing dsn: %w", err)
	}
	cfg.MaxConns = maxConns
	cfg.ConnConfig.Tracer = otelpgx.NewTracer()

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = time.Minute
	expBackoff.InitialInterval = time.Second

	var pool *pgxpool.Pool
	operation := func() error {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		p, err := pgxpool.NewWithConfig(connectCtx, cfg)
		if err != nil {
			return err
		}
		if err := p.Ping(connectCtx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(expBackoff, ctx)); err != nil {
		return nil, fmt.Errorf("postgres: connecting after retries: %w", err)
	}
	return &Store{pool: pool, tracer: tracer}, nil
}

func (s *Store) Close() { s.pool.Close() }

// withSpan runs fn inside a client-kind span named spanName, recording any
// returned error onto the span before propagating it.
func (s *Store) withSpan(ctx context.Context, spanName string, attrs []attribute.KeyValue, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s *Store) CreateJob(ctx context.Context, j *job.Job) error {
	return s.withSpan(ctx, "postgres.create_job", []attribute.KeyValue{
		attribute.String("job_id", j.ID.String()),
		attribute.String("bucket", j.Bucket),
	}, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO jobs (job_id, bucket, prefix, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
			j.ID, j.Bucket, j.Prefix, j.CreatedAt, j.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		return nil
	})
}

func (s *Store) UpsertObject(ctx context.Context, jobID uuid.UUID, bucket, key, entityTag string, now time.Time) error {
	return s.withSpan(ctx, "postgres.upsert_object", []attribute.KeyValue{
		attribute.String("job_id", jobID.String()),
		attribute.String("bucket", bucket),
		attribute.String("key", key),
	}, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO job_objects (job_id, bucket, key, entity_tag, status, updated_at)
			 VALUES ($1, $2, $3, $4, 'queued', $5)
			 ON CONFLICT (job_id, bucket, key, entity_tag) DO NOTHING`,
			jobID, bucket, key, entityTag, now,
		)
		if err != nil {
			return fmt.Errorf("upsert object: %w", err)
		}
		return nil
	})
}

func (s *Store) SetObjectStatus(ctx context.Context, jobID uuid.UUID, bucket, key, entityTag string, status job.ObjectStatus, lastError *string, now time.Time) error {
	return s.withSpan(ctx, "postgres.set_object_status", []attribute.KeyValue{
		attribute.String("job_id", jobID.String()),
		attribute.String("status", string(status)),
	}, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx,
			`UPDATE job_objects SET status = $1, last_error = $2, updated_at = $3
			 WHERE job_id = $4 AND bucket = $5 AND key = $6 AND entity_tag = $7`,
			status, lastError, now, jobID, bucket, key, entityTag,
		)
		if err != nil {
			return fmt.Errorf("set object status: %w", err)
		}
		return nil
	})
}

func (s *Store) InsertFindings(ctx context.Context, records []store.FindingRecord, now time.Time) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	var inserted int
	err := s.withSpan(ctx, "postgres.insert_findings", []attribute.KeyValue{
		attribute.Int("record_count", len(records)),
	}, func(ctx context.Context) error {
		batch := &pgx.Batch{}
		for _, r := range records {
			batch.Queue(
				`INSERT INTO findings (job_id, bucket, key, entity_tag, detector, masked_match, context, byte_offset, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				 ON CONFLICT (bucket, key, entity_tag, detector, byte_offset) DO NOTHING`,
				r.JobID, r.Bucket, r.Key, r.EntityTag, r.Detector, r.MaskedMatch, r.Context, r.ByteOffset, now,
			)
		}

		br := s.pool.SendBatch(ctx, batch)
		defer br.Close()

		for range records {
			tag, err := br.Exec()
			if err != nil {
				return fmt.Errorf("insert finding: %w", err)
			}
			inserted += int(tag.RowsAffected())
		}
		return nil
	})
	return inserted, err
}

func (s *Store) GetJob(ctx context.Context, jobID uuid.UUID) (*job.Job, error) {
	var result job.Job
	err := s.withSpan(ctx, "postgres.get_job", []attribute.KeyValue{
		attribute.String("job_id", jobID.String()),
	}, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx,
			`SELECT job_id, bucket, prefix, created_at, updated_at FROM jobs WHERE job_id = $1`, jobID)
		if err := row.Scan(&result.ID, &result.Bucket, &result.Prefix, &result.CreatedAt, &result.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return job.ErrNotFound
			}
			return fmt.Errorf("get job: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Store) CountObjectsByStatus(ctx context.Context, jobID uuid.UUID) (job.StatusCounts, error) {
	var counts job.StatusCounts
	err := s.withSpan(ctx, "postgres.count_objects_by_status", []attribute.KeyValue{
		attribute.String("job_id", jobID.String()),
	}, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx,
			`SELECT status, count(*) FROM job_objects WHERE job_id = $1 GROUP BY status`, jobID)
		if err != nil {
			return fmt.Errorf("count objects by status: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var status string
			var n int
			if err := rows.Scan(&status, &n); err != nil {
				return fmt.Errorf("scan status count: %w", err)
			}
			switch job.ObjectStatus(status) {
			case job.StatusQueued:
				counts.Queued = n
			case job.StatusProcessing:
				counts.Processing = n
			case job.StatusSucceeded:
				counts.Succeeded = n
			case job.StatusFailed:
				counts.Failed = n
			}
		}
		return rows.Err()
	})
	return counts, err
}

func (s *Store) CountFindings(ctx context.Context, jobID uuid.UUID) (int, error) {
	var n int
	err := s.withSpan(ctx, "postgres.count_findings", []attribute.KeyValue{
		attribute.String("job_id", jobID.String()),
	}, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx, `SELECT count(*) FROM findings WHERE job_id = $1`, jobID)
		if err := row.Scan(&n); err != nil {
			return fmt.Errorf("count findings: %w", err)
		}
		return nil
	})
	return n, err
}

func (s *Store) ListFindings(ctx context.Context, bucket, prefix string, limit int, cursor int64) ([]job.Finding, error) {
	var out []job.Finding
	err := s.withSpan(ctx, "postgres.list_findings", []attribute.KeyValue{
		attribute.String("bucket", bucket),
		attribute.Int64("cursor", cursor),
		attribute.Int("limit", limit),
	}, func(ctx context.Context) error {
		query := `SELECT id, job_id, bucket, key, entity_tag, detector, masked_match, context, byte_offset, created_at
		          FROM findings WHERE id > $1`
		args := []any{cursor}

		if bucket != "" {
			args = append(args, bucket)
			query += fmt.Sprintf(" AND bucket = $%d", len(args))
		}
		if prefix != "" {
			args = append(args, prefix)
			query += fmt.Sprintf(" AND left(key, length($%d)) = $%d", len(args), len(args))
		}

		args = append(args, limit)
		query += fmt.Sprintf(" ORDER BY id ASC LIMIT $%d", len(args))

		rows, err := s.pool.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("list findings: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var f job.Finding
			if err := rows.Scan(&f.ID, &f.JobID, &f.Bucket, &f.Key, &f.EntityTag, &f.Detector, &f.MaskedMatch, &f.Context, &f.ByteOffset, &f.CreatedAt); err != nil {
				return fmt.Errorf("scan finding: %w", err)
			}
			out = append(out, f)
		}
		return rows.Err()
	})
	return out, err
}
