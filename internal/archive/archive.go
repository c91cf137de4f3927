// Package archive persists terminal job snapshots to Postgres. The in-memory
// registry stays the source of truth for live jobs; the archive is a durable
// record that survives restarts, for audit and offline inspection.
package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"earthtour/internal/job"
	"earthtour/internal/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS animation_jobs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	created     TIMESTAMPTZ NOT NULL,
	request     JSONB NOT NULL,
	video_path  TEXT,
	duration    DOUBLE PRECISION,
	error_text  TEXT,
	archived_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type Store struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// New connects to Postgres and ensures the archive table exists.
func New(ctx context.Context, databaseURL string, log *logger.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure archive schema: %w", err)
	}
	return &Store{db: pool, log: log.WithComponent("archive")}, nil
}

// Archive upserts a terminal job snapshot. Re-archiving the same job id
// overwrites the previous row.
func (s *Store) Archive(ctx context.Context, j job.Job) error {
	req, err := json.Marshal(j.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var videoPath *string
	var duration *float64
	if j.Result != nil {
		videoPath = &j.Result.VideoPath
		duration = &j.Result.Duration
	}
	var errText *string
	if j.Error != "" {
		errText = &j.Error
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO animation_jobs (id, status, created, request, video_path, duration, error_text)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			status      = EXCLUDED.status,
			request     = EXCLUDED.request,
			video_path  = EXCLUDED.video_path,
			duration    = EXCLUDED.duration,
			error_text  = EXCLUDED.error_text,
			archived_at = now()
	`, j.ID, string(j.Status), j.Created, req, videoPath, duration, errText)
	if err != nil {
		return fmt.Errorf("archive job %s: %w", j.ID, err)
	}
	return nil
}

func (s *Store) Close() {
	s.db.Close()
}
