// Package scheduler runs the bounded worker pool that drains the job queue.
// Admission is non-blocking: when the queue is full, Submit refuses instead of
// stalling the HTTP handler.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"earthtour/internal/animation"
	"earthtour/internal/job"
	"earthtour/internal/path"
	"earthtour/internal/pkg/errors"
	"earthtour/internal/pkg/logger"
	"earthtour/internal/ports"
	"earthtour/internal/render"
)

// errTextLimit bounds the failure detail stored on a job so a noisy renderer
// cannot bloat the registry.
const errTextLimit = 2000

// Planner builds a camera path from resolved waypoints.
type Planner interface {
	Plan(locations []animation.ResolvedLocation, requestedDuration float64) (*path.CameraPath, error)
}

// Archiver persists terminal job snapshots. Optional; archival failures never
// affect the job outcome.
type Archiver interface {
	Archive(ctx context.Context, j job.Job) error
}

type Config struct {
	// Workers is the number of concurrent render slots.
	Workers int
	// QueueCapacity bounds the number of queued-but-unstarted jobs.
	QueueCapacity int
}

type Deps struct {
	Registry *job.Registry
	Planner  Planner
	Renderer render.Renderer
	Storage  ports.StorageProvider
	Archiver Archiver
	Log      *logger.Logger
}

// Scheduler owns the queue and the worker pool. Each dequeued job is driven
// through exactly one plan → render → store pass by a single worker.
type Scheduler struct {
	cfg   Config
	deps  Deps
	log   *logger.Logger
	queue chan string
	wg    sync.WaitGroup
}

func New(cfg Config, deps Deps) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 16
	}
	log := deps.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Scheduler{
		cfg:   cfg,
		deps:  deps,
		log:   log.WithComponent("scheduler"),
		queue: make(chan string, cfg.QueueCapacity),
	}
}

// Start launches the worker pool. Workers exit when ctx is canceled or the
// queue is closed by Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("starting workers",
		"workers", s.cfg.Workers,
		"queue_capacity", s.cfg.QueueCapacity,
	)
	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}
}

// Submit enqueues a created job without blocking. A full queue returns an
// UNAVAILABLE error and leaves the registry untouched; the caller decides
// whether to keep or discard the job record.
func (s *Scheduler) Submit(jobID string) error {
	select {
	case s.queue <- jobID:
		return nil
	default:
		return errors.Unavailable("render queue is full, retry later")
	}
}

// Stop closes the queue and waits for in-flight jobs, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	close(s.queue)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("all workers drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler shutdown timed out: %w", ctx.Err())
	}
}

func (s *Scheduler) worker(ctx context.Context, id int) {
	defer s.wg.Done()
	log := &logger.Logger{Logger: s.log.With("worker", id)}

	for {
		select {
		case <-ctx.Done():
			log.Info("worker stopping, context canceled")
			return
		case jobID, ok := <-s.queue:
			if !ok {
				return
			}
			s.runJob(logger.ContextWithJobID(ctx, jobID), log.WithJobID(jobID), jobID)
		}
	}
}

// runJob drives one job to a terminal state. A panic in any stage fails the
// job but never kills the worker.
func (s *Scheduler) runJob(ctx context.Context, log *logger.Logger, jobID string) {
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("job panicked", "panic", fmt.Sprint(rec))
			s.fail(ctx, log, jobID, fmt.Sprintf("internal error: %v", rec))
		}
	}()

	if err := s.deps.Registry.MarkProcessing(jobID); err != nil {
		// The job was deleted between enqueue and dequeue.
		log.Warn("skipping job", "error", err.Error())
		return
	}

	log.Info("processing job")

	res, err := s.process(ctx, jobID)
	if err != nil {
		log.Error("job failed",
			"error", err.Error(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		s.fail(ctx, log, jobID, err.Error())
		return
	}

	if err := s.deps.Registry.MarkCompleted(jobID, res); err != nil {
		log.Error("failed to mark job completed", "error", err.Error())
		return
	}

	log.Info("job completed",
		"video_path", res.VideoPath,
		"animation_seconds", res.Duration,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	s.archive(ctx, log, jobID)
}

func (s *Scheduler) process(ctx context.Context, jobID string) (job.Result, error) {
	j, err := s.deps.Registry.Get(jobID)
	if err != nil {
		return job.Result{}, err
	}

	cp, err := s.deps.Planner.Plan(j.Request.Locations, j.Request.Duration)
	if err != nil {
		return job.Result{}, errors.Wrap(err, "scheduler.process", "planning camera path")
	}

	rendered, err := s.deps.Renderer.Render(ctx, cp, j.Request.Quality)
	if err != nil {
		return job.Result{}, errors.Wrap(err, "scheduler.process", "rendering animation")
	}

	objectKey, err := s.store(ctx, rendered.VideoPath)
	if err != nil {
		return job.Result{}, errors.Wrap(err, "scheduler.process", "storing artifact")
	}

	return job.Result{
		VideoPath: "/videos/" + filepath.Base(rendered.VideoPath),
		ObjectKey: objectKey,
		Duration:  rendered.Duration,
	}, nil
}

// store uploads the rendered artifact to the storage provider and removes the
// local scratch file.
func (s *Scheduler) store(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return "", err
	}

	out, err := s.deps.Storage.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   filepath.Base(localPath),
		ContentType: "video/mp4",
		Reader:      f,
		Size:        st.Size(),
	})
	f.Close()
	if err != nil {
		return "", err
	}

	if err := os.Remove(localPath); err != nil {
		s.log.Warn("failed to remove local scratch file",
			"path", localPath,
			"error", err.Error(),
		)
	}

	return out.ObjectKey, nil
}

func (s *Scheduler) fail(ctx context.Context, log *logger.Logger, jobID, detail string) {
	if len(detail) > errTextLimit {
		detail = detail[:errTextLimit]
	}
	if err := s.deps.Registry.MarkFailed(jobID, detail); err != nil {
		log.Error("failed to mark job failed", "error", err.Error())
		return
	}
	s.archive(ctx, log, jobID)
}

// archive best-effort persists the terminal snapshot.
func (s *Scheduler) archive(ctx context.Context, log *logger.Logger, jobID string) {
	if s.deps.Archiver == nil {
		return
	}
	j, err := s.deps.Registry.Get(jobID)
	if err != nil {
		return
	}
	if err := s.deps.Archiver.Archive(ctx, *j); err != nil {
		log.Warn("failed to archive job", "error", err.Error())
	}
}
