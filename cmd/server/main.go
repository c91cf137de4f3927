package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"earthtour/internal/animation"
	"earthtour/internal/archive"
	"earthtour/internal/config"
	"earthtour/internal/geocode"
	"earthtour/internal/httpapi"
	"earthtour/internal/httpapi/handlers"
	"earthtour/internal/job"
	"earthtour/internal/path"
	"earthtour/internal/pkg/logger"
	"earthtour/internal/pkg/shutdown"
	"earthtour/internal/render"
	"earthtour/internal/scheduler"
	"earthtour/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault().LogFatal("invalid configuration", err)
	}

	log := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "earthtour",
	})

	log.Info("starting earthtour",
		"version", "0.1.0",
		"workers", cfg.Workers,
		"queue_capacity", cfg.QueueCapacity,
	)

	ctx := context.Background()
	shutdownMgr := shutdown.NewManager(log, cfg.ShutdownTimeout)

	// Redis is optional: with it, geocode results are shared across
	// instances; without it, each process keeps its own cache.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		log.Info("connecting to Redis", "addr", cfg.RedisAddr)
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.LogFatal("failed to ping Redis", err)
		}
		shutdownMgr.Register("redis", func(ctx context.Context) error {
			return rdb.Close()
		})
		log.Info("Redis connected")
	}

	// Postgres is optional: when configured, terminal jobs are archived.
	var archiver scheduler.Archiver
	if cfg.DatabaseURL != "" {
		log.Info("connecting to PostgreSQL")
		store, err := archive.New(ctx, cfg.DatabaseURL, log)
		if err != nil {
			log.LogFatal("failed to initialize job archive", err)
		}
		shutdownMgr.Register("postgres", func(ctx context.Context) error {
			store.Close()
			return nil
		})
		archiver = store
		log.Info("PostgreSQL connected")
	}

	log.Info("initializing storage provider")
	sp, err := storage.NewProvider(ctx, storage.Options{
		Provider:  cfg.StorageProvider,
		LocalRoot: cfg.StorageLocalRoot,
		GDrive: storage.GDriveOptions{
			ClientID:     cfg.GDrive.ClientID,
			ClientSecret: cfg.GDrive.ClientSecret,
			RefreshToken: cfg.GDrive.RefreshToken,
			FolderID:     cfg.GDrive.FolderID,
		},
	})
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}
	log.Info("storage provider initialized", "provider", sp.Provider())

	geocoder := geocode.NewCachedResolver(
		geocode.NewClient(cfg.GeocodeBaseURL, cfg.GeocodeUserAgent, cfg.GeocodeTimeout, log),
		rdb,
		cfg.GeocodeCacheTTL,
		log,
	)

	renderer, err := render.NewBlender(render.BlenderConfig{
		BlenderPath: cfg.BlenderPath,
		ScriptPath:  cfg.ScriptPath,
		WorkDir:     cfg.WorkDir,
		Timeout:     cfg.RenderTimeout,
	}, log)
	if err != nil {
		log.LogFatal("failed to initialize renderer", err)
	}

	registry := job.NewRegistry()

	sched := scheduler.New(scheduler.Config{
		Workers:       cfg.Workers,
		QueueCapacity: cfg.QueueCapacity,
	}, scheduler.Deps{
		Registry: registry,
		Planner: path.New(path.Config{
			MinTotalSeconds: cfg.MinTotalSeconds,
			MaxTotalSeconds: cfg.MaxTotalSeconds,
		}),
		Renderer: renderer,
		Storage:  sp,
		Archiver: archiver,
		Log:      log,
	})

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	sched.Start(workerCtx)
	shutdownMgr.Register("scheduler", func(ctx context.Context) error {
		defer cancelWorkers()
		return sched.Stop(ctx)
	})

	router := httpapi.NewRouter(httpapi.Deps{
		Handlers: handlers.Deps{
			Validator: animation.NewValidator(geocoder, log),
			Registry:  registry,
			Scheduler: sched,
			Storage:   sp,
			Log:       log,
		},
		CORSOrigins: cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	shutdownMgr.Wait()
}
