// Package config loads service configuration from environment variables,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type GDrive struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	FolderID     string
}

type Config struct {
	HTTPPort  string
	LogLevel  string
	LogFormat string

	// Workers bounds concurrent renders; QueueCapacity bounds queued jobs.
	Workers       int
	QueueCapacity int

	// Blender invocation.
	BlenderPath string
	ScriptPath  string
	WorkDir     string
	// RenderTimeout overrides the per-quality render timeouts when set.
	RenderTimeout time.Duration

	// Geocoding.
	GeocodeBaseURL   string
	GeocodeUserAgent string
	GeocodeTimeout   time.Duration
	GeocodeCacheTTL  time.Duration

	// RedisAddr enables the shared geocode cache when set.
	RedisAddr string
	// DatabaseURL enables the job archive when set.
	DatabaseURL string

	// Artifact storage.
	StorageProvider  string
	StorageLocalRoot string
	GDrive           GDrive

	// Planner duration window in seconds.
	MinTotalSeconds float64
	MaxTotalSeconds float64

	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:  getEnv("HTTP_PORT", "8000"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		Workers:       getEnvInt("RENDER_WORKERS", 2),
		QueueCapacity: getEnvInt("RENDER_QUEUE_CAPACITY", 16),

		BlenderPath:   getEnv("BLENDER_PATH", "blender"),
		ScriptPath:    getEnv("BLENDER_SCRIPT_PATH", "scripts/render_earth_tour.py"),
		WorkDir:       getEnv("RENDER_WORK_DIR", os.TempDir()),
		RenderTimeout: getEnvDuration("RENDER_TIMEOUT", 0),

		GeocodeBaseURL:   getEnv("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocodeUserAgent: getEnv("GEOCODE_USER_AGENT", "earthtour/1.0"),
		GeocodeTimeout:   getEnvDuration("GEOCODE_TIMEOUT", 5*time.Second),
		GeocodeCacheTTL:  getEnvDuration("GEOCODE_CACHE_TTL", 0),

		RedisAddr:   os.Getenv("REDIS_ADDR"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		StorageProvider:  getEnv("STORAGE_PROVIDER", "localfs"),
		StorageLocalRoot: getEnv("STORAGE_LOCAL_ROOT", "./data/videos"),
		GDrive: GDrive{
			ClientID:     os.Getenv("GDRIVE_CLIENT_ID"),
			ClientSecret: os.Getenv("GDRIVE_CLIENT_SECRET"),
			RefreshToken: os.Getenv("GDRIVE_REFRESH_TOKEN"),
			FolderID:     os.Getenv("GDRIVE_FOLDER_ID"),
		},

		MinTotalSeconds: getEnvFloat("MIN_TOTAL_SECONDS", 0),
		MaxTotalSeconds: getEnvFloat("MAX_TOTAL_SECONDS", 0),

		CORSOrigins:     getEnvCSV("CORS_ALLOWED_ORIGINS"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("RENDER_WORKERS must be positive, got %d", cfg.Workers)
	}
	if cfg.QueueCapacity <= 0 {
		return nil, fmt.Errorf("RENDER_QUEUE_CAPACITY must be positive, got %d", cfg.QueueCapacity)
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getEnvCSV(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
