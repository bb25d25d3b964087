package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultProviderModel is the model tried when PROVIDER_MODELS is unset.
const DefaultProviderModel = "blackboxai/google/veo-3-fast"

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv              string
	Port                string
	APIKeyEnv           string
	DatabaseURL         string
	ProviderBaseURL     string
	ProviderModels      []string
	ProviderTimeout     time.Duration
	JobRetention        time.Duration
	JobSweepInterval    time.Duration
	WorkerConcurrency   int
	WorkerQueueSize     int
	WorkerShutdownGrace time.Duration
	SyncGenerateTimeout time.Duration
	CORSAllowedOrigins  []string
	MaxBodyBytes        int64
	HTTPReadTimeout     time.Duration
	HTTPWriteTimeout    time.Duration
	HTTPIdleTimeout     time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
// The provider credential itself is not captured here; it is resolved per request
// from the variable named by APIKeyEnv.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Port:                getEnv("PORT", "8080"),
		APIKeyEnv:           getEnv("API_KEY_ENV", "BLACKBOX_API"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		ProviderBaseURL:     getEnv("PROVIDER_BASE_URL", "https://api.blackbox.ai"),
		ProviderModels:      getEnvList("PROVIDER_MODELS", []string{DefaultProviderModel}),
		ProviderTimeout:     getEnvDuration("PROVIDER_TIMEOUT", 5*time.Minute),
		JobRetention:        getEnvDuration("JOB_RETENTION", time.Hour),
		JobSweepInterval:    getEnvDuration("JOB_SWEEP_INTERVAL", time.Minute),
		WorkerConcurrency:   getEnvInt("WORKER_CONCURRENCY", 4),
		WorkerQueueSize:     getEnvInt("WORKER_QUEUE_SIZE", 64),
		WorkerShutdownGrace: getEnvDuration("WORKER_SHUTDOWN_GRACE", 15*time.Second),
		SyncGenerateTimeout: getEnvDuration("SYNC_GENERATE_TIMEOUT", 60*time.Second),
		CORSAllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		MaxBodyBytes:        int64(getEnvInt("MAX_BODY_BYTES", 32<<20)),
		HTTPReadTimeout:     time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout:    time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 90)),
		HTTPIdleTimeout:     time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.WorkerConcurrency <= 0 {
		return nil, fmt.Errorf("WORKER_CONCURRENCY must be positive, got %d", cfg.WorkerConcurrency)
	}
	if cfg.WorkerQueueSize <= 0 {
		return nil, fmt.Errorf("WORKER_QUEUE_SIZE must be positive, got %d", cfg.WorkerQueueSize)
	}
	if cfg.JobRetention <= 0 {
		return nil, fmt.Errorf("JOB_RETENTION must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("90s", "5m") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
