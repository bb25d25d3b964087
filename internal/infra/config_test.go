package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("PROVIDER_MODELS", "")
	t.Setenv("JOB_RETENTION", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("WORKER_SHUTDOWN_GRACE", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.APIKeyEnv != "BLACKBOX_API" {
		t.Fatalf("APIKeyEnv = %q, want BLACKBOX_API", cfg.APIKeyEnv)
	}
	if len(cfg.ProviderModels) != 1 || cfg.ProviderModels[0] != DefaultProviderModel {
		t.Fatalf("ProviderModels mismatch: %#v", cfg.ProviderModels)
	}
	if cfg.JobRetention != time.Hour {
		t.Fatalf("JobRetention = %v, want 1h", cfg.JobRetention)
	}
	if cfg.WorkerShutdownGrace != 15*time.Second {
		t.Fatalf("WorkerShutdownGrace = %v, want 15s", cfg.WorkerShutdownGrace)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("CORSAllowedOrigins mismatch: %#v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigParsesModelList(t *testing.T) {
	t.Setenv("PROVIDER_MODELS", " blackboxai/google/veo-3 , blackboxai/google/veo-2,,blackbox-ai ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := []string{"blackboxai/google/veo-3", "blackboxai/google/veo-2", "blackbox-ai"}
	if len(cfg.ProviderModels) != len(expected) {
		t.Fatalf("ProviderModels mismatch: got %#v want %#v", cfg.ProviderModels, expected)
	}
	for i, model := range expected {
		if cfg.ProviderModels[i] != model {
			t.Fatalf("ProviderModels[%d] = %q, want %q", i, cfg.ProviderModels[i], model)
		}
	}
}

func TestLoadConfigDurations(t *testing.T) {
	t.Setenv("JOB_RETENTION", "90m")
	t.Setenv("PROVIDER_TIMEOUT", "120")
	t.Setenv("JOB_SWEEP_INTERVAL", "garbage")
	t.Setenv("WORKER_SHUTDOWN_GRACE", "45s")
	t.Setenv("HTTP_IDLE_TIMEOUT_SECONDS", "5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.JobRetention != 90*time.Minute {
		t.Fatalf("JobRetention = %v, want 90m", cfg.JobRetention)
	}
	if cfg.ProviderTimeout != 2*time.Minute {
		t.Fatalf("ProviderTimeout = %v, want 2m", cfg.ProviderTimeout)
	}
	if cfg.JobSweepInterval != time.Minute {
		t.Fatalf("JobSweepInterval = %v, want fallback 1m", cfg.JobSweepInterval)
	}
	if cfg.WorkerShutdownGrace != 45*time.Second || cfg.HTTPIdleTimeout != 5*time.Second {
		t.Fatalf("grace = %v idle = %v, want independent settings", cfg.WorkerShutdownGrace, cfg.HTTPIdleTimeout)
	}
}

func TestLoadConfigRejectsZeroConcurrency(t *testing.T) {
	t.Setenv("WORKER_CONCURRENCY", "0")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for zero WORKER_CONCURRENCY")
	}
}
