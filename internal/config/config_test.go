package config

import (
	"testing"
	"time"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	t.Setenv("DB_URL", "postgres://localhost:5432/prostats")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_DBURLRequired(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("DB_URL", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when DB_URL is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("DB_URL", "postgres://localhost:5432/prostats")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ProviderBaseURL != "https://api.opendota.com/api" {
		t.Fatalf("unexpected ProviderBaseURL: %q", cfg.ProviderBaseURL)
	}
	if cfg.ProviderTimeout != 20*time.Second {
		t.Fatalf("unexpected ProviderTimeout: %s", cfg.ProviderTimeout)
	}
	if cfg.ProviderRatePerMinute != 60 || cfg.ProviderRatePerDay != 2000 {
		t.Fatalf("unexpected rate defaults: %d/%d", cfg.ProviderRatePerMinute, cfg.ProviderRatePerDay)
	}
	if cfg.IngestRunName != "pro-matches" {
		t.Fatalf("unexpected IngestRunName: %q", cfg.IngestRunName)
	}
	if cfg.IngestWorkers != 4 {
		t.Fatalf("unexpected IngestWorkers: %d", cfg.IngestWorkers)
	}
	if cfg.IngestFailureRatio != 0.5 {
		t.Fatalf("unexpected IngestFailureRatio: %f", cfg.IngestFailureRatio)
	}
	if !cfg.ProviderCircuitEnabled {
		t.Fatalf("expected circuit breaker enabled by default")
	}
	if !cfg.RefreshReference {
		t.Fatalf("expected reference refresh enabled by default")
	}
}

func TestLoad_ProviderOverrides(t *testing.T) {
	t.Setenv("APP_ENV", EnvStage)
	t.Setenv("DB_URL", "postgres://localhost:5432/prostats")
	t.Setenv("PROVIDER_BASE_URL", "https://mirror.example/api")
	t.Setenv("PROVIDER_API_KEY", "key-123")
	t.Setenv("PROVIDER_TIMEOUT", "5s")
	t.Setenv("PROVIDER_MAX_RETRIES", "1")
	t.Setenv("PROVIDER_RATE_PER_MINUTE", "120")
	t.Setenv("PROVIDER_RATE_PER_DAY", "50000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ProviderBaseURL != "https://mirror.example/api" {
		t.Fatalf("unexpected ProviderBaseURL: %q", cfg.ProviderBaseURL)
	}
	if cfg.ProviderAPIKey != "key-123" {
		t.Fatalf("unexpected ProviderAPIKey")
	}
	if cfg.ProviderTimeout != 5*time.Second {
		t.Fatalf("unexpected ProviderTimeout: %s", cfg.ProviderTimeout)
	}
	if cfg.ProviderMaxRetries != 1 {
		t.Fatalf("unexpected ProviderMaxRetries: %d", cfg.ProviderMaxRetries)
	}
	if cfg.ProviderRatePerMinute != 120 || cfg.ProviderRatePerDay != 50000 {
		t.Fatalf("unexpected rates: %d/%d", cfg.ProviderRatePerMinute, cfg.ProviderRatePerDay)
	}
}

func TestLoad_IngestValidation(t *testing.T) {
	t.Run("rejects zero workers", func(t *testing.T) {
		t.Setenv("APP_ENV", EnvDev)
		t.Setenv("DB_URL", "postgres://localhost:5432/prostats")
		t.Setenv("INGEST_WORKERS", "0")

		if _, err := Load(); err == nil {
			t.Fatalf("expected error for INGEST_WORKERS=0")
		}
	})

	t.Run("rejects out-of-range failure ratio", func(t *testing.T) {
		t.Setenv("APP_ENV", EnvDev)
		t.Setenv("DB_URL", "postgres://localhost:5432/prostats")
		t.Setenv("INGEST_FAILURE_RATIO", "1.5")

		if _, err := Load(); err == nil {
			t.Fatalf("expected error for INGEST_FAILURE_RATIO=1.5")
		}
	})

	t.Run("rejects negative retries", func(t *testing.T) {
		t.Setenv("APP_ENV", EnvDev)
		t.Setenv("DB_URL", "postgres://localhost:5432/prostats")
		t.Setenv("PROVIDER_MAX_RETRIES", "-1")

		if _, err := Load(); err == nil {
			t.Fatalf("expected error for PROVIDER_MAX_RETRIES=-1")
		}
	})
}

func TestLoad_LogLevelParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("DB_URL", "postgres://localhost:5432/prostats")
	t.Setenv("APP_LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.LogLevel.String() != "warn" {
		t.Fatalf("unexpected LogLevel: %s", cfg.LogLevel.String())
	}
}
