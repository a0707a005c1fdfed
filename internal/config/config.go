package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dotastats/prostats/internal/platform/logging"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// Config stores runtime configuration for the ingestion pipeline.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	DBURL          string
	LogLevel       logging.Level

	ProviderBaseURL             string
	ProviderAPIKey              string
	ProviderTimeout             time.Duration
	ProviderMaxRetries          int
	ProviderRatePerMinute       int
	ProviderRatePerDay          int
	ProviderCircuitEnabled      bool
	ProviderCircuitFailureCount int
	ProviderCircuitOpenTimeout  time.Duration
	ProviderCircuitHalfOpenReq  int

	IngestRunName      string
	IngestWorkers      int
	IngestMaxPages     int
	IngestMaxMatches   int
	IngestFailureRatio float64

	RefreshReference bool
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:         appEnv,
		ServiceName:    getEnv("APP_SERVICE_NAME", "prostats-ingest"),
		ServiceVersion: getEnv("APP_SERVICE_VERSION", "dev"),
		LogLevel:       parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
	}

	cfg.DBURL = strings.TrimSpace(getEnv("DB_URL", ""))
	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required")
	}

	cfg.ProviderBaseURL = strings.TrimSpace(getEnv("PROVIDER_BASE_URL", "https://api.opendota.com/api"))
	cfg.ProviderAPIKey = strings.TrimSpace(getEnv("PROVIDER_API_KEY", ""))

	providerTimeout, err := time.ParseDuration(getEnv("PROVIDER_TIMEOUT", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PROVIDER_TIMEOUT: %w", err)
	}
	if providerTimeout <= 0 {
		return Config{}, fmt.Errorf("PROVIDER_TIMEOUT must be > 0")
	}
	cfg.ProviderTimeout = providerTimeout

	providerMaxRetries, err := getEnvAsInt("PROVIDER_MAX_RETRIES", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse PROVIDER_MAX_RETRIES: %w", err)
	}
	if providerMaxRetries < 0 {
		return Config{}, fmt.Errorf("PROVIDER_MAX_RETRIES must be >= 0")
	}
	cfg.ProviderMaxRetries = providerMaxRetries

	ratePerMinute, err := getEnvAsInt("PROVIDER_RATE_PER_MINUTE", 60)
	if err != nil {
		return Config{}, fmt.Errorf("parse PROVIDER_RATE_PER_MINUTE: %w", err)
	}
	if ratePerMinute < 1 {
		return Config{}, fmt.Errorf("PROVIDER_RATE_PER_MINUTE must be >= 1")
	}
	cfg.ProviderRatePerMinute = ratePerMinute

	ratePerDay, err := getEnvAsInt("PROVIDER_RATE_PER_DAY", 2000)
	if err != nil {
		return Config{}, fmt.Errorf("parse PROVIDER_RATE_PER_DAY: %w", err)
	}
	if ratePerDay < 1 {
		return Config{}, fmt.Errorf("PROVIDER_RATE_PER_DAY must be >= 1")
	}
	cfg.ProviderRatePerDay = ratePerDay

	circuitEnabled, err := strconv.ParseBool(getEnv("PROVIDER_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PROVIDER_CIRCUIT_ENABLED: %w", err)
	}
	cfg.ProviderCircuitEnabled = circuitEnabled

	circuitFailureCount, err := getEnvAsInt("PROVIDER_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse PROVIDER_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if circuitFailureCount < 1 {
		return Config{}, fmt.Errorf("PROVIDER_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	cfg.ProviderCircuitFailureCount = circuitFailureCount

	circuitOpenTimeout, err := time.ParseDuration(getEnv("PROVIDER_CIRCUIT_OPEN_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PROVIDER_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if circuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("PROVIDER_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	cfg.ProviderCircuitOpenTimeout = circuitOpenTimeout

	circuitHalfOpenReq, err := getEnvAsInt("PROVIDER_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse PROVIDER_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if circuitHalfOpenReq < 1 {
		return Config{}, fmt.Errorf("PROVIDER_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}
	cfg.ProviderCircuitHalfOpenReq = circuitHalfOpenReq

	cfg.IngestRunName = strings.TrimSpace(getEnv("INGEST_RUN_NAME", "pro-matches"))
	if cfg.IngestRunName == "" {
		return Config{}, fmt.Errorf("INGEST_RUN_NAME must not be blank")
	}

	ingestWorkers, err := getEnvAsInt("INGEST_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse INGEST_WORKERS: %w", err)
	}
	if ingestWorkers < 1 {
		return Config{}, fmt.Errorf("INGEST_WORKERS must be >= 1")
	}
	cfg.IngestWorkers = ingestWorkers

	ingestMaxPages, err := getEnvAsInt("INGEST_MAX_PAGES", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse INGEST_MAX_PAGES: %w", err)
	}
	if ingestMaxPages < 0 {
		return Config{}, fmt.Errorf("INGEST_MAX_PAGES must be >= 0")
	}
	cfg.IngestMaxPages = ingestMaxPages

	ingestMaxMatches, err := getEnvAsInt("INGEST_MAX_MATCHES", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse INGEST_MAX_MATCHES: %w", err)
	}
	if ingestMaxMatches < 0 {
		return Config{}, fmt.Errorf("INGEST_MAX_MATCHES must be >= 0")
	}
	cfg.IngestMaxMatches = ingestMaxMatches

	failureRatio, err := getEnvAsFloat("INGEST_FAILURE_RATIO", 0.5)
	if err != nil {
		return Config{}, fmt.Errorf("parse INGEST_FAILURE_RATIO: %w", err)
	}
	if failureRatio <= 0 || failureRatio > 1 {
		return Config{}, fmt.Errorf("INGEST_FAILURE_RATIO must be in (0, 1]")
	}
	cfg.IngestFailureRatio = failureRatio

	refreshReference, err := strconv.ParseBool(getEnv("INGEST_REFRESH_REFERENCE", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse INGEST_REFRESH_REFERENCE: %w", err)
	}
	cfg.RefreshReference = refreshReference

	return cfg, nil
}

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}

	return out, nil
}
