// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// OAuthConfig provides the marketplace application credentials used by the
// authorization-code exchange.
type OAuthConfig interface {
	GetMLAppID() string
	GetMLClientSecret() string
	GetMLRedirectURI() string
	GetMLTempCode() string
	GetMLAPIBaseURL() string
	GetUpstreamTimeout() time.Duration
}

// MarketplaceConfig provides settings for the marketplace search API.
type MarketplaceConfig interface {
	GetMLAccessToken() string
	GetMLAPIBaseURL() string
	GetMLSiteID() string
	GetMLSearchLimit() int
	GetRewriteCacheSize() int
	GetUpstreamTimeout() time.Duration
}

// GeminiConfig provides settings for the generative model client.
type GeminiConfig interface {
	GetGoogleAPIKey() string
	GetGeminiModel() string
	GetGeminiFilePollInterval() time.Duration
	GetGeminiFileReadyTimeout() time.Duration
}

// ExtractionConfig provides settings for catalog extraction runs.
type ExtractionConfig interface {
	GetCatalogPDFPath() string
	GetCatalogBatchSize() int
	GetCatalogBatchConcurrency() int
	GetCatalogOutputPath() string
	GetCatalogBatchOutputPath() string
	GetCatalogTempDir() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSOrigins() []string
	GetCORSAllowAll() bool
	GetRateLimitRPS() float64
	GetRateLimitBurst() int
}

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketCatalogs() string
	GetMinioBucketResults() string
	IsMinIOEnabled() bool
}

// SchedulerConfig provides settings for the asynq job queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// JobsConfig provides settings for the extraction job worker.
type JobsConfig interface {
	GetWorkerMetricsAddr() string
	GetJobDispatchInterval() time.Duration
	GetJobCleanupInterval() time.Duration
	GetJobCompletedRetention() time.Duration
	GetJobFailedRetention() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                     string
	HTTPAddr                string
	CORSOrigins             []string
	CORSAllowAll            bool
	RateLimitRPS            float64
	RateLimitBurst          int
	MLAppID                 string
	MLClientSecret          string
	MLRedirectURI           string
	MLTempCode              string
	MLAccessToken           string
	MLAPIBaseURL            string
	MLSiteID                string
	MLSearchLimit           int
	RewriteCacheSize        int
	UpstreamTimeout         time.Duration
	GoogleAPIKey            string
	GeminiModel             string
	GeminiFilePollInterval  time.Duration
	GeminiFileReadyTimeout  time.Duration
	CatalogPDFPath          string
	CatalogBatchSize        int
	CatalogBatchConcurrency int
	CatalogOutputPath       string
	CatalogBatchOutputPath  string
	CatalogTempDir          string
	DatabaseURL             string
	MinIOEndpoint           string
	MinIOAccessKey          string
	MinIOSecretKey          string
	MinIOUseSSL             bool
	MinIOMaxFileSize        int64
	MinioBucketCatalogs     string
	MinioBucketResults      string
	RedisURL                string
	RedisTLSInsecure        bool
	AsynqQueueName          string
	AsynqConcurrency        int
	WorkerMetricsAddr       string
	JobDispatchInterval     time.Duration
	JobCleanupInterval      time.Duration
	JobCompletedRetention   time.Duration
	JobFailedRetention      time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// OAuthConfig implementation
func (c *Config) GetMLAppID() string                { return c.MLAppID }
func (c *Config) GetMLClientSecret() string         { return c.MLClientSecret }
func (c *Config) GetMLRedirectURI() string          { return c.MLRedirectURI }
func (c *Config) GetMLTempCode() string             { return c.MLTempCode }
func (c *Config) GetMLAPIBaseURL() string           { return c.MLAPIBaseURL }
func (c *Config) GetUpstreamTimeout() time.Duration { return c.UpstreamTimeout }

// MarketplaceConfig implementation
func (c *Config) GetMLAccessToken() string { return c.MLAccessToken }
func (c *Config) GetMLSiteID() string      { return c.MLSiteID }
func (c *Config) GetMLSearchLimit() int    { return c.MLSearchLimit }
func (c *Config) GetRewriteCacheSize() int { return c.RewriteCacheSize }

// GeminiConfig implementation
func (c *Config) GetGoogleAPIKey() string                  { return c.GoogleAPIKey }
func (c *Config) GetGeminiModel() string                   { return c.GeminiModel }
func (c *Config) GetGeminiFilePollInterval() time.Duration { return c.GeminiFilePollInterval }
func (c *Config) GetGeminiFileReadyTimeout() time.Duration { return c.GeminiFileReadyTimeout }

// ExtractionConfig implementation
func (c *Config) GetCatalogPDFPath() string         { return c.CatalogPDFPath }
func (c *Config) GetCatalogBatchSize() int          { return c.CatalogBatchSize }
func (c *Config) GetCatalogBatchConcurrency() int   { return c.CatalogBatchConcurrency }
func (c *Config) GetCatalogOutputPath() string      { return c.CatalogOutputPath }
func (c *Config) GetCatalogBatchOutputPath() string { return c.CatalogBatchOutputPath }
func (c *Config) GetCatalogTempDir() string         { return c.CatalogTempDir }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetRateLimitRPS() float64 { return c.RateLimitRPS }
func (c *Config) GetRateLimitBurst() int   { return c.RateLimitBurst }

// GetEnv returns the deployment environment name.
func (c *Config) GetEnv() string { return c.Env }

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string       { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string      { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string      { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool           { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64     { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketCatalogs() string { return c.MinioBucketCatalogs }
func (c *Config) GetMinioBucketResults() string  { return c.MinioBucketResults }
func (c *Config) IsMinIOEnabled() bool           { return c.MinIOEndpoint != "" }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// JobsConfig implementation
func (c *Config) GetWorkerMetricsAddr() string            { return c.WorkerMetricsAddr }
func (c *Config) GetJobDispatchInterval() time.Duration   { return c.JobDispatchInterval }
func (c *Config) GetJobCleanupInterval() time.Duration    { return c.JobCleanupInterval }
func (c *Config) GetJobCompletedRetention() time.Duration { return c.JobCompletedRetention }
func (c *Config) GetJobFailedRetention() time.Duration    { return c.JobFailedRetention }

// IsCatalogJobsEnabled reports whether every piece of infrastructure needed by
// asynchronous extraction jobs is configured.
func (c *Config) IsCatalogJobsEnabled() bool {
	return c.DatabaseURL != "" && c.RedisURL != "" && c.IsMinIOEnabled()
}

// Load reads configuration from environment variables.
// Missing credentials are not an error here; each binary asks for what it needs
// through the Require helpers.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "*"))

	cfg := &Config{
		Env:                     getEnv("APP_ENV", "development"),
		HTTPAddr:                httpAddr(),
		CORSOrigins:             corsOrigins,
		CORSAllowAll:            containsWildcard(corsOrigins),
		RateLimitRPS:            mustFloat(getEnv("RATE_LIMIT_RPS", "5")),
		RateLimitBurst:          mustInt(getEnv("RATE_LIMIT_BURST", "10")),
		MLAppID:                 getEnv("ML_APP_ID", ""),
		MLClientSecret:          getEnv("ML_CLIENT_SECRET", ""),
		MLRedirectURI:           getEnv("ML_REDIRECT_URI", ""),
		MLTempCode:              strings.TrimSpace(getEnv("ML_TEMP_CODE", "")),
		MLAccessToken:           strings.TrimSpace(getEnv("ML_ACCESS_TOKEN", "")),
		MLAPIBaseURL:            strings.TrimRight(getEnv("ML_API_BASE_URL", "https://api.mercadolibre.com"), "/"),
		MLSiteID:                getEnv("ML_SITE_ID", "MLB"),
		MLSearchLimit:           mustInt(getEnv("ML_SEARCH_LIMIT", "50")),
		RewriteCacheSize:        mustInt(getEnv("REWRITE_CACHE_SIZE", "256")),
		UpstreamTimeout:         mustDuration(getEnv("UPSTREAM_TIMEOUT", "30s")),
		GoogleAPIKey:            getEnv("GOOGLE_API_KEY", ""),
		GeminiModel:             getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiFilePollInterval:  mustDuration(getEnv("GEMINI_FILE_POLL_INTERVAL", "2s")),
		GeminiFileReadyTimeout:  mustDuration(getEnv("GEMINI_FILE_READY_TIMEOUT", "2m")),
		CatalogPDFPath:          getEnv("CATALOG_PDF_PATH", "catalogo.pdf"),
		CatalogBatchSize:        mustInt(getEnv("CATALOG_BATCH_SIZE", "3")),
		CatalogBatchConcurrency: mustInt(getEnv("CATALOG_BATCH_CONCURRENCY", "1")),
		CatalogOutputPath:       getEnv("CATALOG_OUTPUT_PATH", "produtos_formatados.json"),
		CatalogBatchOutputPath:  getEnv("CATALOG_BATCH_OUTPUT_PATH", "catalogo_completo_1000.json"),
		CatalogTempDir:          getEnv("CATALOG_TEMP_DIR", "."),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		MinIOEndpoint:           getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:          getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:          getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:             strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:        mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "104857600")),
		MinioBucketCatalogs:     getEnv("MINIO_BUCKET_CATALOGS", "catalogs"),
		MinioBucketResults:      getEnv("MINIO_BUCKET_RESULTS", "catalog-results"),
		RedisURL:                getEnv("REDIS_URL", ""),
		RedisTLSInsecure:        strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:          getEnv("ASYNQ_QUEUE", "catalog"),
		AsynqConcurrency:        mustInt(getEnv("ASYNQ_CONCURRENCY", "2")),
		WorkerMetricsAddr:       getEnv("WORKER_METRICS_ADDR", ""),
		JobDispatchInterval:     mustDuration(getEnv("CATALOG_JOB_DISPATCH_INTERVAL", "5s")),
		JobCleanupInterval:      mustDuration(getEnv("CATALOG_JOB_CLEANUP_INTERVAL", "1h")),
		JobCompletedRetention:   days(getEnv("CATALOG_JOB_COMPLETED_RETENTION_DAYS", "14")),
		JobFailedRetention:      days(getEnv("CATALOG_JOB_FAILED_RETENTION_DAYS", "30")),
	}

	if cfg.CatalogBatchSize < 1 {
		return nil, fmt.Errorf("CATALOG_BATCH_SIZE must be a positive integer")
	}
	if cfg.CatalogBatchConcurrency < 1 {
		cfg.CatalogBatchConcurrency = 1
	}
	if cfg.MLSearchLimit < 1 {
		return nil, fmt.Errorf("ML_SEARCH_LIMIT must be a positive integer")
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst < 1 {
		return nil, fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if cfg.UpstreamTimeout <= 0 {
		return nil, fmt.Errorf("UPSTREAM_TIMEOUT must be a positive duration")
	}

	return cfg, nil
}

// RequireOAuth checks the keys needed by the token exchange.
func (c *Config) RequireOAuth() error {
	if c.MLTempCode == "" {
		return fmt.Errorf("ML_TEMP_CODE is empty")
	}
	return requireAll(map[string]string{
		"ML_APP_ID":        c.MLAppID,
		"ML_CLIENT_SECRET": c.MLClientSecret,
		"ML_REDIRECT_URI":  c.MLRedirectURI,
	})
}

// RequireGemini checks the keys needed to reach the generative model.
func (c *Config) RequireGemini() error {
	return requireAll(map[string]string{"GOOGLE_API_KEY": c.GoogleAPIKey})
}

func requireAll(values map[string]string) error {
	missing := make([]string, 0, len(values))
	for key, value := range values {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%s is required", strings.Join(missing, ", "))
}

// httpAddr honours PORT (platform convention) before HTTP_ADDR.
func httpAddr() string {
	if port := strings.TrimSpace(getEnv("PORT", "")); port != "" {
		return ":" + strings.TrimPrefix(port, ":")
	}
	return getEnv("HTTP_ADDR", ":3000")
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func days(value string) time.Duration {
	return time.Duration(mustInt(value)) * 24 * time.Hour
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
