// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// SheetsConfig provides settings for the remote pricing spreadsheet.
type SheetsConfig interface {
	GetGoogleSheetID() string
	GetGoogleCredentialsPath() string
	GetMachinesTab() string
	GetPricesTab() string
	GetSheetsBaseURL() string
	IsServiceAccountMode() bool
	IsSheetsEnabled() bool
}

// CatalogSyncConfig provides settings for the catalog synchronizer.
type CatalogSyncConfig interface {
	GetSyncToken() string
	GetCatalogSyncTTL() time.Duration
	GetCatalogSyncTimeout() time.Duration
	GetCatalogFallbackPath() string
	GetCatalogRefreshInterval() time.Duration
}

// TemplateConfig provides settings for quotation templates.
type TemplateConfig interface {
	GetTemplatesDir() string
	GetTemplateMappingsPath() string
}

// GotenbergConfig provides settings for the Gotenberg conversion service.
type GotenbergConfig interface {
	GetGotenbergURL() string
	GetGotenbergUsername() string
	GetGotenbergPassword() string
	IsGotenbergEnabled() bool
}

// ExportConfig provides settings for the PDF export pool.
type ExportConfig interface {
	GotenbergConfig
	GetPDFEngine() string
	GetSofficePath() string
	GetPDFExportWorkers() int
	GetPDFExportQueue() int
	GetPDFExportTimeout() time.Duration
}

// QuoteConfig provides settings for quote resolution.
type QuoteConfig interface {
	GetPriceToleranceCents() int64
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketQuotePDFs() string
	IsMinIOEnabled() bool
}

// SchedulerConfig provides settings for the asynq background worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                    string
	HTTPAddr               string
	CORSAllowAll           bool
	CORSOrigins            []string
	GoogleSheetID          string
	GoogleCredentialsPath  string
	MachinesTab            string
	PricesTab              string
	SheetsBaseURL          string
	SyncToken              string
	CatalogSyncTTL         time.Duration
	CatalogSyncTimeout     time.Duration
	CatalogFallbackPath    string
	CatalogRefreshInterval time.Duration
	TemplatesDir           string
	TemplateMappingsPath   string
	PDFEngine              string
	SofficePath            string
	PDFExportWorkers       int
	PDFExportQueue         int
	PDFExportTimeout       time.Duration
	GotenbergURL           string
	GotenbergUsername      string
	GotenbergPassword      string
	PriceToleranceCents    int64
	MinIOEndpoint          string
	MinIOAccessKey         string
	MinIOSecretKey         string
	MinIOUseSSL            bool
	MinIOMaxFileSize       int64
	MinioBucketQuotePDFs   string
	RedisURL               string
	RedisTLSInsecure       bool
	AsynqQueueName         string
	AsynqConcurrency       int
}

// =============================================================================
// Interface Implementations
// =============================================================================

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// SheetsConfig implementation
func (c *Config) GetGoogleSheetID() string         { return c.GoogleSheetID }
func (c *Config) GetGoogleCredentialsPath() string { return c.GoogleCredentialsPath }
func (c *Config) GetMachinesTab() string           { return c.MachinesTab }
func (c *Config) GetPricesTab() string             { return c.PricesTab }
func (c *Config) GetSheetsBaseURL() string         { return c.SheetsBaseURL }
func (c *Config) IsServiceAccountMode() bool       { return c.GoogleCredentialsPath != "" }
func (c *Config) IsSheetsEnabled() bool {
	return c.GoogleSheetID != ""
}

// CatalogSyncConfig implementation
func (c *Config) GetSyncToken() string                     { return c.SyncToken }
func (c *Config) GetCatalogSyncTTL() time.Duration         { return c.CatalogSyncTTL }
func (c *Config) GetCatalogSyncTimeout() time.Duration     { return c.CatalogSyncTimeout }
func (c *Config) GetCatalogFallbackPath() string           { return c.CatalogFallbackPath }
func (c *Config) GetCatalogRefreshInterval() time.Duration { return c.CatalogRefreshInterval }

// TemplateConfig implementation
func (c *Config) GetTemplatesDir() string         { return c.TemplatesDir }
func (c *Config) GetTemplateMappingsPath() string { return c.TemplateMappingsPath }

// GotenbergConfig implementation
func (c *Config) GetGotenbergURL() string      { return c.GotenbergURL }
func (c *Config) GetGotenbergUsername() string { return c.GotenbergUsername }
func (c *Config) GetGotenbergPassword() string { return c.GotenbergPassword }
func (c *Config) IsGotenbergEnabled() bool     { return c.GotenbergURL != "" }

// ExportConfig implementation
func (c *Config) GetPDFEngine() string               { return c.PDFEngine }
func (c *Config) GetSofficePath() string             { return c.SofficePath }
func (c *Config) GetPDFExportWorkers() int           { return c.PDFExportWorkers }
func (c *Config) GetPDFExportQueue() int             { return c.PDFExportQueue }
func (c *Config) GetPDFExportTimeout() time.Duration { return c.PDFExportTimeout }

// QuoteConfig implementation
func (c *Config) GetPriceToleranceCents() int64 { return c.PriceToleranceCents }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string   { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string  { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string  { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool       { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64 { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketQuotePDFs() string {
	return c.MinioBucketQuotePDFs
}
func (c *Config) IsMinIOEnabled() bool { return c.MinIOEndpoint != "" }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "*"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                    getEnv("APP_ENV", "development"),
		HTTPAddr:               getEnv("HTTP_ADDR", ":8000"),
		CORSAllowAll:           corsAllowAll,
		CORSOrigins:            corsOrigins,
		GoogleSheetID:          strings.TrimSpace(getEnv("GOOGLE_SHEET_ID", "")),
		GoogleCredentialsPath:  strings.TrimSpace(getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
		MachinesTab:            getEnv("CATALOG_MACHINES_TAB", "DB_Maquinas"),
		PricesTab:              getEnv("CATALOG_PRICES_TAB", "DB_Precios"),
		SheetsBaseURL:          getEnv("CATALOG_SHEETS_BASE_URL", ""),
		SyncToken:              getEnv("VC999_SYNC_TOKEN", ""),
		CatalogSyncTTL:         seconds(getEnv("CATALOG_SYNC_TTL_SECONDS", "300"), 300),
		CatalogSyncTimeout:     seconds(getEnv("CATALOG_SYNC_TIMEOUT_SECONDS", "15"), 15),
		CatalogFallbackPath:    getEnv("CATALOG_FALLBACK_PATH", "machines.json"),
		CatalogRefreshInterval: mustDuration(getEnv("CATALOG_REFRESH_INTERVAL", "0s")),
		TemplatesDir:           getEnv("TEMPLATES_DIR", "templates"),
		TemplateMappingsPath:   getEnv("TEMPLATE_MAPPINGS_PATH", ""),
		PDFEngine:              strings.ToLower(getEnv("PDF_ENGINE", "auto")),
		SofficePath:            getEnv("SOFFICE_PATH", ""),
		PDFExportWorkers:       mustInt(getEnv("PDF_EXPORT_WORKERS", "2")),
		PDFExportQueue:         mustInt(getEnv("PDF_EXPORT_QUEUE", "8")),
		PDFExportTimeout:       seconds(getEnv("PDF_EXPORT_TIMEOUT_SECONDS", "90"), 90),
		GotenbergURL:           strings.TrimRight(getEnv("GOTENBERG_URL", ""), "/"),
		GotenbergUsername:      getEnv("GOTENBERG_USERNAME", ""),
		GotenbergPassword:      getEnv("GOTENBERG_PASSWORD", ""),
		PriceToleranceCents:    mustInt64(getEnv("QUOTE_PRICE_TOLERANCE_CENTS", "100")),
		MinIOEndpoint:          getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:         getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:         getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:            strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:       mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "52428800")),
		MinioBucketQuotePDFs:   getEnv("MINIO_BUCKET_QUOTE_PDFS", "quote-pdfs"),
		RedisURL:               getEnv("REDIS_URL", ""),
		RedisTLSInsecure:       strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:         getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:       mustInt(getEnv("ASYNQ_CONCURRENCY", "2")),
	}

	switch cfg.PDFEngine {
	case "auto", "soffice":
	case "gotenberg":
		if !cfg.IsGotenbergEnabled() {
			return nil, fmt.Errorf("GOTENBERG_URL is required when PDF_ENGINE is gotenberg")
		}
	default:
		return nil, fmt.Errorf("PDF_ENGINE must be one of auto, gotenberg, soffice (got %q)", cfg.PDFEngine)
	}
	if cfg.PDFExportWorkers < 1 {
		return nil, fmt.Errorf("PDF_EXPORT_WORKERS must be at least 1")
	}
	if cfg.PDFExportQueue < 0 {
		return nil, fmt.Errorf("PDF_EXPORT_QUEUE cannot be negative")
	}
	if cfg.PriceToleranceCents < 0 {
		return nil, fmt.Errorf("QUOTE_PRICE_TOLERANCE_CENTS cannot be negative")
	}
	if cfg.IsServiceAccountMode() && cfg.GoogleSheetID == "" {
		return nil, fmt.Errorf("GOOGLE_SHEET_ID is required with GOOGLE_APPLICATION_CREDENTIALS")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

// seconds parses a whole number of seconds. Negative values clamp to zero and
// unparseable values use the fallback.
func seconds(value string, fallback int) time.Duration {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		n = fallback
	}
	if n < 0 {
		n = 0
	}
	return time.Duration(n) * time.Second
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

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
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
