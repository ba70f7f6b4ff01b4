package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PDF_ENGINE", "auto")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("CATALOG_SYNC_TTL_SECONDS", "300")
	t.Setenv("CATALOG_SYNC_TIMEOUT_SECONDS", "-3")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("CORS_ALLOW_ALL", "false")
	t.Setenv("PDF_EXPORT_WORKERS", "2")
	t.Setenv("PDF_EXPORT_QUEUE", "8")
	t.Setenv("QUOTE_PRICE_TOLERANCE_CENTS", "100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GetCatalogSyncTTL() != 5*time.Minute {
		t.Fatalf("unexpected ttl %s", cfg.GetCatalogSyncTTL())
	}
	if cfg.GetCatalogSyncTimeout() != 0 {
		t.Fatalf("negative timeout should clamp to zero, got %s", cfg.GetCatalogSyncTimeout())
	}
	if cfg.GetCORSAllowAll() || len(cfg.GetCORSOrigins()) != 2 {
		t.Fatalf("unexpected cors %v %v", cfg.GetCORSAllowAll(), cfg.GetCORSOrigins())
	}
	if cfg.GetPriceToleranceCents() != 100 || cfg.GetPDFExportWorkers() != 2 {
		t.Fatalf("unexpected export/quote settings %+v", cfg)
	}
}

func TestLoadWildcardCORS(t *testing.T) {
	t.Setenv("PDF_ENGINE", "auto")
	t.Setenv("PDF_EXPORT_WORKERS", "1")
	t.Setenv("PDF_EXPORT_QUEUE", "0")
	t.Setenv("QUOTE_PRICE_TOLERANCE_CENTS", "0")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("CORS_ORIGINS", "*")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.GetCORSAllowAll() {
		t.Fatal("wildcard origin should allow all")
	}
}

func TestLoadRejectsImpossibleSettings(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"gotenberg without url", map[string]string{"PDF_ENGINE": "gotenberg", "GOTENBERG_URL": ""}, "GOTENBERG_URL"},
		{"unknown engine", map[string]string{"PDF_ENGINE": "wkhtml"}, "PDF_ENGINE"},
		{"no workers", map[string]string{"PDF_EXPORT_WORKERS": "0"}, "PDF_EXPORT_WORKERS"},
		{"negative queue", map[string]string{"PDF_EXPORT_QUEUE": "-1"}, "PDF_EXPORT_QUEUE"},
		{"negative tolerance", map[string]string{"QUOTE_PRICE_TOLERANCE_CENTS": "-5"}, "QUOTE_PRICE_TOLERANCE_CENTS"},
		{"credentials without sheet", map[string]string{"GOOGLE_APPLICATION_CREDENTIALS": "/tmp/sa.json", "GOOGLE_SHEET_ID": ""}, "GOOGLE_SHEET_ID"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("PDF_ENGINE", "auto")
			t.Setenv("PDF_EXPORT_WORKERS", "1")
			t.Setenv("PDF_EXPORT_QUEUE", "1")
			t.Setenv("QUOTE_PRICE_TOLERANCE_CENTS", "0")
			t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}

func TestIsSheetsEnabled(t *testing.T) {
	if (&Config{}).IsSheetsEnabled() {
		t.Fatal("no sheet id means no remote source")
	}
	if !(&Config{GoogleSheetID: "abc"}).IsSheetsEnabled() {
		t.Fatal("sheet id enables the remote source")
	}
}
