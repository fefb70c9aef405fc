package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if !cfg.IsDevelopment() {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.Catalog.Source != "embedded" {
			t.Errorf("Catalog.Source = %s, want embedded", cfg.Catalog.Source)
		}
		if cfg.Catalog.TTL != 24*time.Hour {
			t.Errorf("Catalog.TTL = %v, want 24h", cfg.Catalog.TTL)
		}
		if cfg.Catalog.Meili.MilkIndex != "milk" {
			t.Errorf("Catalog.Meili.MilkIndex = %s, want milk", cfg.Catalog.Meili.MilkIndex)
		}
		if cfg.Catalog.Meili.Limit != 1000 {
			t.Errorf("Catalog.Meili.Limit = %d, want 1000", cfg.Catalog.Meili.Limit)
		}
		if cfg.Search.MinQueryLength != 3 {
			t.Errorf("Search.MinQueryLength = %d, want 3", cfg.Search.MinQueryLength)
		}
		if cfg.Auth.DefaultEmailDomain != "medai.sa" {
			t.Errorf("Auth.DefaultEmailDomain = %s, want medai.sa", cfg.Auth.DefaultEmailDomain)
		}
		if cfg.Session.TTL != 24*time.Hour {
			t.Errorf("Session.TTL = %v, want 24h", cfg.Session.TTL)
		}
		if cfg.Assistant.APIKey != "" {
			t.Errorf("Assistant.APIKey = %q, want empty", cfg.Assistant.APIKey)
		}
		if cfg.Assistant.Timeout != 30*time.Second {
			t.Errorf("Assistant.Timeout = %v, want 30s", cfg.Assistant.Timeout)
		}
		if cfg.RateLimit.PerIP != 100 {
			t.Errorf("RateLimit.PerIP = %d, want 100", cfg.RateLimit.PerIP)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		t.Setenv("PHARMASOURCE_SERVER_PORT", "9090")
		t.Setenv("PHARMASOURCE_SERVER_ENVIRONMENT", "production")
		t.Setenv("PHARMASOURCE_SERVER_ALLOWED_ORIGINS", "https://a.example,https://b.example")
		t.Setenv("PHARMASOURCE_LOG_LEVEL", "debug")
		t.Setenv("PHARMASOURCE_CATALOG_SOURCE", "sqlite")
		t.Setenv("PHARMASOURCE_CATALOG_DSN", "file:catalog.db")
		t.Setenv("PHARMASOURCE_CATALOG_MEILI_URL", "http://meili:7700")
		t.Setenv("PHARMASOURCE_CATALOG_MEILI_LIMIT", "250")
		t.Setenv("PHARMASOURCE_SEARCH_MIN_QUERY_LENGTH", "4")
		t.Setenv("PHARMASOURCE_SESSION_TTL", "2h")
		t.Setenv("PHARMASOURCE_ASSISTANT_API_KEY", "secret")
		t.Setenv("PHARMASOURCE_RATELIMIT_PER_IP", "200")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.IsDevelopment() {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example" {
			t.Errorf("Server.AllowedOrigins = %v, want two origins", cfg.Server.AllowedOrigins)
		}
		if cfg.Log.Level != "debug" {
			t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
		}
		if cfg.Catalog.Source != "sqlite" || cfg.Catalog.DSN != "file:catalog.db" {
			t.Errorf("Catalog = %+v, want sqlite with dsn", cfg.Catalog)
		}
		if cfg.Catalog.Meili.URL != "http://meili:7700" {
			t.Errorf("Catalog.Meili.URL = %s, want http://meili:7700", cfg.Catalog.Meili.URL)
		}
		if cfg.Catalog.Meili.Limit != 250 {
			t.Errorf("Catalog.Meili.Limit = %d, want 250", cfg.Catalog.Meili.Limit)
		}
		if cfg.Search.MinQueryLength != 4 {
			t.Errorf("Search.MinQueryLength = %d, want 4", cfg.Search.MinQueryLength)
		}
		if cfg.Session.TTL != 2*time.Hour {
			t.Errorf("Session.TTL = %v, want 2h", cfg.Session.TTL)
		}
		if cfg.Assistant.APIKey != "secret" {
			t.Errorf("Assistant.APIKey = %q, want secret", cfg.Assistant.APIKey)
		}
		if cfg.RateLimit.PerIP != 200 {
			t.Errorf("RateLimit.PerIP = %d, want 200", cfg.RateLimit.PerIP)
		}
	})

	t.Run("reads an explicit config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pharmasource.yaml")
		content := "server:\n  port: \"7070\"\ncatalog:\n  source: file\n  path: /data/catalog.json\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile() error = %v, want nil", err)
		}
		if cfg.Server.Port != "7070" {
			t.Errorf("Server.Port = %s, want 7070", cfg.Server.Port)
		}
		if cfg.Catalog.Path != "/data/catalog.json" {
			t.Errorf("Catalog.Path = %s, want /data/catalog.json", cfg.Catalog.Path)
		}
	})

	t.Run("missing explicit config file is an error", func(t *testing.T) {
		if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Error("LoadFile() error = nil, want error")
		}
	})
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown catalog source",
			env:     map[string]string{"PHARMASOURCE_CATALOG_SOURCE": "mongo"},
			wantErr: "catalog source must be",
		},
		{
			name:    "file source without path",
			env:     map[string]string{"PHARMASOURCE_CATALOG_SOURCE": "file"},
			wantErr: "catalog path is required",
		},
		{
			name:    "postgres source without dsn",
			env:     map[string]string{"PHARMASOURCE_CATALOG_SOURCE": "postgres"},
			wantErr: "catalog dsn is required",
		},
		{
			name:    "meilisearch source without url",
			env:     map[string]string{"PHARMASOURCE_CATALOG_SOURCE": "meilisearch"},
			wantErr: "meilisearch url is required",
		},
		{
			name: "meilisearch source with zero limit",
			env: map[string]string{
				"PHARMASOURCE_CATALOG_SOURCE":      "meilisearch",
				"PHARMASOURCE_CATALOG_MEILI_URL":   "http://meili:7700",
				"PHARMASOURCE_CATALOG_MEILI_LIMIT": "0",
			},
			wantErr: "catalog.meili.limit must be positive",
		},
		{
			name:    "bad log level",
			env:     map[string]string{"PHARMASOURCE_LOG_LEVEL": "verbose"},
			wantErr: "log level must be",
		},
		{
			name:    "zero min query length",
			env:     map[string]string{"PHARMASOURCE_SEARCH_MIN_QUERY_LENGTH": "0"},
			wantErr: "min_query_length",
		},
		{
			name:    "admin email without password",
			env:     map[string]string{"PHARMASOURCE_AUTH_ADMIN_EMAIL": "admin@medai.sa"},
			wantErr: "must be set together",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatalf("Load() error = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
