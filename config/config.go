package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Catalog   CatalogConfig
	Search    SearchConfig
	Store     StoreConfig
	Auth      AuthConfig
	Session   SessionConfig
	Assistant AssistantConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn or error
}

// CatalogConfig selects where the product catalogs are loaded from
type CatalogConfig struct {
	Source string        `mapstructure:"source"` // embedded, file, sqlite, postgres or meilisearch
	Path   string        `mapstructure:"path"`
	DSN    string        `mapstructure:"dsn"`
	TTL    time.Duration `mapstructure:"ttl"`
	Meili  MeiliConfig   `mapstructure:"meili"`
}

// MeiliConfig locates the Meilisearch catalog indexes
type MeiliConfig struct {
	URL            string `mapstructure:"url"`
	APIKey         string `mapstructure:"api_key"`
	CosmeticsIndex string `mapstructure:"cosmetics_index"`
	MilkIndex      string `mapstructure:"milk_index"`
	Limit          int    `mapstructure:"limit"` // documents per request while loading
}

// SearchConfig holds search behaviour settings
type SearchConfig struct {
	MinQueryLength    int  `mapstructure:"min_query_length"`
	BrandSuggestLimit int  `mapstructure:"brand_suggest_limit"`
	Debug             bool `mapstructure:"debug"`
}

// StoreConfig locates the account database
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// AuthConfig holds account settings
type AuthConfig struct {
	DefaultEmailDomain string `mapstructure:"default_email_domain"`
	MinPasswordLength  int    `mapstructure:"min_password_length"`
	AdminEmail         string `mapstructure:"admin_email"`
	AdminPassword      string `mapstructure:"admin_password"`
}

// SessionConfig holds session lifetime settings
type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// AssistantConfig holds the Gemini assistant settings. An empty API key
// disables the assistant.
type AssistantConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	SystemInstruction string        `mapstructure:"system_instruction"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration from the given file, or from the default
// search paths when path is empty. Environment variables override both.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/pharmasource/")
	}

	// PHARMASOURCE_CATALOG_SOURCE maps to catalog.source
	v.SetEnvPrefix("PHARMASOURCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key needs a default
// so that AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "capacitor://localhost"})

	v.SetDefault("log.level", "info")

	// Catalog defaults
	v.SetDefault("catalog.source", "embedded")
	v.SetDefault("catalog.path", "")
	v.SetDefault("catalog.dsn", "")
	v.SetDefault("catalog.ttl", "24h")
	v.SetDefault("catalog.meili.url", "")
	v.SetDefault("catalog.meili.api_key", "")
	v.SetDefault("catalog.meili.cosmetics_index", "cosmetics")
	v.SetDefault("catalog.meili.milk_index", "milk")
	v.SetDefault("catalog.meili.limit", 1000)

	v.SetDefault("search.min_query_length", 3)
	v.SetDefault("search.brand_suggest_limit", 20)
	v.SetDefault("search.debug", false)

	v.SetDefault("store.path", "pharmasource.db")

	v.SetDefault("auth.default_email_domain", "medai.sa")
	v.SetDefault("auth.min_password_length", 6)
	v.SetDefault("auth.admin_email", "")
	v.SetDefault("auth.admin_password", "")

	v.SetDefault("session.ttl", "24h")

	// Assistant defaults
	v.SetDefault("assistant.api_key", "")
	v.SetDefault("assistant.model", "gemini-2.0-flash")
	v.SetDefault("assistant.timeout", "30s")
	v.SetDefault("assistant.requests_per_minute", 60)
	v.SetDefault("assistant.system_instruction", "")

	v.SetDefault("ratelimit.per_ip", 100)
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be debug, info, warn or error, got: %s", config.Log.Level)
	}

	switch config.Catalog.Source {
	case "embedded":
	case "file":
		if config.Catalog.Path == "" {
			return fmt.Errorf("catalog path is required when catalog source is 'file'")
		}
	case "sqlite", "postgres":
		if config.Catalog.DSN == "" {
			return fmt.Errorf("catalog dsn is required when catalog source is '%s'", config.Catalog.Source)
		}
	case "meilisearch":
		if config.Catalog.Meili.URL == "" {
			return fmt.Errorf("meilisearch url is required when catalog source is 'meilisearch'")
		}
		if config.Catalog.Meili.Limit <= 0 {
			return fmt.Errorf("catalog.meili.limit must be positive, got: %d", config.Catalog.Meili.Limit)
		}
	default:
		return fmt.Errorf("catalog source must be embedded, file, sqlite, postgres or meilisearch, got: %s", config.Catalog.Source)
	}

	if config.Catalog.TTL <= 0 {
		return fmt.Errorf("catalog ttl must be positive")
	}
	if config.Search.MinQueryLength < 1 {
		return fmt.Errorf("search min_query_length must be at least 1, got: %d", config.Search.MinQueryLength)
	}
	if config.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if config.Store.Path == "" {
		return fmt.Errorf("store path is required")
	}
	if (config.Auth.AdminEmail == "") != (config.Auth.AdminPassword == "") {
		return fmt.Errorf("auth admin_email and admin_password must be set together")
	}
	if config.RateLimit.PerIP < 0 {
		return fmt.Errorf("ratelimit per_ip must not be negative")
	}

	return nil
}
