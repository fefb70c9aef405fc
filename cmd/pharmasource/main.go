// Command pharmasource searches and compares the product catalogs from the
// command line and seeds SQL catalog stores.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pharmasource/backend/config"
	"github.com/pharmasource/backend/internal/infrastructure/cache"
	"github.com/pharmasource/backend/internal/infrastructure/catalogsource"
	"github.com/pharmasource/backend/internal/usecase"
)

var (
	// Global flags
	configPath    string
	sourceName    string
	sourcePath    string
	sourceDSN     string
	verbose       bool
	timeout       time.Duration
	jsonOutput    bool
	logger        *zap.Logger
	loadedConfig  *config.Config
	loadConfigErr error
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pharmasource",
	Short: "Search and compare the pharmacy product catalogs",
	Long: `pharmasource runs the same catalog search the API serves.

Queries shorter than three characters (wildcards "%" excluded) return nothing
unless a brand is given. A query without "%" matches the start of a product
name; "%" stands for any run of characters.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			l, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			logger = l
		} else {
			logger = zap.NewNop()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./config.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&sourceName, "source", "", "Catalog source override: embedded, file, sqlite, postgres or meilisearch")
	rootCmd.PersistentFlags().StringVar(&sourcePath, "path", "", "Catalog file for the file source")
	rootCmd.PersistentFlags().StringVar(&sourceDSN, "dsn", "", "Catalog DSN for the sqlite and postgres sources")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(brandsCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(catalogCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file once per process and applies the
// catalog flag overrides.
func loadConfig() (*config.Config, error) {
	if loadedConfig == nil && loadConfigErr == nil {
		loadedConfig, loadConfigErr = config.LoadFile(configPath)
	}
	if loadConfigErr != nil {
		return nil, loadConfigErr
	}

	cfg := *loadedConfig
	if sourceName != "" {
		cfg.Catalog.Source = sourceName
	}
	if sourcePath != "" {
		cfg.Catalog.Path = sourcePath
	}
	if sourceDSN != "" {
		cfg.Catalog.DSN = sourceDSN
	}
	return &cfg, nil
}

// openCatalog builds a catalog service over the configured source. The
// returned cleanup releases the source connection and the cache.
func openCatalog(ctx context.Context) (*usecase.CatalogService, *config.Config, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	source, err := catalogsource.Open(ctx, catalogsource.Config{
		Source: cfg.Catalog.Source,
		Path:   cfg.Catalog.Path,
		DSN:    cfg.Catalog.DSN,
		Meili: catalogsource.MeiliConfig{
			URL:            cfg.Catalog.Meili.URL,
			APIKey:         cfg.Catalog.Meili.APIKey,
			CosmeticsIndex: cfg.Catalog.Meili.CosmeticsIndex,
			MilkIndex:      cfg.Catalog.Meili.MilkIndex,
			Limit:          cfg.Catalog.Meili.Limit,
		},
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open catalog source: %w", err)
	}

	memoryCache := cache.NewMemoryCache()
	cleanup := func() {
		_ = memoryCache.Close()
		if closer, ok := source.(io.Closer); ok {
			_ = closer.Close()
		}
	}

	svc := usecase.NewCatalogService(memoryCache, source, usecase.CatalogServiceConfig{
		CacheTTL:           cfg.Catalog.TTL,
		MinQueryLength:     cfg.Search.MinQueryLength,
		EnableDebugLogging: verbose,
	}, logger)
	return svc, cfg, cleanup, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
