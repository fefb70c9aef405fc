package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pharmasource/backend/config"
	httpDelivery "github.com/pharmasource/backend/internal/delivery/http"
	"github.com/pharmasource/backend/internal/domain"
	"github.com/pharmasource/backend/internal/infrastructure/cache"
	"github.com/pharmasource/backend/internal/infrastructure/catalogsource"
	"github.com/pharmasource/backend/internal/infrastructure/gemini"
	"github.com/pharmasource/backend/internal/infrastructure/store"
	"github.com/pharmasource/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	if cfg.IsDevelopment() {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting PharmaSource backend",
		zap.String("version", "1.0.0"),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port))

	// Initialize infrastructure dependencies
	db, err := store.New(ctx, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open account store: %w", err)
	}
	defer db.Close()

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
		return fmt.Errorf("open catalog source: %w", err)
	}
	if closer, ok := source.(io.Closer); ok {
		defer closer.Close()
	}
	logger.Info("catalog source configured",
		zap.String("source", source.Name()),
		zap.Duration("ttl", cfg.Catalog.TTL))

	memoryCache := cache.NewMemoryCache()
	defer memoryCache.Close()

	users := store.NewUserRepository(db)
	settings := store.NewSettingsRepository(db)

	// Initialize usecase layer
	catalogService := usecase.NewCatalogService(
		memoryCache,
		source,
		usecase.CatalogServiceConfig{
			CacheTTL:           cfg.Catalog.TTL,
			MinQueryLength:     cfg.Search.MinQueryLength,
			EnableDebugLogging: cfg.Search.Debug,
		},
		logger.Named("catalog"),
	)

	// Warm the cache; a failing source is reported per request afterwards
	if _, err := catalogService.Catalog(ctx); err != nil {
		logger.Warn("initial catalog load failed", zap.Error(err))
	}

	sessionService := usecase.NewSessionService(
		users,
		settings,
		memoryCache,
		catalogService,
		usecase.SessionServiceConfig{
			SessionTTL:         cfg.Session.TTL,
			DefaultEmailDomain: cfg.Auth.DefaultEmailDomain,
			MinPasswordLength:  cfg.Auth.MinPasswordLength,
		},
		logger.Named("session"),
	)
	if err := sessionService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	var assistant domain.Assistant
	if cfg.Assistant.APIKey != "" {
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:            cfg.Assistant.APIKey,
			Model:             cfg.Assistant.Model,
			Timeout:           cfg.Assistant.Timeout,
			RequestsPerMinute: cfg.Assistant.RequestsPerMinute,
			Debug:             cfg.IsDevelopment(),
		}, logger)
		if err != nil {
			return err
		}
		assistant = client
		logger.Info("assistant configured", zap.String("model", cfg.Assistant.Model))
	} else {
		logger.Warn("assistant api key not configured, assistant endpoints will return 503")
	}

	assistantService := usecase.NewAssistantService(
		assistant,
		users,
		settings,
		catalogService,
		sessionService,
		usecase.AssistantServiceConfig{
			SystemInstruction:  cfg.Assistant.SystemInstruction,
			EnableDebugLogging: cfg.Search.Debug,
		},
		logger.Named("assistant"),
	)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(catalogService, sessionService, assistantService, cfg.Search.BrandSuggestLimit, logger)
	router := httpDelivery.SetupRouter(cfg, handler, logger.Named("http"))

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
