package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"go.uber.org/zap"

	"github.com/pharmasource/backend/internal/domain"
)

// CatalogServiceConfig holds configuration for the catalog service
type CatalogServiceConfig struct {
	CacheTTL           time.Duration
	MinQueryLength     int
	EnableDebugLogging bool
}

// CatalogService serves searches over the loaded catalogs.
// Flow: check cache -> load from source -> validate -> cache -> project
type CatalogService struct {
	cache     domain.CacheRepository
	source    domain.CatalogSource
	projector *Projector
	cacheTTL  time.Duration
	logger    *zap.Logger

	loadMu sync.Mutex
}

// NewCatalogService creates a new catalog service with dependencies
func NewCatalogService(
	cache domain.CacheRepository,
	source domain.CatalogSource,
	config CatalogServiceConfig,
	logger *zap.Logger,
) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}

	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}

	return &CatalogService{
		cache:  cache,
		source: source,
		projector: NewProjector(ProjectorConfig{
			MinQueryLength:     config.MinQueryLength,
			EnableDebugLogging: config.EnableDebugLogging,
		}, logger),
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Projector exposes the projector so callers can check the query gate
func (s *CatalogService) Projector() *Projector {
	return s.projector
}

// Catalog returns the loaded catalog, reading the source on a cache miss
func (s *CatalogService) Catalog(ctx context.Context) (*domain.Catalog, error) {
	if cat, err := s.fromCache(ctx); err == nil {
		return cat, nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	// Another request may have loaded it while we waited
	if cat, err := s.fromCache(ctx); err == nil {
		return cat, nil
	}

	return s.load(ctx)
}

// Reload drops the cached catalog and reads the source again
func (s *CatalogService) Reload(ctx context.Context) (*domain.Catalog, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if err := s.cache.Delete(ctx, s.cacheKey()); err != nil {
		s.logger.Warn("failed to drop cached catalog", zap.Error(err))
	}
	return s.load(ctx)
}

func (s *CatalogService) load(ctx context.Context) (*domain.Catalog, error) {
	started := time.Now()
	cat, err := s.source.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCatalog) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCatalogUnavailable, s.source.Name(), err)
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, s.cacheKey(), cat, s.cacheTTL); err != nil {
		// Serve the fresh catalog anyway; the next call reloads
		s.logger.Warn("failed to cache catalog", zap.Error(err))
	}

	s.logger.Info("catalog loaded",
		zap.String("source", s.source.Name()),
		zap.Int("cosmetics", len(cat.Cosmetics)),
		zap.Int("milk", len(cat.Milk)),
		zap.Duration("took", time.Since(started)))
	return cat, nil
}

func (s *CatalogService) fromCache(ctx context.Context) (*domain.Catalog, error) {
	value, err := s.cache.Get(ctx, s.cacheKey())
	if err != nil {
		return nil, err
	}
	cat, ok := value.(*domain.Catalog)
	if !ok || cat == nil {
		return nil, domain.ErrCacheMiss
	}
	return cat, nil
}

// cacheKey format: "catalog:{source}"
func (s *CatalogService) cacheKey() string {
	return "catalog:" + s.source.Name()
}

// SearchCosmetics projects the cosmetics catalog for q
func (s *CatalogService) SearchCosmetics(ctx context.Context, q Query) (Projection[domain.Cosmetic], error) {
	cat, err := s.Catalog(ctx)
	if err != nil {
		return Projection[domain.Cosmetic]{}, err
	}
	q.Formula = domain.FormulaAny
	return Project(s.projector, cat.Cosmetics, q), nil
}

// SearchMilk projects the milk formula catalog for q
func (s *CatalogService) SearchMilk(ctx context.Context, q Query) (Projection[domain.MilkFormula], error) {
	cat, err := s.Catalog(ctx)
	if err != nil {
		return Projection[domain.MilkFormula]{}, err
	}
	return Project(s.projector, cat.Milk, q), nil
}

// Cosmetics returns the full cosmetics catalog in display order
func (s *CatalogService) Cosmetics(ctx context.Context) ([]domain.Cosmetic, error) {
	cat, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return cat.Cosmetics, nil
}

// Milk returns the full milk formula catalog in display order
func (s *CatalogService) Milk(ctx context.Context) ([]domain.MilkFormula, error) {
	cat, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return cat.Milk, nil
}

// Brands returns the distinct brand names of a catalog, sorted
func (s *CatalogService) Brands(ctx context.Context, kind domain.CatalogKind) ([]string, error) {
	cat, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	switch kind {
	case domain.KindCosmetics:
		return uniqueBrands(cat.Cosmetics), nil
	case domain.KindMilk:
		return uniqueBrands(cat.Milk), nil
	}
	return nil, fmt.Errorf("%w: unknown catalog %q", domain.ErrInvalidRequest, kind)
}

// SuggestBrands filters the brand list for a dropdown. Blank text returns
// every brand; otherwise brands that fuzzily contain text are returned,
// closest first. limit <= 0 means no limit.
func (s *CatalogService) SuggestBrands(ctx context.Context, kind domain.CatalogKind, text string, limit int) ([]string, error) {
	brands, err := s.Brands(ctx, kind)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	var out []string
	if text == "" {
		out = brands
	} else {
		ranks := fuzzy.RankFindFold(text, brands)
		sort.Stable(ranks)
		out = make([]string, 0, len(ranks))
		for _, r := range ranks {
			out = append(out, r.Target)
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Items returns one catalog as generic items, for comparison resolution
func (s *CatalogService) Items(ctx context.Context, kind domain.CatalogKind) ([]domain.Item, error) {
	cat, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	var items []domain.Item
	switch kind {
	case domain.KindCosmetics:
		items = make([]domain.Item, 0, len(cat.Cosmetics))
		for _, c := range cat.Cosmetics {
			items = append(items, c)
		}
	case domain.KindMilk:
		items = make([]domain.Item, 0, len(cat.Milk))
		for _, m := range cat.Milk {
			items = append(items, m)
		}
	default:
		return nil, fmt.Errorf("%w: unknown catalog %q", domain.ErrInvalidRequest, kind)
	}
	return items, nil
}

func uniqueBrands[T domain.Item](items []T) []string {
	seen := make(map[string]bool)
	brands := make([]string, 0)
	for _, item := range items {
		b := item.Brand()
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		brands = append(brands, b)
	}
	sort.Strings(brands)
	return brands
}
