package catalogsource

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	meilisearch "github.com/meilisearch/meilisearch-go"

	"github.com/pharmasource/backend/internal/domain"
)

// Default Meilisearch index names
const (
	DefaultCosmeticsIndex = "cosmetics"
	DefaultMilkIndex      = "milk"
	defaultMeiliPageSize  = 1000
)

// MeiliConfig locates the two catalog indexes
type MeiliConfig struct {
	URL            string
	APIKey         string
	CosmeticsIndex string
	MilkIndex      string
	// Limit is the number of documents fetched per request
	Limit          int
}

// Meili pulls every document of the cosmetics and milk indexes, page by
// page. Documents carry a position field that restores catalog display order.
type Meili struct {
	client    meilisearch.ServiceManager
	cosmetics string
	milk      string
	pageSize  int64
}

// NewMeili creates a Meilisearch catalog source
func NewMeili(config MeiliConfig) (*Meili, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("meilisearch url is required")
	}
	m := &Meili{
		client:    meilisearch.New(config.URL, meilisearch.WithAPIKey(config.APIKey)),
		cosmetics: config.CosmeticsIndex,
		milk:      config.MilkIndex,
		pageSize:  int64(config.Limit),
	}
	if m.cosmetics == "" {
		m.cosmetics = DefaultCosmeticsIndex
	}
	if m.milk == "" {
		m.milk = DefaultMilkIndex
	}
	if m.pageSize <= 0 {
		m.pageSize = defaultMeiliPageSize
	}
	return m, nil
}

// Name identifies the source in cache keys and logs
func (m *Meili) Name() string {
	return SourceMeili
}

// Load fetches every document of both indexes
func (m *Meili) Load(ctx context.Context) (*domain.Catalog, error) {
	var f catalogFile
	if err := m.fetch(ctx, m.cosmetics, &f.Cosmetics); err != nil {
		return nil, err
	}
	if err := m.fetch(ctx, m.milk, &f.Milk); err != nil {
		return nil, err
	}

	sort.SliceStable(f.Cosmetics, func(i, j int) bool { return f.Cosmetics[i].Position < f.Cosmetics[j].Position })
	sort.SliceStable(f.Milk, func(i, j int) bool { return f.Milk[i].Position < f.Milk[j].Position })

	return f.toDomain()
}

// documentPage returns one page of raw documents and the index's total
type documentPage func(ctx context.Context, offset, limit int64) ([]json.RawMessage, int64, error)

// collectDocuments requests pages until a short page comes back or the
// reported total is reached.
func collectDocuments(ctx context.Context, pageSize int64, page documentPage) ([]json.RawMessage, error) {
	var docs []json.RawMessage
	for offset := int64(0); ; offset += pageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, total, err := page(ctx, offset, pageSize)
		if err != nil {
			return nil, err
		}
		docs = append(docs, batch...)
		if int64(len(batch)) < pageSize || (total > 0 && int64(len(docs)) >= total) {
			return docs, nil
		}
	}
}

func (m *Meili) fetch(ctx context.Context, uid string, out interface{}) error {
	index := m.client.Index(uid)
	docs, err := collectDocuments(ctx, m.pageSize, func(ctx context.Context, offset, limit int64) ([]json.RawMessage, int64, error) {
		var res meilisearch.DocumentsResult
		query := &meilisearch.DocumentsQuery{Offset: offset, Limit: limit}
		if err := index.GetDocumentsWithContext(ctx, query, &res); err != nil {
			return nil, 0, err
		}
		// Results are loosely typed documents; keep them raw until decoding
		raw, err := json.Marshal(res.Results)
		if err != nil {
			return nil, 0, err
		}
		var page []json.RawMessage
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, 0, err
		}
		return page, res.Total, nil
	})
	if err != nil {
		return fmt.Errorf("fetch documents of %q: %w", uid, err)
	}

	raw, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode documents of %q: %w", uid, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode documents of %q: %v", domain.ErrInvalidCatalog, uid, err)
	}
	return nil
}
