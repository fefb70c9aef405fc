package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// CatalogSource loads the product catalogs from wherever they are kept.
// Implementations return items in catalog display order.
type CatalogSource interface {
	Name() string
	Load(ctx context.Context) (*Catalog, error)
}

// UserRepository defines persistence for user accounts
type UserRepository interface {
	Get(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	// ConsumeRequest counts one assistant request for the user on date,
	// starting from zero when the stored date differs. It returns the new
	// count, or ErrQuotaExceeded without writing when limit (if positive)
	// is already reached.
	ConsumeRequest(ctx context.Context, id, date string, limit int) (int, error)
	Delete(ctx context.Context, id string) error
}

// SettingsRepository persists the application settings document
type SettingsRepository interface {
	GetSettings(ctx context.Context) (AppSettings, error)
	SaveSettings(ctx context.Context, settings AppSettings) error
}

// Assistant defines the interface for the generative AI backend
type Assistant interface {
	Ask(ctx context.Context, req AssistantRequest, lookup CatalogLookup) (*AssistantReply, error)
}
