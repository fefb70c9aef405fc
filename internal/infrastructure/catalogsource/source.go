package catalogsource

import (
	"context"
	"fmt"
	"strings"

	"github.com/pharmasource/backend/internal/domain"
)

// Source names accepted by Open
const (
	SourceEmbedded = "embedded"
	SourceFile     = "file"
	SourceSQLite   = DriverSQLite
	SourcePostgres = DriverPostgres
	SourceMeili    = "meilisearch"
)

// Config selects and locates a catalog source
type Config struct {
	Source string
	Path   string
	DSN    string
	Meili  MeiliConfig
}

// Open builds the catalog source named by config.Source. Sources holding a
// connection also implement io.Closer.
func Open(ctx context.Context, config Config) (domain.CatalogSource, error) {
	name := strings.ToLower(strings.TrimSpace(config.Source))
	switch name {
	case "", SourceEmbedded:
		return NewEmbedded(), nil
	case SourceFile:
		if config.Path == "" {
			return nil, fmt.Errorf("catalog path is required for the file source")
		}
		return NewFile(config.Path)
	case SourceSQLite, SourcePostgres:
		if config.DSN == "" {
			return nil, fmt.Errorf("catalog dsn is required for the %s source", name)
		}
		return OpenSQL(ctx, name, config.DSN)
	case SourceMeili:
		return NewMeili(config.Meili)
	}
	return nil, fmt.Errorf("unknown catalog source %q", config.Source)
}
