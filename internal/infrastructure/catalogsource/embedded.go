package catalogsource

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/pharmasource/backend/internal/domain"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// Embedded serves the catalog bundle compiled into the binary
type Embedded struct{}

// NewEmbedded creates the embedded catalog source
func NewEmbedded() *Embedded {
	return &Embedded{}
}

// Name identifies the source in cache keys and logs
func (e *Embedded) Name() string {
	return SourceEmbedded
}

// Load parses the embedded YAML bundle. Each call returns a fresh copy.
func (e *Embedded) Load(ctx context.Context) (*domain.Catalog, error) {
	return parseYAML(embeddedCatalog)
}

// EmbeddedCatalog returns the compiled-in catalog, for seeding other stores
func EmbeddedCatalog() (*domain.Catalog, error) {
	return parseYAML(embeddedCatalog)
}

func parseYAML(data []byte) (*domain.Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", domain.ErrInvalidCatalog, err)
	}
	return f.toDomain()
}
