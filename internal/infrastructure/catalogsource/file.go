package catalogsource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pharmasource/backend/internal/domain"
)

// File reads the catalog from a JSON or YAML document on disk. The file is
// read on every Load so edits are picked up by a reload.
type File struct {
	path string
}

// NewFile creates a file source; the format is chosen by extension
func NewFile(path string) (*File, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return &File{path: path}, nil
	}
	return nil, fmt.Errorf("unsupported catalog file %q: want .json, .yaml or .yml", path)
}

// Name identifies the source in cache keys and logs
func (f *File) Name() string {
	return SourceFile + ":" + filepath.Base(f.path)
}

// Load reads and parses the catalog file
func (f *File) Load(ctx context.Context) (*domain.Catalog, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", f.path, err)
	}

	if strings.EqualFold(filepath.Ext(f.path), ".json") {
		var doc catalogFile
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: parse %q: %v", domain.ErrInvalidCatalog, f.path, err)
		}
		return doc.toDomain()
	}
	return parseYAML(data)
}
