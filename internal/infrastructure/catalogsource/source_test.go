package catalogsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmasource/backend/internal/domain"
)

func TestEmbedded_LoadsValidCatalog(t *testing.T) {
	cat, err := NewEmbedded().Load(context.Background())

	require.NoError(t, err)
	require.NoError(t, cat.Validate())
	assert.NotEmpty(t, cat.Cosmetics)
	assert.NotEmpty(t, cat.Milk)

	for _, m := range cat.Milk {
		switch m.Type {
		case domain.FormulaStandard:
			assert.NotNil(t, m.Standard, m.ID)
			assert.NotEmpty(t, m.Standard.Stage, m.ID)
		case domain.FormulaSpecial:
			assert.NotNil(t, m.Special, m.ID)
			assert.NotEmpty(t, m.Special.SpecialType, m.ID)
		}
	}
}

func TestEmbedded_ReturnsFreshCopies(t *testing.T) {
	src := NewEmbedded()
	first, err := src.Load(context.Background())
	require.NoError(t, err)
	first.Cosmetics[0].BrandName = "changed"

	second, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, "changed", second.Cosmetics[0].BrandName)
}

const sampleYAML = `
cosmetics:
  - id: c1
    BrandName: Vichy
    SpecificName: " Mineral 89 "
    SpecificNameAr: مينرال
milk:
  - id: m1
    brand: Aptamil
    name: Aptamil 1
    keyFeatures: DHA
    type: standard
    stage: "1"
    ageRange: 0-6 months
  - id: m2
    brand: Nan
    name: NAN HA
    keyFeatures: hydrolysed
    type: Special
    specialType: Hypoallergenic
    indication: Allergy risk
`

const sampleJSON = `{
  "cosmetics": [{"id": "c1", "BrandName": "Vichy", "SpecificName": "Mineral 89", "SpecificNameAr": "مينرال"}],
  "milk": [
    {"id": "m1", "brand": "Aptamil", "name": "Aptamil 1", "keyFeatures": "DHA", "type": "Standard", "stage": "1", "ageRange": "0-6 months"},
    {"id": "m2", "brand": "Nan", "name": "NAN HA", "keyFeatures": "hydrolysed", "type": "special", "specialType": "Hypoallergenic", "indication": "Allergy risk"}
  ]
}`

func sampleCatalog() *domain.Catalog {
	return &domain.Catalog{
		Cosmetics: []domain.Cosmetic{
			{ID: "c1", BrandName: "Vichy", SpecificName: "Mineral 89", SpecificNameAr: "مينرال"},
		},
		Milk: []domain.MilkFormula{
			{
				ID: "m1", BrandName: "Aptamil", ProductName: "Aptamil 1", KeyFeatures: "DHA",
				Type:     domain.FormulaStandard,
				Standard: &domain.StandardDetails{Stage: "1", AgeRange: "0-6 months"},
			},
			{
				ID: "m2", BrandName: "Nan", ProductName: "NAN HA", KeyFeatures: "hydrolysed",
				Type:    domain.FormulaSpecial,
				Special: &domain.SpecialDetails{SpecialType: "Hypoallergenic", Indication: "Allergy risk"},
			},
		},
	}
}

func TestFile_Load(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "yaml", file: "catalog.yaml", content: sampleYAML},
		{name: "yml", file: "catalog.yml", content: sampleYAML},
		{name: "json", file: "catalog.json", content: sampleJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			src, err := NewFile(path)
			require.NoError(t, err)
			assert.Equal(t, "file:"+tt.file, src.Name())

			cat, err := src.Load(context.Background())
			require.NoError(t, err)
			if diff := cmp.Diff(sampleCatalog(), cat); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFile_Errors(t *testing.T) {
	_, err := NewFile("catalog.csv")
	assert.Error(t, err)

	src, err := NewFile(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	_, err = src.Load(context.Background())
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
	src, err = NewFile(bad)
	require.NoError(t, err)
	_, err = src.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidCatalog)
}

func TestMilkRecord_UnknownType(t *testing.T) {
	_, err := milkRecord{ID: "m9", Type: "Organic"}.toDomain()
	assert.ErrorIs(t, err, domain.ErrInvalidCatalog)
}

func TestFromDomain_RoundTrip(t *testing.T) {
	want := sampleCatalog()
	f := fromDomain(want)

	assert.Equal(t, 0, f.Milk[0].Position)
	assert.Equal(t, 1, f.Milk[1].Position)

	got, err := f.toDomain()
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSQL_SeedAndLoad(t *testing.T) {
	ctx := context.Background()
	src, err := OpenSQL(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	require.NoError(t, src.Seed(ctx, sampleCatalog()))

	cat, err := src.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(sampleCatalog(), cat); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	// Seeding again replaces the contents
	embedded, err := EmbeddedCatalog()
	require.NoError(t, err)
	require.NoError(t, src.Seed(ctx, embedded))

	cat, err = src.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(embedded.Cosmetics), len(cat.Cosmetics))
	assert.Equal(t, embedded.Cosmetics[0].ID, cat.Cosmetics[0].ID)
	assert.Equal(t, embedded.Milk[len(embedded.Milk)-1].ID, cat.Milk[len(cat.Milk)-1].ID)
}

func TestSQL_SeedRejectsInvalidCatalog(t *testing.T) {
	ctx := context.Background()
	src, err := OpenSQL(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	cat := sampleCatalog()
	cat.Cosmetics = append(cat.Cosmetics, cat.Cosmetics[0])

	assert.ErrorIs(t, src.Seed(ctx, cat), domain.ErrInvalidCatalog)
}

func TestSQL_LoadWithoutTables(t *testing.T) {
	ctx := context.Background()
	src, err := OpenSQL(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	_, err = src.Load(ctx)
	assert.Error(t, err)
}

func TestSQL_Rebind(t *testing.T) {
	pg := NewSQL(nil, DriverPostgres)
	assert.Equal(t, "VALUES ($1, $2, $3)", pg.rebind("VALUES (?, ?, ?)"))

	lite := NewSQL(nil, DriverSQLite)
	assert.Equal(t, "VALUES (?, ?)", lite.rebind("VALUES (?, ?)"))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	src, err := Open(ctx, Config{})
	require.NoError(t, err)
	assert.Equal(t, SourceEmbedded, src.Name())

	src, err = Open(ctx, Config{Source: "meilisearch", Meili: MeiliConfig{URL: "http://localhost:7700"}})
	require.NoError(t, err)
	assert.Equal(t, SourceMeili, src.Name())

	tests := []struct {
		name   string
		config Config
	}{
		{name: "file without path", config: Config{Source: "file"}},
		{name: "sqlite without dsn", config: Config{Source: "sqlite"}},
		{name: "postgres without dsn", config: Config{Source: "postgres"}},
		{name: "meilisearch without url", config: Config{Source: "meilisearch"}},
		{name: "unknown", config: Config{Source: "mongo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(ctx, tt.config)
			assert.Error(t, err)
		})
	}
}
