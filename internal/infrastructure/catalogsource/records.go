package catalogsource

import (
	"fmt"
	"strings"

	"github.com/pharmasource/backend/internal/domain"
)

// catalogFile is the top-level structure of catalog documents on disk
type catalogFile struct {
	Cosmetics []cosmeticRecord `json:"cosmetics" yaml:"cosmetics"`
	Milk      []milkRecord     `json:"milk" yaml:"milk"`
}

// cosmeticRecord is a cosmetics row as stored in files, tables and indexes
type cosmeticRecord struct {
	ID             string `json:"id" yaml:"id"`
	BrandName      string `json:"BrandName" yaml:"BrandName"`
	SpecificName   string `json:"SpecificName" yaml:"SpecificName"`
	SpecificNameAr string `json:"SpecificNameAr" yaml:"SpecificNameAr"`
	Position       int    `json:"position,omitempty" yaml:"-"`
}

// milkRecord is the flat storage shape of a milk formula. Stage fields are
// only meaningful for Standard formulas, special fields for Special ones.
type milkRecord struct {
	ID          string `json:"id" yaml:"id"`
	Brand       string `json:"brand" yaml:"brand"`
	Name        string `json:"name" yaml:"name"`
	KeyFeatures string `json:"keyFeatures" yaml:"keyFeatures"`
	Differences string `json:"differences,omitempty" yaml:"differences,omitempty"`
	Type        string `json:"type" yaml:"type"`
	Stage       string `json:"stage,omitempty" yaml:"stage,omitempty"`
	AgeRange    string `json:"ageRange,omitempty" yaml:"ageRange,omitempty"`
	SpecialType string `json:"specialType,omitempty" yaml:"specialType,omitempty"`
	Indication  string `json:"indication,omitempty" yaml:"indication,omitempty"`
	Position    int    `json:"position,omitempty" yaml:"-"`
}

// toDomain converts the stored records into a catalog, keeping record order
func (f *catalogFile) toDomain() (*domain.Catalog, error) {
	cat := &domain.Catalog{
		Cosmetics: make([]domain.Cosmetic, 0, len(f.Cosmetics)),
		Milk:      make([]domain.MilkFormula, 0, len(f.Milk)),
	}
	for _, r := range f.Cosmetics {
		cat.Cosmetics = append(cat.Cosmetics, r.toDomain())
	}
	for _, r := range f.Milk {
		m, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		cat.Milk = append(cat.Milk, m)
	}
	return cat, nil
}

func (r cosmeticRecord) toDomain() domain.Cosmetic {
	return domain.Cosmetic{
		ID:             strings.TrimSpace(r.ID),
		BrandName:      strings.TrimSpace(r.BrandName),
		SpecificName:   strings.TrimSpace(r.SpecificName),
		SpecificNameAr: strings.TrimSpace(r.SpecificNameAr),
	}
}

func (r milkRecord) toDomain() (domain.MilkFormula, error) {
	m := domain.MilkFormula{
		ID:          strings.TrimSpace(r.ID),
		BrandName:   strings.TrimSpace(r.Brand),
		ProductName: strings.TrimSpace(r.Name),
		KeyFeatures: strings.TrimSpace(r.KeyFeatures),
		Differences: strings.TrimSpace(r.Differences),
	}

	switch strings.ToLower(strings.TrimSpace(r.Type)) {
	case "standard":
		m.Type = domain.FormulaStandard
		m.Standard = &domain.StandardDetails{Stage: strings.TrimSpace(r.Stage), AgeRange: strings.TrimSpace(r.AgeRange)}
	case "special":
		m.Type = domain.FormulaSpecial
		m.Special = &domain.SpecialDetails{SpecialType: strings.TrimSpace(r.SpecialType), Indication: strings.TrimSpace(r.Indication)}
	default:
		return domain.MilkFormula{}, fmt.Errorf("%w: formula %q has unknown type %q", domain.ErrInvalidCatalog, r.ID, r.Type)
	}
	return m, nil
}

// fromDomain flattens a catalog back into storage records
func fromDomain(cat *domain.Catalog) catalogFile {
	f := catalogFile{
		Cosmetics: make([]cosmeticRecord, 0, len(cat.Cosmetics)),
		Milk:      make([]milkRecord, 0, len(cat.Milk)),
	}
	for i, c := range cat.Cosmetics {
		f.Cosmetics = append(f.Cosmetics, cosmeticRecord{
			ID:             c.ID,
			BrandName:      c.BrandName,
			SpecificName:   c.SpecificName,
			SpecificNameAr: c.SpecificNameAr,
			Position:       i,
		})
	}
	for i, m := range cat.Milk {
		r := milkRecord{
			ID:          m.ID,
			Brand:       m.BrandName,
			Name:        m.ProductName,
			KeyFeatures: m.KeyFeatures,
			Differences: m.Differences,
			Type:        string(m.Type),
			Position:    i,
		}
		if m.Standard != nil {
			r.Stage = m.Standard.Stage
			r.AgeRange = m.Standard.AgeRange
		}
		if m.Special != nil {
			r.SpecialType = m.Special.SpecialType
			r.Indication = m.Special.Indication
		}
		f.Milk = append(f.Milk, r)
	}
	return f
}
