package domain

import (
	"fmt"
	"strings"
)

// CatalogKind identifies one of the searchable product catalogs
type CatalogKind string

const (
	KindCosmetics CatalogKind = "cosmetics"
	KindMilk      CatalogKind = "milk"
)

// ParseCatalogKind converts a path or flag value into a CatalogKind
func ParseCatalogKind(s string) (CatalogKind, error) {
	switch CatalogKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindCosmetics:
		return KindCosmetics, nil
	case KindMilk:
		return KindMilk, nil
	}
	return "", fmt.Errorf("%w: unknown catalog %q", ErrInvalidRequest, s)
}

// Item is the searchable capability shared by every catalog variant.
// Variant-specific fields are reached through a type switch on the concrete type.
type Item interface {
	ItemID() string
	Kind() CatalogKind
	Brand() string
	// SearchFields returns the text fields eligible for query matching
	SearchFields() []string
}

// Cosmetic is a cosmetics catalog entry
type Cosmetic struct {
	ID             string `json:"id"`
	BrandName      string `json:"BrandName"`
	SpecificName   string `json:"SpecificName"`
	SpecificNameAr string `json:"SpecificNameAr"`
}

func (c Cosmetic) ItemID() string { return c.ID }
func (c Cosmetic) Kind() CatalogKind { return KindCosmetics }
func (c Cosmetic) Brand() string { return c.BrandName }
func (c Cosmetic) SearchFields() []string {
	return []string{c.SpecificName, c.SpecificNameAr}
}

// FormulaType separates regular stage formulas from special-purpose ones
type FormulaType string

const (
	FormulaAny      FormulaType = ""
	FormulaStandard FormulaType = "Standard"
	FormulaSpecial  FormulaType = "Special"
)

// ParseFormulaType accepts "", "all", "standard" or "special" in any case
func ParseFormulaType(s string) (FormulaType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FormulaAny, nil
	case "standard":
		return FormulaStandard, nil
	case "special":
		return FormulaSpecial, nil
	}
	return FormulaAny, fmt.Errorf("%w: unknown formula type %q", ErrInvalidRequest, s)
}

// StandardDetails only exists on Standard formulas
type StandardDetails struct {
	Stage    string `json:"stage"`
	AgeRange string `json:"ageRange"`
}

// SpecialDetails only exists on Special formulas
type SpecialDetails struct {
	SpecialType string `json:"specialType"`
	Indication  string `json:"indication"`
}

// MilkFormula is an infant milk formula catalog entry
type MilkFormula struct {
	ID          string           `json:"id"`
	BrandName   string           `json:"brand"`
	ProductName string           `json:"productName"`
	KeyFeatures string           `json:"keyFeatures"`
	Differences string           `json:"differences,omitempty"`
	Type        FormulaType      `json:"type"`
	Standard    *StandardDetails `json:"standard,omitempty"`
	Special     *SpecialDetails  `json:"special,omitempty"`
}

func (m MilkFormula) ItemID() string { return m.ID }
func (m MilkFormula) Kind() CatalogKind { return KindMilk }
func (m MilkFormula) Brand() string { return m.BrandName }
func (m MilkFormula) SearchFields() []string {
	return []string{m.ProductName, m.BrandName, m.KeyFeatures}
}

// Validate checks that the variant details agree with the type tag
func (m MilkFormula) Validate() error {
	switch m.Type {
	case FormulaStandard:
		if m.Standard == nil || m.Special != nil {
			return fmt.Errorf("%w: standard formula %q must carry stage details only", ErrInvalidCatalog, m.ID)
		}
	case FormulaSpecial:
		if m.Special == nil || m.Standard != nil {
			return fmt.Errorf("%w: special formula %q must carry special details only", ErrInvalidCatalog, m.ID)
		}
	default:
		return fmt.Errorf("%w: formula %q has unknown type %q", ErrInvalidCatalog, m.ID, m.Type)
	}
	return nil
}

// Catalog is the full in-memory product data handed to the search engine
type Catalog struct {
	Cosmetics []Cosmetic    `json:"cosmetics"`
	Milk      []MilkFormula `json:"milk"`
}

// Validate rejects empty or duplicate identifiers and inconsistent milk variants.
// IDs only need to be unique within one catalog kind.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Cosmetics))
	for _, item := range c.Cosmetics {
		if err := checkID(seen, KindCosmetics, item.ID); err != nil {
			return err
		}
	}

	seen = make(map[string]bool, len(c.Milk))
	for _, item := range c.Milk {
		if err := checkID(seen, KindMilk, item.ID); err != nil {
			return err
		}
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func checkID(seen map[string]bool, kind CatalogKind, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %s item without id", ErrInvalidCatalog, kind)
	}
	if seen[id] {
		return fmt.Errorf("%w: duplicate %s id %q", ErrInvalidCatalog, kind, id)
	}
	seen[id] = true
	return nil
}
