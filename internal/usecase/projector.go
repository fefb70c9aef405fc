package usecase

import (
	"go.uber.org/zap"

	"github.com/pharmasource/backend/internal/domain"
)

// DefaultMinQueryLength is the shortest effective query that triggers text search
const DefaultMinQueryLength = 3

// DisplayState tags a projection so callers can tell "nothing asked yet"
// apart from "asked, nothing found".
type DisplayState string

const (
	StateGated     DisplayState = "gated"
	StateEmpty     DisplayState = "empty"
	StatePopulated DisplayState = "populated"
)

// Query is the user's current input for one catalog view
type Query struct {
	Text    string
	Brand   string
	Formula domain.FormulaType // milk only; narrows results, never opens the gate
}

// Projection is the ordered subset of a catalog to display
type Projection[T domain.Item] struct {
	State DisplayState `json:"state"`
	Items []T          `json:"items"`
}

// Count returns the number of items in the projection
func (p Projection[T]) Count() int {
	return len(p.Items)
}

// ProjectorConfig holds configuration for the result projector
type ProjectorConfig struct {
	MinQueryLength     int
	EnableDebugLogging bool
}

// Projector applies brand, formula and text filters to an in-memory catalog
type Projector struct {
	minQueryLength     int
	enableDebugLogging bool
	logger             *zap.Logger
}

// NewProjector creates a projector with the given configuration
func NewProjector(config ProjectorConfig, logger *zap.Logger) *Projector {
	minLen := config.MinQueryLength
	if minLen <= 0 {
		minLen = DefaultMinQueryLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Projector{
		minQueryLength:     minLen,
		enableDebugLogging: config.EnableDebugLogging,
		logger:             logger,
	}
}

// MinQueryLength returns the configured text search threshold
func (p *Projector) MinQueryLength() int {
	return p.minQueryLength
}

// TextActive reports whether the query text is long enough to search on
func (p *Projector) TextActive(text string) bool {
	return EffectiveLength(text) >= p.minQueryLength
}

// Gated reports whether the query leaves the view in its initial, result-less state
func (p *Projector) Gated(q Query) bool {
	return q.Brand == "" && !p.TextActive(q.Text)
}

// Project filters the catalog for q, keeping catalog order.
// Items are kept when they pass every active filter; the text filter passes
// when any searchable field of the item matches.
func Project[T domain.Item](p *Projector, catalog []T, q Query) Projection[T] {
	if p.Gated(q) {
		return Projection[T]{State: StateGated, Items: []T{}}
	}

	var matcher *TextMatcher
	if p.TextActive(q.Text) {
		matcher = NewTextMatcher(q.Text)
		if matcher.Fallback() {
			p.logger.Warn("query pattern fell back to literal match",
				zap.String("query", q.Text),
				zap.String("pattern", matcher.Pattern()))
		}
	}

	items := make([]T, 0)
	for _, item := range catalog {
		if q.Brand != "" && item.Brand() != q.Brand {
			continue
		}
		if !formulaMatches(item, q.Formula) {
			continue
		}
		if matcher != nil && !matcher.MatchAny(item.SearchFields()) {
			continue
		}
		items = append(items, item)
	}

	if p.enableDebugLogging {
		fields := []zap.Field{
			zap.String("query", q.Text),
			zap.String("brand", q.Brand),
			zap.Int("catalog", len(catalog)),
			zap.Int("matched", len(items)),
		}
		if matcher != nil {
			fields = append(fields, zap.String("pattern", matcher.Pattern()))
		}
		p.logger.Debug("projected catalog", fields...)
	}

	if len(items) == 0 {
		return Projection[T]{State: StateEmpty, Items: items}
	}
	return Projection[T]{State: StatePopulated, Items: items}
}

// formulaMatches narrows milk formulas by type; other variants pass through
func formulaMatches(item domain.Item, want domain.FormulaType) bool {
	if want == domain.FormulaAny {
		return true
	}
	switch v := item.(type) {
	case domain.MilkFormula:
		return v.Type == want
	case *domain.MilkFormula:
		return v != nil && v.Type == want
	default:
		return true
	}
}
