package usecase

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// QueryCleaner strips packaging and marketing noise from free-form product
// text (as produced by the assistant's lookup tool) so it can be used as a
// catalog search query.
type QueryCleaner struct {
	enableDebugLogging bool
	logger             *zap.Logger
}

var (
	// Matches sizes like "400g", "400 g", "1.2 kg", "50 ml", "30ml", "1 l"
	sizeQuantityPattern = regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s*(kg|g|gm|grams?|mg|ml|l|liters?|litres?|oz|fl\s*oz)\b`)

	// Matches pack counts like "2 pack", "pack of 6", "12 sachets", "3x", "6 tins"
	packCountPattern = regexp.MustCompile(`(?i)\b\d+\s*x\b|\b\d+[-\s]*(pack|pk|count|ct|pcs|pieces?|sachets?|tins?|cans?|tubes?|bottles?)\b|\bpack\s+of\s+\d+\b`)

	multiSpacePattern      = regexp.MustCompile(`\s+`)
	orphanPunctuation      = regexp.MustCompile(`\s+[,\-;:/]+\s+`)
	edgePunctuationPattern = regexp.MustCompile(`^[\s,\-;:/]+|[\s,\-;:/]+$`)
)

// noise words that never narrow a catalog search
var queryNoiseWords = map[string]bool{
	// Marketing terms
	"new":      true,
	"improved": true,
	"premium":  true,
	"original": true,
	"best":     true,
	"value":    true,
	"offer":    true,
	"bonus":    true,

	// Packaging terms
	"box":    true,
	"tin":    true,
	"can":    true,
	"bottle": true,
	"tube":   true,
	"jar":    true,
	"pack":   true,
	"sachet": true,

	// Generic words
	"product":  true,
	"products": true,
	"brand":    true,
	"item":     true,
}

// NewQueryCleaner creates a new query cleaner
func NewQueryCleaner(enableDebugLogging bool, logger *zap.Logger) *QueryCleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryCleaner{
		enableDebugLogging: enableDebugLogging,
		logger:             logger,
	}
}

// Clean removes size and pack noise, marketing words and stray punctuation.
// Wildcard tokens are kept so the result can still carry a "%" pattern.
// When cleaning would leave nothing, the trimmed input is returned instead.
func (c *QueryCleaner) Clean(text string) string {
	original := strings.TrimSpace(text)
	if original == "" {
		return ""
	}

	cleaned := sizeQuantityPattern.ReplaceAllString(original, " ")
	cleaned = packCountPattern.ReplaceAllString(cleaned, " ")
	cleaned = removeNoiseWords(cleaned)
	cleaned = orphanPunctuation.ReplaceAllString(cleaned, " ")
	cleaned = multiSpacePattern.ReplaceAllString(cleaned, " ")
	cleaned = edgePunctuationPattern.ReplaceAllString(cleaned, "")

	if cleaned == "" {
		cleaned = original
	}

	if c.enableDebugLogging {
		c.logger.Debug("cleaned query", zap.String("input", original), zap.String("output", cleaned))
	}

	return cleaned
}

// removeNoiseWords drops noise words, keeping the original case of the rest
func removeNoiseWords(s string) string {
	words := strings.Fields(s)
	kept := make([]string, 0, len(words))

	for _, word := range words {
		check := strings.Trim(strings.ToLower(word), ",.!?;:-'\"")
		if !queryNoiseWords[check] {
			kept = append(kept, word)
		}
	}

	return strings.Join(kept, " ")
}
