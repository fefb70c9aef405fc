package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// WildcardToken stands for "any run of characters, including none" in a query
const WildcardToken = "%"

// compilePattern is swapped out in tests to exercise the fallback path
var compilePattern = regexp.Compile

// TextMatcher is a case-insensitive predicate built from raw search input.
//
// Without a wildcard the query must match at the start of the candidate.
// With one or more wildcards the literal segments must appear in order
// anywhere in the candidate.
type TextMatcher struct {
	query    string
	pattern  string
	re       *regexp.Regexp
	fallback bool
}

// NewTextMatcher builds a matcher for the raw query. It never fails: when the
// wildcard pattern cannot be compiled it degrades to a literal substring match
// on the whole query.
func NewTextMatcher(raw string) *TextMatcher {
	query := strings.ToLower(strings.TrimSpace(raw))
	m := &TextMatcher{query: query}

	segments := strings.Split(query, WildcardToken)
	for i, seg := range segments {
		segments[i] = regexp.QuoteMeta(seg)
	}

	anchor := "^"
	if strings.Contains(query, WildcardToken) {
		anchor = ""
	}
	m.pattern = "(?i)" + anchor + strings.Join(segments, ".*")

	re, err := compilePattern(m.pattern)
	if err == nil {
		m.re = re
		return m
	}

	m.fallback = true
	m.pattern = "(?i)" + regexp.QuoteMeta(query)
	if re, err := compilePattern(m.pattern); err == nil {
		m.re = re
	}
	return m
}

// Match reports whether candidate satisfies the query
func (m *TextMatcher) Match(candidate string) bool {
	if m.re != nil {
		return m.re.MatchString(candidate)
	}
	return strings.Contains(strings.ToLower(candidate), m.query)
}

// MatchAny reports whether at least one candidate satisfies the query
func (m *TextMatcher) MatchAny(candidates []string) bool {
	for _, c := range candidates {
		if m.Match(c) {
			return true
		}
	}
	return false
}

// Pattern returns the expression the matcher runs, for logging
func (m *TextMatcher) Pattern() string {
	return m.pattern
}

// Fallback reports whether the matcher degraded to a literal substring match
func (m *TextMatcher) Fallback() bool {
	return m.fallback
}

// EffectiveLength counts the characters of a query once wildcard tokens
// and surrounding whitespace are removed.
func EffectiveLength(raw string) int {
	return utf8.RuneCountInString(strings.TrimSpace(strings.ReplaceAll(raw, WildcardToken, "")))
}
