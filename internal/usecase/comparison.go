package usecase

import "github.com/pharmasource/backend/internal/domain"

// ComparisonCapacity is the number of items shown side by side
const ComparisonCapacity = 2

// ComparisonSet holds the identifiers picked for side-by-side comparison.
// It behaves as a sliding window over the last two distinct toggles: adding
// a third id evicts the oldest one.
//
// The zero value is an empty set ready to use. A ComparisonSet is owned by a
// single view and is not safe for concurrent use.
type ComparisonSet struct {
	ids []string
}

// Toggle removes id when present, otherwise appends it, evicting the oldest
// entry if the set is full.
func (s *ComparisonSet) Toggle(id string) {
	for i, existing := range s.ids {
		if existing == id {
			s.ids = append(s.ids[:i:i], s.ids[i+1:]...)
			return
		}
	}

	if len(s.ids) >= ComparisonCapacity {
		s.ids = append(s.ids[:0:0], s.ids[len(s.ids)-ComparisonCapacity+1:]...)
	}
	s.ids = append(s.ids, id)
}

// Clear empties the set
func (s *ComparisonSet) Clear() {
	s.ids = nil
}

// Ready reports whether the set holds exactly two items
func (s *ComparisonSet) Ready() bool {
	return len(s.ids) == ComparisonCapacity
}

// Len returns the number of selected ids
func (s *ComparisonSet) Len() int {
	return len(s.ids)
}

// Contains reports whether id is selected
func (s *ComparisonSet) Contains(id string) bool {
	for _, existing := range s.ids {
		if existing == id {
			return true
		}
	}
	return false
}

// IDs returns a copy of the selected ids, oldest first
func (s *ComparisonSet) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Resolve looks the selected ids up in catalog and returns the items in
// selection order, which decides left and right placement. Ids missing from
// the catalog are skipped.
func Resolve[T domain.Item](s *ComparisonSet, catalog []T) []T {
	byID := make(map[string]T, len(catalog))
	for _, item := range catalog {
		if _, dup := byID[item.ItemID()]; !dup {
			byID[item.ItemID()] = item
		}
	}

	out := make([]T, 0, len(s.ids))
	for _, id := range s.ids {
		if item, ok := byID[id]; ok {
			out = append(out, item)
		}
	}
	return out
}
