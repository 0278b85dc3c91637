package feed

import (
	"strings"

	"github.com/gujimy/KVideo/pkg/history"
)

// Normalize returns the dedup form of a title: trimmed and case-folded.
// Two candidates are the same title iff their normalized forms are equal.
func Normalize(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// SeenSet is the cumulative set of normalized titles a feed must not
// surface again. It grows monotonically and never shrinks.
type SeenSet map[string]struct{}

// NewSeenSet returns an empty SeenSet.
func NewSeenSet() SeenSet {
	return make(SeenSet)
}

// Add inserts the title and reports whether it was not seen before.
func (s SeenSet) Add(title string) bool {
	key := Normalize(title)
	if _, ok := s[key]; ok {
		return false
	}
	s[key] = struct{}{}
	return true
}

// Has reports whether the title is in the set.
func (s SeenSet) Has(title string) bool {
	_, ok := s[Normalize(title)]
	return ok
}

// Len returns the number of distinct normalized titles in the set.
func (s SeenSet) Len() int {
	return len(s)
}

// SeedFromHistory returns a SeenSet primed with the normalized titles of
// the given watch records. Records without a title are skipped.
func SeedFromHistory(records []history.Record) SeenSet {
	seen := NewSeenSet()
	for _, rec := range records {
		if strings.TrimSpace(rec.Title) == "" {
			continue
		}
		seen.Add(rec.Title)
	}
	return seen
}
