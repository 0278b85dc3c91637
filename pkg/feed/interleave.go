package feed

import "github.com/gujimy/KVideo/pkg/catalog"

// Interleave merges per-query result lists into feed order: round-robin by
// list position (position 0 of each source, then position 1, ...), so no
// single source dominates the head even if it returned more candidates.
// Candidates whose normalized title is already in seen are skipped; each
// admitted title is added to seen, which also collapses duplicates within
// one source's page. Exhausted lists are skipped in later rounds.
func Interleave(results []catalog.Result, seen SeenSet) []Item {
	maxLen := 0
	for _, res := range results {
		if len(res.Videos) > maxLen {
			maxLen = len(res.Videos)
		}
	}

	var items []Item
	for pos := 0; pos < maxLen; pos++ {
		for _, res := range results {
			if pos >= len(res.Videos) {
				continue
			}
			v := res.Videos[pos]
			if !seen.Add(v.Title) {
				duplicatesDropped.WithLabelValues("interleave").Inc()
				continue
			}
			items = append(items, itemFromVideo(v, res.Label))
		}
	}
	return items
}
