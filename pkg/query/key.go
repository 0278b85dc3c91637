package query

import (
	"fmt"
	"strings"
)

// IdentityKey generates a deterministic cache key string for a query set.
// Format: feed:tag=<tag>,type=<type>:tag=<tag>,type=<type>
//
// Pairs appear in generation order, which is stable for a given history:
// two feeds over the same logical query set produce the same key. PageStart
// is excluded so that re-entrant feeds share a key even though their
// randomized offsets differ run to run.
//
// Example:
//
//	feed:tag=action,type=movie:tag=comedy,type=tv
func IdentityKey(queries []Descriptor) string {
	parts := make([]string, 0, len(queries)+1)
	parts = append(parts, "feed")

	for _, q := range queries {
		parts = append(parts, fmt.Sprintf("tag=%s,type=%s", q.Tag, q.Type))
	}

	return strings.Join(parts, ":")
}
