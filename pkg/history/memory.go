package history

import (
	"context"
	"sync"
)

// MemoryStore keeps watch history in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	max     int
	records map[string][]Record // most recent first
}

// NewMemoryStore creates an in-memory history store retaining up to
// maxPerViewer records per viewer. maxPerViewer <= 0 means DefaultLimit.
func NewMemoryStore(maxPerViewer int) *MemoryStore {
	if maxPerViewer <= 0 {
		maxPerViewer = DefaultLimit
	}
	return &MemoryStore{
		max:     maxPerViewer,
		records: make(map[string][]Record),
	}
}

// Recent returns up to limit records for the viewer, most recent first.
func (s *MemoryStore) Recent(_ context.Context, viewerID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.records[viewerID]
	if len(recs) > limit {
		recs = recs[:limit]
	}

	out := make([]Record, len(recs))
	copy(out, recs)
	return out, nil
}

// Add records one watch event for the viewer, trimming the oldest entries
// beyond the retention cap.
func (s *MemoryStore) Add(_ context.Context, viewerID string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := append([]Record{rec}, s.records[viewerID]...)
	if len(recs) > s.max {
		recs = recs[:s.max]
	}
	s.records[viewerID] = recs
	return nil
}
