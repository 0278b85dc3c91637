package query

import "testing"

func TestIdentityKey(t *testing.T) {
	tests := []struct {
		name     string
		queries  []Descriptor
		expected string
	}{
		{
			name:     "empty_set",
			queries:  nil,
			expected: "feed",
		},
		{
			name: "single_query",
			queries: []Descriptor{
				{Tag: "action", Type: "movie"},
			},
			expected: "feed:tag=action,type=movie",
		},
		{
			name: "multiple_queries_keep_generation_order",
			queries: []Descriptor{
				{Tag: "comedy", Type: "tv"},
				{Tag: "action", Type: "movie"},
			},
			expected: "feed:tag=comedy,type=tv:tag=action,type=movie",
		},
		{
			name: "page_start_excluded",
			queries: []Descriptor{
				{Tag: "action", Type: "movie", PageStart: 17},
			},
			expected: "feed:tag=action,type=movie",
		},
		{
			name: "label_excluded",
			queries: []Descriptor{
				{Tag: "action", Type: "movie", Label: "Action Hits"},
			},
			expected: "feed:tag=action,type=movie",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IdentityKey(tt.queries)
			if result != tt.expected {
				t.Errorf("IdentityKey() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestIdentityKey_OffsetsDoNotChangeIdentity(t *testing.T) {
	a := []Descriptor{
		{Tag: "action", Type: "movie", PageStart: 3},
		{Tag: "comedy", Type: "tv", PageStart: 11},
	}
	b := []Descriptor{
		{Tag: "action", Type: "movie", PageStart: 29},
		{Tag: "comedy", Type: "tv", PageStart: 0},
	}

	if IdentityKey(a) != IdentityKey(b) {
		t.Error("Query sets differing only in PageStart should share an identity key")
	}
}

func TestIdentityKey_OrderMatters(t *testing.T) {
	a := []Descriptor{
		{Tag: "action", Type: "movie"},
		{Tag: "comedy", Type: "tv"},
	}
	b := []Descriptor{
		{Tag: "comedy", Type: "tv"},
		{Tag: "action", Type: "movie"},
	}

	if IdentityKey(a) == IdentityKey(b) {
		t.Error("Identity key should preserve generation order, not sort pairs")
	}
}
