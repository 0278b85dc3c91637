package feed

import "github.com/gujimy/KVideo/pkg/catalog"

// Item is one entry in the feed: a catalog video tagged with the label of
// the query that contributed it. Item order is the interleave order and is
// stable once assigned; appends never reorder existing items.
type Item struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Cover       string  `json:"cover,omitempty"`
	Rate        float64 `json:"rate,omitempty"`
	URL         string  `json:"url,omitempty"`
	SourceLabel string  `json:"source_label"`
}

func itemFromVideo(v catalog.Video, label string) Item {
	return Item{
		ID:          v.ID,
		Title:       v.Title,
		Cover:       v.Cover,
		Rate:        v.Rate,
		URL:         v.URL,
		SourceLabel: label,
	}
}
