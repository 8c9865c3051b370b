package render

import (
	"time"

	"github.com/noemamarkets/pulse/pkg/models"
)

// Feed renders the curated items in their given order with fresh age labels.
func Feed(items []models.FeedItem, now time.Time) FeedView {
	view := FeedView{Items: make([]FeedCard, 0, len(items))}
	for _, it := range items {
		view.Items = append(view.Items, FeedCard{
			Handle:   it.Handle,
			Text:     it.Text,
			URL:      it.URL,
			Age:      TimeAgo(it.PublishedAt, now),
			Featured: it.Featured,
		})
	}
	return view
}
