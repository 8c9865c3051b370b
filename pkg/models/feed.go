package models

import "time"

// FeedItem is one curated social post shown in the pulse feed.
type FeedItem struct {
	Handle      string    `json:"handle"`
	Text        string    `json:"text"`
	PublishedAt time.Time `json:"timestamp"`
	URL         string    `json:"url"`
	Featured    bool      `json:"featured"`
}
