// Package feed loads the curated pulse feed. Items are read once at start-up;
// only their age labels change afterwards.
package feed

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/noemamarkets/pulse/pkg/models"
)

//go:embed feed.yaml
var defaultFeed []byte

const localLayout = "2006-01-02T15:04:05"

type file struct {
	Items []item `yaml:"items"`
}

type item struct {
	Handle    string `yaml:"handle"`
	Text      string `yaml:"text"`
	Timestamp string `yaml:"timestamp"`
	URL       string `yaml:"url"`
	Featured  bool   `yaml:"featured"`
}

// Load reads the feed at path, or the built-in feed when path is empty.
// Zone-less timestamps are interpreted in loc.
func Load(path string, loc *time.Location) ([]models.FeedItem, error) {
	data := defaultFeed
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read feed: %w", err)
		}
		data = b
	}
	return Parse(data, loc)
}

// Parse decodes a feed document.
func Parse(data []byte, loc *time.Location) ([]models.FeedItem, error) {
	if loc == nil {
		loc = time.UTC
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	items := make([]models.FeedItem, 0, len(f.Items))
	for i, it := range f.Items {
		if strings.TrimSpace(it.Handle) == "" || strings.TrimSpace(it.Text) == "" {
			return nil, fmt.Errorf("feed item %d: handle and text are required", i)
		}
		at, err := parseTime(it.Timestamp, loc)
		if err != nil {
			return nil, fmt.Errorf("feed item %d: %w", i, err)
		}
		items = append(items, models.FeedItem{
			Handle:      it.Handle,
			Text:        it.Text,
			PublishedAt: at,
			URL:         it.URL,
			Featured:    it.Featured,
		})
	}
	return items, nil
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(localLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q", s)
	}
	return t, nil
}
