// Package viewer is the terminal side of the dashboard: it keeps the latest
// frame of every section and prints them with lipgloss.
package viewer

import (
	"encoding/json"
	"fmt"
	"sync"
)

type card struct {
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	Price   string `json:"price"`
	Percent string `json:"percent"`
	Arrow   string `json:"arrow"`
	Color   string `json:"color"`
}

type watchlistView struct {
	State     string `json:"state"`
	Message   string `json:"message"`
	Aggregate string `json:"aggregate"`
	Color     string `json:"color"`
	Cards     []card `json:"cards"`
}

type ticker struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Arrow string `json:"arrow"`
	Color string `json:"color"`
}

type indicesView struct {
	State   string   `json:"state"`
	Message string   `json:"message"`
	Tickers []ticker `json:"tickers"`
}

type chip struct {
	Symbol  string `json:"symbol"`
	Percent string `json:"percent"`
	Arrow   string `json:"arrow"`
	Color   string `json:"color"`
}

type suggestionsView struct {
	State   string `json:"state"`
	Message string `json:"message"`
	Chips   []chip `json:"chips"`
}

type summaryView struct {
	State   string `json:"state"`
	Text    string `json:"text"`
	Updated string `json:"updated"`
}

type feedCard struct {
	Handle   string `json:"handle"`
	Text     string `json:"text"`
	URL      string `json:"url"`
	Age      string `json:"age"`
	Featured bool   `json:"featured"`
}

type feedView struct {
	Items []feedCard `json:"items"`
}

type statusView struct {
	LastUpdate string `json:"last_update"`
}

// Board holds the latest view of each section. Zero values mean "not
// received yet".
type Board struct {
	mu          sync.RWMutex
	watchlist   *watchlistView
	indices     *indicesView
	suggestions *suggestionsView
	summary     *summaryView
	feed        *feedView
	status      *statusView
}

func NewBoard() *Board { return &Board{} }

// Apply decodes a frame payload into its section.
func (b *Board) Apply(section string, data json.RawMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	switch section {
	case "watchlist":
		v := &watchlistView{}
		if err = json.Unmarshal(data, v); err == nil {
			b.watchlist = v
		}
	case "indices":
		v := &indicesView{}
		if err = json.Unmarshal(data, v); err == nil {
			b.indices = v
		}
	case "suggestions":
		v := &suggestionsView{}
		if err = json.Unmarshal(data, v); err == nil {
			b.suggestions = v
		}
	case "summary":
		v := &summaryView{}
		if err = json.Unmarshal(data, v); err == nil {
			b.summary = v
		}
	case "feed":
		v := &feedView{}
		if err = json.Unmarshal(data, v); err == nil {
			b.feed = v
		}
	case "status":
		v := &statusView{}
		if err = json.Unmarshal(data, v); err == nil {
			b.status = v
		}
	default:
		return fmt.Errorf("unknown section %q", section)
	}
	if err != nil {
		return fmt.Errorf("decode %s frame: %w", section, err)
	}
	return nil
}
