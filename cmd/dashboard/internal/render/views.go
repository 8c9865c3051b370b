// Package render maps quotes, index snapshots, summaries and feed items to
// view structs. Nothing here touches the network or the store.
package render

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noemamarkets/pulse/pkg/models"
)

// Sections of the dashboard, one frame each.
const (
	SectionWatchlist   = "watchlist"
	SectionIndices     = "indices"
	SectionSummary     = "summary"
	SectionSuggestions = "suggestions"
	SectionFeed        = "feed"
	SectionStatus      = "status"
)

// Sections lists every section in display order.
var Sections = []string{
	SectionStatus,
	SectionIndices,
	SectionWatchlist,
	SectionSuggestions,
	SectionSummary,
	SectionFeed,
}

// View states.
const (
	StateReady       = "ready"
	StateUnavailable = "unavailable"
	StateEmpty       = "empty"
)

type Card struct {
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	Price   string `json:"price"`
	Percent string `json:"percent"`
	Arrow   string `json:"arrow"`
	Color   Color  `json:"color"`
}

type WatchlistView struct {
	State     string `json:"state"`
	Message   string `json:"message,omitempty"`
	Aggregate string `json:"aggregate"`
	Color     Color  `json:"color"`
	Cards     []Card `json:"cards"`
}

type Ticker struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
	Arrow string `json:"arrow"`
	Color Color  `json:"color"`
}

type IndicesView struct {
	State   string   `json:"state"`
	Message string   `json:"message,omitempty"`
	Tickers []Ticker `json:"tickers"`
}

type Chip struct {
	Symbol  string `json:"symbol"`
	Percent string `json:"percent"`
	Arrow   string `json:"arrow"`
	Color   Color  `json:"color"`
}

type SuggestionsView struct {
	State   string `json:"state"`
	Message string `json:"message,omitempty"`
	Chips   []Chip `json:"chips"`
}

type SummaryView struct {
	State   string `json:"state"`
	Text    string `json:"text"`
	Updated string `json:"updated,omitempty"`
}

type FeedCard struct {
	Handle   string `json:"handle"`
	Text     string `json:"text"`
	URL      string `json:"url"`
	Age      string `json:"age"`
	Featured bool   `json:"featured"`
}

type FeedView struct {
	Items []FeedCard `json:"items"`
}

type StatusView struct {
	LastUpdate string `json:"last_update"`
}

const (
	msgQuotesUnavailable      = "Unable to load quotes. Backend may be starting up..."
	msgWatchlistEmpty         = "Your watchlist is empty. Add a symbol to start tracking."
	msgSuggestionsUnavailable = "Unable to load suggestions"
	msgSummaryUnavailable     = "Summary temporarily unavailable"
	msgIndicesUnavailable     = "Market data unavailable"
	noData                    = "no data"
)

// QuoteCard renders one watchlist card.
func QuoteCard(q models.Quote) Card {
	return Card{
		Symbol:  q.Symbol,
		Name:    q.Name,
		Price:   Price(q.Price),
		Percent: SignedPercent(q.ChangePercent, 2),
		Arrow:   Arrow(q.ChangePercent),
		Color:   ColorOf(q.ChangePercent),
	}
}

// Aggregate renders the watchlist header from the mean change.
func Aggregate(avg decimal.Decimal, ok bool) (string, Color) {
	if !ok {
		return noData, ColorNeutral
	}
	return SignedPercent(avg, 2) + " today " + Arrow(avg), ColorOf(avg)
}

// Watchlist renders the cards in watchlist order. Quotes are expected to be
// already ordered and filtered by the caller.
func Watchlist(ordered []models.Quote, avg decimal.Decimal, ok bool) WatchlistView {
	if len(ordered) == 0 {
		return WatchlistUnavailable()
	}
	view := WatchlistView{State: StateReady, Cards: make([]Card, 0, len(ordered))}
	view.Aggregate, view.Color = Aggregate(avg, ok)
	for _, q := range ordered {
		view.Cards = append(view.Cards, QuoteCard(q))
	}
	return view
}

// WatchlistUnavailable is the placeholder shown when no quotes could be
// loaded and nothing was rendered before.
func WatchlistUnavailable() WatchlistView {
	return WatchlistView{
		State:     StateUnavailable,
		Message:   msgQuotesUnavailable,
		Aggregate: noData,
		Color:     ColorNeutral,
		Cards:     []Card{},
	}
}

func WatchlistEmpty() WatchlistView {
	return WatchlistView{
		State:     StateEmpty,
		Message:   msgWatchlistEmpty,
		Aggregate: noData,
		Color:     ColorNeutral,
		Cards:     []Card{},
	}
}

// Suggestions renders the clickable suggestion chips, in the given order.
func Suggestions(symbols []string, quotes map[string]models.Quote) SuggestionsView {
	view := SuggestionsView{State: StateReady, Chips: []Chip{}}
	for _, sym := range symbols {
		q, ok := quotes[sym]
		if !ok {
			continue
		}
		view.Chips = append(view.Chips, Chip{
			Symbol:  q.Symbol,
			Percent: SignedPercent(q.ChangePercent, 1),
			Arrow:   Arrow(q.ChangePercent),
			Color:   ColorOf(q.ChangePercent),
		})
	}
	if len(view.Chips) == 0 {
		return SuggestionsUnavailable()
	}
	return view
}

func SuggestionsUnavailable() SuggestionsView {
	return SuggestionsView{State: StateUnavailable, Message: msgSuggestionsUnavailable, Chips: []Chip{}}
}

// Summary renders the market summary; nil means temporarily unavailable.
func Summary(s *models.Summary, now time.Time) SummaryView {
	if s == nil {
		return SummaryView{State: StateUnavailable, Text: msgSummaryUnavailable}
	}
	view := SummaryView{State: StateReady, Text: s.Text}
	if !s.GeneratedAt.IsZero() {
		view.Updated = SummaryAge(s.GeneratedAt, now)
	}
	return view
}

// Status renders the "last update" label.
func Status(last time.Time, ok bool, now time.Time) StatusView {
	return StatusView{LastUpdate: UpdatedAgo(last, ok, now)}
}
