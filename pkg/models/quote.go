package models

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the latest price record for one watchlist symbol.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
}

// IndexSnapshot is the latest price record for a market-wide instrument.
type IndexSnapshot struct {
	Price         decimal.Decimal `json:"price"`
	ChangePercent decimal.Decimal `json:"changePercent"`
}

// Summary is the narrative market summary.
type Summary struct {
	Text        string
	GeneratedAt time.Time
}

// QuotesResponse is the body of GET /api/quotes.
type QuotesResponse struct {
	Quotes     map[string]Quote `json:"quotes"`
	LastUpdate Timestamp        `json:"last_update,omitempty"`
}

// IndicesResponse is the body of GET /api/market-indices.
type IndicesResponse struct {
	Indices    map[string]IndexSnapshot `json:"indices"`
	LastUpdate Timestamp                `json:"last_update,omitempty"`
}

// SummaryResponse is the body of GET /api/market-summary.
type SummaryResponse struct {
	Summary string    `json:"summary,omitempty"`
	Updated Timestamp `json:"updated,omitempty"`
}

// Timestamp decodes ISO-8601 values with or without a zone. Zone-less values
// are read as UTC; values that match no layout decode to the zero time.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses s with the accepted layouts.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// Not a string: ignore rather than reject the whole payload.
		t.Time = time.Time{}
		return nil
	}
	t.Time, _ = ParseTimestamp(s)
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
