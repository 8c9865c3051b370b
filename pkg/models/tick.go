package models

import "github.com/shopspring/decimal"

// Tick is one refreshed quote as it goes out on the tape. Key it by symbol:
// consumers rely on per-symbol ordering.
type Tick struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	Timestamp     int64           `json:"timestamp"` // unix micro
	SeqID         int64           `json:"seq_id"`    // per symbol, restarts with the producer
}
