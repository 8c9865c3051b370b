package render

import (
	"github.com/noemamarkets/pulse/pkg/models"
)

// Instrument describes how one index key is shown in the ticker bar.
type Instrument struct {
	Key       string
	Label     string
	ShowPrice bool // price instead of percent change
	Inverted  bool // rising is bad news (volatility)
}

// Instruments is the ticker bar, in display order. UVXY stands in for the
// VIX: its arrow follows the raw sign but its color is inverted.
var Instruments = []Instrument{
	{Key: "SPY", Label: "S&P 500"},
	{Key: "QQQ", Label: "Nasdaq 100"},
	{Key: "UVXY", Label: "VIX", ShowPrice: true, Inverted: true},
	{Key: "BTC/USD", Label: "Bitcoin", ShowPrice: true},
}

// IndexTicker renders one instrument.
func IndexTicker(in Instrument, snap models.IndexSnapshot) Ticker {
	t := Ticker{
		Key:   in.Key,
		Label: in.Label,
		Arrow: Arrow(snap.ChangePercent),
		Color: ColorOf(snap.ChangePercent),
	}
	if in.ShowPrice {
		t.Value = Price(snap.Price)
	} else {
		t.Value = SignedPercent(snap.ChangePercent, 2)
	}
	if in.Inverted {
		t.Color = Invert(t.Color)
	}
	return t
}

// Indices renders the known instruments present in the snapshot; unknown keys
// are ignored and missing ones are skipped.
func Indices(snaps map[string]models.IndexSnapshot) IndicesView {
	view := IndicesView{State: StateReady, Tickers: []Ticker{}}
	for _, in := range Instruments {
		snap, ok := snaps[in.Key]
		if !ok {
			continue
		}
		view.Tickers = append(view.Tickers, IndexTicker(in, snap))
	}
	if len(view.Tickers) == 0 {
		return IndicesUnavailable()
	}
	return view
}

func IndicesUnavailable() IndicesView {
	return IndicesView{State: StateUnavailable, Message: msgIndicesUnavailable, Tickers: []Ticker{}}
}
