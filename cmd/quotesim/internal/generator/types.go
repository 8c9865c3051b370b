package generator

import (
	"math/rand"
	"time"
)

// for deterministic testing
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// for deterministic values
type Rand interface {
	Intn(n int) int
	Float64() float64
}

type RealClock struct{}

func (RealClock) Now() time.Time        { return time.Now() }
func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }

type RealRand struct{ *rand.Rand }

func (r RealRand) Intn(n int) int   { return r.Rand.Intn(n) }
func (r RealRand) Float64() float64 { return r.Rand.Float64() }

// Instrument is the static description of a simulated symbol.
type Instrument struct {
	Symbol string
	Name   string
	Open   float64
	// Volatility is the largest relative move of one step.
	Volatility float64
}

// Catalog holds the instruments the simulator knows. Unknown symbols requested
// by a client are simply absent from the answer.
var Catalog = map[string]Instrument{
	"NVDA":    {Symbol: "NVDA", Name: "NVIDIA Corporation", Open: 180.0, Volatility: 0.004},
	"AAPL":    {Symbol: "AAPL", Name: "Apple Inc.", Open: 227.0, Volatility: 0.002},
	"TSLA":    {Symbol: "TSLA", Name: "Tesla, Inc.", Open: 410.0, Volatility: 0.006},
	"MSFT":    {Symbol: "MSFT", Name: "Microsoft Corporation", Open: 445.0, Volatility: 0.002},
	"AMD":     {Symbol: "AMD", Name: "Advanced Micro Devices, Inc.", Open: 140.0, Volatility: 0.005},
	"TSM":     {Symbol: "TSM", Name: "Taiwan Semiconductor Manufacturing", Open: 195.0, Volatility: 0.003},
	"SMCI":    {Symbol: "SMCI", Name: "Super Micro Computer, Inc.", Open: 38.0, Volatility: 0.008},
	"ASML":    {Symbol: "ASML", Name: "ASML Holding N.V.", Open: 705.0, Volatility: 0.003},
	"DELL":    {Symbol: "DELL", Name: "Dell Technologies Inc.", Open: 125.0, Volatility: 0.004},
	"PLTR":    {Symbol: "PLTR", Name: "Palantir Technologies Inc.", Open: 72.0, Volatility: 0.007},
	"COIN":    {Symbol: "COIN", Name: "Coinbase Global, Inc.", Open: 310.0, Volatility: 0.007},
	"SPY":     {Symbol: "SPY", Name: "SPDR S&P 500 ETF", Open: 600.0, Volatility: 0.001},
	"QQQ":     {Symbol: "QQQ", Name: "Invesco QQQ Trust", Open: 520.0, Volatility: 0.0015},
	"UVXY":    {Symbol: "UVXY", Name: "ProShares Ultra VIX Short-Term Futures", Open: 31.0, Volatility: 0.01},
	"BTC/USD": {Symbol: "BTC/USD", Name: "Bitcoin", Open: 100000.0, Volatility: 0.003},
}

// IndexKeys are always simulated and served by /api/market-indices.
var IndexKeys = []string{"SPY", "QQQ", "UVXY", "BTC/USD"}
