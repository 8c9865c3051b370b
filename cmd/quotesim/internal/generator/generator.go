// Package generator simulates the upstream quote API: every symbol does a
// bounded random walk around its open, and the HTTP handlers serve the
// current state in the upstream wire format.
package generator

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noemamarkets/pulse/pkg/models"
)

type state struct {
	inst  Instrument
	price float64
}

type StockGenerator struct {
	logger   *zap.Logger
	rand     Rand
	clock    Clock
	interval time.Duration

	mu         sync.RWMutex
	symbols    []string
	states     map[string]*state
	lastUpdate time.Time
	steps      int64
}

// NewStockGenerator simulates symbols plus the index instruments. Symbols
// missing from Catalog are ignored.
func NewStockGenerator(logger *zap.Logger, symbols []string, rnd Rand, clock Clock, interval time.Duration) *StockGenerator {
	sg := &StockGenerator{
		logger:   logger,
		rand:     rnd,
		clock:    clock,
		interval: interval,
		states:   make(map[string]*state),
	}
	for _, s := range append(append([]string(nil), symbols...), IndexKeys...) {
		inst, ok := Catalog[s]
		if !ok {
			logger.Warn("Unknown symbol, not simulated", zap.String("symbol", s))
			continue
		}
		if _, dup := sg.states[s]; dup {
			continue
		}
		sg.states[s] = &state{inst: inst, price: inst.Open}
		sg.symbols = append(sg.symbols, s)
	}
	sg.lastUpdate = clock.Now()
	return sg
}

func (sg *StockGenerator) Run(ctx context.Context) {
	sg.logger.Info("Generator Started", zap.Strings("symbols", sg.symbols), zap.Duration("interval", sg.interval))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			sg.Step()
			sg.clock.Sleep(sg.interval)
		}
	}
}

// Step moves every symbol once. Each move is uniform in ±Volatility and the
// price never drops below 1% of its open.
func (sg *StockGenerator) Step() {
	sg.mu.Lock()
	defer sg.mu.Unlock()

	for _, s := range sg.symbols {
		st := sg.states[s]
		move := (sg.rand.Float64()*2 - 1) * st.inst.Volatility
		st.price = math.Max(st.price*(1+move), st.inst.Open*0.01)
	}
	sg.steps++
	sg.lastUpdate = sg.clock.Now()
}

// Quotes returns the current quote of every requested symbol it simulates.
func (sg *StockGenerator) Quotes(symbols []string) map[string]models.Quote {
	sg.mu.RLock()
	defer sg.mu.RUnlock()

	out := make(map[string]models.Quote, len(symbols))
	for _, raw := range symbols {
		s := strings.ToUpper(strings.TrimSpace(raw))
		st, ok := sg.states[s]
		if !ok {
			continue
		}
		out[s] = quoteOf(st)
	}
	return out
}

func (sg *StockGenerator) Indices() map[string]models.IndexSnapshot {
	sg.mu.RLock()
	defer sg.mu.RUnlock()

	out := make(map[string]models.IndexSnapshot, len(IndexKeys))
	for _, k := range IndexKeys {
		if st, ok := sg.states[k]; ok {
			q := quoteOf(st)
			out[k] = models.IndexSnapshot{Price: q.Price, ChangePercent: q.ChangePercent}
		}
	}
	return out
}

// Summary describes the session: index direction plus the best and worst
// simulated stock.
func (sg *StockGenerator) Summary() string {
	sg.mu.RLock()
	defer sg.mu.RUnlock()

	var movers []models.Quote
	for _, s := range sg.symbols {
		if isIndex(s) {
			continue
		}
		movers = append(movers, quoteOf(sg.states[s]))
	}

	var b strings.Builder
	if spy, ok := sg.states["SPY"]; ok {
		pct := quoteOf(spy).ChangePercent
		dir := "higher"
		if pct.Sign() < 0 {
			dir = "lower"
		}
		fmt.Fprintf(&b, "The S&P 500 is trading %s, %s%% on the session.", dir, pct.StringFixed(2))
	}
	if len(movers) > 0 {
		sort.Slice(movers, func(i, j int) bool {
			return movers[i].ChangePercent.GreaterThan(movers[j].ChangePercent)
		})
		best, worst := movers[0], movers[len(movers)-1]
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s leads (%s%%) while %s lags (%s%%).",
			best.Symbol, best.ChangePercent.StringFixed(2), worst.Symbol, worst.ChangePercent.StringFixed(2))
	}
	return b.String()
}

func (sg *StockGenerator) LastUpdate() time.Time {
	sg.mu.RLock()
	defer sg.mu.RUnlock()
	return sg.lastUpdate
}

func (sg *StockGenerator) Steps() int64 {
	sg.mu.RLock()
	defer sg.mu.RUnlock()
	return sg.steps
}

func quoteOf(st *state) models.Quote {
	price := decimal.NewFromFloat(st.price).Round(2)
	open := decimal.NewFromFloat(st.inst.Open)
	change := price.Sub(open)
	return models.Quote{
		Symbol:        st.inst.Symbol,
		Name:          st.inst.Name,
		Price:         price,
		Change:        change.Round(2),
		ChangePercent: change.Div(open).Mul(decimal.NewFromInt(100)).Round(2),
	}
}

func isIndex(s string) bool {
	for _, k := range IndexKeys {
		if k == s {
			return true
		}
	}
	return false
}
