// Package watchlist owns the viewer's symbol list: every add and remove goes
// through the Controller, which persists the list before it re-renders.
package watchlist

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noemamarkets/pulse/cmd/dashboard/internal/render"
	"github.com/noemamarkets/pulse/cmd/dashboard/internal/repository"
	"github.com/noemamarkets/pulse/pkg/models"
)

// QuoteSource is the batched quote lookup.
type QuoteSource interface {
	FetchQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error)
}

// Publisher delivers a rendered section to viewers.
type Publisher interface {
	Publish(ctx context.Context, section string, view interface{}) error
}

// QuoteObserver is told about every successful watchlist quote batch.
type QuoteObserver interface {
	ObserveQuotes(ctx context.Context, quotes []models.Quote)
}

// Confirmer is the yes/no decision point in front of a removal.
type Confirmer interface {
	Confirm(ctx context.Context, symbol string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, symbol string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, symbol string) bool { return f(ctx, symbol) }

// Answer is a decision that was already taken, e.g. carried by a request.
type Answer bool

func (a Answer) Confirm(context.Context, string) bool { return bool(a) }

type Controller struct {
	store     repository.ListStore
	quotes    QuoteSource
	publisher Publisher
	observers []QuoteObserver
	logger    *zap.Logger

	mu      sync.Mutex
	symbols []string

	// version increments on every mutation; a refresh only publishes if the
	// list did not change while its fetch was in flight.
	version    uint64
	rendered   bool // a ready view is on screen for renderedAt
	renderedAt uint64
}

// NewController loads the list from the store. Symbols are normalized and
// deduplicated; if that changed anything the cleaned list is written back.
func NewController(ctx context.Context, store repository.ListStore, quotes QuoteSource, publisher Publisher, logger *zap.Logger, observers ...QuoteObserver) *Controller {
	c := &Controller{
		store:     store,
		quotes:    quotes,
		publisher: publisher,
		observers: observers,
		logger:    logger,
	}

	loaded := store.Load(ctx)
	c.symbols = dedupe(loaded)
	if !sameOrder(c.symbols, loaded) {
		c.persistLocked(ctx)
	}
	return c
}

// Normalize trims and uppercases a raw symbol.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Symbols returns a copy of the current list.
func (c *Controller) Symbols() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.symbols...)
}

// Add appends a symbol, persists the list and refreshes the quotes for the
// whole list. The refresh outcome does not affect the returned error.
func (c *Controller) Add(ctx context.Context, raw string) error {
	sym := Normalize(raw)
	if sym == "" {
		return emptySymbol()
	}

	c.mu.Lock()
	if indexOf(c.symbols, sym) >= 0 {
		c.mu.Unlock()
		return duplicateSymbol(sym)
	}
	c.symbols = append(c.symbols, sym)
	c.version++
	c.persistLocked(ctx)
	c.mu.Unlock()

	c.logger.Info("Symbol added", zap.String("symbol", sym))
	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("Refresh after add failed", zap.String("symbol", sym), zap.Error(err))
	}
	return nil
}

// Remove asks confirmer before removing symbol. It reports whether the list
// changed; a declined confirmation is not an error and writes nothing.
func (c *Controller) Remove(ctx context.Context, raw string, confirmer Confirmer) (bool, error) {
	sym := Normalize(raw)
	if sym == "" {
		return false, emptySymbol()
	}

	c.mu.Lock()
	present := indexOf(c.symbols, sym) >= 0
	c.mu.Unlock()
	if !present {
		return false, notInWatchlist(sym)
	}

	// The confirmer may wait on a person; never hold the lock across it.
	if confirmer == nil || !confirmer.Confirm(ctx, sym) {
		c.logger.Debug("Removal declined", zap.String("symbol", sym))
		return false, nil
	}

	c.mu.Lock()
	kept := make([]string, 0, len(c.symbols))
	for _, s := range c.symbols {
		if s != sym {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(c.symbols) {
		// Removed by someone else while waiting for the answer.
		c.mu.Unlock()
		return false, notInWatchlist(sym)
	}
	c.symbols = kept
	c.version++
	c.persistLocked(ctx)
	c.mu.Unlock()

	c.logger.Info("Symbol removed", zap.String("symbol", sym))
	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("Refresh after remove failed", zap.String("symbol", sym), zap.Error(err))
	}
	return true, nil
}

// Refresh fetches quotes for the current list and publishes the watchlist
// section. On a failed fetch the last ready view stays on screen if it was
// rendered for the same list; otherwise the unavailable placeholder replaces
// it. The fetch error is returned.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	symbols := append([]string(nil), c.symbols...)
	version := c.version
	c.mu.Unlock()

	if len(symbols) == 0 {
		c.publishIfCurrent(ctx, version, render.WatchlistEmpty())
		return nil
	}

	quotes, err := c.quotes.FetchQuotes(ctx, symbols)
	if err != nil {
		c.mu.Lock()
		keep := c.rendered && c.renderedAt == version
		c.mu.Unlock()
		if !keep {
			c.publishIfCurrent(ctx, version, render.WatchlistUnavailable())
		}
		return err
	}

	ordered := Ordered(symbols, quotes)
	for _, o := range c.observers {
		o.ObserveQuotes(ctx, ordered)
	}

	avg, ok := AggregateChange(ordered)
	c.publishIfCurrent(ctx, version, render.Watchlist(ordered, avg, ok))
	return nil
}

func (c *Controller) publishIfCurrent(ctx context.Context, version uint64, view render.WatchlistView) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.version != version {
		c.logger.Debug("Dropping watchlist render for outdated list", zap.Uint64("version", version))
		return
	}
	if err := c.publisher.Publish(ctx, render.SectionWatchlist, view); err != nil {
		c.logger.Warn("Publish watchlist failed", zap.Error(err))
		return
	}
	c.rendered = view.State == render.StateReady
	c.renderedAt = version
}

// persistLocked mirrors the list into the store. A failed write is logged and
// the in-memory list stays authoritative until the next successful save.
func (c *Controller) persistLocked(ctx context.Context) {
	if err := c.store.Save(ctx, c.symbols); err != nil {
		c.logger.Error("Failed to persist watchlist", zap.Strings("symbols", c.symbols), zap.Error(err))
	}
}

// Ordered returns the quotes for symbols in watchlist order, skipping symbols
// the upstream did not return.
func Ordered(symbols []string, quotes map[string]models.Quote) []models.Quote {
	out := make([]models.Quote, 0, len(symbols))
	for _, s := range symbols {
		if q, ok := quotes[s]; ok {
			out = append(out, q)
		}
	}
	return out
}

// AggregateChange is the mean change percent. With no quotes there is no
// mean: it returns zero and false.
func AggregateChange(quotes []models.Quote) (decimal.Decimal, bool) {
	if len(quotes) == 0 {
		return decimal.Zero, false
	}
	sum := decimal.Zero
	for _, q := range quotes {
		sum = sum.Add(q.ChangePercent)
	}
	return sum.Div(decimal.NewFromInt(int64(len(quotes)))), true
}

func indexOf(list []string, sym string) int {
	for i, s := range list {
		if s == sym {
			return i
		}
	}
	return -1
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	for _, raw := range in {
		if s := Normalize(raw); s != "" && indexOf(out, s) < 0 {
			out = append(out, s)
		}
	}
	return out
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
