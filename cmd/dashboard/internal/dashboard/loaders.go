// Package dashboard holds the loaders the scheduler runs. Each loader fetches
// what it needs, renders its section and publishes the frame. A failed fetch
// keeps what viewers already see, or shows the section placeholder if there
// is nothing yet.
package dashboard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noemamarkets/pulse/cmd/dashboard/internal/render"
	"github.com/noemamarkets/pulse/cmd/dashboard/internal/watchlist"
	"github.com/noemamarkets/pulse/pkg/models"
)

// MarketSource is the upstream quote API.
type MarketSource interface {
	FetchQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error)
	FetchIndices(ctx context.Context) (map[string]models.IndexSnapshot, error)
	FetchSummary(ctx context.Context) (*models.Summary, error)
}

// Refresher re-renders the watchlist section.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Timestamp is the shared last-update value.
type Timestamp interface {
	Get() (time.Time, bool)
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type Options struct {
	Watchlist  Refresher
	Source     MarketSource
	Publisher  watchlist.Publisher
	LastUpdate Timestamp
	Clock      Clock
	Location   *time.Location
	Suggested  []string
	Feed       []models.FeedItem
	Logger     *zap.Logger
}

type Loaders struct {
	opts Options

	mu             sync.Mutex
	hasIndices     bool
	hasSuggestions bool
	summary        *models.Summary // last summary shown, nil if none
}

func NewLoaders(opts Options) *Loaders {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Loaders{opts: opts}
}

func (l *Loaders) now() time.Time {
	return l.opts.Clock.Now().In(l.opts.Location)
}

// RefreshMarket updates the watchlist and the index ticker bar. Both fetches
// are attempted; the first error is returned.
func (l *Loaders) RefreshMarket(ctx context.Context) error {
	werr := l.opts.Watchlist.Refresh(ctx)
	ierr := l.RefreshIndices(ctx)
	if werr != nil {
		return werr
	}
	return ierr
}

func (l *Loaders) RefreshIndices(ctx context.Context) error {
	snaps, err := l.opts.Source.FetchIndices(ctx)
	if err != nil {
		l.mu.Lock()
		keep := l.hasIndices
		l.mu.Unlock()
		if !keep {
			l.publish(ctx, render.SectionIndices, render.IndicesUnavailable())
		}
		return err
	}

	view := render.Indices(snaps)
	if l.publish(ctx, render.SectionIndices, view) {
		l.mu.Lock()
		l.hasIndices = view.State == render.StateReady
		l.mu.Unlock()
	}
	return nil
}

// RefreshSuggestions renders the suggestion chips from one batched lookup.
func (l *Loaders) RefreshSuggestions(ctx context.Context) error {
	if len(l.opts.Suggested) == 0 {
		return nil
	}
	quotes, err := l.opts.Source.FetchQuotes(ctx, l.opts.Suggested)
	if err != nil {
		l.mu.Lock()
		keep := l.hasSuggestions
		l.mu.Unlock()
		if !keep {
			l.publish(ctx, render.SectionSuggestions, render.SuggestionsUnavailable())
		}
		return err
	}

	view := render.Suggestions(l.opts.Suggested, quotes)
	if l.publish(ctx, render.SectionSuggestions, view) {
		l.mu.Lock()
		l.hasSuggestions = view.State == render.StateReady
		l.mu.Unlock()
	}
	return nil
}

// RefreshSummary fetches the market summary. An absent summary shows the
// "temporarily unavailable" text; a failed fetch keeps the previous one.
func (l *Loaders) RefreshSummary(ctx context.Context) error {
	s, err := l.opts.Source.FetchSummary(ctx)
	if err != nil {
		l.mu.Lock()
		s = l.summary
		l.mu.Unlock()
		l.publish(ctx, render.SectionSummary, render.Summary(s, l.now()))
		return err
	}

	l.mu.Lock()
	l.summary = s
	l.mu.Unlock()
	l.publish(ctx, render.SectionSummary, render.Summary(s, l.now()))
	return nil
}

// RefreshFeed recomputes the feed age labels. No network.
func (l *Loaders) RefreshFeed(ctx context.Context) error {
	l.publish(ctx, render.SectionFeed, render.Feed(l.opts.Feed, l.now()))
	return nil
}

// RefreshAge recomputes the "last update" label from the shared timestamp.
// No network.
func (l *Loaders) RefreshAge(ctx context.Context) error {
	last, ok := l.opts.LastUpdate.Get()
	if ok {
		last = last.In(l.opts.Location)
	}
	l.publish(ctx, render.SectionStatus, render.Status(last, ok, l.now()))
	return nil
}

func (l *Loaders) publish(ctx context.Context, section string, view interface{}) bool {
	if err := l.opts.Publisher.Publish(ctx, section, view); err != nil {
		l.opts.Logger.Warn("Publish failed", zap.String("section", section), zap.Error(err))
		return false
	}
	return true
}
