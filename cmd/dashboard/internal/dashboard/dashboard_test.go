package dashboard_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noemamarkets/pulse/cmd/dashboard/internal/dashboard"
	"github.com/noemamarkets/pulse/cmd/dashboard/internal/render"
	"github.com/noemamarkets/pulse/cmd/dashboard/internal/scheduler"
	"github.com/noemamarkets/pulse/cmd/dashboard/internal/testutils"
	"github.com/noemamarkets/pulse/pkg/models"
	"github.com/noemamarkets/pulse/pkg/protocol"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type stamp struct {
	t  time.Time
	ok bool
}

func (s stamp) Get() (time.Time, bool) { return s.t, s.ok }

type refresher struct {
	calls int
	err   error
}

func (r *refresher) Refresh(context.Context) error {
	r.calls++
	return r.err
}

var now = time.Date(2025, 12, 14, 15, 0, 0, 0, time.UTC)

func pct(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func setup(last stamp) (*dashboard.Loaders, *testutils.MockQuoteSource, *testutils.MockPublisher, *refresher) {
	src := testutils.NewMockQuoteSource(
		models.Quote{Symbol: "TSM", ChangePercent: pct("1.26")},
		models.Quote{Symbol: "COIN", ChangePercent: pct("-3.01")},
	)
	src.Indices = map[string]models.IndexSnapshot{
		"SPY":  {Price: pct("601.2"), ChangePercent: pct("0.4")},
		"UVXY": {Price: pct("31.5"), ChangePercent: pct("-2")},
	}
	src.Summary = &models.Summary{Text: "Stocks drift higher.", GeneratedAt: now.Add(-20 * time.Minute)}
	pub := &testutils.MockPublisher{}
	wl := &refresher{}
	l := dashboard.NewLoaders(dashboard.Options{
		Watchlist:  wl,
		Source:     src,
		Publisher:  pub,
		LastUpdate: last,
		Clock:      fixedClock{now},
		Location:   time.UTC,
		Suggested:  []string{"TSM", "SMCI", "COIN"},
		Feed: []models.FeedItem{
			{Handle: "@WSJ", Text: "x", PublishedAt: now.Add(-45 * time.Minute)},
		},
		Logger: zap.NewNop(),
	})
	return l, src, pub, wl
}

func TestRefreshMarket_WatchlistAndIndices(t *testing.T) {
	l, _, pub, wl := setup(stamp{})

	if err := l.RefreshMarket(context.Background()); err != nil {
		t.Fatal(err)
	}
	if wl.calls != 1 {
		t.Errorf("Watchlist not refreshed")
	}
	v, ok := pub.Last(render.SectionIndices)
	if !ok {
		t.Fatal("No indices frame")
	}
	view := v.(render.IndicesView)
	if len(view.Tickers) != 2 || view.Tickers[1].Color != render.ColorFavorable {
		t.Errorf("Unexpected tickers %+v", view.Tickers)
	}
}

func TestRefreshMarket_IndicesStillLoadWhenWatchlistFails(t *testing.T) {
	l, _, pub, wl := setup(stamp{})
	wl.err = errors.New("boom")

	if err := l.RefreshMarket(context.Background()); err == nil {
		t.Error("Expected watchlist error")
	}
	if pub.Count(render.SectionIndices) != 1 {
		t.Errorf("Indices should still publish")
	}
}

func TestRefreshIndices_FailureKeepsPrevious(t *testing.T) {
	l, src, pub, _ := setup(stamp{})
	ctx := context.Background()

	src.SetErr(testutils.ErrMockUpstream)
	if err := l.RefreshIndices(ctx); err == nil {
		t.Fatal("Expected error")
	}
	v, _ := pub.Last(render.SectionIndices)
	if v.(render.IndicesView).State != render.StateUnavailable {
		t.Errorf("First failure should show the placeholder")
	}

	src.SetErr(nil)
	if err := l.RefreshIndices(ctx); err != nil {
		t.Fatal(err)
	}
	count := pub.Count(render.SectionIndices)

	src.SetErr(testutils.ErrMockUpstream)
	_ = l.RefreshIndices(ctx)
	if pub.Count(render.SectionIndices) != count {
		t.Errorf("Failure after success must keep the previous tickers")
	}
}

func TestRefreshSuggestions(t *testing.T) {
	l, src, pub, _ := setup(stamp{})
	ctx := context.Background()

	if err := l.RefreshSuggestions(ctx); err != nil {
		t.Fatal(err)
	}
	v, _ := pub.Last(render.SectionSuggestions)
	view := v.(render.SuggestionsView)
	if len(view.Chips) != 2 || view.Chips[0].Percent != "+1.3%" || view.Chips[1].Symbol != "COIN" {
		t.Errorf("Unexpected chips %+v", view.Chips)
	}

	src.SetErr(testutils.ErrMockUpstream)
	_ = l.RefreshSuggestions(ctx)
	if pub.Count(render.SectionSuggestions) != 1 {
		t.Errorf("Failure must keep the previous chips")
	}
}

func TestRefreshSummary(t *testing.T) {
	l, src, pub, _ := setup(stamp{})
	ctx := context.Background()

	if err := l.RefreshSummary(ctx); err != nil {
		t.Fatal(err)
	}
	v, _ := pub.Last(render.SectionSummary)
	if got := v.(render.SummaryView); got.Text != "Stocks drift higher." || got.Updated != "Updated 20 min ago" {
		t.Errorf("Unexpected summary %+v", got)
	}

	src.SetErr(testutils.ErrMockUpstream)
	_ = l.RefreshSummary(ctx)
	v, _ = pub.Last(render.SectionSummary)
	if got := v.(render.SummaryView); got.State != render.StateReady {
		t.Errorf("Failed fetch should keep the previous summary, got %+v", got)
	}
}

func TestRefreshSummary_AbsentIsUnavailable(t *testing.T) {
	l, src, pub, _ := setup(stamp{})
	src.Summary = nil

	if err := l.RefreshSummary(context.Background()); err != nil {
		t.Fatalf("Absent summary is not an error: %v", err)
	}
	v, _ := pub.Last(render.SectionSummary)
	if got := v.(render.SummaryView); got.Text != "Summary temporarily unavailable" {
		t.Errorf("Unexpected summary %+v", got)
	}
}

func TestRefreshAge(t *testing.T) {
	l, src, pub, _ := setup(stamp{})
	if err := l.RefreshAge(context.Background()); err != nil {
		t.Fatal(err)
	}
	v, _ := pub.Last(render.SectionStatus)
	if got := v.(render.StatusView).LastUpdate; got != "updating..." {
		t.Errorf("got %q", got)
	}
	if src.CallCount() != 0 {
		t.Error("Age label must not touch the network")
	}

	l, _, pub, _ = setup(stamp{t: now.Add(-12 * time.Second), ok: true})
	_ = l.RefreshAge(context.Background())
	v, _ = pub.Last(render.SectionStatus)
	if got := v.(render.StatusView).LastUpdate; got != "12 sec ago" {
		t.Errorf("got %q", got)
	}
}

func TestRefreshFeed(t *testing.T) {
	l, _, pub, _ := setup(stamp{})
	_ = l.RefreshFeed(context.Background())
	v, _ := pub.Last(render.SectionFeed)
	if got := v.(render.FeedView); len(got.Items) != 1 || got.Items[0].Age != "45m ago" {
		t.Errorf("Unexpected feed %+v", got)
	}
}

func TestSchedule_StartOrder(t *testing.T) {
	l, _, pub, _ := setup(stamp{})
	s := scheduler.NewScheduler(zap.NewNop())

	err := l.Schedule(s, dashboard.Periods{Fast: time.Hour, Slow: time.Hour, Age: time.Hour, Feed: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	s.Start(context.Background())
	defer s.Stop()

	want := []string{
		render.SectionIndices, render.SectionSuggestions, render.SectionSummary,
		render.SectionFeed, render.SectionStatus,
	}
	pub.Mu.Lock()
	got := append([]string(nil), pub.Sections...)
	pub.Mu.Unlock()
	if len(got) != len(want) {
		t.Fatalf("Unexpected start-up frames %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Frame %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestSchedule_RejectsZeroPeriod(t *testing.T) {
	l, _, _, _ := setup(stamp{})
	err := l.Schedule(scheduler.NewScheduler(zap.NewNop()), dashboard.Periods{Fast: time.Second})
	if !errors.Is(err, scheduler.ErrInvalidPeriod) {
		t.Errorf("Expected invalid period, got %v", err)
	}
}

func TestFramePublisher(t *testing.T) {
	store := testutils.NewMockFrameStore()
	p := dashboard.NewFramePublisher(store)

	view := render.Status(time.Time{}, false, now)
	if err := p.Publish(context.Background(), render.SectionStatus, view); err != nil {
		t.Fatal(err)
	}

	var frame protocol.WSResponse
	if err := json.Unmarshal([]byte(store.Frames[render.SectionStatus]), &frame); err != nil {
		t.Fatal(err)
	}
	if frame.Type != protocol.TypeFrame || frame.Section != render.SectionStatus {
		t.Errorf("Unexpected frame %+v", frame)
	}

	var got render.StatusView
	if !store.Frame(t, render.SectionStatus, &got) || got.LastUpdate != "updating..." {
		t.Errorf("Unexpected decoded view %+v", got)
	}

	store.Err = errors.New("redis down")
	if err := p.Publish(context.Background(), render.SectionStatus, view); err == nil {
		t.Error("Expected publish error")
	}
}
