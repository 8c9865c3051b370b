package generator_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noemamarkets/pulse/cmd/quotesim/internal/generator"
	"github.com/noemamarkets/pulse/cmd/quotesim/internal/testutils"
)

func TestGenerator_NeutralStepKeepsOpen(t *testing.T) {
	// 0.5 -> (0.5*2)-1 = 0: no move
	mockRand := &testutils.MockRand{ValFloat: 0.5}
	mockClock := &testutils.MockClock{CurrentTime: time.Unix(0, 0)}

	gen := generator.NewStockGenerator(zap.NewNop(), []string{"AAPL"}, mockRand, mockClock, time.Second)
	gen.Step()

	q, ok := gen.Quotes([]string{"aapl"})["AAPL"]
	if !ok {
		t.Fatal("Expected AAPL quote")
	}
	if !q.Price.Equal(decimal.NewFromInt(227)) || !q.ChangePercent.IsZero() {
		t.Errorf("Expected unchanged price, got %s (%s%%)", q.Price, q.ChangePercent)
	}
	if q.Name != "Apple Inc." {
		t.Errorf("Unexpected name %s", q.Name)
	}
}

func TestGenerator_MaxStepIsBounded(t *testing.T) {
	// 1.0 -> +Volatility every step
	mockRand := &testutils.MockRand{ValFloat: 1.0}
	gen := generator.NewStockGenerator(zap.NewNop(), []string{"NVDA"}, mockRand, &testutils.MockClock{}, time.Second)
	gen.Step()

	q := gen.Quotes([]string{"NVDA"})["NVDA"]
	// 180 * 1.004 = 180.72
	if q.Price.String() != "180.72" || q.ChangePercent.String() != "0.4" {
		t.Errorf("Unexpected quote %s %s", q.Price, q.ChangePercent)
	}
}

func TestGenerator_PriceFloor(t *testing.T) {
	mockRand := &testutils.MockRand{ValFloat: 0.0} // always -Volatility
	gen := generator.NewStockGenerator(zap.NewNop(), []string{"SMCI"}, mockRand, &testutils.MockClock{}, time.Second)
	for i := 0; i < 5000; i++ {
		gen.Step()
	}
	q := gen.Quotes([]string{"SMCI"})["SMCI"]
	if q.Price.LessThan(decimal.RequireFromString("0.38")) {
		t.Errorf("Price fell through the floor: %s", q.Price)
	}
}

func TestGenerator_UnknownSymbolsAbsent(t *testing.T) {
	gen := generator.NewStockGenerator(zap.NewNop(), []string{"NVDA", "NOPE"}, &testutils.MockRand{ValFloat: 0.5}, &testutils.MockClock{}, time.Second)

	quotes := gen.Quotes([]string{"NVDA", "NOPE", "ZZZ"})
	if len(quotes) != 1 {
		t.Errorf("Expected only NVDA, got %v", quotes)
	}
	if len(gen.Indices()) != 4 {
		t.Errorf("Index instruments are always simulated, got %d", len(gen.Indices()))
	}
}

func TestGenerator_Summary(t *testing.T) {
	mockRand := &testutils.MockRand{Floats: []float64{1.0, 0.0, 0.5, 0.5, 0.5, 0.5}}
	gen := generator.NewStockGenerator(zap.NewNop(), []string{"NVDA", "AAPL"}, mockRand, &testutils.MockClock{}, time.Second)
	gen.Step()

	want := "The S&P 500 is trading higher, 0.00% on the session. NVDA leads (0.40%) while AAPL lags (-0.20%)."
	if got := gen.Summary(); got != want {
		t.Errorf("Unexpected summary:\n got %s\nwant %s", got, want)
	}
}

func TestGenerator_RunAdvancesClock(t *testing.T) {
	mockClock := &testutils.MockClock{CurrentTime: time.Unix(0, 0)}
	gen := generator.NewStockGenerator(zap.NewNop(), []string{"AAPL"}, &testutils.MockRand{ValFloat: 0.7}, mockClock, time.Second)

	// Since MockClock.Sleep advances time instantly, the loop spins until cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	gen.Run(ctx)

	if gen.Steps() == 0 {
		t.Fatal("Expected steps to run")
	}
	if !gen.LastUpdate().After(time.Unix(0, 0)) {
		t.Errorf("Last update should follow the clock, got %s", gen.LastUpdate())
	}
}
