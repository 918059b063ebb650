package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"TrendSeg/internal/domain/models"
	drepo "TrendSeg/internal/domain/repository"
	applogger "TrendSeg/pkg/logger"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	cfg := aggConfig()
	return NewEngine("BTCUSDT", pipeParams(), NewAggregator(cfg), nil, nil, l)
}

func TestEngineRejectsUnsubscribedTimeframe(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	err := e.Submit(ctx, drepo.StreamCandle{Timeframe: drepo.TF5m, Candle: pipeCandle(0, 5)})
	if !errors.Is(err, models.ErrTimeframeMissing) {
		t.Fatalf("unsubscribed timeframe accepted: %v", err)
	}
}

func TestEngineNoVerdictBeforeAnyCandle(t *testing.T) {
	e := testEngine(t)
	if v := e.Latest(); v != nil {
		t.Fatalf("verdict before any candle: %+v", v)
	}
	if e.FirstTradeOpened() {
		t.Fatalf("first-trade latch set on a fresh engine")
	}
}

func TestEngineProducesVerdictAcrossTimeframes(t *testing.T) {
	e := testEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)

	// Drive both subscribed timeframes past min history with aligned
	// closes so the final aggregation pass sees fresh legs.
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		c := pipeCandle(i, 10)
		c.Timestamp = base.Add(time.Duration(i) * time.Hour)
		if err := e.Submit(ctx, drepo.StreamCandle{Timeframe: drepo.TF1h, Candle: c}); err != nil {
			t.Fatalf("submit 1h %d: %v", i, err)
		}
		c4 := pipeCandle(i, 10)
		c4.Timestamp = base.Add(time.Duration(i) * time.Hour)
		if err := e.Submit(ctx, drepo.StreamCandle{Timeframe: drepo.TF4h, Candle: c4}); err != nil {
			t.Fatalf("submit 4h %d: %v", i, err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v := e.Latest(); v != nil && len(e.Snapshots()) == 2 {
			cancel()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("engine produced no verdict within deadline")
}
