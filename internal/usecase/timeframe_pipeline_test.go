package usecase

import (
	"errors"
	"math"
	"testing"
	"time"

	"TrendSeg/internal/domain/models"
	drepo "TrendSeg/internal/domain/repository"
	"TrendSeg/internal/services/strategy"
)

func pipeParams() strategy.Params {
	p := strategy.DefaultParams()
	p.GapMargin = 3
	p.MinHistory = 3
	return p
}

func pipeCandle(i int, dea float64) models.Candle {
	ts := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour)
	return models.Candle{
		Timestamp: ts,
		Symbol:    "BTCUSDT",
		Open:      100 + float64(i),
		High:      120,
		Low:       90,
		Close:     105 + float64(i),
		Volume:    1,
		EMAShort:  100,
		DIF:       dea + 10,
		DEA:       dea,
		Histogram: 10,
	}
}

func TestPipelineRejectsOutOfOrderAndDuplicate(t *testing.T) {
	p := NewTimeframePipeline(drepo.TF1h, "BTCUSDT", pipeParams(), nil)

	if _, err := p.Apply(pipeCandle(1, 5)); err != nil {
		t.Fatalf("first candle rejected: %v", err)
	}
	if _, err := p.Apply(pipeCandle(1, 5)); !errors.Is(err, models.ErrDuplicateCandle) {
		t.Fatalf("duplicate not rejected: %v", err)
	}
	if _, err := p.Apply(pipeCandle(0, 5)); !errors.Is(err, models.ErrOutOfOrderCandle) {
		t.Fatalf("out-of-order not rejected: %v", err)
	}

	// State did not advance on the rejects.
	snap := p.Snapshot()
	if snap.AsOf != pipeCandle(1, 5).Timestamp {
		t.Fatalf("rejected candle advanced the pipeline clock")
	}
}

func TestPipelineRejectsMalformedCandle(t *testing.T) {
	p := NewTimeframePipeline(drepo.TF1h, "BTCUSDT", pipeParams(), nil)
	bad := pipeCandle(0, 5)
	bad.DEA = math.NaN()
	if _, err := p.Apply(bad); !errors.Is(err, models.ErrMalformedCandle) {
		t.Fatalf("malformed candle accepted: %v", err)
	}
	if snap := p.Snapshot(); !snap.AsOf.IsZero() {
		t.Fatalf("malformed candle advanced state")
	}
}

func TestPipelineReportsUnknownUntilHistoryAccumulates(t *testing.T) {
	p := NewTimeframePipeline(drepo.TF1h, "BTCUSDT", pipeParams(), nil)

	snap, err := p.Apply(pipeCandle(0, 5))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if snap.Ready || snap.Segment.State != models.SegmentUnknown {
		t.Fatalf("thin history reported %v ready=%v", snap.Segment.State, snap.Ready)
	}

	snap, _ = p.Apply(pipeCandle(1, 6))
	if snap.Ready {
		t.Fatalf("ready before min history")
	}
	snap, _ = p.Apply(pipeCandle(2, 7))
	if !snap.Ready || snap.Segment.State != models.SegmentUptrend {
		t.Fatalf("expected ready uptrend at min history, got %v ready=%v", snap.Segment.State, snap.Ready)
	}
}

func TestLeavingUptrendDiscardsJumpEvent(t *testing.T) {
	params := pipeParams()
	p := NewTimeframePipeline(drepo.TF1h, "BTCUSDT", params, nil)

	// Build an uptrend with a pullback-then-gap so a jump event opens.
	hists := []float64{50, 50, 50, 30, 20, 45}
	opens := []float64{100, 100, 100, 101, 102, 108}
	var snap models.TimeframeSnapshot
	for i := range hists {
		c := pipeCandle(i, 10)
		c.Open = opens[i]
		c.Histogram = hists[i]
		var err error
		snap, err = p.Apply(c)
		if err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
	}
	if snap.Jump == nil {
		t.Fatalf("expected live jump event in uptrend")
	}

	// Cross below zero: uptrend ends, event must be gone on this very bar.
	c := pipeCandle(len(hists), -1)
	snap, err := p.Apply(c)
	if err != nil {
		t.Fatalf("apply cross down: %v", err)
	}
	if snap.Segment.State != models.SegmentTransition {
		t.Fatalf("expected transition, got %v", snap.Segment.State)
	}
	if snap.Jump != nil {
		t.Fatalf("jump event leaked across regime exit")
	}
}

func TestPipelineSurfacesExtremeSignal(t *testing.T) {
	p := NewTimeframePipeline(drepo.TF1h, "BTCUSDT", pipeParams(), nil)

	// Downtrend history bottoming at dea -100, then a shrinking-histogram
	// bullish candle near the extreme.
	var snap models.TimeframeSnapshot
	for i := 0; i < 5; i++ {
		dea := -50.0
		if i == 2 {
			dea = -100
		}
		c := pipeCandle(i, dea)
		c.Histogram = -40
		var err error
		snap, err = p.Apply(c)
		if err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
	}
	if snap.Extreme != nil {
		t.Fatalf("extreme fired without a shrinking bullish candle")
	}

	last := pipeCandle(5, -95)
	last.Histogram = -10
	snap, err := p.Apply(last)
	if err != nil {
		t.Fatalf("apply trigger: %v", err)
	}
	if snap.Extreme == nil {
		t.Fatalf("extreme setup not surfaced in snapshot")
	}
	if snap.Extreme.MinDEA != -100 {
		t.Fatalf("extreme min dea = %.0f, want -100", snap.Extreme.MinDEA)
	}
	if snap.PrevHigh != 120 || snap.PrevLow != 90 {
		t.Fatalf("lookback range = %.0f/%.0f, want 120/90", snap.PrevHigh, snap.PrevLow)
	}
}

func TestPipelineEMACross(t *testing.T) {
	p := NewTimeframePipeline(drepo.TF1h, "BTCUSDT", pipeParams(), nil)

	below := pipeCandle(0, 5)
	below.Close = 95 // below short ema
	if _, err := p.Apply(below); err != nil {
		t.Fatalf("apply: %v", err)
	}
	above := pipeCandle(1, 6)
	above.Close = 104
	snap, err := p.Apply(above)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !snap.EMACrossUp {
		t.Fatalf("close crossing above short ema not flagged")
	}

	again := pipeCandle(2, 7)
	again.Close = 105
	snap, _ = p.Apply(again)
	if snap.EMACrossUp {
		t.Fatalf("cross flagged while already above the ema")
	}
}
