package strategy

import (
	"testing"
	"time"

	"TrendSeg/internal/domain/models"
)

func jumpWindow(opens, hists []float64) []models.Candle {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	w := make([]models.Candle, len(opens))
	for i := range opens {
		w[i] = models.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Symbol:    "BTCUSDT",
			Open:      opens[i],
			High:      opens[i] + 10,
			Low:       opens[i] - 10,
			Close:     opens[i] + 5,
			Volume:    1,
			DIF:       hists[i] + 500,
			DEA:       500,
			Histogram: hists[i],
		}
	}
	return w
}

func TestJumpOpensOnPullbackThenGap(t *testing.T) {
	j := NewJump(testParams(), time.Hour)
	w := jumpWindow([]float64{100, 101, 102, 108}, []float64{50, 30, 20, 45})

	ev, ok := j.Detect(models.SegmentUptrend, w, nil)
	if !ok || ev == nil {
		t.Fatalf("expected jump event")
	}
	if ev.PullbackStart != 1 {
		t.Fatalf("pullback start = %d, want 1", ev.PullbackStart)
	}
	if ev.GapOpen != 108 || ev.GapReferenceOpen != 102 {
		t.Fatalf("gap anchors = %.0f/%.0f, want 108/102", ev.GapOpen, ev.GapReferenceOpen)
	}
	if want := 102 - testParams().StopLossOffset; ev.StopLoss != want {
		t.Fatalf("stop = %.0f, want %.0f", ev.StopLoss, want)
	}
}

func TestNoJumpWithoutPullback(t *testing.T) {
	j := NewJump(testParams(), time.Hour)
	w := jumpWindow([]float64{100, 101, 102, 108}, []float64{20, 30, 40, 45})
	if _, ok := j.Detect(models.SegmentUptrend, w, nil); ok {
		t.Fatalf("event opened without a preceding pullback")
	}
}

func TestNoJumpBelowGapMargin(t *testing.T) {
	j := NewJump(testParams(), time.Hour)
	w := jumpWindow([]float64{100, 101, 102, 104}, []float64{50, 30, 20, 45})
	if _, ok := j.Detect(models.SegmentUptrend, w, nil); ok {
		t.Fatalf("event opened on a sub-margin gap")
	}
}

func TestGapAcrossDowntimeIgnored(t *testing.T) {
	j := NewJump(testParams(), time.Hour)
	w := jumpWindow([]float64{100, 101, 102, 108}, []float64{50, 30, 20, 45})
	// Exchange downtime: the gap bar arrives three hours later.
	w[3].Timestamp = w[2].Timestamp.Add(3 * time.Hour)
	if _, ok := j.Detect(models.SegmentUptrend, w, nil); ok {
		t.Fatalf("downtime hole treated as a pattern gap")
	}
}

func TestTrailingStopMonotone(t *testing.T) {
	p := testParams()
	j := NewJump(p, time.Hour)
	w := jumpWindow([]float64{100, 101, 102, 108}, []float64{50, 30, 20, 45})

	ev, ok := j.Detect(models.SegmentUptrend, w, nil)
	if !ok {
		t.Fatalf("expected opening event")
	}
	prevStop := ev.StopLoss

	// Subsequent qualifying gaps keep tightening the stop upward.
	opens := []float64{115, 125, 140}
	for _, o := range opens {
		last := w[len(w)-1]
		next := last
		next.Timestamp = last.Timestamp.Add(time.Hour)
		next.Open = o
		next.Close = o + 5
		w = append(w, next)

		ev, ok = j.Detect(models.SegmentUptrend, w, ev)
		if !ok {
			t.Fatalf("event dropped while in uptrend")
		}
		if ev.StopLoss < prevStop {
			t.Fatalf("trailing stop moved down: %.0f -> %.0f", prevStop, ev.StopLoss)
		}
		prevStop = ev.StopLoss
	}
	if want := 125 - p.StopLossOffset; ev.StopLoss != want {
		t.Fatalf("final stop = %.0f, want %.0f", ev.StopLoss, want)
	}
}

func TestEventDiscardedOutsideUptrend(t *testing.T) {
	j := NewJump(testParams(), time.Hour)
	w := jumpWindow([]float64{100, 101, 102, 108}, []float64{50, 30, 20, 45})
	ev, _ := j.Detect(models.SegmentUptrend, w, nil)
	if ev == nil {
		t.Fatalf("expected opening event")
	}
	if got, ok := j.Detect(models.SegmentTransition, w, ev); ok || got != nil {
		t.Fatalf("event survived leaving uptrend")
	}
}

func TestStopBreachClosesEvent(t *testing.T) {
	p := testParams()
	p.StopLossOffset = 10
	j := NewJump(p, time.Hour)
	w := jumpWindow([]float64{100, 101, 102, 108}, []float64{50, 30, 20, 45})
	ev, _ := j.Detect(models.SegmentUptrend, w, nil)
	if ev == nil {
		t.Fatalf("expected opening event")
	}

	last := w[len(w)-1]
	breach := last
	breach.Timestamp = last.Timestamp.Add(time.Hour)
	breach.Close = ev.StopLoss - 1
	w = append(w, breach)

	if got, ok := j.Detect(models.SegmentUptrend, w, ev); ok || got != nil {
		t.Fatalf("event survived a close below the trailing stop")
	}
}

func TestZeroAxisVariantNeedsNoPullback(t *testing.T) {
	j := NewJump(testParams(), time.Hour)
	w := jumpWindow([]float64{100, 101}, []float64{-40, -25})
	for i := range w {
		w[i].DEA = -100 // inside the zero-axis band
	}
	ev, ok := j.Detect(models.SegmentUptrend, w, nil)
	if !ok || ev == nil {
		t.Fatalf("expected zero-axis event")
	}
	if !ev.ZeroAxis {
		t.Fatalf("event not flagged as zero-axis variant")
	}
}

func TestZeroAxisVariantOutsideBand(t *testing.T) {
	j := NewJump(testParams(), time.Hour)
	w := jumpWindow([]float64{100, 101}, []float64{-40, -25})
	for i := range w {
		w[i].DEA = -900
	}
	if _, ok := j.Detect(models.SegmentUptrend, w, nil); ok {
		t.Fatalf("zero-axis event opened far from the zero axis")
	}
}
