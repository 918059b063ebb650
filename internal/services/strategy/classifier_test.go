package strategy

import (
	"testing"
	"time"

	"TrendSeg/internal/domain/models"
)

func testParams() Params {
	p := DefaultParams()
	p.GapMargin = 3
	return p
}

func barAt(i int, dea float64) models.Candle {
	ts := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour)
	return models.Candle{
		Timestamp: ts,
		Symbol:    "BTCUSDT",
		Open:      100,
		High:      110,
		Low:       95,
		Close:     105,
		Volume:    1,
		DIF:       dea + 10,
		DEA:       dea,
		Histogram: 10,
	}
}

func runDEA(t *testing.T, cl *Classifier, deas []float64) []models.SegmentState {
	t.Helper()
	var st models.SegmentStatus
	states := make([]models.SegmentState, 0, len(deas))
	for i, d := range deas {
		st = cl.Classify(st, barAt(i, d), nil)
		states = append(states, st.State)
	}
	return states
}

func TestUptrendCommitNeedsConfirmationBars(t *testing.T) {
	cl := NewClassifier(testParams())
	states := runDEA(t, cl, []float64{-10, -5, 2, 3, 4})
	if states[2] == models.SegmentUptrend {
		t.Fatalf("committed uptrend on first dea>0 candle")
	}
	if states[3] != models.SegmentUptrend {
		t.Fatalf("expected uptrend at 4th candle, got %v", states[3])
	}
}

func TestSingleBarCrossDoesNotCommit(t *testing.T) {
	cl := NewClassifier(testParams())
	states := runDEA(t, cl, []float64{-10, 2, -5, -7})
	for i, s := range states {
		if s == models.SegmentUptrend {
			t.Fatalf("whipsaw cross committed uptrend at candle %d", i)
		}
	}
}

func TestUptrendToTransitionAndBack(t *testing.T) {
	cl := NewClassifier(testParams())
	states := runDEA(t, cl, []float64{5, 6, -1, -2, 3})
	if states[2] != models.SegmentTransition {
		t.Fatalf("expected transition on cross down, got %v", states[2])
	}
	if states[4] != models.SegmentUptrend {
		t.Fatalf("expected re-cross to return uptrend, got %v", states[4])
	}
}

func TestTransitionDelayCommitsDowntrend(t *testing.T) {
	p := testParams()
	p.DelayBars = 3
	cl := NewClassifier(p)
	states := runDEA(t, cl, []float64{5, -1, -2, -3, -4})
	if states[3] == models.SegmentDowntrend {
		t.Fatalf("downtrend committed before delay elapsed")
	}
	if states[4] != models.SegmentDowntrend {
		t.Fatalf("expected downtrend after delay_bars, got %v", states[4])
	}
}

func TestThresholdCrossEntersBreakthrough(t *testing.T) {
	cl := NewClassifier(testParams())
	states := runDEA(t, cl, []float64{-80, -90, -40})
	if states[2] != models.SegmentBreakthrough {
		t.Fatalf("expected breakthrough on rise through threshold, got %v", states[2])
	}
}

func TestBreakthroughTimeoutRevertsToDowntrend(t *testing.T) {
	cl := NewClassifier(testParams())
	// candle 1 enters breakthrough; dea never reclaims zero.
	deas := []float64{-80, -40, -30, -30, -30, -30, -30, -30, -30, -30}
	states := runDEA(t, cl, deas)
	if states[1] != models.SegmentBreakthrough {
		t.Fatalf("expected breakthrough entry, got %v", states[1])
	}
	if states[8] != models.SegmentBreakthrough {
		t.Fatalf("reverted before timeout exhausted: %v", states[8])
	}
	if states[9] != models.SegmentDowntrend {
		t.Fatalf("expected downtrend when timeout exhausts, got %v", states[9])
	}
}

func TestBreakthroughReclaimsZero(t *testing.T) {
	cl := NewClassifier(testParams())
	states := runDEA(t, cl, []float64{-80, -40, 5})
	if states[2] != models.SegmentUptrend {
		t.Fatalf("expected uptrend on zero reclaim, got %v", states[2])
	}
}

func TestBreakthroughFallsBackBelowThreshold(t *testing.T) {
	cl := NewClassifier(testParams())
	states := runDEA(t, cl, []float64{-80, -40, -70})
	if states[2] != models.SegmentDowntrend {
		t.Fatalf("expected downtrend on fall below threshold, got %v", states[2])
	}
}

func TestBreakthroughTieBreakConfigurable(t *testing.T) {
	deas := make([]float64, 0, 12)
	deas = append(deas, -80)
	for i := 0; i < 8; i++ {
		deas = append(deas, -30)
	}
	deas = append(deas, 5) // reclaim lands on the same candle the timeout expires

	cl := NewClassifier(testParams())
	states := runDEA(t, cl, deas)
	if states[len(states)-1] != models.SegmentUptrend {
		t.Fatalf("zero-cross tie-break should commit uptrend, got %v", states[len(states)-1])
	}

	p := testParams()
	p.BreakthroughTieBreak = TieBreakRevert
	cl = NewClassifier(p)
	states = runDEA(t, cl, deas)
	if states[len(states)-1] != models.SegmentDowntrend {
		t.Fatalf("revert tie-break should commit downtrend, got %v", states[len(states)-1])
	}
}

func TestReplayIsDeterministic(t *testing.T) {
	cl := NewClassifier(testParams())
	deas := []float64{-10, -5, 2, 3, -1, -70, -40, 4, 5, 6, -2}
	a := runDEA(t, cl, deas)
	b := runDEA(t, cl, deas)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("trajectory diverged at candle %d: %v vs %v", i, a[i], b[i])
		}
	}
}

type fixedPattern struct{ s models.PatternState }

func (f fixedPattern) PatternState() models.PatternState { return f.s }

func TestExpiredPatternBlocksUptrendCommit(t *testing.T) {
	p := testParams()
	p.RequirePatternConfirm = true
	cl := NewClassifier(p)

	var st models.SegmentStatus
	deas := []float64{-10, -5, 2, 3, 4}
	for i, d := range deas {
		st = cl.Classify(st, barAt(i, d), fixedPattern{models.PatternExpired})
	}
	if st.State == models.SegmentUptrend {
		t.Fatalf("uptrend committed despite expired pattern")
	}

	st = models.SegmentStatus{}
	for i, d := range deas {
		st = cl.Classify(st, barAt(i, d), fixedPattern{models.PatternConfirmed})
	}
	if st.State != models.SegmentUptrend {
		t.Fatalf("confirmed pattern should allow commit, got %v", st.State)
	}
}
