package strategy

import (
	"testing"

	"TrendSeg/internal/domain/models"
)

func advanceAll(p *Pattern, hists []float64) models.PatternStatus {
	var st models.PatternStatus
	for _, h := range hists {
		st = p.Advance(st, h)
	}
	return st
}

func TestPatternFormsOnShrinkThenFlip(t *testing.T) {
	p := NewPattern(testParams())
	st := advanceAll(p, []float64{50, 30, 20, -5})
	if st.State != models.PatternForming {
		t.Fatalf("state = %v, want forming", st.State)
	}
	if st.Sign != -1 {
		t.Fatalf("sign = %d, want -1", st.Sign)
	}
}

func TestPatternIgnoresFlipWithoutShrink(t *testing.T) {
	p := NewPattern(testParams())
	st := advanceAll(p, []float64{20, 40, 60, -5})
	if st.State != models.PatternIdle {
		t.Fatalf("flip after a growing run armed the machine: %v", st.State)
	}
}

func TestPatternConfirmsAfterRunLength(t *testing.T) {
	p := NewPattern(testParams()) // confirm after 3 bars of the new sign
	st := advanceAll(p, []float64{50, 30, 20, -5, -10, -15})
	if st.State != models.PatternConfirmed {
		t.Fatalf("state = %v, want confirmed", st.State)
	}
}

func TestPatternExpiresOnRunBreak(t *testing.T) {
	p := NewPattern(testParams())
	st := advanceAll(p, []float64{50, 30, 20, -5, 10})
	if st.State != models.PatternExpired {
		t.Fatalf("state = %v, want expired", st.State)
	}
}

func TestPatternExpiresOnMaxAge(t *testing.T) {
	prm := testParams()
	prm.PatternConfirmBars = 2
	prm.PatternMaxAge = 4
	p := NewPattern(prm)
	st := advanceAll(p, []float64{50, 30, 20, -5, -6, -7, -8, -9})
	if st.State != models.PatternExpired {
		t.Fatalf("state = %v, want expired after max age", st.State)
	}
}

func TestExpiredRearmsAsIdle(t *testing.T) {
	p := NewPattern(testParams())
	st := advanceAll(p, []float64{50, 30, 20, -5, 10, 8})
	if st.State != models.PatternIdle {
		t.Fatalf("state = %v, want idle after expiry", st.State)
	}
	// A fresh shrink-then-flip arms it again.
	st = p.Advance(st, 4)
	st = p.Advance(st, -2)
	if st.State != models.PatternForming {
		t.Fatalf("state = %v, want forming after re-arm", st.State)
	}
}

func TestMirroredNegativeSetup(t *testing.T) {
	p := NewPattern(testParams())
	st := advanceAll(p, []float64{-50, -30, -20, 5, 10, 15})
	if st.State != models.PatternConfirmed {
		t.Fatalf("state = %v, want confirmed on positive flip", st.State)
	}
}
