package enrich

import (
	"math"
	"testing"
)

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestEMASeedsWithSimpleAverage(t *testing.T) {
	e := newEMA(3)

	got := []float64{
		e.update(1),
		e.update(2),
		e.update(3),
		e.update(4),
	}
	// Running mean until the period fills, then alpha = 2/(3+1) = 0.5.
	want := []float64{1, 1.5, 2, 0.5*4 + 0.5*2}
	for i := range want {
		if !almost(got[i], want[i]) {
			t.Fatalf("ema[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMACDSignsFollowTrend(t *testing.T) {
	m := newMACD(12, 26, 9)

	var dif, dea, hist float64
	price := 100.0
	for i := 0; i < 60; i++ {
		price += 1
		dif, dea, hist = m.update(price)
	}
	if dif <= 0 || dea <= 0 {
		t.Fatalf("sustained rise produced dif=%v dea=%v, want both positive", dif, dea)
	}
	if !almost(hist, dif-dea) {
		t.Fatalf("histogram %v != dif-dea %v", hist, dif-dea)
	}

	for i := 0; i < 120; i++ {
		price -= 1.5
		dif, dea, _ = m.update(price)
	}
	if dif >= 0 {
		t.Fatalf("sustained fall left dif=%v, want negative", dif)
	}
}
