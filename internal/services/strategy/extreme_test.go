package strategy

import (
	"testing"
	"time"

	"TrendSeg/internal/domain/models"
)

// extremeWindow builds a downtrend window whose dea bottoms at -100 and
// whose last candle is configurable.
func extremeWindow(lastDEA, lastOpen, lastClose, lastHist float64) []models.Candle {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	w := make([]models.Candle, 0, 12)
	for i := 0; i < 11; i++ {
		dea := -50.0
		if i == 5 {
			dea = -100 // the lookback extreme
		}
		w = append(w, models.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Symbol:    "BTCUSDT",
			Open:      50000 + float64(i),
			High:      50100 + float64(i),
			Low:       49900 + float64(i),
			Close:     49990 + float64(i),
			Volume:    1,
			EMALong:   51000,
			DIF:       dea - 40,
			DEA:       dea,
			Histogram: -40,
		})
	}
	w = append(w, models.Candle{
		Timestamp: base.Add(11 * time.Hour),
		Symbol:    "BTCUSDT",
		Open:      lastOpen,
		High:      lastOpen + 100,
		Low:       lastOpen - 100,
		Close:     lastClose,
		Volume:    1,
		EMALong:   51000,
		DIF:       lastDEA + lastHist,
		DEA:       lastDEA,
		Histogram: lastHist,
	})
	return w
}

func TestExtremeFiresAtLookbackMinimum(t *testing.T) {
	e := NewExtreme(testParams())
	// dea -95 is within 90% of the -100 extreme; bullish candle with a
	// histogram shrinking from -40 to -10.
	w := extremeWindow(-95, 49900, 49960, -10)

	sig := e.Detect(w)
	if sig == nil {
		t.Fatalf("expected extreme signal")
	}
	if sig.Entry != 49960 {
		t.Fatalf("entry = %.0f, want 49960", sig.Entry)
	}
	if want := 49900 - testParams().ExtremeRangeStopMult*200; sig.StopLoss != want {
		t.Fatalf("stop = %.0f, want %.0f", sig.StopLoss, want)
	}
	if sig.Target1 != 51000 {
		t.Fatalf("target1 = %.0f, want long ema 51000", sig.Target1)
	}
	if sig.Target2 != 50110 {
		t.Fatalf("target2 = %.0f, want lookback high 50110", sig.Target2)
	}
	if sig.MinDEA != -100 {
		t.Fatalf("min dea = %.0f, want -100", sig.MinDEA)
	}
}

func TestExtremeRejectsShallowDEA(t *testing.T) {
	e := NewExtreme(testParams())
	// dea -60 is not within 90% of the -100 extreme.
	if sig := e.Detect(extremeWindow(-60, 49900, 49960, -10)); sig != nil {
		t.Fatalf("fired with dea far from the lookback extreme: %+v", sig)
	}
}

func TestExtremeRejectsBearishCandle(t *testing.T) {
	e := NewExtreme(testParams())
	if sig := e.Detect(extremeWindow(-95, 49960, 49900, -10)); sig != nil {
		t.Fatalf("fired on a bearish candle: %+v", sig)
	}
}

func TestExtremeRejectsExpandingHistogram(t *testing.T) {
	e := NewExtreme(testParams())
	// |hist| grows from 40 to 60: momentum still accelerating down.
	if sig := e.Detect(extremeWindow(-95, 49900, 49960, -60)); sig != nil {
		t.Fatalf("fired while the histogram expands: %+v", sig)
	}
}

func TestExtremeRejectsPositiveDEA(t *testing.T) {
	e := NewExtreme(testParams())
	if sig := e.Detect(extremeWindow(5, 49900, 49960, -10)); sig != nil {
		t.Fatalf("fired with dea above zero: %+v", sig)
	}
}
