package strategy

import (
	"math"

	"TrendSeg/internal/domain/models"
	domsvc "TrendSeg/internal/domain/service"
)

// Extreme detects extreme-value entries: the one long setup that fires
// while the segment is still a downtrend. All four conditions must hold on
// the latest candle:
//
//  1. dea below zero,
//  2. dea within ExtremeDEARatio of the lookback minimum,
//  3. a bullish candle (close above open),
//  4. histogram magnitude shrinking against the prior bar.
type Extreme struct {
	p Params
}

func NewExtreme(p Params) *Extreme { return &Extreme{p: p} }

// Detect evaluates the window's latest candle. Pure over the window; the
// detector keeps no state between bars.
func (e *Extreme) Detect(window []models.Candle) *models.ExtremeSignal {
	if len(window) < 2 {
		return nil
	}
	last := window[len(window)-1]
	prev := window[len(window)-2]

	if last.DEA >= 0 {
		return nil
	}

	look := window
	if len(look) > e.p.ExtremeLookback {
		look = look[len(look)-e.p.ExtremeLookback:]
	}
	minDEA := look[0].DEA
	prevHigh := look[0].High
	for _, c := range look[1:] {
		if c.DEA < minDEA {
			minDEA = c.DEA
		}
		if c.High > prevHigh {
			prevHigh = c.High
		}
	}
	// minDEA is negative here since last.DEA < 0 is in the window.
	if last.DEA > minDEA*e.p.ExtremeDEARatio {
		return nil
	}
	if last.Close <= last.Open {
		return nil
	}
	if math.Abs(last.Histogram) >= math.Abs(prev.Histogram) {
		return nil
	}

	return &models.ExtremeSignal{
		Entry:    last.Close,
		StopLoss: last.Open - e.p.ExtremeRangeStopMult*(last.High-last.Low),
		Target1:  last.EMALong,
		Target2:  prevHigh,
		MinDEA:   minDEA,
	}
}

var _ domsvc.ExtremeDetector = (*Extreme)(nil)
