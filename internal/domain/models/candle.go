package models

import (
	"fmt"
	"math"
	"time"
)

// Candle is one closed bar of an enriched candle stream: OHLCV plus the
// indicator fields computed upstream (EMA ladder, MACD DIF/DEA/histogram).
// Candles are immutable once produced.
type Candle struct {
	Timestamp time.Time
	Symbol    string
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64

	EMAShort float64
	EMAMid   float64
	EMALong  float64

	DIF       float64
	DEA       float64
	Histogram float64 // DIF - DEA
}

// Validate reports whether the candle can be fed into a pipeline.
// A malformed candle must be rejected without advancing any state.
func (c Candle) Validate() error {
	if c.Timestamp.IsZero() {
		return fmt.Errorf("%w: zero timestamp", ErrMalformedCandle)
	}
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume, c.EMAShort, c.EMAMid, c.EMALong, c.DIF, c.DEA, c.Histogram} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite field at %s", ErrMalformedCandle, c.Timestamp.Format(time.RFC3339))
		}
	}
	if c.High < c.Low {
		return fmt.Errorf("%w: high %.8f below low %.8f", ErrMalformedCandle, c.High, c.Low)
	}
	if c.Open <= 0 || c.Close <= 0 {
		return fmt.Errorf("%w: non-positive price", ErrMalformedCandle)
	}
	return nil
}
