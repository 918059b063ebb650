package models

// ExtremeSignal marks an extreme-value entry setup on one timeframe: the
// dea sits near the deepest value of its lookback range while a bullish
// candle prints with a shrinking histogram. It is the one long entry that
// fires inside a downtrend segment.
type ExtremeSignal struct {
	// Entry is the close of the triggering candle.
	Entry float64
	// StopLoss sits below the triggering candle's open by a multiple of
	// its range.
	StopLoss float64
	// Target1 is the long EMA reclaim level.
	Target1 float64
	// Target2 is the previous high over the lookback window.
	Target2 float64
	// MinDEA is the lookback extreme the dea was measured against.
	MinDEA float64
}
