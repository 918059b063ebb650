package service

import "TrendSeg/internal/domain/models"

// PatternView is the read-only corroboration capability the classifier and
// jump detector may query. The pattern sub-machine is never mutated by its
// consumers.
type PatternView interface {
	PatternState() models.PatternState
}

// SegmentClassifier advances one timeframe's regime state machine by one
// closed candle. Implementations must be pure in (prev, candle) and keep
// no hidden state.
type SegmentClassifier interface {
	Classify(prev models.SegmentStatus, c models.Candle, pattern PatternView) models.SegmentStatus
}

// JumpDetector watches the histogram for pullback-then-gap continuation
// events while the segment is in uptrend and maintains the trailing stop.
type JumpDetector interface {
	Detect(seg models.SegmentState, window []models.Candle, prev *models.JumpEvent) (*models.JumpEvent, bool)
}

// PatternAdvancer advances the yin-yang crown sub-machine by one histogram
// value.
type PatternAdvancer interface {
	Advance(prev models.PatternStatus, histogram float64) models.PatternStatus
}

// ExtremeDetector checks the latest candle of a window for an
// extreme-value entry: dea near its lookback minimum with a
// shrinking-histogram bullish candle below zero. Nil when no setup exists.
type ExtremeDetector interface {
	Detect(window []models.Candle) *models.ExtremeSignal
}
