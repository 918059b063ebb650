package models

import "time"

// JumpEvent is a live pullback-then-gap continuation pattern inside an
// uptrend segment. It exists only while the segment stays in uptrend; the
// trailing stop only ever moves up.
type JumpEvent struct {
	Symbol    string
	OpenedAt  time.Time
	UpdatedAt time.Time

	// PullbackStart is the index (within the detection window) of the bar
	// where the histogram pullback began.
	PullbackStart int
	// GapOpen is the open price of the bar whose gap triggered the event.
	GapOpen float64
	// GapReferenceOpen is the prior bar's open, the anchor the initial
	// stop is offset from.
	GapReferenceOpen float64
	// StopLoss is the trailing protective level. Monotone non-decreasing.
	StopLoss float64
	// ZeroAxis marks the near-zero-dea variant that needs no prior pullback.
	ZeroAxis bool
	// Gaps counts qualifying gaps absorbed, including the opening one.
	Gaps int
}

// Raise tightens the trailing stop upward. Lower levels are ignored.
func (j *JumpEvent) Raise(level float64, at time.Time) {
	if level <= j.StopLoss {
		return
	}
	j.StopLoss = level
	j.UpdatedAt = at
	j.Gaps++
}
