package models

// SegmentState is the momentum regime of one timeframe. Exactly one state
// is active per timeframe; it changes only on candle-close events.
type SegmentState int

const (
	SegmentUnknown SegmentState = iota
	SegmentUptrend
	SegmentTransition
	SegmentBreakthrough
	SegmentDowntrend
)

func (s SegmentState) String() string {
	switch s {
	case SegmentUptrend:
		return "uptrend"
	case SegmentTransition:
		return "transition"
	case SegmentBreakthrough:
		return "breakthrough"
	case SegmentDowntrend:
		return "downtrend"
	default:
		return "unknown"
	}
}

// SegmentStatus is the full classifier value for one timeframe: the state
// plus the confirmation counter scoped to it. The counter is meaningless
// outside the state it was created for; every state switch resets it.
type SegmentStatus struct {
	State SegmentState
	// Counter counts bars elapsed since the event that the current state
	// is waiting on (dea>0 confirmation, transition delay, breakthrough
	// timeout). Incremented once per closed candle.
	Counter int
	// PrevDEA is the dea of the last applied candle, needed to detect
	// zero crossings on the next bar.
	PrevDEA float64
	// Bars is the number of candles applied so far.
	Bars int
}
