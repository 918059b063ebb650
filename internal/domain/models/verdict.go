package models

import "time"

// Side is the direction of a signal verdict.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
	SideNone  Side = "none"
)

// SignalVerdict is the aggregator output for one as-of instant. A verdict
// is recomputed fresh on every aggregation pass and replaces the previous
// one; it is never mutated in place.
type SignalVerdict struct {
	Symbol     string    `json:"symbol"`
	AsOf       time.Time `json:"as_of"`
	Side       Side      `json:"side"`
	Timeframe  string    `json:"timeframe,omitempty"`
	EntryPrice float64   `json:"entry_price,omitempty"`
	StopLoss   float64   `json:"stop_loss,omitempty"`
	// Target1 is the first take-profit level (the long EMA); Target2 the
	// second (the previous extreme over the lookback window).
	Target1 float64 `json:"target1,omitempty"`
	Target2 float64 `json:"target2,omitempty"`
	// Rationale lists the satisfied (or blocking) conditions in the order
	// they were evaluated.
	Rationale []string `json:"rationale"`
}

// TimeframeSnapshot is what one timeframe pipeline publishes to the
// aggregator after each closed candle: regime, pattern, live jump event
// and the candle the snapshot was taken from. Read-only to the aggregator.
type TimeframeSnapshot struct {
	Timeframe string
	AsOf      time.Time
	Segment   SegmentStatus
	Pattern   PatternStatus
	Jump      *JumpEvent
	Extreme   *ExtremeSignal
	Candle    Candle
	// PrevHigh and PrevLow are the extremes of the lookback window, used
	// as second take-profit levels.
	PrevHigh float64
	PrevLow  float64
	// EMACrossUp is set when the close crossed above the short EMA on
	// this candle.
	EMACrossUp bool
	Ready      bool // false until MinHistory candles were applied
}
