package strategy

import (
	"time"

	"TrendSeg/internal/domain/models"
	domsvc "TrendSeg/internal/domain/service"
)

// Jump detects pullback-then-gap continuation events on the histogram
// while the segment is in uptrend, and trails the protective stop behind
// each new qualifying gap. One detector serves one timeframe.
type Jump struct {
	p        Params
	interval time.Duration
}

func NewJump(p Params, interval time.Duration) *Jump {
	return &Jump{p: p, interval: interval}
}

// Detect evaluates the newest candle of window against the in-flight
// event. It returns the event to carry forward and whether an event is
// live. Outside uptrend any in-flight event is discarded.
func (j *Jump) Detect(seg models.SegmentState, window []models.Candle, prev *models.JumpEvent) (*models.JumpEvent, bool) {
	if seg != models.SegmentUptrend || len(window) < 2 {
		return nil, false
	}

	n := len(window)
	cur, ref := window[n-1], window[n-2]

	if prev != nil {
		// Stop breach closes the tracked event.
		if cur.Close < prev.StopLoss {
			return nil, false
		}
		if j.qualifyingGap(ref, cur) {
			prev.Raise(ref.Open-j.p.StopLossOffset, cur.Timestamp)
		}
		return prev, true
	}

	if j.qualifyingGap(ref, cur) && cur.Histogram > ref.Histogram {
		if start, ok := j.pullbackStart(window); ok {
			return &models.JumpEvent{
				Symbol:           cur.Symbol,
				OpenedAt:         cur.Timestamp,
				UpdatedAt:        cur.Timestamp,
				PullbackStart:    start,
				GapOpen:          cur.Open,
				GapReferenceOpen: ref.Open,
				StopLoss:         ref.Open - j.p.StopLossOffset,
				Gaps:             1,
			}, true
		}
	}

	// Zero-axis variant: with dea hugging the zero axis, a shrinking
	// negative histogram is itself the setup; no prior pullback needed.
	if j.nearZeroAxis(cur.DEA) && cur.Histogram < 0 && ref.Histogram < 0 && cur.Histogram > ref.Histogram {
		return &models.JumpEvent{
			Symbol:           cur.Symbol,
			OpenedAt:         cur.Timestamp,
			UpdatedAt:        cur.Timestamp,
			PullbackStart:    n - 1,
			GapOpen:          cur.Open,
			GapReferenceOpen: ref.Open,
			StopLoss:         ref.Open - j.p.StopLossOffset,
			ZeroAxis:         true,
			Gaps:             0,
		}, true
	}

	return nil, false
}

// qualifyingGap requires the open-to-open jump to clear the margin on
// directly consecutive bars. A jump across an exchange-downtime hole in
// the series is not a pattern signal.
func (j *Jump) qualifyingGap(ref, cur models.Candle) bool {
	if j.interval > 0 && cur.Timestamp.Sub(ref.Timestamp) != j.interval {
		return false
	}
	return cur.Open-ref.Open > j.p.GapMargin
}

// pullbackStart walks back from the bar before the gap through the run of
// decreasing positive histogram values. At least one decreasing bar must
// precede the gap.
func (j *Jump) pullbackStart(window []models.Candle) (int, bool) {
	n := len(window)
	i := n - 2
	for i > 0 && window[i].Histogram > 0 && window[i].Histogram < window[i-1].Histogram {
		i--
	}
	if i == n-2 {
		return 0, false
	}
	return i + 1, true
}

func (j *Jump) nearZeroAxis(dea float64) bool {
	return abs(dea) <= j.p.ZeroAxisThreshold
}

var _ domsvc.JumpDetector = (*Jump)(nil)
