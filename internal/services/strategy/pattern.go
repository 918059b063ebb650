package strategy

import (
	"TrendSeg/internal/domain/models"
	domsvc "TrendSeg/internal/domain/service"
)

// Pattern is the yin-yang crown sub-machine: it watches the histogram for
// a shrinking run that flips sign, and grades the flip into a confirmed
// turning point or an expiry. Consumers only read the resulting state.
type Pattern struct {
	p Params
}

func NewPattern(p Params) *Pattern { return &Pattern{p: p} }

// Advance folds one histogram value into the sub-machine.
func (pt *Pattern) Advance(prev models.PatternStatus, hist float64) models.PatternStatus {
	next := prev
	next.LastHistogram = hist

	if !prev.Seen {
		next.Seen = true
		next.State = models.PatternIdle
		return next
	}

	switch prev.State {
	case models.PatternIdle, models.PatternExpired:
		// Expired re-arms as idle on the next bar.
		next.State = models.PatternIdle
		next.Shrinking = shrank(prev.LastHistogram, hist)
		if prev.Shrinking && flipped(prev.LastHistogram, hist) {
			next.State = models.PatternForming
			next.Sign = sign(hist)
			next.RunLength = 1
			next.Age = 1
			next.Shrinking = false
		}
		return next

	case models.PatternForming:
		next.Age = prev.Age + 1
		if sign(hist) != prev.Sign {
			next.State = models.PatternExpired
			return next
		}
		next.RunLength = prev.RunLength + 1
		if next.RunLength >= pt.p.PatternConfirmBars {
			next.State = models.PatternConfirmed
		}
		if next.Age > pt.p.PatternMaxAge {
			next.State = models.PatternExpired
		}
		return next

	case models.PatternConfirmed:
		next.Age = prev.Age + 1
		if next.Age > pt.p.PatternMaxAge {
			next.State = models.PatternExpired
			return next
		}
		if sign(hist) != prev.Sign {
			// Run broke after confirmation: machine disarms and waits for
			// the next shrinking run.
			next.State = models.PatternIdle
			next.RunLength = 0
			next.Age = 0
			next.Shrinking = false
		}
		return next
	}

	return next
}

func sign(v float64) int {
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return 0
}

// shrank reports a contraction of the histogram magnitude without a sign
// change.
func shrank(prev, cur float64) bool {
	if sign(prev) != sign(cur) || sign(prev) == 0 {
		return false
	}
	return abs(cur) < abs(prev)
}

// flipped reports a sign change between consecutive histogram values.
func flipped(prev, cur float64) bool {
	return sign(prev) != 0 && sign(cur) != 0 && sign(prev) != sign(cur)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

var _ domsvc.PatternAdvancer = (*Pattern)(nil)
