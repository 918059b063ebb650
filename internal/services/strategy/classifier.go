package strategy

import (
	"TrendSeg/internal/domain/models"
	domsvc "TrendSeg/internal/domain/service"
)

// Classifier advances the per-timeframe regime state machine. Classify is
// a pure function of (previous status, candle); the returned status is the
// only state carried between bars, so replaying a candle sequence yields
// an identical trajectory.
type Classifier struct {
	p Params
}

func NewClassifier(p Params) *Classifier { return &Classifier{p: p} }

// Classify evaluates one closed candle. Zero-crossing conditions outrank
// threshold conditions when both fire on the same candle; the breakthrough
// commit-vs-timeout collision follows the configured tie-break.
func (cl *Classifier) Classify(prev models.SegmentStatus, c models.Candle, pattern domsvc.PatternView) models.SegmentStatus {
	dea := c.DEA
	next := models.SegmentStatus{
		State:   prev.State,
		Counter: prev.Counter,
		PrevDEA: dea,
		Bars:    prev.Bars + 1,
	}

	if prev.State == models.SegmentUnknown {
		// First bar seeds the regime from the dea sign alone.
		if dea > 0 {
			next.State = models.SegmentUptrend
		} else {
			next.State = models.SegmentDowntrend
		}
		next.Counter = 0
		return next
	}

	switch prev.State {
	case models.SegmentDowntrend:
		if dea > 0 {
			// Confirmation count runs across consecutive dea>0 candles;
			// a single-bar cross is not trusted.
			next.Counter = prev.Counter + 1
			if next.Counter >= cl.p.MinDowntrendBars && cl.uptrendAllowed(pattern) {
				next.State = models.SegmentUptrend
				next.Counter = 0
			}
			return next
		}
		next.Counter = 0
		if cl.crossedThreshold(prev.PrevDEA, dea) {
			next.State = models.SegmentBreakthrough
		}
		return next

	case models.SegmentUptrend:
		if dea <= 0 {
			next.State = models.SegmentTransition
			next.Counter = 0
		}
		return next

	case models.SegmentTransition:
		if dea > 0 {
			// Re-cross discards the delay counter.
			next.State = models.SegmentUptrend
			next.Counter = 0
			return next
		}
		if cl.crossedThreshold(prev.PrevDEA, dea) {
			next.State = models.SegmentBreakthrough
			next.Counter = 0
			return next
		}
		next.Counter = prev.Counter + 1
		if next.Counter >= cl.p.DelayBars {
			next.State = models.SegmentDowntrend
			next.Counter = 0
		}
		return next

	case models.SegmentBreakthrough:
		elapsed := prev.Counter + 1 // bars since entry, counting this one
		if dea > 0 {
			if cl.tieBreakRevert() && elapsed >= cl.p.BelowZeroTimeout {
				// Reclaim landed on the deadline candle and the tie-break
				// is configured to let the timeout win.
				next.State = models.SegmentDowntrend
				next.Counter = 0
				return next
			}
			next.State = models.SegmentUptrend
			next.Counter = 0
			return next
		}
		next.Counter = elapsed
		if dea <= cl.p.BelowZeroThreshold || elapsed >= cl.p.BelowZeroTimeout {
			next.State = models.SegmentDowntrend
			next.Counter = 0
		}
		return next
	}

	return next
}

func (cl *Classifier) crossedThreshold(prevDEA, dea float64) bool {
	return prevDEA <= cl.p.BelowZeroThreshold && dea > cl.p.BelowZeroThreshold && dea <= 0
}

func (cl *Classifier) uptrendAllowed(pattern domsvc.PatternView) bool {
	if !cl.p.RequirePatternConfirm || pattern == nil {
		return true
	}
	return pattern.PatternState() != models.PatternExpired
}

func (cl *Classifier) tieBreakRevert() bool {
	return cl.p.BreakthroughTieBreak == TieBreakRevert
}

var _ domsvc.SegmentClassifier = (*Classifier)(nil)
