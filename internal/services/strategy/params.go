package strategy

import (
	"fmt"

	"TrendSeg/internal/domain/models"
)

// TieBreak selects the winner when a breakthrough zero-cross commit and a
// timeout reversion land on the same candle. The original rule book leaves
// this case open, so it is configurable.
type TieBreak string

const (
	// TieBreakZeroCross lets a full reclaim of zero outrank the timeout.
	TieBreakZeroCross TieBreak = "zero-cross"
	// TieBreakRevert checks the timeout first.
	TieBreakRevert TieBreak = "revert"
)

// Params is the strategy parameter set for one variant. All fields are
// read-only after validation; pipelines share one Params value.
type Params struct {
	// MinDowntrendBars is the number of consecutive dea>0 candles needed
	// before a downtrend-to-uptrend cross is trusted.
	MinDowntrendBars int
	// DelayBars is the fixed duration of the transition holding state.
	DelayBars int
	// BelowZeroThreshold is the negative dea level whose upward crossing
	// starts a breakthrough attempt. Must be strictly negative.
	BelowZeroThreshold float64
	// BelowZeroTimeout is the number of candles a breakthrough attempt may
	// spend below zero before reverting to downtrend.
	BelowZeroTimeout int
	// StopLossOffset is subtracted from the gap reference open to place
	// the trailing stop.
	StopLossOffset float64
	// ZeroAxisThreshold is the |dea| band in which a shrinking negative
	// histogram counts as an entry setup without a prior pullback.
	ZeroAxisThreshold float64
	// GapMargin is the minimum open-to-open jump that counts as a gap.
	GapMargin float64

	PatternConfirmBars int
	PatternMaxAge      int
	// RequirePatternConfirm refuses an uptrend commit while the pattern
	// sub-machine reports expired.
	RequirePatternConfirm bool

	BreakthroughTieBreak TieBreak
	// MinHistory is the number of candles a pipeline must see before it
	// reports anything other than unknown/idle.
	MinHistory int

	// ExtremeLookback is the window over which the dea extreme and the
	// previous high/low targets are measured.
	ExtremeLookback int
	// ExtremeDEARatio is how close to the lookback minimum the dea must be
	// for an extreme-value entry (dea <= minDEA * ratio, minDEA negative).
	ExtremeDEARatio float64
	// ExtremeRangeStopMult places the extreme-entry stop below the
	// triggering candle's open by this multiple of its range.
	ExtremeRangeStopMult float64
}

// DefaultParams returns the documented strategy defaults.
func DefaultParams() Params {
	return Params{
		MinDowntrendBars:     2,
		DelayBars:            25,
		BelowZeroThreshold:   -60,
		BelowZeroTimeout:     8,
		StopLossOffset:       300,
		ZeroAxisThreshold:    300,
		GapMargin:            50,
		PatternConfirmBars:   3,
		PatternMaxAge:        12,
		BreakthroughTieBreak: TieBreakZeroCross,
		MinHistory:           5,
		ExtremeLookback:      50,
		ExtremeDEARatio:      0.9,
		ExtremeRangeStopMult: 2,
	}
}

// Validate fails fast on threshold-ordering violations. Called once at
// startup, before any candle is processed.
func (p Params) Validate() error {
	if p.MinDowntrendBars < 1 {
		return fmt.Errorf("%w: min_downtrend_bars must be >= 1, got %d", models.ErrInvalidConfig, p.MinDowntrendBars)
	}
	if p.DelayBars < 1 {
		return fmt.Errorf("%w: delay_bars must be >= 1, got %d", models.ErrInvalidConfig, p.DelayBars)
	}
	if p.BelowZeroThreshold >= 0 {
		return fmt.Errorf("%w: below_zero_threshold must be negative, got %g", models.ErrInvalidConfig, p.BelowZeroThreshold)
	}
	if p.BelowZeroTimeout < 1 {
		return fmt.Errorf("%w: below_zero_timeout must be >= 1, got %d", models.ErrInvalidConfig, p.BelowZeroTimeout)
	}
	if p.StopLossOffset < 0 {
		return fmt.Errorf("%w: stop_loss_offset must not be negative, got %g", models.ErrInvalidConfig, p.StopLossOffset)
	}
	if p.ZeroAxisThreshold <= 0 {
		return fmt.Errorf("%w: zero_axis_threshold must be positive, got %g", models.ErrInvalidConfig, p.ZeroAxisThreshold)
	}
	if p.GapMargin <= 0 {
		return fmt.Errorf("%w: gap_margin must be positive, got %g", models.ErrInvalidConfig, p.GapMargin)
	}
	if p.PatternConfirmBars < 1 || p.PatternMaxAge < p.PatternConfirmBars {
		return fmt.Errorf("%w: pattern confirm bars %d must fit in max age %d", models.ErrInvalidConfig, p.PatternConfirmBars, p.PatternMaxAge)
	}
	switch p.BreakthroughTieBreak {
	case "", TieBreakZeroCross, TieBreakRevert:
	default:
		return fmt.Errorf("%w: unknown tie-break %q", models.ErrInvalidConfig, p.BreakthroughTieBreak)
	}
	if p.MinHistory < 2 {
		return fmt.Errorf("%w: min_history must be >= 2, got %d", models.ErrInvalidConfig, p.MinHistory)
	}
	if p.ExtremeLookback < 2 {
		return fmt.Errorf("%w: extreme_lookback must be >= 2, got %d", models.ErrInvalidConfig, p.ExtremeLookback)
	}
	if p.ExtremeDEARatio <= 0 || p.ExtremeDEARatio >= 1 {
		return fmt.Errorf("%w: extreme_dea_ratio must be in (0, 1), got %g", models.ErrInvalidConfig, p.ExtremeDEARatio)
	}
	if p.ExtremeRangeStopMult <= 0 {
		return fmt.Errorf("%w: extreme_range_stop_mult must be positive, got %g", models.ErrInvalidConfig, p.ExtremeRangeStopMult)
	}
	return nil
}
