package usecase

import (
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"TrendSeg/internal/domain/models"
	drepo "TrendSeg/internal/domain/repository"
)

// AggregatorConfig names the cross-timeframe policy: which timeframes may
// decide, which higher timeframe gates them, and the filter levels.
type AggregatorConfig struct {
	Symbol string
	// Decision lists the candidate decision timeframes. When several
	// qualify on the same pass, the most granular one is authoritative.
	Decision []drepo.Timeframe
	// Higher is the timeframe whose dif/dea gate entries.
	Higher drepo.Timeframe
	// LongFilter is the upper bound on the higher timeframe's dif for a
	// long entry (guards against chasing overextended momentum).
	LongFilter float64
	// ShortFilter is the lower bound on the higher timeframe's dea for a
	// short entry.
	ShortFilter float64
	// Subscribed lists every timeframe a verdict needs a snapshot from.
	Subscribed []drepo.Timeframe
	// StopLossOffset places the protective level when no jump event is
	// live on the deciding timeframe.
	StopLossOffset float64
}

// Aggregator reduces the per-timeframe snapshots into one SignalVerdict.
// It owns no mutable state beyond the first-trade latch.
type Aggregator struct {
	cfg        AggregatorConfig
	firstTrade atomic.Bool
}

func NewAggregator(cfg AggregatorConfig) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// FirstTradeOpened reports the latch. Short verdicts are impossible while
// it is false.
func (a *Aggregator) FirstTradeOpened() bool { return a.firstTrade.Load() }

// MarkFirstTrade latches the flag. One-way and idempotent: once true it
// can never be unset.
func (a *Aggregator) MarkFirstTrade() { a.firstTrade.Store(true) }

// Aggregate computes a fresh verdict from the given snapshots. The result
// replaces any previous verdict; nothing is mutated in place.
func (a *Aggregator) Aggregate(snapshots map[drepo.Timeframe]models.TimeframeSnapshot, asOf time.Time) models.SignalVerdict {
	v := models.SignalVerdict{
		Symbol: a.cfg.Symbol,
		AsOf:   asOf,
		Side:   models.SideNone,
	}

	for _, tf := range a.cfg.Subscribed {
		snap, ok := snapshots[tf]
		if !ok || !snap.Ready {
			// Never silently substitute a default for a missing leg.
			v.Rationale = append(v.Rationale, fmt.Sprintf("%s: %v", tf, models.ErrTimeframeMissing))
			return v
		}
		if stale(snap, tf, asOf) {
			v.Rationale = append(v.Rationale, fmt.Sprintf("%s: snapshot lags as-of instant", tf))
			return v
		}
	}

	higher, ok := snapshots[a.cfg.Higher]
	if !ok {
		v.Rationale = append(v.Rationale, fmt.Sprintf("%s: %v", a.cfg.Higher, models.ErrTimeframeMissing))
		return v
	}

	decision := make([]drepo.Timeframe, len(a.cfg.Decision))
	copy(decision, a.cfg.Decision)
	sort.Slice(decision, func(i, j int) bool { return decision[i].Less(decision[j]) })

	// Most granular confirmation is authoritative; within one timeframe
	// the extreme-value entry outranks the trend entry, and any long
	// outranks a short.
	for _, tf := range decision {
		snap := snapshots[tf]
		if verdict, ok := a.tryExtremeLong(snap, higher, asOf); ok {
			return verdict
		}
		if verdict, ok := a.tryLong(snap, higher, asOf); ok {
			return verdict
		}
		if verdict, ok := a.tryShort(snap, higher, asOf); ok {
			return verdict
		}
	}

	v.Rationale = append(v.Rationale, "no decision timeframe qualified")
	return v
}

// tryExtremeLong is the one long entry allowed inside a downtrend: the
// pipeline's extreme-value signal, still gated by the higher timeframe's
// long filter.
func (a *Aggregator) tryExtremeLong(snap, higher models.TimeframeSnapshot, asOf time.Time) (models.SignalVerdict, bool) {
	sig := snap.Extreme
	if sig == nil {
		return models.SignalVerdict{}, false
	}
	if higher.Candle.DIF > a.cfg.LongFilter {
		return models.SignalVerdict{}, false
	}

	return models.SignalVerdict{
		Symbol:     a.cfg.Symbol,
		AsOf:       asOf,
		Side:       models.SideLong,
		Timeframe:  snap.Timeframe,
		EntryPrice: sig.Entry,
		StopLoss:   sig.StopLoss,
		Target1:    sig.Target1,
		Target2:    sig.Target2,
		Rationale: []string{
			fmt.Sprintf("%s dea %.2f near lookback extreme %.2f", snap.Timeframe, snap.Candle.DEA, sig.MinDEA),
			fmt.Sprintf("%s shrinking-histogram bullish candle below zero", snap.Timeframe),
			fmt.Sprintf("%s dif %.2f within long filter %.2f", higher.Timeframe, higher.Candle.DIF, a.cfg.LongFilter),
		},
	}, true
}

func (a *Aggregator) tryLong(snap, higher models.TimeframeSnapshot, asOf time.Time) (models.SignalVerdict, bool) {
	seg := snap.Segment.State
	if seg != models.SegmentUptrend && seg != models.SegmentBreakthrough {
		return models.SignalVerdict{}, false
	}
	if !snap.EMACrossUp {
		return models.SignalVerdict{}, false
	}
	if higher.Candle.DIF > a.cfg.LongFilter {
		return models.SignalVerdict{}, false
	}

	v := models.SignalVerdict{
		Symbol:     a.cfg.Symbol,
		AsOf:       asOf,
		Side:       models.SideLong,
		Timeframe:  snap.Timeframe,
		EntryPrice: snap.Candle.Close,
		Target1:    snap.Candle.EMALong,
		Target2:    snap.PrevHigh,
		Rationale: []string{
			fmt.Sprintf("%s segment %s", snap.Timeframe, seg),
			fmt.Sprintf("%s close crossed above short ema", snap.Timeframe),
			fmt.Sprintf("%s dif %.2f within long filter %.2f", higher.Timeframe, higher.Candle.DIF, a.cfg.LongFilter),
		},
	}
	if snap.Jump != nil {
		v.StopLoss = snap.Jump.StopLoss
		v.Rationale = append(v.Rationale, fmt.Sprintf("%s trailing stop from jump event", snap.Timeframe))
	} else {
		v.StopLoss = snap.Candle.Close - a.cfg.StopLossOffset
	}
	return v, true
}

func (a *Aggregator) tryShort(snap, higher models.TimeframeSnapshot, asOf time.Time) (models.SignalVerdict, bool) {
	if !a.firstTrade.Load() {
		return models.SignalVerdict{}, false
	}
	if snap.Segment.State != models.SegmentDowntrend {
		return models.SignalVerdict{}, false
	}
	if higher.Candle.DEA < a.cfg.ShortFilter {
		return models.SignalVerdict{}, false
	}

	return models.SignalVerdict{
		Symbol:     a.cfg.Symbol,
		AsOf:       asOf,
		Side:       models.SideShort,
		Timeframe:  snap.Timeframe,
		EntryPrice: snap.Candle.Close,
		StopLoss:   snap.Candle.Close + a.cfg.StopLossOffset,
		Target1:    snap.Candle.EMALong,
		Target2:    snap.PrevLow,
		Rationale: []string{
			fmt.Sprintf("%s segment downtrend", snap.Timeframe),
			"first trade already opened",
			fmt.Sprintf("%s dea %.2f above short filter %.2f", higher.Timeframe, higher.Candle.DEA, a.cfg.ShortFilter),
		},
	}, true
}

// stale reports whether a snapshot lags the as-of instant by more than two
// full bars of its timeframe; partial updates are not acted upon.
func stale(snap models.TimeframeSnapshot, tf drepo.Timeframe, asOf time.Time) bool {
	if snap.AsOf.IsZero() {
		return true
	}
	return asOf.Sub(snap.AsOf) > 2*tf.Duration()
}
