package usecase

import (
	"testing"
	"time"

	"TrendSeg/internal/domain/models"
	drepo "TrendSeg/internal/domain/repository"
)

func aggConfig() AggregatorConfig {
	return AggregatorConfig{
		Symbol:         "BTCUSDT",
		Decision:       []drepo.Timeframe{drepo.TF1h},
		Higher:         drepo.TF4h,
		LongFilter:     500,
		ShortFilter:    -500,
		Subscribed:     []drepo.Timeframe{drepo.TF1h, drepo.TF4h},
		StopLossOffset: 300,
	}
}

func snapAt(tf drepo.Timeframe, state models.SegmentState, asOf time.Time) models.TimeframeSnapshot {
	return models.TimeframeSnapshot{
		Timeframe: string(tf),
		AsOf:      asOf,
		Segment:   models.SegmentStatus{State: state, Bars: 50},
		Candle: models.Candle{
			Timestamp: asOf,
			Symbol:    "BTCUSDT",
			Open:      50000,
			High:      50500,
			Low:       49500,
			Close:     50200,
			Volume:    1,
			EMAShort:  50100,
			DIF:       120,
			DEA:       80,
			Histogram: 40,
		},
		EMACrossUp: true,
		Ready:      true,
	}
}

func TestLongVerdict(t *testing.T) {
	a := NewAggregator(aggConfig())
	asOf := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	snaps := map[drepo.Timeframe]models.TimeframeSnapshot{
		drepo.TF1h: snapAt(drepo.TF1h, models.SegmentUptrend, asOf),
		drepo.TF4h: snapAt(drepo.TF4h, models.SegmentUptrend, asOf),
	}

	v := a.Aggregate(snaps, asOf)
	if v.Side != models.SideLong {
		t.Fatalf("side = %s, want long (rationale %v)", v.Side, v.Rationale)
	}
	if v.EntryPrice != 50200 {
		t.Fatalf("entry = %.0f, want close 50200", v.EntryPrice)
	}
	if v.StopLoss != 50200-300 {
		t.Fatalf("stop = %.0f, want entry-offset", v.StopLoss)
	}
	if len(v.Rationale) == 0 {
		t.Fatalf("long verdict carries no rationale")
	}
}

func TestLongBlockedByHigherTimeframeFilter(t *testing.T) {
	a := NewAggregator(aggConfig())
	asOf := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	higher := snapAt(drepo.TF4h, models.SegmentUptrend, asOf)
	higher.Candle.DIF = 900 // overextended
	snaps := map[drepo.Timeframe]models.TimeframeSnapshot{
		drepo.TF1h: snapAt(drepo.TF1h, models.SegmentUptrend, asOf),
		drepo.TF4h: higher,
	}

	if v := a.Aggregate(snaps, asOf); v.Side != models.SideNone {
		t.Fatalf("side = %s, want none when higher dif exceeds filter", v.Side)
	}
}

func TestShortImpossibleBeforeFirstTrade(t *testing.T) {
	a := NewAggregator(aggConfig())
	asOf := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	snaps := map[drepo.Timeframe]models.TimeframeSnapshot{
		drepo.TF1h: snapAt(drepo.TF1h, models.SegmentDowntrend, asOf),
		drepo.TF4h: snapAt(drepo.TF4h, models.SegmentDowntrend, asOf),
	}

	if v := a.Aggregate(snaps, asOf); v.Side != models.SideNone {
		t.Fatalf("side = %s, want none before first trade opened", v.Side)
	}

	a.MarkFirstTrade()
	v := a.Aggregate(snaps, asOf)
	if v.Side != models.SideShort {
		t.Fatalf("side = %s, want short after latch (rationale %v)", v.Side, v.Rationale)
	}
	if v.StopLoss != 50200+300 {
		t.Fatalf("short stop = %.0f, want entry+offset", v.StopLoss)
	}
}

func TestFirstTradeLatchIsOneWay(t *testing.T) {
	a := NewAggregator(aggConfig())
	a.MarkFirstTrade()
	a.MarkFirstTrade() // idempotent
	if !a.FirstTradeOpened() {
		t.Fatalf("latch dropped back to false")
	}
}

func TestMissingTimeframeYieldsNoneWithRationale(t *testing.T) {
	a := NewAggregator(aggConfig())
	asOf := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	snaps := map[drepo.Timeframe]models.TimeframeSnapshot{
		drepo.TF1h: snapAt(drepo.TF1h, models.SegmentUptrend, asOf),
	}

	v := a.Aggregate(snaps, asOf)
	if v.Side != models.SideNone {
		t.Fatalf("side = %s, want none with a leg missing", v.Side)
	}
	if len(v.Rationale) == 0 {
		t.Fatalf("missing timeframe not explained in rationale")
	}
}

func TestStaleSnapshotNotActedUpon(t *testing.T) {
	a := NewAggregator(aggConfig())
	asOf := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	lagging := snapAt(drepo.TF4h, models.SegmentUptrend, asOf.Add(-24*time.Hour))
	snaps := map[drepo.Timeframe]models.TimeframeSnapshot{
		drepo.TF1h: snapAt(drepo.TF1h, models.SegmentUptrend, asOf),
		drepo.TF4h: lagging,
	}

	if v := a.Aggregate(snaps, asOf); v.Side != models.SideNone {
		t.Fatalf("side = %s, want none on a partial update", v.Side)
	}
}

func TestSmallestDecisionTimeframeWins(t *testing.T) {
	cfg := aggConfig()
	cfg.Decision = []drepo.Timeframe{drepo.TF1h, drepo.TF15m}
	cfg.Subscribed = []drepo.Timeframe{drepo.TF15m, drepo.TF1h, drepo.TF4h}
	a := NewAggregator(cfg)
	a.MarkFirstTrade()
	asOf := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	// 15m leg qualifies short, 1h leg qualifies long: the more granular
	// timeframe is authoritative.
	short15 := snapAt(drepo.TF15m, models.SegmentDowntrend, asOf)
	short15.EMACrossUp = false
	snaps := map[drepo.Timeframe]models.TimeframeSnapshot{
		drepo.TF15m: short15,
		drepo.TF1h:  snapAt(drepo.TF1h, models.SegmentUptrend, asOf),
		drepo.TF4h:  snapAt(drepo.TF4h, models.SegmentUptrend, asOf),
	}

	v := a.Aggregate(snaps, asOf)
	if v.Side != models.SideShort || v.Timeframe != string(drepo.TF15m) {
		t.Fatalf("verdict = %s@%s, want short@15m", v.Side, v.Timeframe)
	}
}

func TestLongPreferredOverShortOnSameTimeframe(t *testing.T) {
	a := NewAggregator(aggConfig())
	a.MarkFirstTrade()
	asOf := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	snaps := map[drepo.Timeframe]models.TimeframeSnapshot{
		drepo.TF1h: snapAt(drepo.TF1h, models.SegmentUptrend, asOf),
		drepo.TF4h: snapAt(drepo.TF4h, models.SegmentUptrend, asOf),
	}

	if v := a.Aggregate(snaps, asOf); v.Side != models.SideLong {
		t.Fatalf("side = %s, want long preferred", v.Side)
	}
}

func TestExtremeLongFiresInsideDowntrend(t *testing.T) {
	a := NewAggregator(aggConfig())
	asOf := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	down := snapAt(drepo.TF1h, models.SegmentDowntrend, asOf)
	down.EMACrossUp = false
	down.Extreme = &models.ExtremeSignal{
		Entry:    49960,
		StopLoss: 49500,
		Target1:  51000,
		Target2:  50110,
		MinDEA:   -100,
	}
	snaps := map[drepo.Timeframe]models.TimeframeSnapshot{
		drepo.TF1h: down,
		drepo.TF4h: snapAt(drepo.TF4h, models.SegmentDowntrend, asOf),
	}

	v := a.Aggregate(snaps, asOf)
	if v.Side != models.SideLong {
		t.Fatalf("side = %s, want extreme long inside downtrend (rationale %v)", v.Side, v.Rationale)
	}
	if v.EntryPrice != 49960 || v.StopLoss != 49500 {
		t.Fatalf("entry/stop = %.0f/%.0f, want the signal's 49960/49500", v.EntryPrice, v.StopLoss)
	}
	if v.Target1 != 51000 || v.Target2 != 50110 {
		t.Fatalf("targets = %.0f/%.0f, want 51000/50110", v.Target1, v.Target2)
	}
}

func TestExtremeLongBlockedByHigherFilter(t *testing.T) {
	a := NewAggregator(aggConfig())
	asOf := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	down := snapAt(drepo.TF1h, models.SegmentDowntrend, asOf)
	down.EMACrossUp = false
	down.Extreme = &models.ExtremeSignal{Entry: 49960, StopLoss: 49500}
	higher := snapAt(drepo.TF4h, models.SegmentDowntrend, asOf)
	higher.Candle.DIF = 900
	snaps := map[drepo.Timeframe]models.TimeframeSnapshot{
		drepo.TF1h: down,
		drepo.TF4h: higher,
	}

	if v := a.Aggregate(snaps, asOf); v.Side != models.SideNone {
		t.Fatalf("side = %s, want none when higher dif exceeds filter", v.Side)
	}
}

func TestVerdictCarriesTargetLevels(t *testing.T) {
	a := NewAggregator(aggConfig())
	asOf := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	long := snapAt(drepo.TF1h, models.SegmentUptrend, asOf)
	long.Candle.EMALong = 49000
	long.PrevHigh = 51500
	long.PrevLow = 48000
	snaps := map[drepo.Timeframe]models.TimeframeSnapshot{
		drepo.TF1h: long,
		drepo.TF4h: snapAt(drepo.TF4h, models.SegmentUptrend, asOf),
	}

	v := a.Aggregate(snaps, asOf)
	if v.Side != models.SideLong {
		t.Fatalf("side = %s, want long (rationale %v)", v.Side, v.Rationale)
	}
	if v.Target1 != 49000 {
		t.Fatalf("target1 = %.0f, want long ema 49000", v.Target1)
	}
	if v.Target2 != 51500 {
		t.Fatalf("target2 = %.0f, want previous high 51500", v.Target2)
	}

	a.MarkFirstTrade()
	down := snapAt(drepo.TF1h, models.SegmentDowntrend, asOf)
	down.EMACrossUp = false
	down.Candle.EMALong = 49000
	down.PrevLow = 48000
	snaps[drepo.TF1h] = down
	snaps[drepo.TF4h] = snapAt(drepo.TF4h, models.SegmentDowntrend, asOf)

	s := a.Aggregate(snaps, asOf)
	if s.Side != models.SideShort {
		t.Fatalf("side = %s, want short (rationale %v)", s.Side, s.Rationale)
	}
	if s.Target2 != 48000 {
		t.Fatalf("short target2 = %.0f, want previous low 48000", s.Target2)
	}
}

func TestJumpStopUsedWhenEventLive(t *testing.T) {
	a := NewAggregator(aggConfig())
	asOf := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	long := snapAt(drepo.TF1h, models.SegmentUptrend, asOf)
	long.Jump = &models.JumpEvent{StopLoss: 49800}
	snaps := map[drepo.Timeframe]models.TimeframeSnapshot{
		drepo.TF1h: long,
		drepo.TF4h: snapAt(drepo.TF4h, models.SegmentUptrend, asOf),
	}

	v := a.Aggregate(snaps, asOf)
	if v.Side != models.SideLong || v.StopLoss != 49800 {
		t.Fatalf("verdict %s stop %.0f, want long with jump stop 49800", v.Side, v.StopLoss)
	}
}
