package usecase

import (
	"context"
	"fmt"

	"TrendSeg/internal/domain/models"
	drepo "TrendSeg/internal/domain/repository"
	"TrendSeg/internal/services/strategy"
)

// ReplayUseCase re-runs stored candle history through fresh pipelines.
// Replay state is built from scratch per run, so it never touches the live
// engine, and replaying the same range twice yields identical trajectories.
type ReplayUseCase struct {
	store  drepo.CandleStore
	params strategy.Params
	aggCfg AggregatorConfig
}

func NewReplayUseCase(store drepo.CandleStore, params strategy.Params, aggCfg AggregatorConfig) *ReplayUseCase {
	return &ReplayUseCase{store: store, params: params, aggCfg: aggCfg}
}

type ReplayParams struct {
	Symbol    string
	Timeframe drepo.Timeframe
	N         int
}

type ReplayResult struct {
	Symbol    string
	Timeframe string
	Candles   int
	Rejected  int
	// States is the segment state after each accepted candle.
	States []string
	// Verdicts lists the non-none verdicts produced along the way.
	Verdicts []models.SignalVerdict
	Final    models.TimeframeSnapshot
}

// Replay runs a single-timeframe replay: the decision and higher legs are
// both served by the replayed timeframe, which answers "what would the
// classifier have said bar by bar".
func (uc *ReplayUseCase) Replay(ctx context.Context, p ReplayParams) (*ReplayResult, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if p.N <= 0 {
		p.N = 2000
	}

	candles, err := uc.store.GetLatestNCandles(ctx, p.Symbol, p.N, p.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("replay load: %w", err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("replay %s %s: %w", p.Symbol, p.Timeframe, models.ErrInsufficientHistory)
	}

	pipe := NewTimeframePipeline(p.Timeframe, p.Symbol, uc.params, nil)
	cfg := uc.aggCfg
	cfg.Symbol = p.Symbol
	cfg.Decision = []drepo.Timeframe{p.Timeframe}
	cfg.Higher = p.Timeframe
	cfg.Subscribed = []drepo.Timeframe{p.Timeframe}
	agg := NewAggregator(cfg)

	res := &ReplayResult{Symbol: p.Symbol, Timeframe: string(p.Timeframe)}
	for _, c := range candles {
		snap, err := pipe.Apply(c)
		if err != nil {
			res.Rejected++
			continue
		}
		res.Candles++
		res.States = append(res.States, snap.Segment.State.String())

		v := agg.Aggregate(map[drepo.Timeframe]models.TimeframeSnapshot{p.Timeframe: snap}, snap.AsOf)
		if v.Side == models.SideLong {
			agg.MarkFirstTrade()
		}
		if v.Side != models.SideNone {
			res.Verdicts = append(res.Verdicts, v)
		}
	}
	res.Final = pipe.Snapshot()
	return res, nil
}
