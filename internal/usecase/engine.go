package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"TrendSeg/internal/domain/models"
	drepo "TrendSeg/internal/domain/repository"
	"TrendSeg/internal/services/strategy"
	applogger "TrendSeg/pkg/logger"
)

// Engine fans closed candles out to per-timeframe pipelines and reduces
// their snapshots into verdicts. Each pipeline runs as its own sequential
// worker; the aggregator is the only synchronization point, and an
// in-flight aggregation pass is abandoned when a newer as-of supersedes it.
type Engine struct {
	symbol  string
	agg     *Aggregator
	proc    *VerdictProcessor
	metrics drepo.Metrics
	log     *applogger.Logger

	workers map[drepo.Timeframe]*pipeWorker
	wg      sync.WaitGroup

	mu    sync.Mutex
	snaps map[drepo.Timeframe]models.TimeframeSnapshot

	gen    atomic.Int64
	latest atomic.Pointer[models.SignalVerdict]
}

type pipeWorker struct {
	pipe *TimeframePipeline
	ch   chan models.Candle
}

// NewEngine builds pipelines for every subscribed timeframe.
func NewEngine(symbol string, params strategy.Params, agg *Aggregator, proc *VerdictProcessor, metrics drepo.Metrics, log *applogger.Logger) *Engine {
	e := &Engine{
		symbol:  symbol,
		agg:     agg,
		proc:    proc,
		metrics: metrics,
		log:     log,
		workers: make(map[drepo.Timeframe]*pipeWorker),
		snaps:   make(map[drepo.Timeframe]models.TimeframeSnapshot),
	}
	for _, tf := range agg.cfg.Subscribed {
		e.workers[tf] = &pipeWorker{
			pipe: NewTimeframePipeline(tf, symbol, params, metrics),
			ch:   make(chan models.Candle, 256),
		}
	}
	return e
}

// Start launches one worker goroutine per timeframe.
func (e *Engine) Start(ctx context.Context) {
	for tf, w := range e.workers {
		e.wg.Add(1)
		go e.run(ctx, tf, w)
	}
}

func (e *Engine) run(ctx context.Context, tf drepo.Timeframe, w *pipeWorker) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-w.ch:
			if !ok {
				return
			}
			snap, err := w.pipe.Apply(c)
			if err != nil {
				e.log.Warn("candle rejected",
					applogger.String("tf", string(tf)),
					applogger.Error(err))
				continue
			}
			e.onSnapshot(ctx, tf, snap)
		}
	}
}

// Submit routes a closed candle to its timeframe's pipeline.
func (e *Engine) Submit(ctx context.Context, sc drepo.StreamCandle) error {
	w, ok := e.workers[sc.Timeframe]
	if !ok {
		return fmt.Errorf("%w: %s not subscribed", models.ErrTimeframeMissing, sc.Timeframe)
	}
	select {
	case w.ch <- sc.Candle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// onSnapshot records the timeframe's new state and runs an aggregation
// pass. A pass whose generation is no longer current is discarded rather
// than emitted; the pipeline state itself is never rolled back.
func (e *Engine) onSnapshot(ctx context.Context, tf drepo.Timeframe, snap models.TimeframeSnapshot) {
	e.mu.Lock()
	e.snaps[tf] = snap
	view := make(map[drepo.Timeframe]models.TimeframeSnapshot, len(e.snaps))
	for k, v := range e.snaps {
		view[k] = v
	}
	e.mu.Unlock()

	gen := e.gen.Add(1)
	asOf := snap.AsOf
	verdict := e.agg.Aggregate(view, asOf)
	if e.gen.Load() != gen {
		return // superseded by a newer as-of
	}

	if verdict.Side == models.SideLong {
		e.agg.MarkFirstTrade()
	}
	e.latest.Store(&verdict)

	if e.proc != nil {
		if err := e.proc.Process(ctx, &verdict); err != nil {
			e.log.Warn("verdict sink error", applogger.Error(err))
		}
	}
	if verdict.Side != models.SideNone {
		e.log.Info("signal verdict",
			applogger.String("side", string(verdict.Side)),
			applogger.String("tf", verdict.Timeframe),
			applogger.Float64("entry", verdict.EntryPrice),
			applogger.Float64("stop", verdict.StopLoss))
	}
}

// Latest returns the most recent verdict, or nil before the first pass.
func (e *Engine) Latest() *models.SignalVerdict { return e.latest.Load() }

// Snapshots returns a copy of the current per-timeframe states for the API.
func (e *Engine) Snapshots() map[drepo.Timeframe]models.TimeframeSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[drepo.Timeframe]models.TimeframeSnapshot, len(e.snaps))
	for k, v := range e.snaps {
		out[k] = v
	}
	return out
}

// FirstTradeOpened reports the aggregator latch, for the API.
func (e *Engine) FirstTradeOpened() bool { return e.agg.FirstTradeOpened() }

// Stop closes all worker channels and waits for drain.
func (e *Engine) Stop() {
	for _, w := range e.workers {
		close(w.ch)
	}
	e.wg.Wait()
}
