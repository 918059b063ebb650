package usecase

import (
	"fmt"
	"time"

	"TrendSeg/internal/domain/models"
	drepo "TrendSeg/internal/domain/repository"
	domsvc "TrendSeg/internal/domain/service"
	"TrendSeg/internal/services/strategy"
)

// maxWindow bounds the rolling candle window a pipeline keeps for the
// jump detector's pullback scan.
const maxWindow = 64

// TimeframePipeline owns one timeframe's regime state: classifier status,
// pattern status, live jump event and the rolling candle window. It is
// strictly sequential; distinct timeframes run as independent pipelines
// with no shared mutable state.
type TimeframePipeline struct {
	tf     drepo.Timeframe
	symbol string
	params strategy.Params

	classifier domsvc.SegmentClassifier
	pattern    domsvc.PatternAdvancer
	jump       domsvc.JumpDetector
	extreme    domsvc.ExtremeDetector

	window []models.Candle
	seg    models.SegmentStatus
	pat    models.PatternStatus
	event  *models.JumpEvent
	extSig *models.ExtremeSignal
	lastTS time.Time

	metrics drepo.Metrics
}

// NewTimeframePipeline builds a pipeline for one timeframe.
func NewTimeframePipeline(tf drepo.Timeframe, symbol string, p strategy.Params, metrics drepo.Metrics) *TimeframePipeline {
	return &TimeframePipeline{
		tf:         tf,
		symbol:     symbol,
		params:     p,
		classifier: strategy.NewClassifier(p),
		pattern:    strategy.NewPattern(p),
		jump:       strategy.NewJump(p, tf.Duration()),
		extreme:    strategy.NewExtreme(p),
		metrics:    metrics,
	}
}

// patternView exposes the pattern state as the read-only capability the
// classifier queries.
type patternView struct{ s models.PatternState }

func (v patternView) PatternState() models.PatternState { return v.s }

// Apply folds one closed candle into the pipeline and returns the fresh
// snapshot. Malformed, duplicate and out-of-order candles are rejected
// without advancing any state.
func (p *TimeframePipeline) Apply(c models.Candle) (models.TimeframeSnapshot, error) {
	if err := c.Validate(); err != nil {
		p.reject("malformed")
		return p.Snapshot(), err
	}
	if !p.lastTS.IsZero() {
		if c.Timestamp.Equal(p.lastTS) {
			p.reject("duplicate")
			return p.Snapshot(), fmt.Errorf("%w: %s at %s", models.ErrDuplicateCandle, p.tf, c.Timestamp.Format(time.RFC3339))
		}
		if c.Timestamp.Before(p.lastTS) {
			p.reject("out_of_order")
			return p.Snapshot(), fmt.Errorf("%w: %s %s before %s", models.ErrOutOfOrderCandle, p.tf, c.Timestamp.Format(time.RFC3339), p.lastTS.Format(time.RFC3339))
		}
	}

	var prev *models.Candle
	if len(p.window) > 0 {
		prev = &p.window[len(p.window)-1]
	}

	p.lastTS = c.Timestamp
	p.window = append(p.window, c)
	if len(p.window) > maxWindow {
		p.window = p.window[1:]
	}

	p.pat = p.pattern.Advance(p.pat, c.Histogram)
	p.seg = p.classifier.Classify(p.seg, c, patternView{p.pat.State})
	p.event, _ = p.jump.Detect(p.seg.State, p.window, p.event)
	p.extSig = p.extreme.Detect(p.window)

	if p.metrics != nil {
		p.metrics.RecordCandle(string(p.tf), p.symbol)
		p.metrics.RecordSegmentState(string(p.tf), p.symbol, int(p.seg.State))
	}

	snap := p.Snapshot()
	snap.EMACrossUp = prev != nil && prev.Close <= prev.EMAShort && c.Close > c.EMAShort
	return snap, nil
}

// Snapshot returns the pipeline's current published state. Until the
// pipeline has seen MinHistory candles it reports unknown/idle and no
// jump event, so no signal can be derived from thin history.
func (p *TimeframePipeline) Snapshot() models.TimeframeSnapshot {
	snap := models.TimeframeSnapshot{
		Timeframe: string(p.tf),
		AsOf:      p.lastTS,
		Ready:     p.seg.Bars >= p.params.MinHistory,
	}
	if len(p.window) > 0 {
		snap.Candle = p.window[len(p.window)-1]
	}
	if !snap.Ready {
		return snap
	}
	snap.Segment = p.seg
	snap.Pattern = p.pat
	if p.event != nil {
		ev := *p.event
		snap.Jump = &ev
	}
	if p.extSig != nil {
		sig := *p.extSig
		snap.Extreme = &sig
	}
	snap.PrevHigh, snap.PrevLow = p.lookbackRange()
	return snap
}

// lookbackRange returns the high/low extremes over the detector lookback,
// used as second take-profit levels.
func (p *TimeframePipeline) lookbackRange() (float64, float64) {
	if len(p.window) == 0 {
		return 0, 0
	}
	look := p.window
	if len(look) > p.params.ExtremeLookback {
		look = look[len(look)-p.params.ExtremeLookback:]
	}
	high, low := look[0].High, look[0].Low
	for _, c := range look[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low
}

// Timeframe returns the timeframe this pipeline serves.
func (p *TimeframePipeline) Timeframe() drepo.Timeframe { return p.tf }

func (p *TimeframePipeline) reject(kind string) {
	if p.metrics != nil {
		p.metrics.RecordReject(string(p.tf), kind)
	}
}
