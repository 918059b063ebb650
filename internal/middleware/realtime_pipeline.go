package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	drepo "TrendSeg/internal/domain/repository"
)

// CandleSink is the minimal downstream interface the pipeline needs.
type CandleSink interface {
	Submit(ctx context.Context, sc drepo.StreamCandle) error
}

// RealtimePipeline is a middleware between the candle stream and the
// engine. It validates frames, drops stale repeats per timeframe, and
// buffers when downstream is unavailable.
type RealtimePipeline struct {
	sink    CandleSink
	metrics drepo.Metrics
	bufSize int
	bufCh   chan drepo.StreamCandle
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
	// per-timeframe last accepted close time
	lastSeen map[drepo.Timeframe]time.Time
	// optional frame transform hook
	transform func(drepo.StreamCandle) drepo.StreamCandle
}

type PipelineOption func(*RealtimePipeline)

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *RealtimePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTransform sets a transformation hook to normalize frame format.
func WithTransform(fn func(drepo.StreamCandle) drepo.StreamCandle) PipelineOption {
	return func(p *RealtimePipeline) { p.transform = fn }
}

// NewRealtimePipeline creates a new pipeline.
func NewRealtimePipeline(sink CandleSink, metrics drepo.Metrics, opts ...PipelineOption) *RealtimePipeline {
	p := &RealtimePipeline{
		sink:     sink,
		metrics:  metrics,
		bufSize:  1000,
		bufCh:    make(chan drepo.StreamCandle, 1000),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[drepo.Timeframe]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan drepo.StreamCandle, p.bufSize)
	}
	return p
}

// Start launches background flushing of buffered candles.
func (p *RealtimePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case sc := <-p.bufCh:
				if err := p.sink.Submit(ctx, sc); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- sc:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *RealtimePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates and forwards a candle downstream, buffering on errors.
// Frames not newer than the last accepted close of their timeframe are
// dropped here so duplicate broker deliveries never reach the engine.
func (p *RealtimePipeline) Process(ctx context.Context, sc drepo.StreamCandle) error {
	start := time.Now()
	if err := validateFrame(sc); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.transform != nil {
		sc = p.transform(sc)
		if err := validateFrame(sc); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return err
		}
	}
	if !p.fresh(sc) {
		p.metrics.RecordReject(string(sc.Timeframe), "stale_frame")
		return nil
	}

	if err := p.sink.Submit(ctx, sc); err != nil {
		p.metrics.RecordError("pipeline_process")
		// buffer non-blocking
		select {
		case p.bufCh <- sc:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateFrame(sc drepo.StreamCandle) error {
	if !drepo.IsValidTimeframe(sc.Timeframe) {
		return fmt.Errorf("unknown timeframe %q", sc.Timeframe)
	}
	return sc.Candle.Validate()
}

func (p *RealtimePipeline) fresh(sc drepo.StreamCandle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[sc.Timeframe]
	if !sc.Candle.Timestamp.After(last) {
		return false
	}
	p.lastSeen[sc.Timeframe] = sc.Candle.Timestamp
	return true
}
