package usecase

import (
	"context"

	drepo "TrendSeg/internal/domain/repository"
	mid "TrendSeg/internal/middleware"
)

// CandleCollector pulls closed candles off the stream and feeds the engine.
type CandleCollector struct {
	stream  drepo.CandleStream
	engine  *Engine
	metrics drepo.Metrics
	pipe    *mid.RealtimePipeline
}

// NewCandleCollector creates a new CandleCollector instance.
func NewCandleCollector(stream drepo.CandleStream, engine *Engine, metrics drepo.Metrics, pipe *mid.RealtimePipeline) *CandleCollector {
	return &CandleCollector{stream: stream, engine: engine, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the candle stream is connected.
func (c *CandleCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *CandleCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	scCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, scCh, errCh)
	return nil
}

func (c *CandleCollector) consume(ctx context.Context, scCh <-chan drepo.StreamCandle, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case sc, ok := <-scCh:
			if !ok {
				return
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, sc)
			} else {
				_ = c.engine.Submit(ctx, sc)
			}
			c.metrics.RecordCandle(string(sc.Timeframe), sc.Candle.Symbol)
		}
	}
}

func (c *CandleCollector) Stop() error { return c.stream.Close() }

// Shutdown stops the pipeline and closes the stream.
func (c *CandleCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
