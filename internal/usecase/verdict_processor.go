package usecase

import (
	"context"
	"fmt"
	"time"

	"TrendSeg/internal/domain/models"
	drepo "TrendSeg/internal/domain/repository"
)

// VerdictProcessor fans a fresh verdict out to the configured sinks:
// Kafka for downstream consumers, ClickHouse for history, and the verdict
// cache for the API.
type VerdictProcessor struct {
	pub     drepo.VerdictPublisher
	store   drepo.VerdictStorage
	cache   VerdictCache
	metrics drepo.Metrics
}

// VerdictCache is the minimal cache surface the processor needs.
type VerdictCache interface {
	SetVerdict(ctx context.Context, v *models.SignalVerdict) error
}

// NewVerdictProcessor creates a new VerdictProcessor. Any sink may be nil.
func NewVerdictProcessor(pub drepo.VerdictPublisher, store drepo.VerdictStorage, cache VerdictCache, metrics drepo.Metrics) *VerdictProcessor {
	return &VerdictProcessor{pub: pub, store: store, cache: cache, metrics: metrics}
}

// Process routes one verdict to every configured sink. Sink errors are
// collected; a failing sink does not block the others.
func (p *VerdictProcessor) Process(ctx context.Context, v *models.SignalVerdict) error {
	if v == nil {
		return fmt.Errorf("verdict is nil")
	}
	start := time.Now()
	var firstErr error

	if p.pub != nil {
		if err := p.pub.Publish(ctx, v); err != nil {
			p.metrics.RecordError("verdict_publish")
			firstErr = fmt.Errorf("publish verdict: %w", err)
		}
	}
	if p.store != nil {
		if err := p.store.Store(ctx, v); err != nil {
			p.metrics.RecordError("verdict_store")
			if firstErr == nil {
				firstErr = fmt.Errorf("store verdict: %w", err)
			}
		}
	}
	if p.cache != nil {
		if err := p.cache.SetVerdict(ctx, v); err != nil {
			p.metrics.RecordError("verdict_cache")
		}
	}

	p.metrics.RecordVerdict(string(v.Side), v.Symbol)
	p.metrics.RecordLatency("verdict_process", time.Since(start).Seconds())
	return firstErr
}

// Close closes underlying resources if available.
func (p *VerdictProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
