package repository

import (
	"context"
	"time"

	"TrendSeg/internal/domain/models"
)

// CandleStream delivers closed, enriched candles for the subscribed
// timeframes. Implementations: Kafka consumer of pre-enriched candles,
// websocket feed with local enrichment.
type CandleStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan StreamCandle, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// StreamCandle tags a candle with the timeframe it closed on.
type StreamCandle struct {
	Timeframe Timeframe
	Candle    models.Candle
}

// VerdictPublisher pushes aggregation results to downstream consumers.
type VerdictPublisher interface {
	Publish(ctx context.Context, v *models.SignalVerdict) error
	Close() error
}

// VerdictStorage persists verdict history.
type VerdictStorage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, v *models.SignalVerdict) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.SignalVerdict, error)
	Health(ctx context.Context) error
	Close() error
}

// CandleStore provides read access to stored candle history, used by the
// replay mode and the candles API.
type CandleStore interface {
	GetCandles(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) ([]models.Candle, error)
	GetLatestNCandles(ctx context.Context, symbol string, n int, tf Timeframe) ([]models.Candle, error)
}

// Metrics is the instrumentation boundary for the engine.
type Metrics interface {
	RecordCandle(tf, symbol string)
	RecordReject(tf, kind string)
	RecordSegmentState(tf, symbol string, state int)
	RecordVerdict(side, symbol string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
