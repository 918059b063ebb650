package usecase

import (
	"context"
	"encoding/json"
	"time"

	"TrendSeg/internal/domain/models"
	drepo "TrendSeg/internal/domain/repository"
	pkgkafka "TrendSeg/pkg/kafka"
)

// CandleFeedHandler consumes enriched-candle Kafka messages and feeds the
// engine. One handler serves one topic; the timeframe rides in the payload.
type CandleFeedHandler struct {
	topic   string
	engine  *Engine
	metrics drepo.Metrics
}

func NewCandleFeedHandler(topic string, engine *Engine, metrics drepo.Metrics) *CandleFeedHandler {
	return &CandleFeedHandler{topic: topic, engine: engine, metrics: metrics}
}

func (h *CandleFeedHandler) Topic() string { return h.topic }

// incoming message schema: one closed enriched candle per message.
func (h *CandleFeedHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol   string  `json:"symbol"`
		TF       string  `json:"tf"`
		T        int64   `json:"t"`
		Open     float64 `json:"o"`
		High     float64 `json:"h"`
		Low      float64 `json:"l"`
		Close    float64 `json:"c"`
		Volume   float64 `json:"v"`
		EMAShort float64 `json:"ema_short"`
		EMAMid   float64 `json:"ema_mid"`
		EMALong  float64 `json:"ema_long"`
		DIF      float64 `json:"dif"`
		DEA      float64 `json:"dea"`
		Hist     float64 `json:"histogram"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.T, 0)).Seconds())

	tf := drepo.Timeframe(m.TF)
	if !drepo.IsValidTimeframe(tf) {
		h.metrics.RecordError("consumer_timeframe")
		return nil // unknown timeframe: not ours, ack and move on
	}

	return h.engine.Submit(ctx, drepo.StreamCandle{
		Timeframe: tf,
		Candle: models.Candle{
			Timestamp: time.Unix(m.T, 0).UTC(),
			Symbol:    m.Symbol,
			Open:      m.Open,
			High:      m.High,
			Low:       m.Low,
			Close:     m.Close,
			Volume:    m.Volume,
			EMAShort:  m.EMAShort,
			EMAMid:    m.EMAMid,
			EMALong:   m.EMALong,
			DIF:       m.DIF,
			DEA:       m.DEA,
			Histogram: m.Hist,
		},
	})
}

var _ pkgkafka.MessageHandler = (*CandleFeedHandler)(nil)
