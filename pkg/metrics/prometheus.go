package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	candlesTotal *prometheus.CounterVec
	rejectsTotal *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	segmentState *prometheus.GaugeVec
	verdicts     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		candlesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendseg_candles_total",
				Help: "Total number of closed candles accepted per timeframe",
			},
			[]string{"tf", "symbol"},
		),
		rejectsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendseg_candle_rejects_total",
				Help: "Candles rejected before reaching a pipeline",
			},
			[]string{"tf", "kind"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendseg_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		segmentState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trendseg_segment_state",
				Help: "Current segment state per timeframe (enum ordinal)",
			},
			[]string{"tf", "symbol"},
		),
		verdicts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendseg_verdicts_total",
				Help: "Aggregated verdicts by side",
			},
			[]string{"side", "symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trendseg_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCandle records an accepted closed candle.
func (r *Recorder) RecordCandle(tf, symbol string) {
	r.candlesTotal.WithLabelValues(tf, symbol).Inc()
}

// RecordReject records a rejected candle frame.
func (r *Recorder) RecordReject(tf, kind string) {
	r.rejectsTotal.WithLabelValues(tf, kind).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordSegmentState records the current classifier state ordinal.
func (r *Recorder) RecordSegmentState(tf, symbol string, state int) {
	r.segmentState.WithLabelValues(tf, symbol).Set(float64(state))
}

// RecordVerdict records an emitted verdict.
func (r *Recorder) RecordVerdict(side, symbol string) {
	r.verdicts.WithLabelValues(side, symbol).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
