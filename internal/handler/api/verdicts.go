package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	drepo "TrendSeg/internal/domain/repository"
	icache "TrendSeg/internal/service/cache"
	"TrendSeg/internal/service/metrics"
	"TrendSeg/internal/service/ratelimit"
	"TrendSeg/internal/usecase"
	applogger "TrendSeg/pkg/logger"
)

// VerdictsHandler serves the verdict surface over plain net/http. It is
// mounted next to the echo routes for deployments that only expose the
// metrics mux.
type VerdictsHandler struct {
	engine  *usecase.Engine
	storage drepo.VerdictStorage
	cache   icache.BytesCache
	rl      *ratelimit.Limiter
	l       *applogger.Logger
}

func NewVerdictsHandler(engine *usecase.Engine) *VerdictsHandler {
	metrics.Register()
	return &VerdictsHandler{engine: engine, rl: ratelimit.New()}
}

func (h *VerdictsHandler) SetCache(c icache.BytesCache) { h.cache = c }

func (h *VerdictsHandler) SetStorage(s drepo.VerdictStorage) { h.storage = s }

// SetLogger injects a structured logger.
func (h *VerdictsHandler) SetLogger(l *applogger.Logger) { h.l = l }

// Verdict returns the most recent aggregated verdict.
func (h *VerdictsHandler) Verdict() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "verdict"
		defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		if !h.rl.Allow(r.RemoteAddr+":verdict", 10, 5) {
			if h.l != nil {
				h.l.Warn("verdicts.latest rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}

		v := h.engine.Latest()
		if v == nil {
			http.Error(w, "no verdict yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		b, err := json.Marshal(v)
		if err != nil {
			metrics.APIErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("verdicts.latest marshal_error", applogger.Error(err))
			}
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		if _, err := w.Write(b); err != nil && h.l != nil {
			h.l.Warn("verdicts.latest write_error", applogger.Error(err))
		}
	}
}

// Segments returns the current per-timeframe snapshots.
func (h *VerdictsHandler) Segments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "segments"
		defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		if !h.rl.Allow(r.RemoteAddr+":segments", 10, 5) {
			if h.l != nil {
				h.l.Warn("verdicts.segments rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}

		cacheKey := "segments:" + r.URL.Query().Get("symbol")
		if h.cache != nil {
			if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
				if h.l != nil {
					h.l.Warn("verdicts.segments cache_get_error", applogger.Error(err))
				}
			} else if ok {
				w.Header().Set("Content-Type", "application/json")
				if _, err := w.Write(b); err != nil && h.l != nil {
					h.l.Warn("verdicts.segments write_error", applogger.Error(err))
				}
				return
			}
		}

		snaps := h.engine.Snapshots()
		out := map[string]interface{}{
			"first_trade_opened": h.engine.FirstTradeOpened(),
			"timeframes":         snaps,
		}
		b, err := json.Marshal(out)
		if err != nil {
			metrics.APIErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("verdicts.segments marshal_error", applogger.Error(err))
			}
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		if h.cache != nil {
			if err := h.cache.SetBytes(cacheKey, b, 5*time.Second); err != nil && h.l != nil {
				h.l.Warn("verdicts.segments cache_set_error", applogger.Error(err))
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(b); err != nil && h.l != nil {
			h.l.Warn("verdicts.segments write_error", applogger.Error(err))
		}
	}
}

// History returns stored verdicts for a symbol over a lookback window.
func (h *VerdictsHandler) History() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "history"
		defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		if h.storage == nil {
			http.Error(w, "verdict storage disabled", http.StatusServiceUnavailable)
			return
		}
		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			http.Error(w, "symbol required", http.StatusBadRequest)
			return
		}
		if !h.rl.Allow(r.RemoteAddr+":history", 5, 2) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		limit := parseInt(r.URL.Query().Get("limit"), 200)
		hours := parseInt(r.URL.Query().Get("hours"), 168)

		to := time.Now().UTC()
		from := to.Add(-time.Duration(hours) * time.Hour)
		verdicts, err := h.storage.Query(r.Context(), symbol, from, to, limit)
		if err != nil {
			metrics.APIErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("verdicts.history error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(verdicts); err != nil && h.l != nil {
			h.l.Warn("verdicts.history write_error", applogger.Error(err))
		}
	}
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
