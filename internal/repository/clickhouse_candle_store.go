package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"TrendSeg/internal/domain/models"
	domrepo "TrendSeg/internal/domain/repository"
	pkgch "TrendSeg/pkg/clickhouse"
	applogger "TrendSeg/pkg/logger"
)

// CHCandleStore implements CandleStore backed by ClickHouse. Enriched
// candles of every timeframe live in one table keyed by (symbol, tf, ts).
type CHCandleStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHCandleStore(ch *pkgch.Client, table string) *CHCandleStore {
	return &CHCandleStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHCandleStore) SetLogger(l *applogger.Logger) { s.l = l }

const candleCols = "ts, symbol, open, high, low, close, vol, ema_short, ema_mid, ema_long, dif, dea, histogram"

func (s *CHCandleStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT %s FROM %s
        WHERE symbol = ? AND tf = ? AND ts >= ? AND ts <= ?
        ORDER BY ts ASC
    `, candleCols, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, string(tf), from, to)
	if err != nil {
		s.logErr("get_candles", symbol, tf, err)
		return nil, fmt.Errorf("get candles: %w", err)
	}
	defer rows.Close()

	out, err := s.scanCandles(rows)
	if err != nil {
		s.logErr("get_candles", symbol, tf, err)
		return nil, err
	}
	if s.l != nil {
		s.l.Debug("clickhouse get_candles ok",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHCandleStore) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	q := fmt.Sprintf(`
        SELECT %s FROM (
            SELECT %s FROM %s
            WHERE symbol = ? AND tf = ?
            ORDER BY ts DESC
            LIMIT ?
        ) ORDER BY ts ASC
    `, candleCols, candleCols, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, string(tf), n)
	if err != nil {
		s.logErr("latest_candles", symbol, tf, err)
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	defer rows.Close()

	out, err := s.scanCandles(rows)
	if err != nil {
		s.logErr("latest_candles", symbol, tf, err)
		return nil, err
	}
	return out, nil
}

func (s *CHCandleStore) scanCandles(rows *sql.Rows) ([]models.Candle, error) {
	out := make([]models.Candle, 0, 1024)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Timestamp, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume,
			&c.EMAShort, &c.EMAMid, &c.EMALong, &c.DIF, &c.DEA, &c.Histogram); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHCandleStore) logErr(op, symbol string, tf domrepo.Timeframe, err error) {
	if s.l == nil {
		return
	}
	s.l.Error("clickhouse "+op+" error",
		applogger.String("symbol", symbol),
		applogger.String("tf", string(tf)),
		applogger.Error(err),
	)
}

var _ domrepo.CandleStore = (*CHCandleStore)(nil)
