package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"TrendSeg/internal/domain/models"
	"TrendSeg/internal/domain/repository"
	pkgkafka "TrendSeg/pkg/kafka"
)

// ClickHouseVerdictStorage implements VerdictStorage for ClickHouse.
type ClickHouseVerdictStorage struct {
	db    *sql.DB
	table string
}

// NewClickHouseVerdictStorage creates ClickHouse verdict storage.
func NewClickHouseVerdictStorage(db *sql.DB, table string) repository.VerdictStorage {
	return &ClickHouseVerdictStorage{db: db, table: table}
}

func (s *ClickHouseVerdictStorage) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseVerdictStorage) Store(ctx context.Context, v *models.SignalVerdict) error {
	q := fmt.Sprintf("INSERT INTO %s (as_of, symbol, side, tf, entry_price, stop_loss, target1, target2, rationale) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		v.AsOf,
		v.Symbol,
		string(v.Side),
		v.Timeframe,
		v.EntryPrice,
		v.StopLoss,
		v.Target1,
		v.Target2,
		strings.Join(v.Rationale, "; "),
	)
	return err
}

func (s *ClickHouseVerdictStorage) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.SignalVerdict, error) {
	q := fmt.Sprintf("SELECT as_of, symbol, side, tf, entry_price, stop_loss, target1, target2, rationale FROM %s WHERE symbol = ? AND as_of >= ? AND as_of <= ? ORDER BY as_of DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.SignalVerdict
	for rows.Next() {
		var v models.SignalVerdict
		var side, rationale string
		if err := rows.Scan(&v.AsOf, &v.Symbol, &side, &v.Timeframe, &v.EntryPrice, &v.StopLoss, &v.Target1, &v.Target2, &rationale); err != nil {
			return nil, err
		}
		v.Side = models.Side(side)
		if rationale != "" {
			v.Rationale = strings.Split(rationale, "; ")
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

func (s *ClickHouseVerdictStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseVerdictStorage) Close() error {
	return nil // Managed by pkg
}

// KafkaVerdictPublisher implements VerdictPublisher for Kafka.
type KafkaVerdictPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaVerdictPublisher creates a Kafka verdict publisher.
func NewKafkaVerdictPublisher(producer *pkgkafka.Producer, topic string) repository.VerdictPublisher {
	return &KafkaVerdictPublisher{producer: producer, topic: topic}
}

func (p *KafkaVerdictPublisher) Publish(ctx context.Context, v *models.SignalVerdict) error {
	return p.producer.Publish(ctx, p.topic, []byte(v.Symbol), map[string]interface{}{
		"symbol":      v.Symbol,
		"as_of":       v.AsOf.Unix(),
		"side":        string(v.Side),
		"tf":          v.Timeframe,
		"entry_price": v.EntryPrice,
		"stop_loss":   v.StopLoss,
		"target1":     v.Target1,
		"target2":     v.Target2,
		"rationale":   v.Rationale,
	})
}

func (p *KafkaVerdictPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
