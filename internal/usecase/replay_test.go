package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"TrendSeg/internal/domain/models"
	drepo "TrendSeg/internal/domain/repository"
)

type fakeCandleStore struct {
	candles []models.Candle
}

func (s *fakeCandleStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf drepo.Timeframe) ([]models.Candle, error) {
	return s.candles, nil
}

func (s *fakeCandleStore) GetLatestNCandles(ctx context.Context, symbol string, n int, tf drepo.Timeframe) ([]models.Candle, error) {
	if n < len(s.candles) {
		return s.candles[len(s.candles)-n:], nil
	}
	return s.candles, nil
}

func TestReplayIsDeterministic(t *testing.T) {
	store := &fakeCandleStore{}
	for i := 0; i < 20; i++ {
		dea := float64(10 - i) // drifts from positive through zero
		store.candles = append(store.candles, pipeCandle(i, dea))
	}
	// A duplicate in stored history must be rejected, not replayed.
	store.candles = append(store.candles, pipeCandle(19, -9))

	uc := NewReplayUseCase(store, pipeParams(), aggConfig())

	first, err := uc.Replay(context.Background(), ReplayParams{Symbol: "BTCUSDT", Timeframe: drepo.TF1h, N: 100})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	second, err := uc.Replay(context.Background(), ReplayParams{Symbol: "BTCUSDT", Timeframe: drepo.TF1h, N: 100})
	if err != nil {
		t.Fatalf("second replay: %v", err)
	}

	if first.Candles != 20 || first.Rejected != 1 {
		t.Fatalf("candles=%d rejected=%d, want 20/1", first.Candles, first.Rejected)
	}
	if len(first.States) != len(second.States) {
		t.Fatalf("state trajectory lengths differ: %d vs %d", len(first.States), len(second.States))
	}
	for i := range first.States {
		if first.States[i] != second.States[i] {
			t.Fatalf("trajectory diverged at bar %d: %s vs %s", i, first.States[i], second.States[i])
		}
	}
	if first.Final.Segment.State != second.Final.Segment.State {
		t.Fatalf("final states differ: %v vs %v", first.Final.Segment.State, second.Final.Segment.State)
	}
}

func TestReplayEmptyHistory(t *testing.T) {
	uc := NewReplayUseCase(&fakeCandleStore{}, pipeParams(), aggConfig())
	_, err := uc.Replay(context.Background(), ReplayParams{Symbol: "BTCUSDT", Timeframe: drepo.TF1h})
	if !errors.Is(err, models.ErrInsufficientHistory) {
		t.Fatalf("empty history: %v", err)
	}
}
