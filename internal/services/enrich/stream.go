package enrich

import (
	"context"

	drepo "TrendSeg/internal/domain/repository"
)

// tfState holds the per-timeframe indicator accumulators. Candles of
// different timeframes never share state.
type tfState struct {
	emaShort *ema
	emaMid   *ema
	emaLong  *ema
	macd     *macd
}

// Stream decorates a raw CandleStream with indicator enrichment. Every
// candle passing through gains EMA, DIF, DEA and histogram values
// computed incrementally from the closes seen so far.
type Stream struct {
	inner  drepo.CandleStream
	p      Periods
	states map[drepo.Timeframe]*tfState
}

// NewStream wraps a raw candle stream with local enrichment.
func NewStream(inner drepo.CandleStream, p Periods) *Stream {
	return &Stream{inner: inner, p: p, states: make(map[drepo.Timeframe]*tfState)}
}

func (s *Stream) Connect(ctx context.Context) error   { return s.inner.Connect(ctx) }
func (s *Stream) Subscribe(ctx context.Context) error { return s.inner.Subscribe(ctx) }
func (s *Stream) Reconnect(ctx context.Context) error { return s.inner.Reconnect(ctx) }
func (s *Stream) Close() error                        { return s.inner.Close() }
func (s *Stream) IsConnected() bool                   { return s.inner.IsConnected() }

// Read pulls raw candles from the wrapped stream and forwards them with
// indicator fields filled in. The goroutine owns the accumulator maps,
// so no locking is needed.
func (s *Stream) Read(ctx context.Context) (<-chan drepo.StreamCandle, <-chan error) {
	raw, rawErrs := s.inner.Read(ctx)
	out := make(chan drepo.StreamCandle, 1024)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-rawErrs:
				if !ok {
					return
				}
				errs <- err
				return
			case sc, ok := <-raw:
				if !ok {
					return
				}
				st := s.state(sc.Timeframe)
				c := sc.Candle
				c.EMAShort = st.emaShort.update(c.Close)
				c.EMAMid = st.emaMid.update(c.Close)
				c.EMALong = st.emaLong.update(c.Close)
				c.DIF, c.DEA, c.Histogram = st.macd.update(c.Close)
				sc.Candle = c
				select {
				case out <- sc:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, errs
}

func (s *Stream) state(tf drepo.Timeframe) *tfState {
	st, ok := s.states[tf]
	if !ok {
		st = &tfState{
			emaShort: newEMA(s.p.EMAShort),
			emaMid:   newEMA(s.p.EMAMid),
			emaLong:  newEMA(s.p.EMALong),
			macd:     newMACD(s.p.MACDFast, s.p.MACDSlow, s.p.MACDSignal),
		}
		s.states[tf] = st
	}
	return st
}

var _ drepo.CandleStream = (*Stream)(nil)
