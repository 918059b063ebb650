package enrich

// Periods configures the moving averages computed on raw candles.
type Periods struct {
	EMAShort int
	EMAMid   int
	EMALong  int

	MACDFast   int
	MACDSlow   int
	MACDSignal int
}

// DefaultPeriods returns the conventional 7/25/99 EMAs and 12/26/9 MACD.
func DefaultPeriods() Periods {
	return Periods{
		EMAShort:   7,
		EMAMid:     25,
		EMALong:    99,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
	}
}

// ema tracks a streaming exponential moving average. The first samples
// are accumulated into a simple average until the period is reached,
// then the recursive form takes over.
type ema struct {
	period int
	alpha  float64
	value  float64
	sum    float64
	count  int
}

func newEMA(period int) *ema {
	return &ema{period: period, alpha: 2.0 / (float64(period) + 1)}
}

func (e *ema) update(price float64) float64 {
	e.count++
	if e.count < e.period {
		e.sum += price
		e.value = e.sum / float64(e.count)
		return e.value
	}
	if e.count == e.period {
		e.sum += price
		e.value = e.sum / float64(e.period)
		return e.value
	}
	e.value = e.alpha*price + (1-e.alpha)*e.value
	return e.value
}

// macd tracks streaming DIF (fast EMA - slow EMA), DEA (signal EMA of
// DIF) and the histogram DIF - DEA.
type macd struct {
	fast   *ema
	slow   *ema
	signal *ema
}

func newMACD(fastP, slowP, signalP int) *macd {
	return &macd{
		fast:   newEMA(fastP),
		slow:   newEMA(slowP),
		signal: newEMA(signalP),
	}
}

func (m *macd) update(price float64) (dif, dea, hist float64) {
	f := m.fast.update(price)
	s := m.slow.update(price)
	dif = f - s
	dea = m.signal.update(dif)
	return dif, dea, dif - dea
}
