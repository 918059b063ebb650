package models

import "errors"

// Domain error kinds. Callers match with errors.Is and wrap with context.
var (
	// ErrMalformedCandle marks a candle with missing or non-finite fields.
	// The single candle is rejected; pipeline state does not advance.
	ErrMalformedCandle = errors.New("malformed candle")

	// ErrOutOfOrderCandle marks a candle older than the last applied one.
	ErrOutOfOrderCandle = errors.New("out-of-order candle")

	// ErrDuplicateCandle marks a candle repeating the last applied timestamp.
	ErrDuplicateCandle = errors.New("duplicate candle")

	// ErrInsufficientHistory means too few candles accumulated to classify.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrTimeframeMissing means a required timeframe has no snapshot yet.
	ErrTimeframeMissing = errors.New("timeframe missing")

	// ErrInvalidConfig marks a strategy parameter set that violates
	// threshold ordering. Fatal at initialization.
	ErrInvalidConfig = errors.New("invalid strategy config")
)
