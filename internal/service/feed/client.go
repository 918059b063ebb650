package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"TrendSeg/internal/domain/models"
	drepo "TrendSeg/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a CandleStream backed by an exchange kline WebSocket.
// It emits raw candles only on bar close; indicator fields are filled
// downstream by the enricher.
type Client struct {
	apiKey         string
	websocketURL   string
	symbol         string
	timeframes     []drepo.Timeframe
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new WebSocket CandleStream.
func New(apiKey, websocketURL, symbol string, timeframes []drepo.Timeframe, reconnectDelay, pingInterval time.Duration) drepo.CandleStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbol:         symbol,
		timeframes:     timeframes,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := c.websocketURL
	if c.apiKey != "" {
		u = fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("feed: connected")
	return nil
}

// Subscribe subscribes to the configured symbol on every timeframe.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("feed not connected")
	}
	for _, tf := range c.timeframes {
		msg := map[string]string{"type": "subscribe", "symbol": c.symbol, "tf": string(tf)}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s@%s: %w", c.symbol, tf, err)
		}
		log.Printf("feed: subscribed %s@%s", c.symbol, tf)
	}
	return nil
}

type wsKline struct {
	Type   string  `json:"type"`
	Symbol string  `json:"symbol"`
	TF     string  `json:"tf"`
	T      int64   `json:"t"` // ms
	O      float64 `json:"o"`
	H      float64 `json:"h"`
	L      float64 `json:"l"`
	C      float64 `json:"c"`
	V      float64 `json:"v"`
	Closed bool    `json:"closed"`
}

// Read streams closed candles and errors.
func (c *Client) Read(ctx context.Context) (<-chan drepo.StreamCandle, <-chan error) {
	candles := make(chan drepo.StreamCandle, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(candles)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("feed conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("feed read: %w", err)
					return
				}
				var m wsKline
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-kline frames
					continue
				}
				if m.Type != "kline" || !m.Closed {
					continue
				}
				tf := drepo.Timeframe(m.TF)
				if !drepo.IsValidTimeframe(tf) {
					continue
				}
				sc := drepo.StreamCandle{
					Timeframe: tf,
					Candle: models.Candle{
						Timestamp: time.Unix(m.T/1000, 0).UTC(),
						Symbol:    m.Symbol,
						Open:      m.O,
						High:      m.H,
						Low:       m.L,
						Close:     m.C,
						Volume:    m.V,
					},
				}
				select {
				case candles <- sc:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return candles, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
