package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Feed struct {
		// Source selects the candle intake: "kafka" for pre-enriched
		// candles, "websocket" for raw candles enriched locally.
		Source         string        `yaml:"source"`
		WebSocketURL   string        `yaml:"websocket_url"`
		APIKey         string        `yaml:"api_key"`
		Symbol         string        `yaml:"symbol"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"feed"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		CandleTopic  string   `yaml:"candle_topic"`
		VerdictTopic string   `yaml:"verdict_topic"`
		LogTopic     string   `yaml:"log_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Notify struct {
		Enabled  bool          `yaml:"enabled"`
		URL      string        `yaml:"url"`
		Timeout  time.Duration `yaml:"timeout"`
		Attempts int           `yaml:"attempts"`
	} `yaml:"notify"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Strategy struct {
		// Regime state machine.
		MinDowntrendBars   int     `yaml:"min_downtrend_bars"`
		DelayBars          int     `yaml:"delay_bars"`
		BelowZeroThreshold float64 `yaml:"below_zero_threshold"`
		BelowZeroTimeout   int     `yaml:"below_zero_timeout"`
		// Jump detector.
		StopLossOffset    float64 `yaml:"stop_loss_offset"`
		ZeroAxisThreshold float64 `yaml:"zero_axis_threshold"`
		GapMargin         float64 `yaml:"gap_margin"`
		// Pattern sub-machine.
		PatternConfirmBars    int  `yaml:"pattern_confirm_bars"`
		PatternMaxAge         int  `yaml:"pattern_max_age"`
		RequirePatternConfirm bool `yaml:"require_pattern_confirm"`
		// Open-question knob: breakthrough commit vs timeout reversion on
		// the same candle.
		BreakthroughTieBreak string `yaml:"breakthrough_tie_break"`
		MinHistory           int    `yaml:"min_history"`
		// Extreme-value entry detector.
		ExtremeLookback      int     `yaml:"extreme_lookback"`
		ExtremeDEARatio      float64 `yaml:"extreme_dea_ratio"`
		ExtremeRangeStopMult float64 `yaml:"extreme_range_stop_mult"`
		// Cross-timeframe policy.
		DecisionTimeframes   []string `yaml:"decision_timeframes"`
		HigherTimeframe      string   `yaml:"higher_timeframe"`
		LongFilter           float64  `yaml:"higher_timeframe_long_filter"`
		ShortFilter          float64  `yaml:"higher_timeframe_short_filter"`
		SubscribedTimeframes []string `yaml:"subscribed_timeframes"`
	} `yaml:"strategy"`
	Enrich struct {
		EMAShortPeriod int `yaml:"ema_short_period"`
		EMAMidPeriod   int `yaml:"ema_mid_period"`
		EMALongPeriod  int `yaml:"ema_long_period"`
		MACDFast       int `yaml:"macd_fast"`
		MACDSlow       int `yaml:"macd_slow"`
		MACDSignal     int `yaml:"macd_signal"`
	} `yaml:"enrich"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SYMBOL"); v != "" {
		c.Feed.Symbol = v
	}
	if v := os.Getenv("FEED_SOURCE"); v != "" {
		c.Feed.Source = v
	}
	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_CANDLE_TOPIC"); v != "" {
		c.Kafka.CandleTopic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	return c, nil
}

// Validate checks if the configuration is valid. Strategy threshold
// violations are fatal here, before any candle is processed.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Feed.Source {
	case "kafka", "websocket":
	default:
		return fmt.Errorf("feed.source must be 'kafka' or 'websocket', got '%s'", c.Feed.Source)
	}
	if c.Feed.Symbol == "" {
		return fmt.Errorf("feed.symbol is required")
	}
	if len(c.Strategy.SubscribedTimeframes) == 0 {
		return fmt.Errorf("strategy.subscribed_timeframes cannot be empty")
	}
	if len(c.Strategy.DecisionTimeframes) == 0 {
		return fmt.Errorf("strategy.decision_timeframes cannot be empty")
	}
	if c.Strategy.HigherTimeframe == "" {
		return fmt.Errorf("strategy.higher_timeframe is required")
	}
	return nil
}
