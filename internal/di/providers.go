package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"TrendSeg/internal/domain/repository"
	mid "TrendSeg/internal/middleware"
	internalrepo "TrendSeg/internal/repository"
	icache "TrendSeg/internal/service/cache"
	"TrendSeg/internal/service/feed"
	"TrendSeg/internal/service/notify"
	"TrendSeg/internal/services/enrich"
	"TrendSeg/internal/services/strategy"
	"TrendSeg/internal/usecase"
	pkgcache "TrendSeg/pkg/cache"
	pkgch "TrendSeg/pkg/clickhouse"
	"TrendSeg/pkg/config"
	pkgkafka "TrendSeg/pkg/kafka"
	applogger "TrendSeg/pkg/logger"
	"TrendSeg/pkg/metrics"
	pkgqueue "TrendSeg/pkg/queue"
	"TrendSeg/pkg/server"

	"github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideStrategyParams merges configured overrides into the documented
// defaults and fails fast on threshold-ordering violations.
func ProvideStrategyParams(cfg *config.Config) (strategy.Params, error) {
	p := strategy.DefaultParams()
	s := cfg.Strategy

	if s.MinDowntrendBars > 0 {
		p.MinDowntrendBars = s.MinDowntrendBars
	}
	if s.DelayBars > 0 {
		p.DelayBars = s.DelayBars
	}
	if s.BelowZeroThreshold != 0 {
		p.BelowZeroThreshold = s.BelowZeroThreshold
	}
	if s.BelowZeroTimeout > 0 {
		p.BelowZeroTimeout = s.BelowZeroTimeout
	}
	if s.StopLossOffset > 0 {
		p.StopLossOffset = s.StopLossOffset
	}
	if s.ZeroAxisThreshold > 0 {
		p.ZeroAxisThreshold = s.ZeroAxisThreshold
	}
	if s.GapMargin > 0 {
		p.GapMargin = s.GapMargin
	}
	if s.PatternConfirmBars > 0 {
		p.PatternConfirmBars = s.PatternConfirmBars
	}
	if s.PatternMaxAge > 0 {
		p.PatternMaxAge = s.PatternMaxAge
	}
	p.RequirePatternConfirm = s.RequirePatternConfirm
	if s.BreakthroughTieBreak != "" {
		p.BreakthroughTieBreak = strategy.TieBreak(s.BreakthroughTieBreak)
	}
	if s.MinHistory > 0 {
		p.MinHistory = s.MinHistory
	}
	if s.ExtremeLookback > 0 {
		p.ExtremeLookback = s.ExtremeLookback
	}
	if s.ExtremeDEARatio > 0 {
		p.ExtremeDEARatio = s.ExtremeDEARatio
	}
	if s.ExtremeRangeStopMult > 0 {
		p.ExtremeRangeStopMult = s.ExtremeRangeStopMult
	}

	if err := p.Validate(); err != nil {
		return strategy.Params{}, err
	}
	return p, nil
}

// ProvideAggregatorConfig maps the configured cross-timeframe policy.
func ProvideAggregatorConfig(cfg *config.Config, params strategy.Params) usecase.AggregatorConfig {
	s := cfg.Strategy
	out := usecase.AggregatorConfig{
		Symbol:         cfg.Feed.Symbol,
		Higher:         repository.NormalizeTimeframe(s.HigherTimeframe),
		LongFilter:     s.LongFilter,
		ShortFilter:    s.ShortFilter,
		StopLossOffset: params.StopLossOffset,
	}
	for _, tf := range s.DecisionTimeframes {
		out.Decision = append(out.Decision, repository.NormalizeTimeframe(tf))
	}
	for _, tf := range s.SubscribedTimeframes {
		out.Subscribed = append(out.Subscribed, repository.NormalizeTimeframe(tf))
	}
	return out
}

// ProvideAggregator creates the cross-timeframe reducer.
func ProvideAggregator(cfg usecase.AggregatorConfig) *usecase.Aggregator {
	return usecase.NewAggregator(cfg)
}

// ProvideClickHouseClient creates a ClickHouse client and ensures schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + db + ".candles (" +
			"ts DateTime, symbol String, tf String, " +
			"open Float64, high Float64, low Float64, close Float64, vol Float64, " +
			"ema_short Float64, ema_mid Float64, ema_long Float64, " +
			"dif Float64, dea Float64, histogram Float64" +
			") ENGINE=ReplacingMergeTree ORDER BY (symbol, tf, ts)",
		"CREATE TABLE IF NOT EXISTS " + db + ".verdicts (" +
			"as_of DateTime, symbol String, side String, tf String, " +
			"entry_price Float64, stop_loss Float64, " +
			"target1 Float64, target2 Float64, rationale String" +
			") ENGINE=MergeTree ORDER BY (symbol, as_of)",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the candle-topic consumer. Nil when the
// intake path is the websocket feed.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Feed.Source != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideVerdictStorage creates ClickHouse verdict storage.
func ProvideVerdictStorage(chClient *pkgch.Client, cfg *config.Config) repository.VerdictStorage {
	return internalrepo.NewClickHouseVerdictStorage(chClient.DB(), cfg.ClickHouse.Database+".verdicts")
}

// ProvideVerdictPublisher creates the Kafka verdict publisher, optionally
// fanned out to a webhook. With Redis available the webhook delivery goes
// through a durable queue instead of inline retries.
func ProvideVerdictPublisher(producer *pkgkafka.Producer, cfg *config.Config, l *applogger.Logger) repository.VerdictPublisher {
	if cfg.Kafka.LogTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      kafkaLogSink{producer},
		})
	}

	pub := internalrepo.NewKafkaVerdictPublisher(producer, cfg.Kafka.VerdictTopic)
	if !cfg.Notify.Enabled || cfg.Notify.URL == "" {
		return pub
	}

	wh := notify.NewWebhook(cfg.Notify.URL, cfg.Notify.Timeout, cfg.Notify.Attempts)
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		q := pkgqueue.NewRedisQueue(l, &pkgqueue.QueueConfig{
			Workers:    1,
			RetryLimit: cfg.Notify.Attempts,
			RetryDelay: 10 * time.Second,
		}, client, pkgqueue.ModeProducerConsumer)
		q.RegisterJob(notify.NewWebhookJob(wh))
		if err := q.Start(); err != nil {
			l.Warn("notify queue start failed, delivering inline", applogger.Error(err))
			return internalrepo.NewFanoutPublisher(pub, wh)
		}
		return internalrepo.NewFanoutPublisher(pub, notify.NewQueuedPublisher(q))
	}
	return internalrepo.NewFanoutPublisher(pub, wh)
}

// ProvideVerdictCache builds the latest-verdict cache, Redis-backed when
// enabled, in-process otherwise.
func ProvideVerdictCache(cfg *config.Config) (usecase.VerdictCache, error) {
	var svc pkgcache.Service
	if cfg.Redis.Enabled {
		host, port := splitHostPort(cfg.Redis.Addr)
		redis, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(host),
			pkgcache.WithRedisPort(port),
			pkgcache.WithRedisPassword(cfg.Redis.Password),
			pkgcache.WithRedisDB(cfg.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		// Memory L1 in front of Redis keeps the hot verdict read local.
		svc = pkgcache.NewLayeredCache(redis)
	} else {
		svc = pkgcache.NewMemoryCache()
	}
	return icache.NewVerdictCache(svc, time.Minute), nil
}

// kafkaLogSink forwards aggregated error logs to a Kafka topic.
type kafkaLogSink struct{ p *pkgkafka.Producer }

func (s kafkaLogSink) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return s.p.Publish(ctx, topic, nil, payload)
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}

// ProvideVerdictProcessor creates the verdict fan-out.
func ProvideVerdictProcessor(
	pub repository.VerdictPublisher,
	store repository.VerdictStorage,
	cache usecase.VerdictCache,
	metrics repository.Metrics,
) *usecase.VerdictProcessor {
	return usecase.NewVerdictProcessor(pub, store, cache, metrics)
}

// ProvideEngine builds per-timeframe pipelines and the aggregation loop.
func ProvideEngine(
	cfg *config.Config,
	params strategy.Params,
	agg *usecase.Aggregator,
	proc *usecase.VerdictProcessor,
	metrics repository.Metrics,
	l *applogger.Logger,
) *usecase.Engine {
	return usecase.NewEngine(cfg.Feed.Symbol, params, agg, proc, metrics, l)
}

// ProvideCandleStream creates the websocket feed wrapped with local
// enrichment. Nil when candles arrive pre-enriched over Kafka.
func ProvideCandleStream(cfg *config.Config) repository.CandleStream {
	if cfg.Feed.Source != "websocket" {
		return nil
	}
	var tfs []repository.Timeframe
	for _, tf := range cfg.Strategy.SubscribedTimeframes {
		tfs = append(tfs, repository.NormalizeTimeframe(tf))
	}
	raw := feed.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.Feed.Symbol,
		tfs,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
	)
	p := enrich.DefaultPeriods()
	e := cfg.Enrich
	if e.EMAShortPeriod > 0 {
		p.EMAShort = e.EMAShortPeriod
	}
	if e.EMAMidPeriod > 0 {
		p.EMAMid = e.EMAMidPeriod
	}
	if e.EMALongPeriod > 0 {
		p.EMALong = e.EMALongPeriod
	}
	if e.MACDFast > 0 {
		p.MACDFast = e.MACDFast
	}
	if e.MACDSlow > 0 {
		p.MACDSlow = e.MACDSlow
	}
	if e.MACDSignal > 0 {
		p.MACDSignal = e.MACDSignal
	}
	return enrich.NewStream(raw, p)
}

// ProvideCandleCollector wires the stream through the validating pipeline
// into the engine. Nil when there is no websocket stream.
func ProvideCandleCollector(
	stream repository.CandleStream,
	engine *usecase.Engine,
	metrics repository.Metrics,
) *usecase.CandleCollector {
	if stream == nil {
		return nil
	}
	pipe := mid.NewRealtimePipeline(engine, metrics,
		mid.WithBufferSize(2000),
	)
	return usecase.NewCandleCollector(stream, engine, metrics, pipe)
}

// ProvideCandleFeedHandler registers the handler for the candle topic.
// Nil when the intake path is the websocket feed.
func ProvideCandleFeedHandler(engine *usecase.Engine, metrics repository.Metrics, cfg *config.Config) *usecase.CandleFeedHandler {
	if cfg.Feed.Source != "kafka" {
		return nil
	}
	return usecase.NewCandleFeedHandler(cfg.Kafka.CandleTopic, engine, metrics)
}

// ProvideCandleStore creates the ClickHouse candle history reader.
func ProvideCandleStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.CandleStore {
	store := internalrepo.NewCHCandleStore(chClient, cfg.ClickHouse.Database+".candles")
	store.SetLogger(l)
	return store
}

// ProvideReplayUseCase creates the historical replay use case.
func ProvideReplayUseCase(store repository.CandleStore, params strategy.Params, aggCfg usecase.AggregatorConfig) *usecase.ReplayUseCase {
	return usecase.NewReplayUseCase(store, params, aggCfg)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	collector *usecase.CandleCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.CandleFeedHandler,
	chClient *pkgch.Client,
	engine *usecase.Engine,
	replay *usecase.ReplayUseCase,
	proc *usecase.VerdictProcessor,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	var handler pkgkafka.MessageHandler
	if kh != nil {
		handler = kh
	}
	app := server.New(cfg, collector, consumer, handler, chClient, engine, replay)
	app.Proc = proc
	return app
}
