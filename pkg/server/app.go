package server

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "TrendSeg/internal/domain/repository"
	"TrendSeg/internal/handler/api"
	"TrendSeg/internal/repository"
	icache "TrendSeg/internal/service/cache"
	"TrendSeg/internal/usecase"
	pkgch "TrendSeg/pkg/clickhouse"
	"TrendSeg/pkg/config"
	xhttp "TrendSeg/pkg/http"
	httpmw "TrendSeg/pkg/http/middleware"
	pkgkafka "TrendSeg/pkg/kafka"
	applogger "TrendSeg/pkg/logger"

	"github.com/labstack/echo/v4"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	collector   *usecase.CandleCollector
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	engine      *usecase.Engine
	replay      *usecase.ReplayUseCase
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	Proc        *usecase.VerdictProcessor
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	collector *usecase.CandleCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	engine *usecase.Engine,
	replay *usecase.ReplayUseCase,
) *App {
	return &App{
		cfg:       cfg,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		chClient:  chClient,
		engine:    engine,
		replay:    replay,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// RunReplay replays stored candle history through fresh pipelines once and
// writes the bar-by-bar result as JSON to stdout.
func (a *App) RunReplay(tf string, n int) error {
	res, err := a.replay.Replay(context.Background(), usecase.ReplayParams{
		Symbol:    a.cfg.Feed.Symbol,
		Timeframe: domrepo.NormalizeTimeframe(tf),
		N:         n,
	})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// init app logger (console info by default)
	l, _ := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})

	// Setup Echo HTTP server using pkg/http and register routes via handler
	var httpHandler xhttp.Handler
	var storage domrepo.VerdictStorage
	if a.chClient != nil {
		storage = repository.NewClickHouseVerdictStorage(a.chClient.DB(), a.cfg.ClickHouse.Database+".verdicts")
	}
	if a.httpHandler != nil {
		httpHandler = a.httpHandler
	} else if a.chClient != nil {
		store := repository.NewCHCandleStore(a.chClient, a.cfg.ClickHouse.Database+".candles")
		store.SetLogger(l)
		candles := usecase.NewCandlesUseCase(store)
		httpHandler = api.NewVerdictsEchoHandler(l, a.engine, candles, a.replay, storage)
	}

	a.httpServer = xhttp.NewServer(httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Legacy plain-http routes, behind the same echo instance
	vh := api.NewVerdictsHandler(a.engine)
	vh.SetLogger(l)
	vh.SetStorage(storage)
	if a.cfg.Redis.Enabled {
		vh.SetCache(icache.NewRedisCache(icache.RedisConfig{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		}))
	} else {
		vh.SetCache(icache.NewTTLCache())
	}
	wrap := httpmw.Metrics(l, 500*time.Millisecond)
	e := a.httpServer.Echo()
	e.GET("/v1/verdict", echo.WrapHandler(wrap(vh.Verdict())))
	e.GET("/v1/segments", echo.WrapHandler(wrap(vh.Segments())))
	e.GET("/v1/history", echo.WrapHandler(wrap(vh.History())))

	// Start engine workers before any intake path delivers candles
	a.engine.Start(ctx)

	// Start websocket collector when configured
	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				l.Error("collector error", applogger.Error(err))
			}
		}()
		l.Info("collector started", applogger.String("symbol", a.cfg.Feed.Symbol))
	}

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l, err := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	if err != nil {
		log.Printf("failed to create logger: %v", err)
		return err
	}
	l.Info("shutting down...")

	// Stop intake first so the engine drains cleanly
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			l.Warn("collector stop error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	a.engine.Stop()

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Close verdict sinks (publisher/storage)
	if a.Proc != nil {
		a.Proc.Close()
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
