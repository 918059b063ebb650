package main

import (
	"flag"
	"log"
	"os"

	"TrendSeg/internal/di"
	"TrendSeg/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	replayTF := flag.String("replay", "", "replay stored history for the given timeframe and exit")
	replayN := flag.Int("replay-n", 2000, "number of bars to replay")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s feed=%s symbol=%s", cfg.Environment, cfg.Feed.Source, cfg.Feed.Symbol)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if *replayTF != "" {
		if err := app.RunReplay(*replayTF, *replayN); err != nil {
			log.Fatalf("replay failed: %v", err)
		}
		return
	}

	log.Printf("clickhouse: connected and schema ready - db: %s\n", cfg.ClickHouse.Database)
	log.Printf("kafka: brokers=%v verdict_topic=%s", cfg.Kafka.Brokers, cfg.Kafka.VerdictTopic)

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
