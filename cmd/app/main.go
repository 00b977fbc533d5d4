package main

import (
	"context"
	"flag"
	"log"
	"os"

	"TrendPull/internal/di"
	"TrendPull/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s clickhouse=%t kafka=%t redis=%t queue=%t backtest=%t",
		cfg.Environment, cfg.ClickHouse.Enabled, cfg.Kafka.Enabled, cfg.Redis.Enabled, cfg.Queue.Enabled, cfg.Backtest.Enabled)

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	err = app.Run(context.Background())
	cleanup()
	if err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
