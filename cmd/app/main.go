package main

import (
	"flag"
	"os"

	"SigDerive/internal/di"
	"SigDerive/pkg/config"
	applogger "SigDerive/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	boot := applogger.NewWriter(os.Stderr, "info")

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		boot.Error("config load failed", applogger.Error(err))
		os.Exit(1)
	}

	boot.Info("starting",
		applogger.String("env", cfg.Environment),
		applogger.String("registry", cfg.Registry.Backend),
		applogger.Bool("kafka", cfg.Kafka.Enabled),
		applogger.Bool("collector", cfg.Collector.Enabled),
	)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		boot.Error("app initialization failed", applogger.Error(err))
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		boot.Error("app error", applogger.Error(err))
		os.Exit(1)
	}
}
