package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/renandav/livia/pkg/livia"
	"github.com/renandav/livia/pkg/logging"
)

func main() {
	configPath := flag.String("config", "", "path to config yaml; empty runs the built-in defaults")
	profile := flag.String("profile", "", "deployment profile override: generic or support")
	flag.Parse()

	// Local dev convenience; a missing .env is not an error.
	_ = godotenv.Load()

	cfg, err := livia.LoadConfig(*configPath)
	if err != nil {
		slog.Error("config_load_failed", "error", err.Error())
		os.Exit(1)
	}
	if p := strings.TrimSpace(*profile); p != "" {
		cfg.Profile = p
		if err := cfg.Validate(); err != nil {
			slog.Error("config_invalid", "error", err.Error())
			os.Exit(1)
		}
	}

	logger := logging.InitLogger(logging.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger)

	engine, err := livia.NewEngine(cfg, livia.Options{Logger: logger})
	if err != nil {
		logger.Error("engine_build_failed", "error", err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := engine.Start(ctx); err != nil {
		logger.Error("engine_start_failed", "error", err.Error())
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	_ = engine.Stop()
}
