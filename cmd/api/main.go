package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/arklim/account-portal/internal/infra/app"
	"github.com/arklim/account-portal/internal/infra/config"
	"github.com/arklim/account-portal/internal/infra/logger"
)

func main() {
	// .env is optional; real deployments use environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.App.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to start", zap.Error(err))
	}

	if err := application.Run(ctx); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
