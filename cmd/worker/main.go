package main

import (
	"context"
	"os"
	"os/signal"
	"rental/config"
	"rental/di"
	"rental/shared/logger"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Get()

	logger.InitLogger(cfg)

	logger.SetLogLevel(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := di.InitializeWorker()

	err := consumer.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Lifecycle consumer stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := consumer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down worker cleanly")
	}

	if err != nil {
		os.Exit(1)
	}
}
