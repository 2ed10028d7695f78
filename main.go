package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"portal-service/internal/app"
	"portal-service/internal/config"
	"portal-service/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	envFilePath      = ".env"
	signalBufferSize = 1
)

var shutdownSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

func main() {
	bootLog := logger.New("", false)

	if err := godotenv.Load(envFilePath); err != nil {
		bootLog.Warn().Msg(".env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(cfg.App.LogLevel, cfg.App.LogPretty)
	zerolog.DefaultContextLogger = &log
	log.Info().Msg("configuration loaded")

	service, err := app.NewService(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize service")
	}

	go func() {
		if err := service.Start(); err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, signalBufferSize)
	signal.Notify(quit, shutdownSignals...)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := service.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server exited gracefully")
}
