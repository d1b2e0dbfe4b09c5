package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/officine/bilan/internal/bootstrap"
	"github.com/officine/bilan/internal/config"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	setLogLevel(cfg.LogLevel)

	app := bootstrap.New(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	if err := app.Prepare(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to prepare qr secret")
	}
	cancel()

	for _, problem := range app.Context.CheckPreconditions(context.Background()) {
		log.Warn().Str("problem", problem).Msg("precondition not met")
	}

	server := app.NewServer()

	go func() {
		log.Info().
			Str("addr", cfg.Addr()).
			Str("baseDir", app.Paths.Base).
			Str("path", config.QuestionnairePath).
			Msg("starting tablet gateway")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
