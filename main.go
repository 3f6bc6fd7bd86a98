package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vectile/vectile/config"
	"github.com/vectile/vectile/diskstore"
	"github.com/vectile/vectile/httpapi"
)

// ---------------------------

func setupLogging(cfg config.ConfigMap) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if cfg.PrettyLogOutput {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	log.Debug().Interface("config", cfg).Msg("Loaded config")
}

// ---------------------------

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setupLogging(cfg)
	log.Info().Str("version", "0.1.0").Msg("Starting vectile")
	// ---------------------------
	store, err := diskstore.Open(cfg.StorePath)
	if err != nil {
		log.Fatal().Err(err).Str("storePath", cfg.StorePath).Msg("Failed to open store")
	}
	log.Info().Str("path", store.Path()).Msg("Store opened")
	// ---------------------------
	server := httpapi.RunHTTPServer(store, cfg.HttpApi)
	// ---------------------------
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Shutting down")
	// ---------------------------
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown http server")
	}
	if err := store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close store")
	}
	log.Info().Msg("Goodbye")
}
