package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vieneu/tts-server/internal/api"
	"github.com/vieneu/tts-server/internal/config"
	"github.com/vieneu/tts-server/internal/jobs"
	"github.com/vieneu/tts-server/internal/services"
	"github.com/vieneu/tts-server/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Configure logging
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	log.Info().Msg("starting VieNeu TTS server")

	// Output directory for final WAV files
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.OutputDir).Msg("failed to create output dir")
	}

	// Model/codec catalog (informational, optional)
	var catalog *config.Catalog
	if cfg.CatalogPath != "" {
		catalog, err = config.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.CatalogPath).Msg("catalog unavailable, listings will be empty")
			catalog = nil
		}
	}

	// Inference engine subprocess
	synth, err := services.NewVieNeuEngine(cfg.EngineCommand, cfg.SampleRate)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure engine")
	}
	log.Info().Str("command", cfg.EngineCommand).Int("sample_rate", cfg.SampleRate).Msg("engine configured")

	// Stream transcoder (ffmpeg)
	transcoder := services.NewTranscoderService(cfg.FFmpegPath, cfg.SampleRate)

	// Job registry + synthesis worker
	registry := jobs.NewRegistry()
	w := worker.New(registry, synth, cfg.OutputDir, cfg.MaxChunkChars)

	handler := api.NewHandler(registry, w, synth, transcoder, catalog)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
		WebDir:             cfg.WebDir,
	})

	if cfg.BackendAPIKey != "" {
		log.Info().Msg("API key authentication enabled")
	} else {
		log.Warn().Msg("no BACKEND_API_KEY set, API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("API server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
