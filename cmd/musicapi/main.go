package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/imjhanC/Music-API-test/internal/api"
	"github.com/imjhanC/Music-API-test/internal/config"
	"github.com/imjhanC/Music-API-test/internal/pool"
	"github.com/imjhanC/Music-API-test/internal/search"
	"github.com/imjhanC/Music-API-test/internal/stream"
	"github.com/imjhanC/Music-API-test/internal/ytdlp"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("invalid configuration")
	}

	log := newLogger(cfg)
	log.Info().Str("version", version).Str("environment", cfg.Environment).Msg("starting music streaming API")

	binPath := cfg.YtdlpPath
	if binPath == "" {
		manager := ytdlp.NewManager(filepath.Join(cfg.DataDir, "bin"), log)
		binPath, err = manager.Resolve()
		if err != nil {
			log.Fatal().Err(err).Msg("yt-dlp is not available")
		}
	}
	log.Info().Str("path", binPath).Msg("using yt-dlp binary")

	client := ytdlp.NewExecClient(binPath, log)

	searcher := search.NewSearcher(client, search.Config{
		FetchCount:     cfg.SearchFetchCount,
		MaxResults:     cfg.SearchMaxResults,
		MaxDurationSec: cfg.SearchMaxDuration,
		MinInterval:    cfg.SearchMinInterval,
	}, log)

	resolver := stream.NewResolver(client, stream.Config{
		Timeout:     cfg.ResolveTimeout,
		MinInterval: cfg.StreamMinInterval,
	}, log)

	workers := pool.New(cfg.Workers, cfg.QueueSize, log)
	workers.Start()

	server := api.NewServer(cfg, searcher, resolver, workers, log)
	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
	log.Info().Str("addr", server.Addr()).Msg("server listening")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	if err := server.Stop(); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	workers.Stop()
	log.Info().Msg("stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return logger.Level(level).With().Timestamp().Logger()
}
