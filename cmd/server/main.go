// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/dailyjams/dailyjams/internal/api/rest"
	"github.com/dailyjams/dailyjams/internal/app/exclusion"
	"github.com/dailyjams/dailyjams/internal/app/recommend"
	"github.com/dailyjams/dailyjams/internal/infra/config"
	"github.com/dailyjams/dailyjams/internal/infra/logger"
	"github.com/dailyjams/dailyjams/internal/infra/openai"
	"github.com/dailyjams/dailyjams/internal/infra/reddit"
	"github.com/dailyjams/dailyjams/internal/infra/spotify"
	"github.com/dailyjams/dailyjams/internal/infra/store"
)

var (
	app        = kingpin.New("dailyjams-server", "DailyJams music discovery server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	st, err := store.Open(store.Config{Path: cfg.Database.Path})
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			zlog.Error().Msgf("Failed to close store: %v", err)
		}
	}()

	if _, err := st.EnsureDefaultUser(ctx); err != nil {
		return fmt.Errorf("failed to bootstrap default user: %w", err)
	}
	if err := st.SeedDefaultSources(ctx, seedSources(cfg)); err != nil {
		return fmt.Errorf("failed to seed sources: %w", err)
	}

	provider, err := openai.New(openai.Config{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		Timeout:     time.Duration(cfg.OpenAI.TimeoutSec) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	trends, err := trendFetcher(cfg)
	if err != nil {
		return fmt.Errorf("failed to create trend fetcher: %w", err)
	}

	var (
		connector   *spotify.Connector
		spotifyAuth *spotify.Auth
		images      recommend.ImageFinder
	)
	if cfg.Spotify.Enabled() {
		spotifyCfg := spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RedirectURL:  cfg.Spotify.RedirectURL,
			Market:       cfg.Spotify.Market,
		}
		connector = spotify.NewConnector(spotifyCfg, st)
		spotifyAuth, err = spotify.NewAuth(spotifyCfg)
		if err != nil {
			return fmt.Errorf("failed to create spotify auth: %w", err)
		}
		images = connector
		zlog.Info().Msg("Spotify integration enabled")
	} else {
		zlog.Info().Msg("Spotify not configured, running without taste blending and playlist export")
	}

	aggregator := exclusion.NewAggregator(st, cfg.Discovery.SkipCooldownDays)
	svc := recommend.New(st, aggregator, provider, trends, images)
	handler := rest.NewHandler(st, svc, connector, spotifyAuth)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(handler.Router(), &http2.Server{}),
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	return nil
}

// trendFetcher builds the configured trending provider, or nil when
// trending is disabled.
func trendFetcher(cfg *config.Config) (recommend.TrendFetcher, error) {
	if !cfg.Trending.Enabled {
		return nil, nil
	}
	switch cfg.Trending.Type {
	case "reddit", "":
		return reddit.NewFromSettings(cfg.Trending.Settings)
	default:
		return nil, fmt.Errorf("unknown trending provider type: %s", cfg.Trending.Type)
	}
}

func seedSources(cfg *config.Config) []store.SeedSource {
	defaults := cfg.DefaultSources()
	seeds := make([]store.SeedSource, len(defaults))
	for i, src := range defaults {
		seeds[i] = store.SeedSource{
			Name:        src.Name,
			URL:         src.URL,
			Description: src.Description,
			Enabled:     src.Enabled,
		}
	}
	return seeds
}
