package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"trading-signal-bot/config"
	"trading-signal-bot/internal/api"
	"trading-signal-bot/internal/cache"
	"trading-signal-bot/internal/database"
	"trading-signal-bot/internal/engine"
	"trading-signal-bot/internal/events"
	"trading-signal-bot/internal/marketdata"
	"trading-signal-bot/internal/notification"
	"trading-signal-bot/internal/position"
	"trading-signal-bot/internal/risk"
	"trading-signal-bot/internal/scoring"
)

func main() {
	configPath := flag.String("config", "config.json", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger := zerolog.New(os.Stderr)
		logger.Fatal().Err(err).Msg("config load failed")
	}

	log := newLogger(cfg.LoggingConfig)
	log.Info().Str("config", *configPath).Msg("starting signal engine")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewDB(cfg.DatabaseConfig.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}
	repo := database.NewRepository(db)

	var snapshots *cache.SnapshotCache
	if cfg.RedisConfig.Enabled {
		snapshots = cache.NewSnapshotCache(cfg.RedisConfig, log)
		defer snapshots.Close()
	}

	var provider marketdata.Provider
	if cfg.MarketDataConfig.MockMode {
		log.Warn().Msg("mock market data enabled")
		provider = marketdata.NewMockClient()
	} else {
		provider = marketdata.NewClient(cfg.MarketDataConfig.BaseURL)
	}
	cached := marketdata.NewCachedProvider(provider, time.Duration(cfg.AnalysisConfig.CacheTTLSeconds)*time.Second)

	bus := events.NewEventBus()

	notifier := notification.NewManager(cfg.NotificationConfig.Enabled)
	notifier.AddNotifier(notification.NewTelegramNotifier(notification.TelegramConfig{
		BotToken: cfg.NotificationConfig.Telegram.BotToken,
		ChatID:   cfg.NotificationConfig.Telegram.ChatID,
		Enabled:  cfg.NotificationConfig.Telegram.Enabled,
	}))
	notifier.AddNotifier(notification.NewNtfyNotifier(notification.NtfyConfig{
		ServerURL: cfg.NotificationConfig.Ntfy.ServerURL,
		Topic:     cfg.NotificationConfig.Ntfy.Topic,
		Enabled:   cfg.NotificationConfig.Ntfy.Enabled,
	}))

	alerts := notification.NewAlertRules(
		cfg.AlertsConfig.ScoreDeviation,
		cfg.AlertsConfig.RSIOverbought,
		cfg.AlertsConfig.RSIOversold,
		time.Duration(cfg.AlertsConfig.CooldownSeconds)*time.Second,
		nil,
	)

	clock := engine.RealClock{}

	gate := risk.NewGate(risk.Config{
		DailyLossLimitPercent: cfg.TradingConfig.DailyLossLimitPercent,
		MaxOpenPositions:      cfg.TradingConfig.MaxOpenPositions,
		MaxTradesPerHour:      cfg.TradingConfig.MaxTradesPerHour,
		CooldownSeconds:       cfg.TradingConfig.TradeCooldownSeconds,
	}, repo, clock, log)

	positions := position.NewManager(
		repo, bus, notifier, clock,
		time.Duration(cfg.TradingConfig.TimeExitSeconds)*time.Second,
		log,
	)

	scorer := scoring.NewScorer(log)

	var snapshotSink engine.SnapshotCache
	if snapshots != nil {
		snapshotSink = snapshots
	}
	eng := engine.New(cfg, cached, scorer, gate, positions, repo, snapshotSink, bus, notifier, alerts, clock, log)
	eng.Start(ctx)

	server := api.NewServer(cfg, repo, snapshots, eng, bus, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("api server failed")
		}
	}

	cancel()
	eng.Stop()
	log.Info().Msg("shutdown complete")
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
