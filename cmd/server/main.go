package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/walo-labs/leaderboard-monitor/internal/config"
	"github.com/walo-labs/leaderboard-monitor/internal/dedup"
	"github.com/walo-labs/leaderboard-monitor/internal/handler"
	"github.com/walo-labs/leaderboard-monitor/internal/middleware"
	"github.com/walo-labs/leaderboard-monitor/internal/monitor"
	"github.com/walo-labs/leaderboard-monitor/internal/rusticated"
	"github.com/walo-labs/leaderboard-monitor/internal/store"
	"github.com/walo-labs/leaderboard-monitor/internal/telegram"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if cfg.TelegramToken == "" {
		logger.Error("TELEGRAM_BOT_TOKEN is required")
		os.Exit(1)
	}
	if cfg.ChatID == 0 {
		logger.Error("TELEGRAM_CHAT_ID is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metric catalog
	registry, err := rusticated.NewRegistry()
	if err != nil {
		logger.Error("invalid metric catalog", "error", err)
		os.Exit(1)
	}

	// Database
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected and migrated")

	seedWatchLists(ctx, db, cfg, logger)

	// Redis dedup (retry up to 30s for ExternalSecret to sync)
	var dd *dedup.Deduplicator
	for i := 0; i < 6; i++ {
		dd, err = dedup.New(cfg.RedisURL, cfg.RedisPassword)
		if err == nil {
			break
		}
		logger.Warn("redis not ready, retrying...", "attempt", i+1, "error", err)
		time.Sleep(5 * time.Second)
	}
	if err != nil {
		logger.Error("failed to connect to redis after retries", "error", err)
		os.Exit(1)
	}
	defer dd.Close()
	logger.Info("redis connected for alert dedup")

	// Telegram bot and monitoring engine. The bot is the engine's message
	// sink; the engine is attached to the bot for command replies.
	bot := telegram.NewBot(cfg.TelegramToken, db, logger)

	engine, err := monitor.NewEngine(monitor.Options{
		Source:          rusticated.NewClient(cfg.ServerID, cfg.ServerWipeID, cfg.OrgID),
		Sink:            bot,
		Store:           db,
		Dedup:           dd,
		Logger:          logger,
		Registry:        registry,
		ChatID:          cfg.ChatID,
		OwnClan:         cfg.ClanName,
		AlertMention:    cfg.AlertMention,
		ServerID:        cfg.ServerID,
		Thresholds:      cfg.SpikeThresholds,
		PlayerOverrides: cfg.PlayerClanOverrides,
		ClanRoster:      cfg.ClanRoster,
		DisplayMetrics:  rusticated.DisplayMetrics,
		PollInterval:    cfg.PollInterval,
		TrendWindow:     cfg.TrendWindow,
		DigestHour:      cfg.DigestHour,
	})
	if err != nil {
		logger.Error("failed to build engine", "error", err)
		os.Exit(1)
	}
	bot.AttachMonitor(engine)

	// Start background goroutines
	go bot.Run(ctx)
	go engine.Run(ctx)

	// HTTP routes
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.FrontendOrigin))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", handler.Health())
	r.Get("/readyz", handler.Ready(db))

	r.Route("/api", func(r chi.Router) {
		r.Get("/watches/clans", handler.ListWatchedClans(db))
		r.Post("/watches/clans", handler.AddWatchedClan(db))
		r.Delete("/watches/clans/{name}", handler.RemoveWatchedClan(db))
		r.Get("/watches/players", handler.ListWatchedPlayers(db))
		r.Post("/watches/players", handler.AddWatchedPlayer(db))
		r.Delete("/watches/players/{steamID}", handler.RemoveWatchedPlayer(db))
		r.Get("/leaderboard", handler.Leaderboard(engine))
		r.Get("/trends", handler.Trends(engine, rusticated.DisplayMetrics[0]))
		r.Get("/status", handler.Status(engine, registry))
		r.Post("/tracking", handler.SetTracking(engine))
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down gracefully")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

// seedWatchLists inserts the configured starter clans and players at boot.
// Inserts are idempotent; an entry removed at runtime comes back on restart
// for as long as it stays configured.
func seedWatchLists(ctx context.Context, db *store.Store, cfg config.Config, logger *slog.Logger) {
	for _, clan := range cfg.WatchClanSeeds {
		if err := db.AddWatchClan(ctx, clan); err != nil {
			logger.Warn("failed to seed watch clan", "clan", clan, "error", err)
		}
	}
	for _, steamID := range cfg.WatchPlayerSeeds {
		if !rusticated.ValidSteamID(steamID) {
			logger.Warn("skipping invalid watch player seed", "steam_id", steamID)
			continue
		}
		if err := db.AddWatchPlayer(ctx, steamID); err != nil {
			logger.Warn("failed to seed watch player", "steam_id", steamID, "error", err)
		}
	}
}
