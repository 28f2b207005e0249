package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/meterdash-lab/project-meterdash/internal/charts"
	"github.com/meterdash-lab/project-meterdash/internal/core/config"
	"github.com/meterdash-lab/project-meterdash/internal/core/storage/postgres"
	"github.com/meterdash-lab/project-meterdash/internal/feeds"
	"github.com/meterdash-lab/project-meterdash/internal/ingestion"
	"github.com/meterdash-lab/project-meterdash/internal/migrations"
	"github.com/meterdash-lab/project-meterdash/internal/notify"
	"github.com/meterdash-lab/project-meterdash/internal/sampler"
	"github.com/meterdash-lab/project-meterdash/internal/server"
)

func main() {
	configPath := flag.String("config", "meterdash.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	loc, err := cfg.Charts.Location()
	if err != nil {
		slog.Error("Failed to resolve reporting timezone", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Storage (PostgreSQL)
	store, err := postgres.NewAdapter(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// 2.1. Run Database Migrations
	if err := migrations.RunMigrations(store.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// 3. Initialize Notifier
	var notifier notify.Notifier = notify.Nop{}
	if cfg.Notify.Enabled() {
		telegram, err := notify.NewTelegram(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID, loc)
		if err != nil {
			slog.Error("Failed to initialize telegram notifier", "error", err)
			os.Exit(1)
		}
		notifier = telegram
		slog.Info("Telegram notifier initialized", "chat_id", cfg.Notify.TelegramChatID)
	} else {
		slog.Info("No chat channel configured, notifications disabled")
	}

	// 4. Initialize Ingestion
	broadbandFeed := feeds.NewBroadbandClient(cfg.Broadband.Endpoint, cfg.Broadband.SubscriberCode)
	registryFeed := feeds.NewRegistryClient(cfg.Registry.Endpoint)

	ingestionSvc := ingestion.NewService(
		broadbandFeed,
		registryFeed,
		store,
		notifier,
		cfg.Registry.Packages,
		loc,
	)

	// 5. Initialize Charts (query API)
	chartsSvc := charts.NewService(store, ingestionSvc, charts.Config{
		DefaultRecords:    cfg.Charts.DefaultRecords,
		IncludeAnchor:     cfg.Charts.IncludeAnchor,
		ZeroBaselineFirst: cfg.Charts.ZeroBaselineFirst,
		Packages:          cfg.Registry.Packages,
	}, loc)

	// 6. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), store, cfg.Server.Mode)
	ingestionSvc.RegisterRoutes(srv.Engine)
	chartsSvc.RegisterRoutes(srv.Engine)

	// 7. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Sampler.Enabled {
		interval, err := cfg.Sampler.ParsedInterval()
		if err != nil {
			slog.Error("Invalid sampler interval", "value", cfg.Sampler.Interval, "error", err)
			os.Exit(1)
		}

		feedSampler := sampler.New(interval, ingestionSvc, cfg.Sampler.Announce)
		go func() {
			if err := feedSampler.Start(ctx); err != nil {
				slog.Error("Sampler stopped with error", "error", err)
			}
		}()
	} else {
		slog.Info("Feed sampler disabled by config")
	}

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
