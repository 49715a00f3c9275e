package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/minaamq/Q2time-tracking-system/internal/bot"
	"github.com/minaamq/Q2time-tracking-system/internal/config"
	"github.com/minaamq/Q2time-tracking-system/internal/handler"
	"github.com/minaamq/Q2time-tracking-system/internal/logging"
	"github.com/minaamq/Q2time-tracking-system/internal/repository"
	"github.com/minaamq/Q2time-tracking-system/internal/seed"
	"github.com/minaamq/Q2time-tracking-system/internal/service"
	"github.com/minaamq/Q2time-tracking-system/pkg/ipcache"
	"github.com/minaamq/Q2time-tracking-system/pkg/telegram"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "time-tracker",
		Short: "Employee daily work-hour tracking service",
	}

	rootCmd.AddCommand(serveCmd(), seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (and Telegram bot when configured)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Provision demo time entries for the current day",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			logger := logging.New(cfg.LogLevel, cfg.LogFile)

			db, closeDB, err := openDatabase(cfg, logger)
			if err != nil {
				return err
			}
			defer closeDB()

			repo, err := repository.NewGormTimeEntryRepository(db, logger)
			if err != nil {
				return err
			}

			return seed.Run(cmd.Context(), repo, service.NewSystemClock(), logger)
		},
	}
}

func runServe() error {
	cfg := config.Get()
	logger := logging.New(cfg.LogLevel, cfg.LogFile)

	logger.WithField("app", cfg.AppName).Info("Starting time tracking service")

	db, closeDB, err := openDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	repo, err := repository.NewGormTimeEntryRepository(db, logger)
	if err != nil {
		return err
	}

	// Кэш геолокации опционален: без него каждый вызов идет к провайдеру
	var geoCache *ipcache.Cache
	if cfg.GeoCachePath != "" {
		geoCache, err = ipcache.Open(cfg.GeoCachePath, time.Duration(cfg.GeoCacheTTLHours)*time.Hour)
		if err != nil {
			logger.WithError(err).Warn("Failed to open geo cache, lookups will not be cached")
			geoCache = nil
		} else {
			defer geoCache.Close()
		}
	}

	clock := service.NewSystemClock()
	geo := service.NewGeoTimezoneService(cfg.DefaultTimezone, cfg.IPGeolocationAPIKey, geoCache, logger)
	calc := service.NewTimeCalculator(logger)
	sessions := service.NewSessionManager(repo, geo, clock, calc, logger)

	if cfg.SeedDemoData {
		if err := seed.Run(context.Background(), repo, clock, logger); err != nil {
			logger.WithError(err).Warn("Failed to seed demo data")
		}
	}

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), handler.CORSMiddleware())
	handler.New(sessions, geo, clock, logger).Register(engine)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	go func() {
		logger.WithField("port", cfg.HTTPPort).Info("HTTP API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	// Бот поднимается только при заданном токене
	if cfg.TelegramBotToken != "" {
		client, err := telegram.NewClient(cfg.TelegramBotToken)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create Telegram client")
		}

		logger.WithField("account", client.Bot.Self.UserName).Info("Telegram bot authorized")

		botHandler := bot.NewHandler(client, sessions, clock, cfg.DefaultTimezone, logger)
		go botHandler.HandleUpdates(client.Bot.GetUpdatesChan(client.UpdateConfig))
	}

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown failed")
	}

	logger.Info("Service stopped gracefully")
	return nil
}

func openDatabase(cfg *config.Config, logger *logrus.Logger) (*gorm.DB, func(), error) {
	db, err := gorm.Open(sqlite.Open(cfg.DatabaseURL), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true, // ограничения SQLite
	})
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		return nil, nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.WithError(err).Error("Failed to get database instance")
		return nil, nil, err
	}

	// Внешние ключи в SQLite надо включать явно
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		logger.WithError(err).Warn("Failed to enable foreign keys")
	}

	closeDB := func() {
		if err := sqlDB.Close(); err != nil {
			logger.WithError(err).Warn("Error closing database")
		}
	}

	return db, closeDB, nil
}
