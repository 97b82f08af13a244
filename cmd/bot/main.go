package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/paepae/kucoin-lendingbot/internal/config"
	"github.com/paepae/kucoin-lendingbot/internal/domain"
	"github.com/paepae/kucoin-lendingbot/internal/infrastructure/exchange"
	"github.com/paepae/kucoin-lendingbot/internal/infrastructure/logger"
	"github.com/paepae/kucoin-lendingbot/internal/infrastructure/storage"
	"github.com/paepae/kucoin-lendingbot/internal/usecase"
	"github.com/paepae/kucoin-lendingbot/internal/web"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, warnings, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var log *zap.Logger
	if cfg.Logging.File != "" {
		log, err = logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
	}
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	for _, warning := range warnings {
		log.Warn(warning)
	}

	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath = "lendingbot.db"
	}
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	factory := func(acct config.AccountConfig) domain.Exchange {
		return exchange.NewKucoinAdapter(acct.APIKey, acct.APISecret, acct.APIPassphrase, acct.BaseURL)
	}
	runner := usecase.NewRunner(cfg.Accounts, factory, store, log)

	if cfg.Scheduler.Cron != "" {
		c := cron.New(cron.WithSeconds())
		_, err := c.AddFunc(cfg.Scheduler.Cron, func() {
			runner.Execute(context.Background(), cfg.Scheduler.Execute)
		})
		if err != nil {
			log.Fatal("Failed to register cron schedule", zap.Error(err))
		}
		c.Start()
		defer c.Stop()
		log.Info("Scheduler started",
			zap.String("cron", cfg.Scheduler.Cron),
			zap.Bool("execute", cfg.Scheduler.Execute))
	}

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	server := web.NewServer(port, runner, store, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	server.Shutdown(context.Background())
}
