package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/horseshoedev/mythrilmerch/internal/auth"
	"github.com/horseshoedev/mythrilmerch/internal/config"
	"github.com/horseshoedev/mythrilmerch/internal/db"
	"github.com/horseshoedev/mythrilmerch/internal/events"
	"github.com/horseshoedev/mythrilmerch/internal/httpserver"
	"github.com/horseshoedev/mythrilmerch/internal/metrics"
	"github.com/horseshoedev/mythrilmerch/internal/pool"
	"github.com/horseshoedev/mythrilmerch/internal/ratelimit"
	"github.com/horseshoedev/mythrilmerch/internal/search"
	"github.com/horseshoedev/mythrilmerch/internal/store"
	"github.com/horseshoedev/mythrilmerch/pkg/logging"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	gormDB, err := db.Open(initCtx, cfg)
	cancel()
	if err != nil {
		logger.Error("db init error", "error", err)
		os.Exit(1)
	}

	dbPool, err := pool.New(gormDB, cfg.PoolMaxConns, 5*time.Second)
	if err != nil {
		logger.Error("pool init error", "error", err)
		os.Exit(1)
	}
	logger.Info("database pool initialized", "min", cfg.PoolMinConns, "max", cfg.PoolMaxConns)

	repo := store.New(dbPool)

	authSvc := &auth.Service{
		Store:         repo,
		Blocklist:     auth.NewBlocklist(),
		JWTSecret:     []byte(cfg.JWT_SECRET),
		RefreshSecret: []byte(cfg.REFRESH_SECRET),
	}

	var producer *events.Producer
	if cfg.KAFKA_ADDRESS != "" {
		producer = events.NewProducer(cfg.KAFKA_ADDRESS)
		logger.Info("kafka producer enabled", "address", cfg.KAFKA_ADDRESS)
	}

	deps := &httpserver.Deps{
		Logger:    logger,
		Collector: metrics.NewCollector(),
		Limiter: ratelimit.New(ratelimit.Budgets{
			PerMinute: cfg.RatePerMinute,
			PerHour:   cfg.RatePerHour,
			PerDay:    cfg.RatePerDay,
		}),
		Auth:     authSvc,
		Store:    repo,
		Pool:     dbPool,
		Producer: producer,
	}

	if cfg.ES_URL != "" {
		esClient, err := search.NewClient(cfg)
		if err != nil {
			logger.Warn("elasticsearch unavailable, search disabled", "error", err)
		} else {
			deps.ES = esClient
			logger.Info("product search enabled", "url", cfg.ES_URL)
		}
	}

	e := httpserver.New(deps)
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	go func() {
		addr := ":" + cfg.Port
		var err error
		if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := dbPool.Shutdown(); err != nil {
		logger.Error("pool shutdown error", "error", err)
	}
	if err := producer.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}
