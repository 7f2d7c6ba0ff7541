package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/osimia/algoridmi/internal/cache"
	"github.com/osimia/algoridmi/internal/config"
	"github.com/osimia/algoridmi/internal/leaderboard"
	"github.com/osimia/algoridmi/internal/practice"
	"github.com/osimia/algoridmi/internal/server"
	"github.com/osimia/algoridmi/internal/store"
	"github.com/osimia/algoridmi/internal/tournament"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect db", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := store.Migrate(ctx, db); err != nil {
		logger.Error("migrate", "err", err)
		os.Exit(1)
	}

	rdb, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Error("connect redis", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	limiter := practice.NewSubmitLimiter(cfg.AttemptMinInterval)
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limiter.Sweep()
			case <-ctx.Done():
				return
			}
		}
	}()

	practiceSvc := practice.NewService(db, limiter, logger)
	arenaSvc := tournament.NewService(db, rdb, cfg.SettleLockTTL, logger)

	metrics := server.NewMetrics()
	hub := server.NewHub(cfg.JWTSecret, cfg.WSPingInterval, metrics, logger)

	// Relay arena events announced by any process (usually arenactl) to
	// the clients connected here.
	board := leaderboard.NewService(rdb)
	go func() {
		if err := board.Listen(ctx, hub.Dispatch); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("arena events", "err", err)
		}
	}()

	srv := server.New(cfg, db, rdb, hub, metrics, logger)
	srv.SetPractice(practiceSvc)
	srv.SetArena(arenaSvc)
	go srv.Sweep(ctx)

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}
