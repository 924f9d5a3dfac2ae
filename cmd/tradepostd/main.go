package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradepost/config"
	"tradepost/gateway"
	"tradepost/ledger"
	"tradepost/native/trade"
	"tradepost/observability/logging"
	"tradepost/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logging.Setup("tradepostd", "", os.Stderr, slog.LevelInfo).Error("load config", "err", err)
		os.Exit(1)
	}
	logger := logging.Setup("tradepostd", cfg.Environment, os.Stdout, logging.LevelFor(cfg.Environment))

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("create data dir", "err", err)
		os.Exit(1)
	}
	store, err := storage.Open(cfg.SnapshotPath())
	if err != nil {
		logger.Error("open snapshot store", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	inventory := ledger.NewInventory()
	currency := ledger.NewCurrency()
	for actorID, seed := range cfg.Seed {
		currency.Credit(actorID, seed.Currency)
		inventory.Seed(actorID, seed.Items)
	}
	tiers := ledger.NewStaticTiers(cfg.Trade.TierAssignments, cfg.Trade.DefaultTier)

	engine := trade.NewEngine(cfg.EngineConfig(), inventory, currency, tiers)
	engine.SetSink(newEngineSink(logger, store))

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), shutdownTimeout)
	snap, ok, err := store.LoadSnapshot(loadCtx)
	cancelLoad()
	if err != nil {
		logger.Error("load snapshot", "err", err)
		os.Exit(1)
	}
	if ok {
		engine.Restore(snap)
		logger.Info("snapshot restored", "activeOffers", len(engine.ActiveOffers()))
	}

	srv := &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: gateway.NewServer(engine, logger).Router(),
	}

	stop := make(chan struct{})
	go runMaintenance(engine, store, cfg, logger, stop)

	go func() {
		logger.Info("trade gateway listening", "addr", cfg.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	close(stop)

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
	if err := store.SaveSnapshot(ctx, engine.Snapshot()); err != nil {
		logger.Error("persist final snapshot", "err", err)
	}
}

// runMaintenance drives the periodic expiry sweep and snapshot persistence.
// Expiry is also enforced lazily on every read path; the ticker only bounds
// staleness for idle processes.
func runMaintenance(engine *trade.Engine, store *storage.Store, cfg *config.Config, logger *slog.Logger, stop <-chan struct{}) {
	sweep := time.NewTicker(time.Duration(cfg.Trade.SweepIntervalSeconds) * time.Second)
	snapshot := time.NewTicker(time.Duration(cfg.Trade.SnapshotIntervalSeconds) * time.Second)
	defer sweep.Stop()
	defer snapshot.Stop()
	for {
		select {
		case <-stop:
			return
		case <-sweep.C:
			if expired := engine.SweepExpired(); expired > 0 {
				logger.Info("expiry sweep", "expired", expired)
			}
		case <-snapshot.C:
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			if err := store.SaveSnapshot(ctx, engine.Snapshot()); err != nil {
				logger.Error("persist snapshot", "err", err)
			}
			cancel()
		}
	}
}
