// Package main is the entry point for the Well Builder game server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MRamiBalles/WellBuilder/server/internal/domain/difficulty"
	"github.com/MRamiBalles/WellBuilder/server/internal/engine"
	"github.com/MRamiBalles/WellBuilder/server/internal/events"
	"github.com/MRamiBalles/WellBuilder/server/internal/infra/storage"
	"github.com/MRamiBalles/WellBuilder/server/internal/network"
	"github.com/MRamiBalles/WellBuilder/server/internal/platform/config"
	"github.com/MRamiBalles/WellBuilder/server/internal/platform/logger"
	"github.com/MRamiBalles/WellBuilder/server/internal/platform/metrics"
	"github.com/MRamiBalles/WellBuilder/server/internal/platform/optimization"
)

const (
	shutdownTimeout = 10 * time.Second
	tuningInterval  = time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "wellbuilder-server: %v\n", err)
		os.Exit(1)
	}
}

// run owns every resource so that deferred cleanup happens before main exits.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	appLogger := logger.NewLogger(cfg.LogLevel)
	defer appLogger.Sync()

	profile, ok, err := optimization.ForName(cfg.Profile)
	if err != nil {
		appLogger.Error("Invalid profile", zap.Error(err))
		return err
	}
	if ok {
		optimization.Apply(cfg, profile)
		appLogger.Info("Tuning profile applied", zap.String("profile", profile.Name))
	}

	sessionID := uuid.NewString()
	appLogger = appLogger.With(zap.String("session", sessionID))
	appLogger.Info("Initializing Well Builder authoritative server...")

	table := difficulty.DefaultTable()
	if cfg.BalanceFile != "" {
		table, err = config.LoadBalance(cfg.BalanceFile)
		if err != nil {
			appLogger.Error("Failed to load balance file", zap.String("path", cfg.BalanceFile), zap.Error(err))
			return err
		}
		appLogger.Info("Balance overrides loaded", zap.String("path", cfg.BalanceFile))
	}

	appLogger.Info("Initializing SQLite database", zap.String("path", cfg.DBPath))
	db, err := storage.InitSQLite(cfg.DBPath, cfg.DBMaxOpenConns)
	if err != nil {
		appLogger.Error("Failed to initialize SQLite", zap.Error(err))
		return err
	}
	defer db.Close()

	saveRepo := storage.NewSQLiteSaveRepository(db)
	eventRepo := storage.NewSQLiteEventRepository(db)

	appLogger.Info("Bootstrapping EventLog...")
	eventLog := events.NewEventLog(cfg.EventLogCapacity, storage.NewHistoryPersister(eventRepo, sessionID),
		events.WithLogger(appLogger))
	defer eventLog.Close()

	appLogger.Info("Bootstrapping Engine...")
	gameEngine := engine.NewEngine(saveRepo, eventLog, appLogger, engine.Options{
		Table:    table,
		SaveKey:  cfg.SaveKey,
		TickRate: cfg.TickRate,
		SaveRate: cfg.SaveRate,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if gameEngine.Load(ctx) {
		appLogger.Info("Playthrough restored from save")
	}
	gameEngine.Start(ctx)

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(gameEngine, appLogger, network.HubOptions{
		SendBuffer:        cfg.ClientSendBuffer,
		ActionMinInterval: cfg.ActionMinInterval,
	})
	go hub.Run(ctx)
	hub.StartEventPoller(ctx)
	go watchTuning(ctx, appLogger)

	// Setup API Routes
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		network.ServeWS(ctx, hub, w, r)
	})
	network.NewGameAPI(gameEngine, appLogger).RegisterRoutes(mux)
	network.NewHistoryHandler(eventRepo, eventLog, appLogger).RegisterRoutes(mux)
	mux.HandleFunc("/metrics", metrics.Handler())
	mux.HandleFunc("/metrics/prometheus", metrics.PrometheusHandler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		appLogger.Info("HTTP API & WS Server listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Server failed", zap.Error(err))
			cancel()
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	appLogger.Info("Shutting down...")
	gameEngine.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	if err := gameEngine.Save(shutdownCtx); err != nil {
		appLogger.Error("Final save failed", zap.Error(err))
	} else {
		appLogger.Info("Final save written")
	}
	cancel()
	return nil
}

// watchTuning logs tuning hints from the live metrics.
func watchTuning(ctx context.Context, log *logger.Logger) {
	ticker := time.NewTicker(tuningInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rec := optimization.Analyze(metrics.Get().Snapshot())
			if !rec.Empty() {
				log.Warn("Tuning recommendations", zap.Strings("notes", rec.Notes))
			}
		}
	}
}
