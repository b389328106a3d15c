/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payroll engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment) and parse flags
  2. Build the zap logger
  3. Load the engine configuration (tax tables, tier caps, rates)
  4. Initialize SQLite store
  5. Create API handler, router and monthly scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS (override environment):
  -port      HTTP server port
  -db        SQLite database path, ":memory:" for in-memory
  -engine    Engine config file (.json, .yaml, .yml)
  -workers   Bulk run concurrency
  -scheduler Enable the monthly payroll scheduler

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler (an in-flight run is cancelled)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  ./server -db="./data/payroll.db" -engine=config/engine.yaml
  ./server -db=":memory:" -scheduler=false

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	flag.StringVar(&cfg.EngineConfigPath, "engine", cfg.EngineConfigPath, "Engine config file (JSON or YAML)")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "Bulk payroll concurrency")
	flag.BoolVar(&cfg.Scheduler.Enabled, "scheduler", cfg.Scheduler.Enabled, "Enable the monthly payroll scheduler")
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// Engine configuration
	engineCfg := payroll.DefaultConfig()
	if cfg.EngineConfigPath != "" {
		if engineCfg, err = factory.LoadEngineConfigFile(cfg.EngineConfigPath); err != nil {
			logger.Fatal("failed to load engine config", zap.String("path", cfg.EngineConfigPath), zap.Error(err))
		}
	}
	engine, err := payroll.NewEngine(engineCfg)
	if err != nil {
		logger.Fatal("invalid engine config", zap.Error(err))
	}
	logger.Info("engine configured", zap.Ints("tax_years", engineCfg.TaxTables.Years()))

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.String("db", cfg.DBPath), zap.Error(err))
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store, engine, logger)
	handler.Runner.Workers = cfg.Workers
	handler.DefaultTaxYear = cfg.DefaultTaxYear

	scheduler := api.NewPayrollScheduler(handler)
	scheduler.Enabled = cfg.Scheduler.Enabled
	scheduler.CheckInterval = cfg.Scheduler.Interval
	scheduler.Start()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg.Level = level
	return zcfg.Build()
}
