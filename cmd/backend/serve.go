package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/fluxbpm/script-registry/cmd/backend/handlers"
	"github.com/fluxbpm/script-registry/database"
	"github.com/fluxbpm/script-registry/internal/metrics"
	"github.com/fluxbpm/script-registry/logger"
	"github.com/fluxbpm/script-registry/sandbox"
	"github.com/fluxbpm/script-registry/script"
)

var configFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServer,
}

func init() {
	serveCmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.AddCommand(serveCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Load configuration
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log := logger.NewLogrusLogger(cfg.Log.Level)
	log.Info(ctx, "starting server", map[string]interface{}{
		"version": Version,
		"commit":  Commit,
		"date":    BuildDate,
	})

	// Connect to database
	dbCfg := database.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}

	db, err := database.Connect(dbCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	defer sqlDB.Close()

	log.Info(ctx, "database connected", map[string]interface{}{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Database,
	})

	// Initialize the registry, the ledger and the sandbox client
	ledger := script.NewMySQLLedger(db, log)
	store := script.NewMySQLStore(db, ledger, log)
	runner := sandbox.NewHTTPRunner(cfg.Sandbox.URL, cfg.Sandbox.Timeout)

	log.Info(ctx, "sandbox client initialized", map[string]interface{}{
		"url":     cfg.Sandbox.URL,
		"timeout": cfg.Sandbox.Timeout.String(),
	})

	// Initialize metrics
	m := metrics.New()

	// Setup router
	router := mux.NewRouter()

	observability := handlers.NewObservabilityMiddleware(m, log)
	router.Use(observability.Handler)

	healthHandler := handlers.NewHealthHandler(db, log)
	router.HandleFunc("/health", healthHandler.Check).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Script routes. Preview is registered before the {id} routes so the
	// literal segment wins.
	scriptHandler := handlers.NewScriptHandler(store, ledger, runner, m, log)

	router.HandleFunc("/scripts/preview", scriptHandler.Preview).Methods("POST")
	router.HandleFunc("/scripts", scriptHandler.Create).Methods("POST")
	router.HandleFunc("/scripts", scriptHandler.List).Methods("GET")
	router.HandleFunc("/scripts/{id}", scriptHandler.Get).Methods("GET")
	router.HandleFunc("/scripts/{id}", scriptHandler.Update).Methods("PUT")
	router.HandleFunc("/scripts/{id}", scriptHandler.Delete).Methods("DELETE")
	router.HandleFunc("/scripts/{id}/versions", scriptHandler.History).Methods("GET")
	router.HandleFunc("/scripts/{id}/versions/{version_id}", scriptHandler.GetVersion).Methods("GET")
	router.HandleFunc("/scripts/{id}/duplicate", scriptHandler.Duplicate).Methods("POST")

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info(ctx, "server listening", map[string]interface{}{
			"address": addr,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info(ctx, "shutting down server", nil)

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info(ctx, "server stopped", nil)
	return nil
}
