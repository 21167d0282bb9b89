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

	"go-school-admin/internal/app"
	"go-school-admin/internal/config"
	"go-school-admin/internal/logger"
	"go-school-admin/internal/metrics"
	"go-school-admin/internal/tracing"
)

func main() {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig()
	if err != nil {
		// Use fmt.Printf here because the logger is not yet initialized.
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Initialization ---
	log := logger.New(cfg.Log, nil)

	// --- Tracing ---
	shutdownTracing, err := tracing.Init(cfg.Tracing, os.Stderr)
	if err != nil {
		log.Fatal(err, "Failed to initialize tracing")
	}

	// --- Database, Migrations and Cache ---
	deps, closeDeps, err := app.Open(context.Background(), cfg, log)
	if err != nil {
		log.Fatal(err, "Failed to initialize storage")
	}
	defer closeDeps()
	log.Info("Storage initialized.")

	// --- Router Setup ---
	router := app.NewRouter(deps, metrics.New())

	// --- Server Initialization and Graceful Shutdown ---
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if cfg.Server.TLS.Enabled {
			log.Info(fmt.Sprintf("Starting HTTPS server on %s", server.Addr))
			if err := server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTPS server")
			}
		} else {
			log.Info(fmt.Sprintf("Starting HTTP server on %s", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTP server")
			}
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Warn("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}
	if err := shutdownTracing(ctx); err != nil {
		log.Error(err, "Failed to flush traces")
	}
	log.Info("Server exiting")
}
