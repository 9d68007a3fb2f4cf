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

	"codeberg.org/docuchat/server/internal/config"
	"codeberg.org/docuchat/server/internal/logger"
)

func main() {
	logger.Info("starting docuchat server")

	// load configuration from environment
	cfg, err := config.LoadEnvironmentVariables()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	// create server with all dependencies
	srv, err := NewServer(cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		// chat turns wait on the LLM, so writes get the generation timeout plus slack
		WriteTimeout: cfg.Pipeline.LLMTimeout*2 + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// start ingestion workers, then pick up documents a previous run left behind
	srv.services.Pool.Start()

	recoverCtx, recoverCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := srv.services.Ingest.Recover(recoverCtx); err != nil {
		logger.ErrorErr(err, "failed to recover unfinished documents")
	}
	recoverCancel()

	// start server in goroutine
	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	// wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// stop accepting requests first, with a 10 second grace period
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// stop taking jobs off NATS before the local workers go away
	if srv.services.NATS != nil {
		if err := srv.services.NATS.Close(); err != nil {
			logger.ErrorErr(err, "failed to drain nats connection")
		}
	}

	// cancels running jobs, which roll back and are marked failed
	srv.services.Pool.Stop()

	closeRedis(srv.redis)

	srv.db.Close()

	logger.Info("server stopped")
}
