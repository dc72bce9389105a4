package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"settlements/internal/amqp"
	"settlements/internal/cache"
	"settlements/internal/cli"
	apphttp "settlements/internal/http"
	"settlements/internal/log"
	"settlements/internal/month"
	"settlements/internal/services"
)

const cacheCleanupInterval = 10 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.ShutdownContext(context.Background())
	defer stop()

	store := cli.OpenBackend(ctx, logger, cfg)
	defer func() {
		if err := store.Cleanup(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	}()

	// Publishing is optional: without a broker the worker's sweep still
	// picks up every change.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, relying on worker sweep", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
		}
	}

	clock := month.SystemClock{}
	svc := services.NewSettlementService(store.Backend, publisher, clock)

	srv, err := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Clock:  clock,
		Logger: logger,
		Ready:  store.Backend.Ping,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 15 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	caches := cache.NewManager()
	caches.Register(svc.SummaryCache())
	for _, c := range srv.Caches() {
		caches.Register(c)
	}
	caches.StartCleanup(cacheCleanupInterval)
	defer caches.Stop()

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	}()

	logger.Info("Starting settlements server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
