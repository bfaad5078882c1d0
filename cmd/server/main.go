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

	"badgehub/internal/appinfo"
	"badgehub/internal/config"
	"badgehub/internal/database"
	"badgehub/internal/handlers/web"
	"badgehub/internal/response"
	"badgehub/internal/router"
	"badgehub/internal/services"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.Logging.BuildLogger(cfg.Server.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting badge service",
		zap.String("version", appinfo.GetVersion()),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Badge service stopped with error", zap.Error(err))
	}
	logger.Info("Application shutdown completed")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	dbManager, err := database.InitDB(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	serviceCollection, err := services.NewServiceCollection(dbManager, cfg, logger)
	if err != nil {
		dbManager.Close()
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serviceCollection.Start(ctx); err != nil {
		shutdownServices(serviceCollection, cfg.Server.GracefulTimeout, logger)
		return err
	}

	hub := web.NewHub(cfg.Server.AllowedOrigins, cfg.Badges.NotifyBufferSize, logger.Named("ws"))
	if err := serviceCollection.RegisterNotifier(hub); err != nil {
		shutdownServices(serviceCollection, cfg.Server.GracefulTimeout, logger)
		return fmt.Errorf("failed to register notifier: %w", err)
	}

	responseConfig := response.DefaultConfig()
	if !cfg.IsProduction() {
		responseConfig = response.DevelopmentConfig()
	}
	responseBuilder := response.NewBuilder(responseConfig, logger)

	handler := router.SetupRouter(serviceCollection, responseBuilder, router.Options{
		Hub:            hub,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down application...")
	case err, ok := <-serverErr:
		if ok {
			runErr = fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	} else {
		logger.Info("Server shutdown completed")
	}

	hub.Close()

	metrics := dbManager.Metrics()
	logger.Info("Final database metrics",
		zap.Int64("total_queries", metrics.QueryCount),
		zap.Int64("total_errors", metrics.ErrorCount),
		zap.Int64("slow_queries", metrics.SlowQueryCount),
		zap.Duration("avg_query_duration", metrics.AvgQueryDuration),
	)

	shutdownServices(serviceCollection, cfg.Server.GracefulTimeout, logger)
	return runErr
}

func shutdownServices(sc *services.ServiceCollection, timeout time.Duration, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := sc.Shutdown(ctx); err != nil {
		logger.Error("Service shutdown failed", zap.Error(err))
	}
}
