package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/mediagrab-go/api"
	"github.com/yourusername/mediagrab-go/internal/app"
	"github.com/yourusername/mediagrab-go/internal/domain"
	"github.com/yourusername/mediagrab-go/internal/infrastructure"
	"github.com/yourusername/mediagrab-go/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and fulfillment worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}
		return runServer(config)
	},
}

func runServer(config *domain.Config) error {
	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	var multiLog *logger.MultiLogger
	if config.Logging.LogsDir != "" {
		multiLog, err = logger.NewMultiLogger(logger.MultiLoggerConfig{
			Level:   config.Logging.Level,
			LogsDir: config.Logging.LogsDir,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize event logs: %w", err)
		}
		defer multiLog.Close()
	}

	log.Info("Starting MediaGrab server",
		zap.String("version", "1.0.0"),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("database", config.Database.Driver),
		zap.String("queue", config.Queue.Driver))

	db, err := infrastructure.OpenDatabase(&config.Database)
	if err != nil {
		return err
	}
	defer infrastructure.CloseDatabase(db)

	identity, err := infrastructure.NewJWTIdentityProvider(config.Auth.JWTSecret, config.Auth.Issuer)
	if err != nil {
		return err
	}

	queue, leaser, err := newJobQueue(&config.Queue)
	if err != nil {
		return err
	}
	defer queue.Close()

	repo := infrastructure.NewGormJobRepository(db)
	subscriptions := infrastructure.NewGormSubscriptionStore(db)
	fetchers := infrastructure.NewFetchers(infrastructure.SimulationConfig{
		Latency: config.Fulfillment.SimulatedLatency,
	}, log)

	orchestrator := app.NewOrchestrator(identity, subscriptions, domain.NewPolicyEvaluator(), repo, queue, log, multiLog)
	worker := app.NewFulfillmentWorker(repo, queue, leaser, fetchers, &config.Fulfillment, &config.Queue, log, multiLog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if config.Fulfillment.AutoStartWorkers {
		if err := worker.Start(ctx); err != nil {
			return fmt.Errorf("failed to start fulfillment worker: %w", err)
		}
	}

	router := api.SetupRouter(orchestrator, worker, config.Server.WatchInterval, log)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Received shutdown signal")
	case err := <-serverErr:
		log.Error("HTTP server failed", zap.Error(err))
	}

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop accepting requests first so no job is admitted after the worker stops
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if worker.IsRunning() {
		if err := worker.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping fulfillment worker", zap.Error(err))
		}
	}

	log.Info("Server exited")
	return nil
}

// newJobQueue returns the delivery queue and, for a queue shared between
// processes, the leaser that keeps job attempts exclusive
func newJobQueue(config *domain.QueueConfig) (domain.JobQueue, domain.JobLeaser, error) {
	switch config.Driver {
	case "redis":
		queue := infrastructure.NewRedisJobQueue(infrastructure.NewRedisClient(config), config.RedisKey)
		if err := queue.Ping(context.Background()); err != nil {
			queue.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", config.RedisAddr, err)
		}
		hostname, _ := os.Hostname()
		leaser := infrastructure.NewRedisJobLeaser(queue.Client(), config.RedisKey, hostname)
		return queue, leaser, nil
	case "memory", "":
		return infrastructure.NewMemoryJobQueue(config.BufferSize), nil, nil
	}
	return nil, nil, fmt.Errorf("unsupported queue driver: %s", config.Driver)
}
