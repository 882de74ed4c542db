// cmd/contact-sync/main.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contact-sync/internal/common/camunda"
	"contact-sync/internal/common/config"
	"contact-sync/internal/common/database"
	"contact-sync/internal/common/logger"
	"contact-sync/internal/common/observability"
	"contact-sync/internal/common/payments"
	"contact-sync/internal/common/records"
	"contact-sync/internal/common/schedule"
	synccontacts "contact-sync/internal/workers/contacts/sync-contacts"

	"go.uber.org/zap"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func loadConfig() (*config.Config, error) {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog, err := logger.New(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"app":  cfg.App.Name,
		"mode": cfg.Scheduler.Mode,
	})
	log.Info("Starting contact sync", nil)

	if err := run(cfg, log); err != nil {
		zapLog.Fatal("contact sync stopped with error", zap.Error(err))
	}
	log.Info("Contact sync stopped gracefully", nil)
}

func run(cfg *config.Config, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	workerConfig, err := synccontacts.ConfigFromApp(cfg)
	if err != nil {
		return fmt.Errorf("invalid sync configuration: %w", err)
	}

	recordsClient := records.NewClient(records.Config{
		BaseURL: cfg.Records.BaseURL,
		APIKey:  cfg.Records.APIKey,
		BaseID:  cfg.Records.BaseID,
		TableID: cfg.Records.TableID,
		Timeout: config.GetDuration(cfg.Records.Timeout),
	})

	gateway, err := payments.NewStripeGateway(payments.StripeConfig{
		APIKey:  cfg.Payments.APIKey,
		APIURL:  cfg.Payments.APIURL,
		Timeout: config.GetDuration(cfg.Payments.Timeout),
		Logger:  log,
	})
	if err != nil {
		return err
	}

	deps := synccontacts.ServiceDependencies{
		Logger:   log,
		Clock:    schedule.SystemClock{},
		Records:  recordsClient,
		Payments: gateway,
		Recorder: obs,
	}

	health := &healthChecks{}

	// --- Init Redis with retry ---
	if cfg.NeedsBroker() {
		var redis *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedisFromURL(cfg.Broker.URL)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, log, "Redis connection")
		if err != nil {
			return err
		}
		defer redis.Close()
		log.Info("Redis connected successfully", nil)

		health.add("redis", redis.Ping)
		if cfg.Scheduler.Exclusive {
			deps.Lease = redis
		}
		if cfg.Sync.ReuseCustomers {
			deps.Memo = database.NewCustomerMemo(redis, config.GetDuration(cfg.Sync.CustomerMemoTTL))
		}
	}

	service := synccontacts.NewService(deps, workerConfig)

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           newHealthMux(health),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Health/Metrics server listening", map[string]interface{}{"address": cfg.Server.Address})
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			log.Error("Health/Metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	switch cfg.Scheduler.Mode {
	case "zeebe":
		return runZeebe(ctx, cfg, service, workerConfig, health, log)
	default:
		runTicker(ctx, cfg, service, log)
		return nil
	}
}

func runTicker(ctx context.Context, cfg *config.Config, service *synccontacts.Service, log logger.Logger) {
	ticker := schedule.NewTicker(config.GetDuration(cfg.Scheduler.Interval), func(ctx context.Context) {
		_, err := service.Invoke(ctx)
		if err != nil && !stderrors.Is(err, synccontacts.ErrRunInProgress) && !stderrors.Is(err, context.Canceled) {
			log.Error("Sync run failed", map[string]interface{}{"error": err.Error()})
		}
	}, log)
	ticker.Run(ctx)
}

func runZeebe(ctx context.Context, cfg *config.Config, service *synccontacts.Service, workerConfig *synccontacts.Config, health *healthChecks, log logger.Logger) error {
	var client *camunda.Client
	err := retryWithBackoff(func() error {
		var err error
		client, err = camunda.NewClient(cfg.Camunda.BrokerAddress)
		return err
	}, 10, 2*time.Second, log, "Zeebe client initialization")
	if err != nil {
		return err
	}
	defer client.Close()
	log.Info("Zeebe client connected successfully", nil)
	health.add("zeebe", client.HealthCheck)

	handler, err := synccontacts.NewHandler(synccontacts.HandlerOptions{
		Config:  workerConfig,
		Service: service,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	jobWorker := camunda.NewWorker(client.GetClient(), camunda.WorkerOptions{
		TaskType:      cfg.Camunda.TaskType,
		MaxJobsActive: cfg.Camunda.MaxJobsActive,
		Timeout:       config.GetDuration(cfg.Camunda.Timeout),
	}, handler, log)

	<-ctx.Done()
	log.Info("Shutdown signal received, stopping worker", nil)
	jobWorker.Stop()
	return nil
}
