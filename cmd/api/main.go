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

	"order-ledger/internal/auth"
	"order-ledger/internal/config"
	"order-ledger/internal/database"
	"order-ledger/internal/handler"
	"order-ledger/internal/metrics"
	"order-ledger/internal/middleware"
	"order-ledger/internal/notify"
	"order-ledger/internal/ordercode"
	"order-ledger/internal/pricing"
	"order-ledger/internal/repository"
	"order-ledger/internal/router"
	"order-ledger/internal/service"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const throttleIdle = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting order-ledger API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool, logger); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	m := metrics.New()

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	affiliateRepo := repository.NewAffiliateRepository(pool, logger)
	withdrawalRepo := repository.NewWithdrawalRepository(pool, logger)

	// Order code counter
	var counter ordercode.Counter
	switch cfg.Orders.CodeCounter {
	case config.CounterPostgres:
		counter = repository.NewOrderCodeCounter(pool)
	case config.CounterRedis:
		client, err := ordercode.NewRedisClient(ctx, cfg.Redis.URL, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		defer client.Close()
		counter = ordercode.NewRedisCounter(client, 0)
	default:
		logger.Warn().Msg("no order code counter configured, using random codes only")
	}
	codes := ordercode.NewAllocator(counter, orderRepo, cfg.Orders.CodeMaxAttempts, cfg.Orders.Location(), logger,
		ordercode.WithMetrics(m))

	// Tier schedule with S3 and local fallback
	schedule, err := loadSchedule(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to load tier schedule: %w", err)
	}

	// Event publisher
	var publisher notify.Publisher = notify.Nop{}
	if cfg.Kafka.Enabled {
		kp, err := notify.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize event publisher: %w", err)
		}
		publisher = kp
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	// Initialize services
	prices := service.NewPriceResolver(productRepo, schedule, cfg.Orders.MaxTotal, logger)
	limiter := service.NewRateLimiter(orderRepo, cfg.Orders.RateLimitMax, cfg.Orders.RateLimitWindow, logger)
	attribution := service.NewAttributionValidator(affiliateRepo, logger)
	commission := service.NewCommissionEngine(orderRepo, affiliateRepo, cfg.Commission.FallbackRate, m, logger)
	orderService := service.NewOrderService(orderRepo, prices, limiter, attribution, codes, commission,
		service.OrderSettings{
			MinQuantity:  cfg.Orders.MinQuantity,
			MaxTotal:     cfg.Orders.MaxTotal,
			AtomicWrites: cfg.Orders.AtomicWrites,
		}, m, logger)
	withdrawalService := service.NewWithdrawalService(withdrawalRepo, affiliateRepo, m, logger)

	// Initialize HTTP handlers
	handlers := router.Handlers{
		Health:     handler.NewHealthHandler(pool, logger),
		Orders:     handler.NewOrderHandler(orderService, commission, publisher, m, logger),
		Prices:     handler.NewPriceHandler(prices, logger),
		Withdrawal: handler.NewWithdrawalHandler(withdrawalService, publisher, m, logger),
	}

	throttle := middleware.NewThrottle(cfg.Throttle.RatePerMinute, cfg.Throttle.Burst, logger)
	go sweepThrottle(ctx, throttle, logger)

	// Initialize router
	mux := router.New(handlers, auth.NewJWTVerifier(cfg.Auth.JWTSecret), throttle, m, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// loadSchedule reads the tier schedule from S3 when enabled, else from the local file,
// and falls back to the built-in schedule when no file is configured.
func loadSchedule(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (pricing.Schedule, error) {
	fileLoader := pricing.NewFileLoader(logger)
	loader := fileLoader

	if cfg.S3.Enabled {
		s3Loader, err := pricing.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			loader = pricing.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, true, logger)
		}
	}

	return pricing.LoadOrDefault(ctx, loader, cfg.Pricing.TiersFile)
}

func sweepThrottle(ctx context.Context, t *middleware.Throttle, logger zerolog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := t.Cleanup(throttleIdle); n > 0 {
				logger.Debug().Int("clients", n).Msg("throttle entries expired")
			}
		}
	}
}
