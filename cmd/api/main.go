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

	"liftcart/internal/cache"
	"liftcart/internal/config"
	"liftcart/internal/coupon"
	"liftcart/internal/database"
	"liftcart/internal/handler"
	"liftcart/internal/messaging"
	"liftcart/internal/metrics"
	"liftcart/internal/outbox"
	"liftcart/internal/payment"
	"liftcart/internal/pricing"
	"liftcart/internal/repository"
	"liftcart/internal/router"
	"liftcart/internal/service"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting liftcart API server")

	// Cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.RunMigrations {
		if err := database.Migrate(pool, logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	inventoryRepo := repository.NewInventoryRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	outboxRepo := repository.NewOutboxRepository(pool, logger)
	transactor := repository.NewTransactor(pool, logger)

	summaryCache, closeCache := newSummaryCache(ctx, cfg.Redis, logger)
	defer closeCache()

	coupons, err := newCouponResolver(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize coupon resolver: %w", err)
	}
	defer coupons.Close()

	notifier, err := newNotifier(cfg.Notify, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize notifier: %w", err)
	}
	defer notifier.Close()

	emailSender := messaging.NewEmailSender(cfg.Email, logger)
	gateway := payment.NewRazorpayGateway(cfg.Payment, logger)
	m := metrics.New()
	calculator := pricing.NewCalculator(cfg.Pricing)

	// Initialize services
	productService := service.NewProductService(productRepo, logger)
	cartService := service.NewCartService(cartRepo, productRepo, transactor, summaryCache, logger)
	inventoryService := service.NewInventoryService(cartRepo, inventoryRepo, logger)
	summaryService := service.NewSummaryService(cartRepo, calculator, summaryCache, cfg.Pricing.Currency, logger)
	orderService := service.NewOrderService(orderRepo, logger)
	checkoutService := service.NewCheckoutService(service.CheckoutDeps{
		Carts:       cartRepo,
		Inventory:   inventoryRepo,
		Orders:      orderRepo,
		Outbox:      outboxRepo,
		Transactor:  transactor,
		Calculator:  calculator,
		Coupons:     coupons,
		Gateway:     gateway,
		Cache:       summaryCache,
		Metrics:     m,
		Currency:    cfg.Pricing.Currency,
		OrderPrefix: cfg.Order.NumberPrefix,
	}, logger)

	// Initialize HTTP handlers and router
	mux := router.New(router.Handlers{
		Products: handler.NewProductHandler(productService, logger),
		Carts:    handler.NewCartHandler(cartService, summaryService, inventoryService, logger),
		Orders:   handler.NewOrderHandler(checkoutService, orderService, logger),
	}, router.Options{
		JWTSecret:      []byte(cfg.Auth.JWTSecret),
		Metrics:        m,
		DB:             pool,
		RequestTimeout: 30 * time.Second,
	}, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	dispatcher := outbox.NewDispatcher(outboxRepo, emailSender, notifier, m, cfg.Outbox, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info().Msg("server shutdown completed")
	return nil
}

// newSummaryCache returns the Redis cache when enabled and reachable,
// otherwise a cache that stores nothing.
func newSummaryCache(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (cache.SummaryCache, func()) {
	if !cfg.Enabled {
		logger.Info().Msg("summary cache disabled")
		return cache.NopSummaryCache{}, func() {}
	}

	client := cache.NewRedisClient(cfg)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis unreachable, summary cache disabled")
		_ = client.Close()
		return cache.NopSummaryCache{}, func() {}
	}

	logger.Info().Str("addr", cfg.Addr).Dur("ttl", cfg.TTL).Msg("summary cache enabled")
	return cache.NewRedisSummaryCache(client, cfg.TTL), func() { _ = client.Close() }
}

// newCouponResolver loads coupon files from S3 when enabled, falling back to
// the local file system.
func newCouponResolver(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (coupon.Resolver, error) {
	fileLoader := coupon.NewFileLoader(logger)

	var s3Loader coupon.Loader
	if cfg.S3.Enabled {
		l, err := coupon.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			s3Loader = l
		}
	}

	loader := coupon.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, cfg.S3.Enabled, logger)
	return coupon.NewResolver(ctx, coupon.ResolverConfig{FilePaths: cfg.Coupon.Files}, loader, logger)
}

func newNotifier(cfg config.NotifyConfig, logger zerolog.Logger) (messaging.Notifier, error) {
	switch cfg.Transport {
	case "kafka":
		return messaging.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, logger), nil
	case "rabbitmq":
		n, err := messaging.NewAMQPNotifier(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return messaging.NopNotifier{Logger: logger}, nil
	}
}
