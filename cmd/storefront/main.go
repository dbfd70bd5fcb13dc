package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Johnm75/Tienda/internal/cache"
	"github.com/Johnm75/Tienda/internal/catalog"
	"github.com/Johnm75/Tienda/internal/checkout"
	"github.com/Johnm75/Tienda/internal/config"
	"github.com/Johnm75/Tienda/internal/docstore"
	"github.com/Johnm75/Tienda/internal/gate"
	h "github.com/Johnm75/Tienda/internal/http"
	"github.com/Johnm75/Tienda/internal/identity"
	"github.com/Johnm75/Tienda/internal/orders"
	"github.com/Johnm75/Tienda/internal/payment"
	"github.com/Johnm75/Tienda/internal/publisher"
	"github.com/Johnm75/Tienda/internal/repository"
	"github.com/Johnm75/Tienda/internal/service"
	"github.com/Johnm75/Tienda/pkg/circuitbreaker"
	"github.com/Johnm75/Tienda/pkg/logger"
	"github.com/Johnm75/Tienda/pkg/tracing"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if err := run(cfg, log); err != nil {
		log.Fatal("storefront stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()
	var wg sync.WaitGroup

	shutdownTracing, err := tracing.Setup(ctx, "storefront", cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	// Catalog
	products, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	defer products.Close()
	if err := products.RunMigrations(cfg.CatalogMigrationsPath); err != nil {
		return fmt.Errorf("catalog migrations: %w", err)
	}
	log.Info("catalog ready", zap.String("path", cfg.CatalogDBPath))

	// Identity
	accounts, err := identity.NewAccountRepository(cfg.IdentityDBPath)
	if err != nil {
		return fmt.Errorf("accounts: %w", err)
	}
	defer accounts.Close()
	if err := accounts.RunMigrations(cfg.IdentityMigrationsPath); err != nil {
		return fmt.Errorf("accounts migrations: %w", err)
	}
	tokens, err := identity.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		return err
	}
	providerOpts := []identity.Option{identity.WithBcryptCost(cfg.BcryptCost)}
	if cfg.GoogleClientID != "" && cfg.GoogleKeysFile != "" {
		keys, err := identity.LoadGoogleKeys(cfg.GoogleKeysFile)
		if err != nil {
			return fmt.Errorf("google keys: %w", err)
		}
		providerOpts = append(providerOpts, identity.WithGoogle(identity.NewGoogleVerifier(cfg.GoogleClientID, keys)))
		log.Info("google sign-in enabled", zap.Int("keys", len(keys)))
	}
	provider := identity.NewLocalProvider(accounts, tokens, providerOpts...)

	// Profiles
	mongoDB, err := docstore.OpenProfiles(ctx, docstore.MongoConfig{
		URI:            cfg.MongoURI,
		Database:       cfg.MongoDatabase,
		MaxPoolSize:    cfg.MongoMaxPoolSize,
		MinPoolSize:    cfg.MongoMinPoolSize,
		ConnectTimeout: cfg.MongoConnectTimeout,
	})
	if err != nil {
		return fmt.Errorf("profiles: %w", err)
	}
	defer mongoDB.Client().Disconnect(context.Background())
	docs := docstore.NewMongoStore(mongoDB)
	log.Info("connected to MongoDB", zap.String("database", cfg.MongoDatabase))

	// Session carts
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	log.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))

	// Checkout ledger and purchase history
	creds := &repository.Credentials{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		MigrationsDirPath: cfg.LedgerMigrationsPath,
	}
	ledger, err := repository.NewRepository(creds)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer ledger.Close()
	if err := ledger.RunMigrations(creds); err != nil {
		return fmt.Errorf("ledger migrations: %w", err)
	}
	history := orders.NewPostgresHistory(ledger.DB())
	if err := history.RunMigrations(cfg.HistoryMigrationsPath); err != nil {
		return fmt.Errorf("history migrations: %w", err)
	}
	log.Info("database migrations completed")

	paymentClient, err := payment.NewClient(cfg.PaymentBaseURL, cfg.PaymentReturnURL, cfg.PaymentTimeout,
		circuitbreaker.DefaultConfig(), log)
	if err != nil {
		return err
	}

	// Services
	carts := service.NewCartService(cache.NewRedisCache(redisClient, cfg.CartTTL), products, log)
	handoff := checkout.NewHandoff(ledger, paymentClient, paymentClient, cfg.Recipient, cfg.Currency)
	checkouts := service.NewCheckoutService(carts, handoff, log)
	accountService := service.NewAccountService(provider, docs, carts, history, log,
		gate.WithCountdown(cfg.DeletionCountdown))

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	poller := publisher.NewOutboxPoller(ledger, log, cfg.KafkaBrokers...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(workerCtx)
	}()

	consumer := orders.NewConsumer(history, log, publisher.CheckoutCompletedTopic, cfg.KafkaBrokers...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		consumer.Run(workerCtx)
	}()

	router := h.NewRouter(h.RouterConfig{
		Auth:               provider,
		Accounts:           accountService,
		Products:           products,
		Carts:              carts,
		Checkouts:          checkouts,
		History:            history,
		AssetBaseURL:       cfg.AssetBaseURL,
		AssetDir:           cfg.AssetDir,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		Logger:             log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("storefront starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		stopWorkers()
		wg.Wait()
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	stopWorkers()
	wg.Wait()
	if err := poller.Close(); err != nil {
		log.Warn("outbox writer close failed", zap.Error(err))
	}
	consumer.Close()

	log.Info("server exited")
	return nil
}
