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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"matchmaking_server/config"
	"matchmaking_server/logger"
	"matchmaking_server/middleware"
	"matchmaking_server/routes"
	"matchmaking_server/services"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("❌ Server stopped", zap.Error(err))
	}
}

// openBackend builds the store and directory for the configured driver.
func openBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (services.Store, services.Directory, error) {
	switch cfg.Store.Driver {
	case config.DriverDynamo:
		log.Info("Initializing DynamoDB client...", zap.String("region", cfg.Store.AWSRegion))
		client, err := services.InitializeDynamoDBClient(ctx, cfg.Store.AWSRegion)
		if err != nil {
			return nil, nil, err
		}
		dynamo := &services.DynamoService{Client: client, Log: log}
		tables := services.DefaultDynamoTables(cfg.Store.TablePrefix)
		return services.NewDynamoStore(dynamo, tables), services.NewDynamoDirectory(dynamo, tables.Clients), nil
	default:
		log.Info("Opening sqlite database...", zap.String("dsn", cfg.Store.SQLiteDSN))
		store, err := services.OpenSQLite(cfg.Store.SQLiteDSN, log)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Migrate(); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		return store, services.NewSQLDirectory(store), nil
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, dir, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := services.NewMetrics(reg)

	// Initialize Services
	matchService := services.NewMatchService(store, dir, metrics, log)
	router := routes.NewRouter(routes.Dependencies{
		Matches:  matchService,
		Lists:    services.NewListService(store, dir, log),
		Chat:     services.NewChatService(store, dir, matchService, metrics, log),
		Alarms:   services.NewNotificationService(store, metrics, log),
		Reviews:  services.NewReviewService(store, matchService, log),
		Limiter:  middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		Gatherer: reg,
		Log:      log,
	})

	// Add CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Manager-Id"},
		AllowCredentials: true,
	}).Handler(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("🚀 Starting server", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("🛑 Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
