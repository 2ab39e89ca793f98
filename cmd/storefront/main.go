package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/fjod/butchershop/internal/auth"
	"github.com/fjod/butchershop/internal/cart"
	"github.com/fjod/butchershop/internal/checkout"
	"github.com/fjod/butchershop/internal/config"
	"github.com/fjod/butchershop/internal/domain"
	"github.com/fjod/butchershop/internal/events"
	"github.com/fjod/butchershop/internal/geo"
	h "github.com/fjod/butchershop/internal/http"
	"github.com/fjod/butchershop/internal/live"
	"github.com/fjod/butchershop/internal/orders/publisher"
	ordersrepo "github.com/fjod/butchershop/internal/orders/repository"
	"github.com/fjod/butchershop/internal/products"
	productsrepo "github.com/fjod/butchershop/internal/products/repository"
	profilesrepo "github.com/fjod/butchershop/internal/profiles/repository"
	"github.com/fjod/butchershop/internal/storage"
	"github.com/fjod/butchershop/pkg/logger"
)

type indexer interface {
	CreateIndexes(ctx context.Context) error
}

// offlineGeocoder stands in when no Maps key is configured; the map stays on its default center.
type offlineGeocoder struct{}

func (offlineGeocoder) Geocode(context.Context, string) (domain.Location, error) {
	return domain.Location{}, geo.ErrNoResults
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if err := run(cfg, log); err != nil {
		log.Fatal("storefront stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("storefront starting...")
	var wg sync.WaitGroup

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()

	// Redis: persisted carts and token revocation
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer rdb.Close()
	if err := rdb.Ping(startCtx).Err(); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	// MongoDB: profiles and accounts
	mdb, err := profilesrepo.ConnectMongoDB(startCtx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return fmt.Errorf("connect mongodb: %w", err)
	}
	defer mdb.Client().Disconnect(context.Background())

	profiles := profilesrepo.NewMongoRepository(mdb)
	accounts := auth.NewMongoAccounts(mdb)
	for _, ix := range []any{profiles, accounts} {
		if i, ok := ix.(indexer); ok {
			if err := i.CreateIndexes(startCtx); err != nil {
				return fmt.Errorf("create indexes: %w", err)
			}
		}
	}

	// PostgreSQL: orders and their outbox
	orders, err := ordersrepo.NewRepository(&ordersrepo.Credentials{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		DBName:   cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSLMode,
	})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer orders.Close()
	if err := orders.RunMigrations(); err != nil {
		return fmt.Errorf("orders migrations: %w", err)
	}

	// SQLite: product catalog
	productRepo, err := productsrepo.NewRepository(cfg.ProductsDBPath)
	if err != nil {
		return fmt.Errorf("open products db: %w", err)
	}
	defer productRepo.Close()
	if err := productRepo.RunMigrations(); err != nil {
		return fmt.Errorf("products migrations: %w", err)
	}
	log.Info("database migrations completed")

	hub := live.NewHub(log.Named("live"))

	// Change events go through Kafka when brokers are configured, otherwise straight to the hub.
	var pub events.Publisher
	var consumer *events.Consumer
	if len(cfg.KafkaBrokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.KafkaBrokers...)
		consumer = events.NewConsumer(hub.HandleEvent, cfg.KafkaGroupID, log.Named("consumer"), cfg.KafkaBrokers...)
	} else {
		local := events.NewLocalPublisher()
		local.Subscribe(hub.HandleEvent)
		pub = local
		log.Info("no kafka brokers configured, delivering events in process")
	}
	defer pub.Close()

	productSvc := products.NewService(productRepo, pub, log.Named("products"))
	hub.Register(live.TopicOrders, func(ctx context.Context) (any, error) {
		return orders.ListOrders(ctx)
	})
	hub.Register(live.TopicProducts, func(ctx context.Context) (any, error) {
		return productSvc.ListByName(ctx)
	})

	authSvc := auth.NewService(
		accounts,
		&auth.Bcrypt{},
		auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL),
		auth.NewRedisRevoker(rdb),
		log.Named("auth"),
	)

	var geocoder geo.Geocoder = offlineGeocoder{}
	if cfg.GoogleMapsKey != "" {
		g, err := geo.NewGoogleGeocoder(cfg.GoogleMapsKey, cfg.GeocodeRegion, log.Named("geo"))
		if err != nil {
			return fmt.Errorf("geocoder: %w", err)
		}
		geocoder = g
	} else {
		log.Warn("GOOGLE_MAPS_API_KEY not set, address lookup disabled")
	}

	carts := cart.NewRegistry(storage.NewRedis(rdb, cfg.CartTTL), cfg.CartIdleTTL, log.Named("cart"))
	defer carts.Close()
	sessions := checkout.NewSessions(orders, cfg.CheckoutTTL, log.Named("checkout"))
	defer sessions.Close()
	trackers := geo.NewTrackers(geocoder, cfg.GeocodeDebounce, log.Named("geo"))
	defer trackers.Close()

	// Background workers
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	poller := publisher.NewOutboxPoller(orders, pub, cfg.OutboxTick, log.Named("outbox"))
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(workerCtx)
	}()
	if consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumer.Run(workerCtx)
		}()
	}

	router := h.NewRouter(h.RouterConfig{
		Auth:               authSvc,
		Products:           productSvc,
		Orders:             orders,
		Profiles:           profiles,
		Carts:              carts,
		Checkout:           sessions,
		Trackers:           trackers,
		Live:               hub,
		IsAdminEmail:       cfg.IsAdminEmail,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		AuthRateRPS:        cfg.AuthRateRPS,
		AuthRateBurst:      cfg.AuthRateBurst,
		CookieSecure:       cfg.CookieSecure,
		Log:                log.Named("http"),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// gRPC health endpoint for orchestrators
	lis, err := net.Listen("tcp", ":"+cfg.HealthPort)
	if err != nil {
		return fmt.Errorf("listen health port: %w", err)
	}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	serveErr := make(chan error, 2)
	go func() {
		log.Info("health server listening", zap.String("port", cfg.HealthPort))
		if err := grpcServer.Serve(lis); err != nil {
			serveErr <- fmt.Errorf("health server: %w", err)
		}
	}()
	go func() {
		log.Info("storefront listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serveErr:
		log.Error("server failed, shutting down", zap.Error(err))
	}

	healthServer.Shutdown()
	hub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()

	workerCancel()
	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()
	select {
	case <-doneChan:
		log.Info("workers stopped cleanly")
	case <-shutdownCtx.Done():
		log.Warn("workers didn't stop in time")
	}

	if consumer != nil {
		consumer.Close()
	}
	log.Info("storefront exited")
	return nil
}
