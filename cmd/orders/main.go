package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/rafaelsava/S2Market/internal/cart"
	"github.com/rafaelsava/S2Market/internal/catalog"
	"github.com/rafaelsava/S2Market/internal/checkout"
	"github.com/rafaelsava/S2Market/internal/config"
	"github.com/rafaelsava/S2Market/internal/currency"
	"github.com/rafaelsava/S2Market/internal/logger"
	"github.com/rafaelsava/S2Market/internal/messaging"
	"github.com/rafaelsava/S2Market/internal/orders"
	"github.com/rafaelsava/S2Market/internal/telemetry"
)

const version = "0.1.0"

func main() {
	ctx := context.Background()

	cfg, err := config.Load("orders")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{Service: cfg.Service, Env: cfg.Env, Level: cfg.LogLevel})

	if err := config.Require("POSTGRES_URL", "CATALOG_SERVICE_URL"); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.Service, version, cfg.OTLPEndpoint)
	if err != nil {
		log.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.Service, version)
	if err != nil {
		log.Error("failed to initialize meter provider", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	dsn, err := telemetry.WithSearchPath(cfg.PostgresURL, "orders")
	if err != nil {
		log.Error("invalid POSTGRES_URL", "error", err)
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", dsn)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var snapshots cart.SnapshotStore
	if cfg.CartSnapshotPath != "" {
		sqliteSnapshots, err := cart.OpenSQLiteSnapshots(ctx, cfg.CartSnapshotPath)
		if err != nil {
			log.Error("failed to open cart snapshots", "error", err, "path", cfg.CartSnapshotPath)
			os.Exit(1)
		}
		defer func() { _ = sqliteSnapshots.Close() }()
		snapshots = sqliteSnapshots
		log.Info("cart snapshots enabled", "path", cfg.CartSnapshotPath)
	}

	sessions, err := cart.NewSessions(cfg.CartMaxSessions, snapshots, log)
	if err != nil {
		log.Error("failed to create cart sessions", "error", err)
		os.Exit(1)
	}

	repo := orders.NewOrderRepository(db)
	catalogClient := catalog.NewClient(cfg.CatalogServiceURL, telemetry.NewHTTPClient(10*time.Second))

	checkoutOpts := []checkout.Option{checkout.WithMaxConcurrent(cfg.CheckoutMaxConcurrent)}
	var publisher orders.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := messaging.NewProducer(cfg.KafkaBrokers, messaging.OrderChangesTopic)
		defer func() { _ = producer.Close() }()
		publisher = producer
		checkoutOpts = append(checkoutOpts, checkout.WithPublisher(producer))
	} else {
		log.Warn("KAFKA_BROKERS not set, order changes will not be published")
	}

	checkoutService, err := checkout.NewService(catalogClient, repo, log, checkoutOpts...)
	if err != nil {
		log.Error("failed to create checkout service", "error", err)
		os.Exit(1)
	}

	var handlerOpts []checkout.HandlerOption
	if cfg.CurrencyRatesURL != "" {
		rates := currency.NewClient(cfg.CurrencyRatesURL, telemetry.NewHTTPClient(10*time.Second), time.Hour)
		handlerOpts = append(handlerOpts, checkout.WithRates(rates))
	}

	ordersHandler := orders.NewHandler(repo, publisher, log)

	mux := http.NewServeMux()
	checkout.NewHandler(checkoutService, sessions, log, handlerOpts...).Register(mux)
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(ordersHandler.HandleGet))
	mux.HandleFunc("PATCH /orders/{id}/status", telemetry.WithHTTPRoute(ordersHandler.HandleUpdateStatus))
	mux.HandleFunc("GET /users/{userId}/orders", telemetry.WithHTTPRoute(ordersHandler.HandleListByBuyer))
	mux.HandleFunc("GET /sellers/{sellerId}/orders", telemetry.WithHTTPRoute(ordersHandler.HandleListBySeller))
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      telemetry.NewHandler(mux, cfg.Service),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting orders service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
