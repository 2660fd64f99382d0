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

	"github.com/rafaelsava/S2Market/internal/config"
	"github.com/rafaelsava/S2Market/internal/logger"
	"github.com/rafaelsava/S2Market/internal/messaging"
	"github.com/rafaelsava/S2Market/internal/telemetry"
	"github.com/rafaelsava/S2Market/internal/worker"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load("worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{Service: cfg.Service, Env: cfg.Env, Level: cfg.LogLevel})

	if err := config.Require("KAFKA_BROKERS", "PUSH_SERVICE_URL"); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.Service, version, cfg.OTLPEndpoint)
	if err != nil {
		log.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.Service, version)
	if err != nil {
		log.Error("failed to initialize meter provider", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(context.Background()) }()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           metricsHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", "error", err)
		}
	}()
	defer func() { _ = metricsServer.Close() }()

	consumer := messaging.NewConsumer(cfg.KafkaBrokers, messaging.OrderChangesTopic, messaging.NotifierGroup)
	defer func() { _ = consumer.Close() }()

	notifier := worker.NewNotificationHandler(cfg.PushServiceURL, telemetry.NewHTTPClient(10*time.Second), log)

	log.Info("starting notification worker", "brokers", cfg.KafkaBrokers, "topic", messaging.OrderChangesTopic)

	if err := consumer.Consume(ctx, notifier.Handle); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			log.Info("consumer stopped")
			return
		}
		log.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
