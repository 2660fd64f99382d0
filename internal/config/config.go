package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var defaultPorts = map[string]string{
	"gateway": "8080",
	"orders":  "8081",
	"catalog": "8082",
	"push":    "8083",
	"worker":  "8084",
}

const (
	defaultCartMaxSessions       = 10000
	defaultCheckoutMaxConcurrent = 8
)

// Config holds the environment of one service process.
type Config struct {
	Service string
	Env     string

	Port        string
	PostgresURL string

	KafkaBrokers []string

	CatalogServiceURL string
	OrdersServiceURL  string
	PushServiceURL    string
	CurrencyRatesURL  string

	CartSnapshotPath      string
	CartMaxSessions       int
	CheckoutMaxConcurrent int

	CORSAllowedOrigins []string

	LogLevel     string
	OTLPEndpoint string
}

// Load reads a .env file from the working directory, if present, and then
// the process environment. Variables already set win over the file.
func Load(service string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Service:            service,
		Env:                os.Getenv("APP_ENV"),
		Port:               getenv("PORT", defaultPorts[service]),
		PostgresURL:        os.Getenv("POSTGRES_URL"),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		CatalogServiceURL:  os.Getenv("CATALOG_SERVICE_URL"),
		OrdersServiceURL:   os.Getenv("ORDERS_SERVICE_URL"),
		PushServiceURL:     os.Getenv("PUSH_SERVICE_URL"),
		CurrencyRatesURL:   os.Getenv("CURRENCY_RATES_URL"),
		CartSnapshotPath:   os.Getenv("CART_SNAPSHOT_PATH"),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	var err error
	if cfg.CartMaxSessions, err = getInt("CART_MAX_SESSIONS", defaultCartMaxSessions); err != nil {
		return Config{}, err
	}
	if cfg.CheckoutMaxConcurrent, err = getInt("CHECKOUT_MAX_CONCURRENT", defaultCheckoutMaxConcurrent); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Require reports every listed variable that is unset or empty.
func Require(names ...string) error {
	var missing []string
	for _, name := range names {
		if strings.TrimSpace(os.Getenv(name)) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getenv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func getInt(name string, fallback int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, v)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
