package checkout

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	reasonInvalidInput = "invalid_input"
	reasonEmptyCart    = "empty_cart"
	reasonResolution   = "product_resolution"
	reasonPersistence  = "persistence"
)

type instruments struct {
	placed   metric.Int64Counter
	failed   metric.Int64Counter
	duration metric.Float64Histogram
}

func newInstruments() (*instruments, error) {
	meter := otel.Meter("checkout")

	placed, err := meter.Int64Counter("checkout.orders.placed",
		metric.WithDescription("Orders persisted by checkout"),
	)
	if err != nil {
		return nil, err
	}

	failed, err := meter.Int64Counter("checkout.orders.failed",
		metric.WithDescription("Checkout attempts that did not persist an order"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("checkout.duration",
		metric.WithDescription("Time spent placing an order"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &instruments{placed: placed, failed: failed, duration: duration}, nil
}
