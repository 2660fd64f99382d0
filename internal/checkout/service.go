package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/rafaelsava/S2Market/internal/cart"
	"github.com/rafaelsava/S2Market/internal/catalog"
	"github.com/rafaelsava/S2Market/internal/domain"
)

var tracer = otel.Tracer("checkout")

// TaxRate is applied to the quote subtotal, in percent.
const TaxRate = 19

const defaultMaxConcurrent = 8

// ProductLookup resolves a product by ID. A nil product with a nil error is
// treated as not found.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// OrderWriter persists a new order, assigning its ID and CreatedAt.
type OrderWriter interface {
	Create(ctx context.Context, order *domain.Order) error
}

type Publisher interface {
	PublishChange(ctx context.Context, change domain.OrderChange) error
}

type Service struct {
	catalog       ProductLookup
	orders        OrderWriter
	publisher     Publisher
	logger        *slog.Logger
	maxConcurrent int
	metrics       *instruments
}

type Option func(*Service)

// WithPublisher announces every placed order. Without it orders are only
// persisted.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithMaxConcurrent(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxConcurrent = n
		}
	}
}

func NewService(catalog ProductLookup, orders OrderWriter, logger *slog.Logger, opts ...Option) (*Service, error) {
	m, err := newInstruments()
	if err != nil {
		return nil, fmt.Errorf("create checkout instruments: %w", err)
	}

	s := &Service{
		catalog:       catalog,
		orders:        orders,
		logger:        logger,
		maxConcurrent: defaultMaxConcurrent,
		metrics:       m,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// PlaceOrder turns the contents of store into a pending order. Sellers are
// resolved for every line before anything is written; the order is persisted
// and the cart cleared while the store is held, so a failure at any step
// leaves the cart as it was.
func (s *Service) PlaceOrder(ctx context.Context, store *cart.Store, userID string, meetingPoint domain.MeetingPoint, paymentMethod domain.PaymentMethod) (*domain.Order, error) {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "checkout.place_order")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	order, err := s.placeOrder(ctx, store, userID, meetingPoint, paymentMethod)

	s.metrics.duration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", failureReason(err))))
		return nil, err
	}

	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.Int("order.items", len(order.Items)),
	)
	s.metrics.placed.Add(ctx, 1)

	if s.publisher != nil {
		change := domain.OrderChange{
			Type:      domain.ChangeAdded,
			Order:     *order,
			Timestamp: time.Now().UTC(),
		}
		if err := s.publisher.PublishChange(ctx, change); err != nil {
			s.logger.Error("failed to publish order change", "error", err, "order_id", order.ID)
		}
	}

	s.logger.Info("order placed", "order_id", order.ID, "user_id", userID, "items", len(order.Items))
	return order, nil
}

func (s *Service) placeOrder(ctx context.Context, store *cart.Store, userID string, meetingPoint domain.MeetingPoint, paymentMethod domain.PaymentMethod) (*domain.Order, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	if _, err := domain.ParseMeetingPoint(string(meetingPoint)); err != nil {
		return nil, err
	}
	if _, err := domain.ParsePaymentMethod(string(paymentMethod)); err != nil {
		return nil, err
	}

	var order *domain.Order
	err := store.Checkout(func(lines []domain.CartLine) error {
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		items, err := s.resolveSellers(ctx, lines)
		if err != nil {
			return err
		}

		o := &domain.Order{
			UserID:        userID,
			Items:         items,
			MeetingPoint:  meetingPoint,
			PaymentMethod: paymentMethod,
			Status:        domain.OrderStatusPending,
		}
		if err := s.orders.Create(ctx, o); err != nil {
			return &PersistenceError{Err: err}
		}

		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// resolveSellers looks up every line concurrently and returns the items in
// cart order.
func (s *Service) resolveSellers(ctx context.Context, lines []domain.CartLine) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for idx := range lines {
		g.Go(func() error {
			line := lines[idx]
			product, err := s.lookup(gctx, line.ProductID)
			if err != nil {
				return err
			}

			items[idx] = domain.OrderItem{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				SellerID:  product.SellerID,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return items, nil
}

var errProductMissing = errors.New("product not found")

func (s *Service) lookup(ctx context.Context, productID string) (*domain.Product, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, &ProductResolutionError{ProductID: productID, Err: err}
	}
	if product == nil {
		return nil, &ProductResolutionError{ProductID: productID, Err: errProductMissing}
	}
	return product, nil
}

// QuoteLine prices one cart line. Unavailable lines point at products the
// catalog no longer has; they carry no price and are left out of the totals.
type QuoteLine struct {
	ProductID   string `json:"product_id"`
	Title       string `json:"title"`
	Image       string `json:"image,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	LineTotal   int64  `json:"line_total"`
	Unavailable bool   `json:"unavailable,omitempty"`
}

type Quote struct {
	Lines    []QuoteLine `json:"lines"`
	Subtotal int64       `json:"subtotal"`
	Taxes    int64       `json:"taxes"`
	Total    int64       `json:"total"`
}

// Quote prices the current lines of store. An empty cart yields a zero quote.
// Lines whose product is gone are marked unavailable so the buyer can still
// see and fix the cart; any other lookup failure fails the quote.
func (s *Service) Quote(ctx context.Context, store *cart.Store) (Quote, error) {
	cartLines := store.Lines()
	lines := make([]QuoteLine, len(cartLines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for idx := range cartLines {
		g.Go(func() error {
			line := cartLines[idx]
			product, err := s.lookup(gctx, line.ProductID)
			if isNotFound(err) {
				lines[idx] = QuoteLine{ProductID: line.ProductID, Quantity: line.Quantity, Unavailable: true}
				return nil
			}
			if err != nil {
				return err
			}

			lines[idx] = QuoteLine{
				ProductID: line.ProductID,
				Title:     product.Title,
				Image:     product.Image,
				Quantity:  line.Quantity,
				UnitPrice: product.Price,
				LineTotal: product.Price * int64(line.Quantity),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Quote{}, err
	}

	q := Quote{Lines: lines}
	for _, l := range lines {
		q.Subtotal += l.LineTotal
	}
	q.Taxes = taxes(q.Subtotal)
	q.Total = q.Subtotal + q.Taxes

	return q, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, catalog.ErrProductNotFound) || errors.Is(err, errProductMissing)
}

// taxes rounds half up.
func taxes(subtotal int64) int64 {
	return (subtotal*TaxRate + 50) / 100
}

func failureReason(err error) string {
	var (
		resolution  *ProductResolutionError
		persistence *PersistenceError
	)
	switch {
	case errors.Is(err, ErrEmptyCart):
		return reasonEmptyCart
	case errors.As(err, &resolution):
		return reasonResolution
	case errors.As(err, &persistence):
		return reasonPersistence
	default:
		return reasonInvalidInput
	}
}
