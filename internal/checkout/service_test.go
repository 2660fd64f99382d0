package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaelsava/S2Market/internal/cart"
	"github.com/rafaelsava/S2Market/internal/catalog"
	"github.com/rafaelsava/S2Market/internal/domain"
)

type fakeCatalog struct {
	products map[string]*domain.Product
	errs     map[string]error
	delay    time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeCatalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := f.errs[id]; err != nil {
		return nil, err
	}
	return f.products[id], nil
}

type fakeOrders struct {
	mu      sync.Mutex
	created []domain.Order
	err     error
}

func (f *fakeOrders) Create(_ context.Context, order *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	order.ID = "ord-0001"
	order.CreatedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.created = append(f.created, *order)
	return nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []domain.OrderChange
	err     error
}

func (p *recordingPublisher) PublishChange(_ context.Context, change domain.OrderChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
	return p.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{products: map[string]*domain.Product{
		"p1": {ID: "p1", SellerID: "s1", Title: "Calculadora", Price: 10000},
		"p2": {ID: "p2", SellerID: "s2", Title: "Cuaderno", Price: 2500},
		"p3": {ID: "p3", SellerID: "s1", Title: "Audífonos", Price: 33333},
	}}
}

func newTestService(t *testing.T, catalog ProductLookup, orders OrderWriter, opts ...Option) *Service {
	t.Helper()
	s, err := NewService(catalog, orders, discardLogger(), opts...)
	require.NoError(t, err)
	return s
}

func TestPlaceOrder_Success(t *testing.T) {
	orders := &fakeOrders{}
	pub := &recordingPublisher{}
	svc := newTestService(t, testCatalog(), orders, WithPublisher(pub))

	store := cart.NewStore(
		domain.CartLine{ProductID: "p1", Quantity: 2},
		domain.CartLine{ProductID: "p2", Quantity: 1},
		domain.CartLine{ProductID: "p3", Quantity: 4},
	)

	order, err := svc.PlaceOrder(context.Background(), store, "buyer-1", "Biblioteca", domain.PaymentNequi)
	require.NoError(t, err)

	assert.Equal(t, "ord-0001", order.ID)
	assert.Equal(t, "buyer-1", order.UserID)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, domain.MeetingPoint("Biblioteca"), order.MeetingPoint)
	assert.Equal(t, domain.PaymentNequi, order.PaymentMethod)
	assert.False(t, order.CreatedAt.IsZero())

	assert.Equal(t, []domain.OrderItem{
		{ProductID: "p1", Quantity: 2, SellerID: "s1"},
		{ProductID: "p2", Quantity: 1, SellerID: "s2"},
		{ProductID: "p3", Quantity: 4, SellerID: "s1"},
	}, order.Items)

	assert.Equal(t, 0, store.Len(), "cart is cleared after a successful order")
	require.Len(t, orders.created, 1)

	require.Len(t, pub.changes, 1)
	assert.Equal(t, domain.ChangeAdded, pub.changes[0].Type)
	assert.Equal(t, "ord-0001", pub.changes[0].Order.ID)
}

func TestPlaceOrder_PreservesCartOrderUnderConcurrency(t *testing.T) {
	catalog := &fakeCatalog{products: map[string]*domain.Product{}, delay: 5 * time.Millisecond}
	var lines []domain.CartLine
	for i := range 20 {
		id := string(rune('a' + i))
		catalog.products[id] = &domain.Product{ID: id, SellerID: "seller-" + id}
		lines = append(lines, domain.CartLine{ProductID: id, Quantity: i + 1})
	}

	svc := newTestService(t, catalog, &fakeOrders{}, WithMaxConcurrent(3))

	order, err := svc.PlaceOrder(context.Background(), cart.NewStore(lines...), "buyer", "CAF", domain.PaymentCash)
	require.NoError(t, err)

	require.Len(t, order.Items, len(lines))
	for i, line := range lines {
		assert.Equal(t, line.ProductID, order.Items[i].ProductID)
		assert.Equal(t, line.Quantity, order.Items[i].Quantity)
		assert.Equal(t, "seller-"+line.ProductID, order.Items[i].SellerID)
	}
	assert.LessOrEqual(t, catalog.maxInFlight.Load(), int32(3))
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	orders := &fakeOrders{}
	pub := &recordingPublisher{}
	svc := newTestService(t, testCatalog(), orders, WithPublisher(pub))

	_, err := svc.PlaceOrder(context.Background(), cart.NewStore(), "buyer", "CAF", domain.PaymentCash)

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, orders.created, "no persistence call for an empty cart")
	assert.Empty(t, pub.changes)
}

func TestPlaceOrder_ProductResolutionFailure(t *testing.T) {
	tests := []struct {
		name    string
		catalog *fakeCatalog
	}{
		{
			name: "lookup error",
			catalog: func() *fakeCatalog {
				c := testCatalog()
				c.errs = map[string]error{"p2": errors.New("catalog unavailable")}
				return c
			}(),
		},
		{
			name: "product missing",
			catalog: func() *fakeCatalog {
				c := testCatalog()
				delete(c.products, "p2")
				return c
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := &fakeOrders{}
			svc := newTestService(t, tt.catalog, orders)

			lines := []domain.CartLine{
				{ProductID: "p1", Quantity: 1},
				{ProductID: "p2", Quantity: 2},
			}
			store := cart.NewStore(lines...)

			_, err := svc.PlaceOrder(context.Background(), store, "buyer", "CAF", domain.PaymentCash)

			var resErr *ProductResolutionError
			require.ErrorAs(t, err, &resErr)
			assert.Equal(t, "p2", resErr.ProductID)
			assert.Empty(t, orders.created, "nothing persisted")
			assert.Equal(t, lines, store.Lines(), "cart unchanged")
		})
	}
}

func TestPlaceOrder_PersistenceFailure(t *testing.T) {
	dbErr := errors.New("connection refused")
	pub := &recordingPublisher{}
	svc := newTestService(t, testCatalog(), &fakeOrders{err: dbErr}, WithPublisher(pub))

	lines := []domain.CartLine{{ProductID: "p1", Quantity: 3}}
	store := cart.NewStore(lines...)

	_, err := svc.PlaceOrder(context.Background(), store, "buyer", "Edificio K", domain.PaymentLlaves)

	var persistErr *PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.ErrorIs(t, err, dbErr)
	assert.Equal(t, lines, store.Lines(), "cart unchanged")
	assert.Empty(t, pub.changes)
}

func TestPlaceOrder_PublishFailureKeepsOrder(t *testing.T) {
	orders := &fakeOrders{}
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newTestService(t, testCatalog(), orders, WithPublisher(pub))

	store := cart.NewStore(domain.CartLine{ProductID: "p1", Quantity: 1})
	order, err := svc.PlaceOrder(context.Background(), store, "buyer", "CAF", domain.PaymentCash)

	require.NoError(t, err)
	assert.NotNil(t, order)
	assert.Len(t, orders.created, 1)
	assert.Equal(t, 0, store.Len())
}

func TestPlaceOrder_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		point   domain.MeetingPoint
		payment domain.PaymentMethod
		check   func(t *testing.T, err error)
	}{
		{
			name:    "missing user",
			point:   "CAF",
			payment: domain.PaymentCash,
			check:   func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrMissingUser) },
		},
		{
			name:    "unknown meeting point",
			userID:  "buyer",
			point:   "Luna",
			payment: domain.PaymentCash,
			check: func(t *testing.T, err error) {
				var decodeErr *domain.DecodeError
				require.ErrorAs(t, err, &decodeErr)
				assert.Equal(t, "meeting_point", decodeErr.Field)
			},
		},
		{
			name:    "unknown payment method",
			userID:  "buyer",
			point:   "CAF",
			payment: "Tarjeta",
			check: func(t *testing.T, err error) {
				var decodeErr *domain.DecodeError
				require.ErrorAs(t, err, &decodeErr)
				assert.Equal(t, "payment_method", decodeErr.Field)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := &fakeOrders{}
			svc := newTestService(t, testCatalog(), orders)
			store := cart.NewStore(domain.CartLine{ProductID: "p1", Quantity: 1})

			_, err := svc.PlaceOrder(context.Background(), store, tt.userID, tt.point, tt.payment)

			tt.check(t, err)
			assert.Empty(t, orders.created)
			assert.Equal(t, 1, store.Len())
		})
	}
}

func TestQuote(t *testing.T) {
	svc := newTestService(t, testCatalog(), &fakeOrders{})

	t.Run("prices lines in cart order", func(t *testing.T) {
		store := cart.NewStore(
			domain.CartLine{ProductID: "p2", Quantity: 2},
			domain.CartLine{ProductID: "p3", Quantity: 1},
		)

		q, err := svc.Quote(context.Background(), store)
		require.NoError(t, err)

		require.Len(t, q.Lines, 2)
		assert.Equal(t, "Cuaderno", q.Lines[0].Title)
		assert.Equal(t, int64(5000), q.Lines[0].LineTotal)
		assert.Equal(t, int64(33333), q.Lines[1].LineTotal)
		assert.Equal(t, int64(38333), q.Subtotal)
		assert.Equal(t, int64(7283), q.Taxes)
		assert.Equal(t, int64(45616), q.Total)
	})

	t.Run("empty cart", func(t *testing.T) {
		q, err := svc.Quote(context.Background(), cart.NewStore())
		require.NoError(t, err)
		assert.Empty(t, q.Lines)
		assert.Zero(t, q.Total)
	})

	t.Run("missing products are marked unavailable", func(t *testing.T) {
		fc := testCatalog()
		fc.errs = map[string]error{"deleted": catalog.ErrProductNotFound}
		svc := newTestService(t, fc, &fakeOrders{})

		store := cart.NewStore(
			domain.CartLine{ProductID: "p2", Quantity: 2},
			domain.CartLine{ProductID: "ghost", Quantity: 1},
			domain.CartLine{ProductID: "deleted", Quantity: 3},
		)
		q, err := svc.Quote(context.Background(), store)
		require.NoError(t, err)

		require.Len(t, q.Lines, 3)
		assert.False(t, q.Lines[0].Unavailable)
		assert.Equal(t, QuoteLine{ProductID: "ghost", Quantity: 1, Unavailable: true}, q.Lines[1])
		assert.Equal(t, QuoteLine{ProductID: "deleted", Quantity: 3, Unavailable: true}, q.Lines[2])
		assert.Equal(t, int64(5000), q.Subtotal)
		assert.Equal(t, int64(950), q.Taxes)
		assert.Equal(t, int64(5950), q.Total)
	})

	t.Run("catalog failure fails the quote", func(t *testing.T) {
		fc := testCatalog()
		fc.errs = map[string]error{"p1": errors.New("connection refused")}
		svc := newTestService(t, fc, &fakeOrders{})

		_, err := svc.Quote(context.Background(), cart.NewStore(domain.CartLine{ProductID: "p1", Quantity: 1}))

		var resErr *ProductResolutionError
		require.ErrorAs(t, err, &resErr)
		assert.Equal(t, "p1", resErr.ProductID)
	})
}

func TestTaxes(t *testing.T) {
	tests := []struct {
		subtotal int64
		want     int64
	}{
		{0, 0},
		{100, 19},
		{10, 2},
		{38333, 7283},
		{50, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, taxes(tt.subtotal), "subtotal %d", tt.subtotal)
	}
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, reasonEmptyCart, failureReason(ErrEmptyCart))
	assert.Equal(t, reasonResolution, failureReason(&ProductResolutionError{ProductID: "p", Err: errors.New("x")}))
	assert.Equal(t, reasonPersistence, failureReason(&PersistenceError{Err: errors.New("x")}))
	assert.Equal(t, reasonInvalidInput, failureReason(ErrMissingUser))
}
