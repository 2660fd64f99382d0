package orders

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/rafaelsava/S2Market/internal/domain"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists order and its items in one transaction. ID and CreatedAt
// are assigned here; CreatedAt comes from the database clock.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.New().String()

	var createdAt time.Time
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (id, user_id, meeting_point, payment_method, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at
	`, id, order.UserID, order.MeetingPoint, order.PaymentMethod, order.Status).Scan(&createdAt)
	if err != nil {
		return err
	}

	for i, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, position, product_id, quantity, seller_id)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.New().String(), id, i, item.ProductID, item.Quantity, item.SellerID)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	order.ID = id
	order.CreatedAt = createdAt
	return nil
}

const orderColumns = `o.id, o.user_id, o.meeting_point, o.payment_method, o.status, o.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o                                   domain.Order
		meetingPoint, paymentMethod, status string
	)
	if err := row.Scan(&o.ID, &o.UserID, &meetingPoint, &paymentMethod, &status, &o.CreatedAt); err != nil {
		return nil, err
	}

	var err error
	if o.MeetingPoint, err = domain.ParseMeetingPoint(meetingPoint); err != nil {
		return nil, fmt.Errorf("order %s: %w", o.ID, err)
	}
	if o.PaymentMethod, err = domain.ParsePaymentMethod(paymentMethod); err != nil {
		return nil, fmt.Errorf("order %s: %w", o.ID, err)
	}
	if o.Status, err = domain.ParseOrderStatus(status); err != nil {
		return nil, fmt.Errorf("order %s: %w", o.ID, err)
	}
	o.Items = []domain.OrderItem{}

	return &o, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		WHERE o.id = $1
	`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if err := r.loadItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}

	return order, nil
}

// UpdateStatus overwrites the status field. Any status of the enumeration is
// accepted regardless of the current one.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, id)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, id)
}

// ListByBuyer returns the buyer's orders, newest first. An empty status
// matches every status.
func (r *OrderRepository) ListByBuyer(ctx context.Context, userID string, status domain.OrderStatus) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		WHERE o.user_id = $1 AND ($2::text = '' OR o.status = $2::text)
		ORDER BY o.created_at DESC
	`, userID, string(status))
}

// ListBySeller returns the orders containing at least one of the seller's
// products, newest first, with Items narrowed to that seller's lines.
func (r *OrderRepository) ListBySeller(ctx context.Context, sellerID string, status domain.OrderStatus) ([]domain.Order, error) {
	orders, err := r.list(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		WHERE EXISTS (
			SELECT 1 FROM order_items i
			WHERE i.order_id = o.id AND i.seller_id = $1
		) AND ($2::text = '' OR o.status = $2::text)
		ORDER BY o.created_at DESC
	`, sellerID, string(status))
	if err != nil {
		return nil, err
	}

	for i := range orders {
		orders[i].Items = orders[i].ItemsForSeller(sellerID)
	}

	return orders, nil
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ptrs []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		ptrs = append(ptrs, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, ptrs); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(ptrs))
	for _, o := range ptrs {
		orders = append(orders, *o)
	}

	return orders, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, quantity, seller_id
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			orderID string
			item    domain.OrderItem
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Quantity, &item.SellerID); err != nil {
			return err
		}
		order := byID[orderID]
		order.Items = append(order.Items, item)
	}

	return rows.Err()
}
