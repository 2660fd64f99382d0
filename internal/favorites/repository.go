package favorites

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/rafaelsava/S2Market/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

// foreignKeyViolation is the Postgres SQLSTATE raised when the favorited
// product does not exist.
const foreignKeyViolation = "23503"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Add marks productID as a favorite of userID. Adding twice is a no-op.
func (r *Repository) Add(ctx context.Context, userID, productID string) error {
	return insertFavorite(ctx, r.db, userID, productID)
}

// Remove reports whether a favorite was removed.
func (r *Repository) Remove(ctx context.Context, userID, productID string) (bool, error) {
	return deleteFavorite(ctx, r.db, userID, productID)
}

// Toggle flips the favorite and returns the new state.
func (r *Repository) Toggle(ctx context.Context, userID, productID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	removed, err := deleteFavorite(ctx, tx, userID, productID)
	if err != nil {
		return false, err
	}
	if !removed {
		if err := insertFavorite(ctx, tx, userID, productID); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return !removed, nil
}

func (r *Repository) Contains(ctx context.Context, userID, productID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM favorites WHERE user_id = $1 AND product_id = $2)
	`, userID, productID).Scan(&exists)
	return exists, err
}

// List returns the favorited products of userID, most recently added first.
func (r *Repository) List(ctx context.Context, userID string) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.seller_id, p.title, p.description, p.category, p.image, p.price, p.stock, p.created_at
		FROM favorites f
		JOIN products p ON p.id = f.product_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var products []domain.Product
	for rows.Next() {
		var (
			p        domain.Product
			category string
		)
		if err := rows.Scan(&p.ID, &p.SellerID, &p.Title, &p.Description, &category, &p.Image, &p.Price, &p.Stock, &p.CreatedAt); err != nil {
			return nil, err
		}
		if p.Category, err = domain.ParseCategory(category); err != nil {
			return nil, fmt.Errorf("product %s: %w", p.ID, err)
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertFavorite(ctx context.Context, db execer, userID, productID string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO favorites (user_id, product_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, product_id) DO NOTHING
	`, userID, productID)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
		return ErrProductNotFound
	}
	return err
}

func deleteFavorite(ctx context.Context, db execer, userID, productID string) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}
