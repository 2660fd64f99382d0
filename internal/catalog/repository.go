package catalog

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/rafaelsava/S2Market/internal/domain"
)

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p        domain.Product
		category string
	)
	if err := row.Scan(&p.ID, &p.SellerID, &p.Title, &p.Description, &category, &p.Image, &p.Price, &p.Stock, &p.CreatedAt); err != nil {
		return nil, err
	}

	c, err := domain.ParseCategory(category)
	if err != nil {
		return nil, err
	}
	p.Category = c

	return &p, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	p.ID = uuid.New().String()

	return r.db.QueryRowContext(ctx, `
		INSERT INTO products (id, seller_id, title, description, category, image, price, stock, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at
	`, p.ID, p.SellerID, p.Title, p.Description, p.Category, p.Image, p.Price, p.Stock).Scan(&p.CreatedAt)
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return p, nil
}

func (r *ProductRepository) List(ctx context.Context, f Filter) ([]domain.Product, error) {
	query, args := buildListQuery(f)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

// ProductUpdate holds the editable fields of a product. Nil fields are left
// unchanged.
type ProductUpdate struct {
	Title *string `json:"title"`
	Price *int64  `json:"price"`
	Stock *int    `json:"stock"`
}

func (r *ProductRepository) Update(ctx context.Context, id string, u ProductUpdate) (*domain.Product, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET title = COALESCE($2, title),
		    price = COALESCE($3, price),
		    stock = COALESCE($4, stock)
		WHERE id = $1
	`, id, u.Title, u.Price, u.Stock)
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

// Delete reports whether a product was removed.
func (r *ProductRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

func (r *ProductRepository) AddReview(ctx context.Context, review *domain.Review) error {
	review.ID = uuid.New().String()

	return r.db.QueryRowContext(ctx, `
		INSERT INTO reviews (id, product_id, user_id, name, rating, comment, photo_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`, review.ID, review.ProductID, review.UserID, review.Name, review.Rating, review.Comment, review.PhotoURL).Scan(&review.CreatedAt)
}

func (r *ProductRepository) ListReviews(ctx context.Context, productID string) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, user_id, name, rating, comment, photo_url, created_at
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC
	`, productID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	reviews := []domain.Review{}
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.ProductID, &rv.UserID, &rv.Name, &rv.Rating, &rv.Comment, &rv.PhotoURL, &rv.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reviews, nil
}
