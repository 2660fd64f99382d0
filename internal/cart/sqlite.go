package cart

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/rafaelsava/S2Market/internal/domain"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS cart_lines(
  user_id    TEXT    NOT NULL,
  position   INTEGER NOT NULL,
  product_id TEXT    NOT NULL,
  quantity   INTEGER NOT NULL CHECK (quantity > 0),
  PRIMARY KEY (user_id, product_id)
);
CREATE INDEX IF NOT EXISTS idx_cart_lines_user ON cart_lines(user_id, position);
`

type SQLiteSnapshots struct {
	db *sql.DB
}

// OpenSQLiteSnapshots opens (creating if needed) the snapshot database at path.
func OpenSQLiteSnapshots(ctx context.Context, path string) (*SQLiteSnapshots, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, snapshotSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create snapshot schema: %w", err)
	}

	return &SQLiteSnapshots{db: db}, nil
}

func (s *SQLiteSnapshots) Load(ctx context.Context, userID string) ([]domain.CartLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, quantity
		FROM cart_lines
		WHERE user_id = ?
		ORDER BY position
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var lines []domain.CartLine
	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(&l.ProductID, &l.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

func (s *SQLiteSnapshots) Save(ctx context.Context, userID string, lines []domain.CartLine) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE user_id = ?`, userID); err != nil {
		return err
	}

	for i, l := range lines {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cart_lines (user_id, position, product_id, quantity)
			VALUES (?, ?, ?, ?)
		`, userID, i, l.ProductID, l.Quantity)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteSnapshots) Close() error {
	return s.db.Close()
}
