package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCartLineNotFound = errors.New("cart line not found")

	// ErrOutOfStock means the product has zero stock; ErrInsufficientStock
	// means stock exists but less than requested. Callers present the two
	// differently, so they stay distinct.
	ErrOutOfStock        = errors.New("out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Store is the catalog-side data access layer. It owns inventory truth:
// product rows and the shopping-cart lines.
type Store struct{ DB *pgxpool.Pool }

func (s *Store) GetProduct(ctx context.Context, productID string) (*Product, error) {
	p := &Product{}
	err := s.DB.QueryRow(ctx, `
		SELECT id, name, price, stock, status, created_at, updated_at
		FROM products WHERE id=$1`, productID).
		Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", productID, err)
	}
	return p, nil
}

func (s *Store) GetCartLine(ctx context.Context, userID, productID string) (*CartLine, error) {
	l := &CartLine{}
	err := s.DB.QueryRow(ctx, `
		SELECT id, user_id, product_id, quantity, created_at, updated_at
		FROM cart_lines WHERE user_id=$1 AND product_id=$2`, userID, productID).
		Scan(&l.ID, &l.UserID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCartLineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cart line: %w", err)
	}
	return l, nil
}

// UpsertCartLine writes the absolute quantity for a (user, product) pair,
// inserting the row if absent. Quantity validation belongs to the guard.
func (s *Store) UpsertCartLine(ctx context.Context, userID, productID string, quantity int) (*CartLine, error) {
	l := &CartLine{}
	err := s.DB.QueryRow(ctx, `
		INSERT INTO cart_lines (id, user_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()
		RETURNING id, user_id, product_id, quantity, created_at, updated_at`,
		uuid.NewString(), userID, productID, quantity).
		Scan(&l.ID, &l.UserID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert cart line: %w", err)
	}
	return l, nil
}

func (s *Store) RemoveCartLine(ctx context.Context, userID, productID string) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM cart_lines WHERE user_id=$1 AND product_id=$2`, userID, productID)
	if err != nil {
		return fmt.Errorf("remove cart line: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrCartLineNotFound
	}
	return nil
}

// ListCart returns the user's cart lines joined with live product data, in
// insertion order.
func (s *Store) ListCart(ctx context.Context, userID string) ([]CartEntry, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT c.id, c.product_id, p.name, p.price, c.quantity, p.stock, p.status
		FROM cart_lines c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	defer rows.Close()

	var out []CartEntry
	for rows.Next() {
		var e CartEntry
		if err := rows.Scan(&e.LineID, &e.ProductID, &e.ProductName, &e.UnitPrice,
			&e.Quantity, &e.Stock, &e.ProductStatus); err != nil {
			return nil, fmt.Errorf("scan cart entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) ClearCart(ctx context.Context, userID string) error {
	if _, err := s.DB.Exec(ctx, `DELETE FROM cart_lines WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// DecrementStock applies the conditional write
// stock = stock - qty WHERE stock >= qty, which fails closed when stock is
// short instead of ever going negative.
func (s *Store) DecrementStock(ctx context.Context, productID string, qty int) error {
	ct, err := s.DB.Exec(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2`, productID, qty)
	if err != nil {
		return fmt.Errorf("decrement stock %s: %w", productID, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}
