package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrDuplicateOrderNumber = errors.New("duplicate order number")
	ErrDuplicateCheckoutKey = errors.New("duplicate checkout key")
	ErrInvalidTransition    = errors.New("invalid status transition")
)

const pgUniqueViolation = "23505"

// Store is the order-side data access layer. It owns order truth and
// enforces order-number uniqueness. It shares no transaction boundary with
// the catalog store.
type Store struct{ DB *pgxpool.Pool }

// InsertOrder writes the order row plus its first timeline entry. Line items
// are inserted separately so the coordinator can compensate if they fail.
func (s *Store) InsertOrder(ctx context.Context, o *Order) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var checkoutKey any
	if o.CheckoutKey != "" {
		checkoutKey = o.CheckoutKey
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (
			id, user_id, order_number, status, payment_status, payment_method,
			payment_ref, checkout_key, subtotal, tax, shipping, discount, total,
			currency, ship_name, ship_line1, ship_line2, ship_city, ship_state,
			ship_postal_code, ship_phone)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		RETURNING created_at, updated_at`,
		o.ID, o.UserID, o.OrderNumber, o.Status, o.PaymentStatus, o.PaymentMethod,
		o.PaymentRef, checkoutKey, o.Subtotal, o.Tax, o.Shipping, o.Discount, o.Total,
		o.Currency, o.ShippingAddress.Name, o.ShippingAddress.Line1, o.ShippingAddress.Line2,
		o.ShippingAddress.City, o.ShippingAddress.State, o.ShippingAddress.PostalCode,
		o.ShippingAddress.Phone).
		Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", mapUnique(err))
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO order_timeline (id, order_id, status, note)
		VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), o.ID, o.Status, "order placed"); err != nil {
		return fmt.Errorf("insert timeline: %w", err)
	}

	return tx.Commit(ctx)
}

func mapUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		switch pgErr.ConstraintName {
		case "orders_order_number_key":
			return ErrDuplicateOrderNumber
		case "orders_checkout_key_key":
			return ErrDuplicateCheckoutKey
		}
	}
	return err
}

// InsertLines writes all line items for an order in one transaction: either
// every line lands or none do.
func (s *Store) InsertLines(ctx context.Context, lines []OrderLine) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i := range lines {
		l := &lines[i]
		err := tx.QueryRow(ctx, `
			INSERT INTO order_lines (id, order_id, product_id, product_name,
				unit_price, quantity, line_total)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			RETURNING created_at`,
			l.ID, l.OrderID, l.ProductID, l.ProductName, l.UnitPrice, l.Quantity, l.LineTotal).
			Scan(&l.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert order line %s: %w", l.ProductID, err)
		}
	}
	return tx.Commit(ctx)
}

// DeleteOrder removes an order and anything hanging off it. This is the
// compensating action for a failed line insert; an order must never survive
// with zero lines.
func (s *Store) DeleteOrder(ctx context.Context, orderID string) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM order_lines WHERE order_id=$1`, orderID); err != nil {
		return fmt.Errorf("delete order lines: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM order_timeline WHERE order_id=$1`, orderID); err != nil {
		return fmt.Errorf("delete order timeline: %w", err)
	}
	ct, err := tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, orderID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return tx.Commit(ctx)
}

func (s *Store) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	o := &Order{ID: orderID}
	err := s.DB.QueryRow(ctx, `
		SELECT user_id, order_number, status, payment_status, payment_method,
			payment_ref, COALESCE(checkout_key, ''), subtotal, tax, shipping,
			discount, total, currency, ship_name, ship_line1, ship_line2,
			ship_city, ship_state, ship_postal_code, ship_phone,
			created_at, updated_at
		FROM orders WHERE id=$1`, orderID).
		Scan(&o.UserID, &o.OrderNumber, &o.Status, &o.PaymentStatus, &o.PaymentMethod,
			&o.PaymentRef, &o.CheckoutKey, &o.Subtotal, &o.Tax, &o.Shipping,
			&o.Discount, &o.Total, &o.Currency, &o.ShippingAddress.Name,
			&o.ShippingAddress.Line1, &o.ShippingAddress.Line2, &o.ShippingAddress.City,
			&o.ShippingAddress.State, &o.ShippingAddress.PostalCode, &o.ShippingAddress.Phone,
			&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := s.DB.Query(ctx, `
		SELECT id, product_id, product_name, unit_price, quantity, line_total, created_at
		FROM order_lines WHERE order_id=$1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		l := OrderLine{OrderID: orderID}
		if err := rows.Scan(&l.ID, &l.ProductID, &l.ProductName, &l.UnitPrice,
			&l.Quantity, &l.LineTotal, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		o.Lines = append(o.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	trows, err := s.DB.Query(ctx, `
		SELECT id, status, note, created_at
		FROM order_timeline WHERE order_id=$1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order timeline: %w", err)
	}
	defer trows.Close()
	for trows.Next() {
		e := TimelineEntry{OrderID: orderID}
		if err := trows.Scan(&e.ID, &e.Status, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan timeline entry: %w", err)
		}
		o.Timeline = append(o.Timeline, e)
	}
	return o, trows.Err()
}

// GetByCheckoutKey resolves an idempotent replay to the order it created.
func (s *Store) GetByCheckoutKey(ctx context.Context, userID, key string) (*Order, error) {
	var orderID string
	err := s.DB.QueryRow(ctx,
		`SELECT id FROM orders WHERE user_id=$1 AND checkout_key=$2`, userID, key).
		Scan(&orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get by checkout key: %w", err)
	}
	return s.GetOrder(ctx, orderID)
}

// UpdateStatus advances the order through the status machine and appends a
// timeline entry in the same transaction. Returns the prior status and the
// order's payment status.
func (s *Store) UpdateStatus(ctx context.Context, orderID string, to Status, note string) (Status, PaymentStatus, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", "", fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var from Status
	var payment PaymentStatus
	err = tx.QueryRow(ctx,
		`SELECT status, payment_status FROM orders WHERE id=$1 FOR UPDATE`, orderID).
		Scan(&from, &payment)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", ErrOrderNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("lock order: %w", err)
	}

	if !CanTransition(from, to) {
		return from, payment, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE orders SET status=$2, updated_at=NOW() WHERE id=$1`, orderID, to); err != nil {
		return from, payment, fmt.Errorf("update status: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO order_timeline (id, order_id, status, note)
		VALUES ($1, $2, $3, $4)`, uuid.NewString(), orderID, to, note); err != nil {
		return from, payment, fmt.Errorf("append timeline: %w", err)
	}
	return from, payment, tx.Commit(ctx)
}
