package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/ordenes-checkout/internal/db"
	"github.com/MikeMC777/ordenes-checkout/internal/outbox"
)

const maxOrderNumberAttempts = 8

type cartRow struct {
	lineID    int64
	productID string
	quantity  int
	price     decimal.Decimal
	stock     int
}

// Checkout turns the owner's cart into a pending order in one transaction.
//
// The owner's cart rows are locked FOR UPDATE, so a concurrent edit of an
// existing line waits for the commit and then sees an empty cart. Lines added
// after the snapshot was read are not deleted and stay in the cart.
func (r *PGRepo) Checkout(ctx context.Context, ownerID string, override *Address) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lines, err := lockCart(ctx, tx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	if override != nil {
		if err := upsertAddress(ctx, tx, ownerID, *override); err != nil {
			return nil, fmt.Errorf("save address: %w", err)
		}
	}
	addr, err := getAddress(ctx, tx, ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoShippingAddress
	}
	if err != nil {
		return nil, err
	}

	for _, l := range lines {
		if l.quantity > l.stock {
			return nil, &InsufficientStockError{ProductID: l.productID, Requested: l.quantity, Available: l.stock}
		}
	}

	o := &Order{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		ShippingAddress: *addr,
	}
	if err := r.insertOrder(ctx, tx, o); err != nil {
		return nil, err
	}

	batch := &pgx.Batch{}
	lineIDs := make([]int64, 0, len(lines))
	for _, l := range lines {
		it := Item{ID: uuid.NewString(), OrderID: o.ID, ProductID: l.productID, Quantity: l.quantity, Price: l.price}
		o.Items = append(o.Items, it)
		lineIDs = append(lineIDs, l.lineID)
		batch.Queue(`
			INSERT INTO order_items (id, order_id, product_id, quantity, price)
			VALUES ($1,$2,$3,$4,$5)
		`, it.ID, it.OrderID, it.ProductID, it.Quantity, it.Price.String())
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("insert items: %w", err)
	}
	o.Total = total(o.Items)

	if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE id = ANY($1)`, lineIDs); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	if err := outbox.Insert(ctx, tx, o.OrderNumber, outbox.EventOrderCreated, o); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

func lockCart(ctx context.Context, tx pgx.Tx, ownerID string) ([]cartRow, error) {
	rows, err := tx.Query(ctx, `
		SELECT cl.id, cl.product_id, cl.quantity, p.price::text, p.stock
		FROM cart_lines cl
		JOIN products p ON p.id = cl.product_id
		WHERE cl.owner_id = $1
		ORDER BY cl.created_at, cl.id
		FOR UPDATE OF cl
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("lock cart: %w", err)
	}
	defer rows.Close()

	var out []cartRow
	for rows.Next() {
		var (
			l     cartRow
			price string
		)
		if err := rows.Scan(&l.lineID, &l.productID, &l.quantity, &price, &l.stock); err != nil {
			return nil, err
		}
		if l.price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price %q: %w", price, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// insertOrder allocates an order number and inserts the order row. The
// EXISTS probe only avoids needless savepoint rollbacks; the unique
// constraint decides, and a violation rolls back to the savepoint and draws
// again.
func (r *PGRepo) insertOrder(ctx context.Context, tx pgx.Tx, o *Order) error {
	a := o.ShippingAddress
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		number, err := r.newNumber()
		if err != nil {
			return err
		}

		var taken bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE order_number=$1)`, number).Scan(&taken); err != nil {
			return err
		}
		if taken {
			log.Printf("[checkout] order_number=%s taken attempt=%d", number, attempt)
			continue
		}

		sp, err := tx.Begin(ctx)
		if err != nil {
			return err
		}
		err = sp.QueryRow(ctx, `
			INSERT INTO orders (id, owner_id, order_number, status, payment_status,
				ship_line1, ship_line2, ship_city, ship_state, ship_postal, ship_country,
				created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW(),NOW())
			RETURNING created_at, updated_at
		`, o.ID, o.OwnerID, number, o.Status, o.PaymentStatus,
			a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country).Scan(&o.CreatedAt, &o.UpdatedAt)
		if err == nil {
			if err := sp.Commit(ctx); err != nil {
				return err
			}
			o.OrderNumber = number
			return nil
		}
		_ = sp.Rollback(ctx)
		if !db.IsUniqueViolation(err, "orders_order_number_key") {
			return fmt.Errorf("insert order: %w", err)
		}
		log.Printf("[checkout] order_number=%s collided at commit attempt=%d", number, attempt)
	}
	log.Printf("[checkout] owner=%s invariant: order number space exhausted after %d attempts", o.OwnerID, maxOrderNumberAttempts)
	return ErrOrderNumberExhausted
}
