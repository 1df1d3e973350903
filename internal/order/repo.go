package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/ordenes-checkout/internal/apperr"
	"github.com/MikeMC777/ordenes-checkout/internal/outbox"
)

var (
	ErrNotFound             = apperr.NotFound("order not found")
	ErrAddressNotFound      = apperr.NotFound("shipping address not found")
	ErrEmptyCart            = apperr.Validation("cart is empty")
	ErrNoShippingAddress    = apperr.Validation("no shipping address")
	ErrOrderNumberExhausted = apperr.Invariant("could not allocate a unique order number")
)

// InsufficientStockError names the first cart line that exceeds stock.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) ErrKind() apperr.Kind { return apperr.KindConflict }

type Repository interface {
	GetAddress(ctx context.Context, ownerID string) (*Address, error)
	UpsertAddress(ctx context.Context, ownerID string, a Address) error
	DeleteAddress(ctx context.Context, ownerID string) error

	Checkout(ctx context.Context, ownerID string, override *Address) (*Order, error)

	GetByID(ctx context.Context, id string) (*Order, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, st Status) (Status, error)
	ApplySettlement(ctx context.Context, orderNumber string, target PaymentStatus) (*Settlement, error)
}

type PGRepo struct {
	db        *pgxpool.Pool
	newNumber func() (string, error)
}

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db, newNumber: NewOrderNumber} }

const orderColumns = `id, owner_id, order_number, status, payment_status,
	ship_line1, ship_line2, ship_city, ship_state, ship_postal, ship_country,
	created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	a := &o.ShippingAddress
	if err := row.Scan(&o.ID, &o.OwnerID, &o.OrderNumber, &o.Status, &o.PaymentStatus,
		&a.Line1, &a.Line2, &a.City, &a.State, &a.PostalCode, &a.Country,
		&o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PGRepo) GetAddress(ctx context.Context, ownerID string) (*Address, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	a, err := getAddress(ctx, r.db, ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAddressNotFound
	}
	return a, err
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getAddress(ctx context.Context, q querier, ownerID string) (*Address, error) {
	var a Address
	err := q.QueryRow(ctx, `
		SELECT address_line_1, address_line_2, city, state, postal_code, country
		FROM shipping_addresses WHERE owner_id=$1
	`, ownerID).Scan(&a.Line1, &a.Line2, &a.City, &a.State, &a.PostalCode, &a.Country)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PGRepo) UpsertAddress(ctx context.Context, ownerID string, a Address) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return upsertAddress(ctx, r.db, ownerID, a)
}

func upsertAddress(ctx context.Context, ex outbox.Execer, ownerID string, a Address) error {
	_, err := ex.Exec(ctx, `
		INSERT INTO shipping_addresses (owner_id, address_line_1, address_line_2, city, state, postal_code, country, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
		ON CONFLICT (owner_id) DO UPDATE SET
			address_line_1 = EXCLUDED.address_line_1,
			address_line_2 = EXCLUDED.address_line_2,
			city           = EXCLUDED.city,
			state          = EXCLUDED.state,
			postal_code    = EXCLUDED.postal_code,
			country        = EXCLUDED.country,
			updated_at     = NOW()
	`, ownerID, a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country)
	return err
}

func (r *PGRepo) DeleteAddress(ctx context.Context, ownerID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM shipping_addresses WHERE owner_id=$1`, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAddressNotFound
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	items, err := r.itemsFor(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	o.Total = total(o.Items)
	return o, nil
}

func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE owner_id=$1
		ORDER BY created_at DESC, id
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Order{}
	var ids []string
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}
	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
		out[i].Total = total(out[i].Items)
	}
	return out, nil
}

func (r *PGRepo) itemsFor(ctx context.Context, orderIDs []string) (map[string][]Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, product_id, quantity, price::text
		FROM order_items WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, id
	`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]Item, len(orderIDs))
	for rows.Next() {
		var (
			it    Item
			price string
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &price); err != nil {
			return nil, err
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price %q: %w", price, err)
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

// UpdateStatus writes status only and returns the previous value.
func (r *PGRepo) UpdateStatus(ctx context.Context, id string, st Status) (Status, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		prev   Status
		number string
	)
	err = tx.QueryRow(ctx, `SELECT status, order_number FROM orders WHERE id=$1 FOR UPDATE`, id).Scan(&prev, &number)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=NOW() WHERE id=$1`, id, st); err != nil {
		return "", err
	}
	if err := outbox.Insert(ctx, tx, number, outbox.EventOrderStatusChanged, map[string]any{
		"order_id": id, "order_number": number, "from": prev, "to": st,
	}); err != nil {
		return "", err
	}
	return prev, tx.Commit(ctx)
}

// ApplySettlement locks the order by number and applies a terminal payment
// outcome per Settle. Duplicates and conflicts leave the row untouched.
func (r *PGRepo) ApplySettlement(ctx context.Context, orderNumber string, target PaymentStatus) (*Settlement, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	s := Settlement{OrderNumber: orderNumber}
	err = tx.QueryRow(ctx, `
		SELECT id, status, payment_status FROM orders WHERE order_number=$1 FOR UPDATE
	`, orderNumber).Scan(&s.OrderID, &s.Status, &s.PaymentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	s.Outcome, err = Settle(s.PaymentStatus, target)
	if err != nil {
		return nil, err
	}
	if s.Outcome != SettlementApplied {
		return &s, nil
	}

	s.Status, s.PaymentStatus = SettledStatus(target), target
	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status=$2, payment_status=$3, updated_at=NOW() WHERE id=$1
	`, s.OrderID, s.Status, s.PaymentStatus); err != nil {
		return nil, err
	}
	event := outbox.EventOrderPaid
	if target == PaymentFailed {
		event = outbox.EventOrderPaymentFailed
	}
	if err := outbox.Insert(ctx, tx, orderNumber, event, s); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &s, nil
}
