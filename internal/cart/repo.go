// Package cart stores the mutable per-user shopping cart.
package cart

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeMC777/ordenes-checkout/internal/apperr"
	"github.com/MikeMC777/ordenes-checkout/internal/db"
	"github.com/MikeMC777/ordenes-checkout/internal/product"
)

// MaxQuantity is the largest quantity a cart_lines INTEGER column holds.
const MaxQuantity = math.MaxInt32

var (
	ErrNotFound        = apperr.NotFound("cart line not found")
	ErrInvalidQuantity = apperr.Validation("quantity must be between 1 and 2147483647")
)

type Repository interface {
	AddOrIncrement(ctx context.Context, ownerID, productID string, delta int) (*Line, bool, error)
	SetQuantity(ctx context.Context, ownerID, productID string, qty int) (*Line, error)
	Remove(ctx context.Context, ownerID, productID string) error
	ListForOwner(ctx context.Context, ownerID string) ([]Line, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

// AddOrIncrement upserts on the (owner_id, product_id) constraint. The
// conflicting row is locked by the upsert, so concurrent increments serialize
// and none is lost. xmax = 0 only for a freshly inserted tuple.
func (r *PGRepo) AddOrIncrement(ctx context.Context, ownerID, productID string, delta int) (*Line, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		l       Line
		created bool
	)
	err := r.db.QueryRow(ctx, `
		INSERT INTO cart_lines (owner_id, product_id, quantity, created_at, updated_at)
		VALUES ($1,$2,$3,NOW(),NOW())
		ON CONFLICT ON CONSTRAINT cart_lines_owner_product_key
		DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity, updated_at = NOW()
		RETURNING id, owner_id, product_id, quantity, created_at, updated_at, (xmax = 0)
	`, ownerID, productID, delta).Scan(&l.ID, &l.OwnerID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt, &created)
	if db.IsForeignKeyViolation(err, "") {
		return nil, false, product.ErrNotFound
	}
	if db.IsNumericOutOfRange(err) {
		return nil, false, ErrInvalidQuantity
	}
	if err != nil {
		return nil, false, err
	}
	return &l, created, nil
}

func (r *PGRepo) SetQuantity(ctx context.Context, ownerID, productID string, qty int) (*Line, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return nil, ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var l Line
	err := r.db.QueryRow(ctx, `
		UPDATE cart_lines SET quantity = $3, updated_at = NOW()
		WHERE owner_id = $1 AND product_id = $2
		RETURNING id, owner_id, product_id, quantity, created_at, updated_at
	`, ownerID, productID, qty).Scan(&l.ID, &l.OwnerID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *PGRepo) Remove(ctx context.Context, ownerID, productID string) error {
	if _, err := uuid.Parse(productID); err != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `DELETE FROM cart_lines WHERE owner_id=$1 AND product_id=$2`, ownerID, productID)
	return err
}

func (r *PGRepo) ListForOwner(ctx context.Context, ownerID string) ([]Line, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, owner_id, product_id, quantity, created_at, updated_at
		FROM cart_lines WHERE owner_id=$1
		ORDER BY created_at, id
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
