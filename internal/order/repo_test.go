package order

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/ordenes-checkout/internal/apperr"
	"github.com/MikeMC777/ordenes-checkout/internal/db/dbtest"
)

var testAddress = Address{Line1: "742 Evergreen Terrace", City: "Springfield", State: "OR", PostalCode: "97403", Country: "US"}

func addToCart(t *testing.T, pool *pgxpool.Pool, owner, productID string, qty int) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO cart_lines (owner_id, product_id, quantity) VALUES ($1,$2,$3)
	`, owner, productID, qty)
	require.NoError(t, err)
}

func cartQuantities(t *testing.T, pool *pgxpool.Pool, owner string) map[string]int {
	t.Helper()
	rows, err := pool.Query(context.Background(), `SELECT product_id, quantity FROM cart_lines WHERE owner_id=$1`, owner)
	require.NoError(t, err)
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			pid string
			qty int
		)
		require.NoError(t, rows.Scan(&pid, &qty))
		out[pid] = qty
	}
	require.NoError(t, rows.Err())
	return out
}

func countRows(t *testing.T, pool *pgxpool.Pool, sql string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), sql, args...).Scan(&n))
	return n
}

func TestCheckout_HappyPath(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := NewPGRepo(pool)
	ctx := context.Background()

	owner := uuid.NewString()
	a := dbtest.SeedProduct(t, pool, uuid.NewString(), "A", "10.00", 10)
	b := dbtest.SeedProduct(t, pool, uuid.NewString(), "B", "5.00", 10)
	addToCart(t, pool, owner, a, 2)
	addToCart(t, pool, owner, b, 1)
	require.NoError(t, repo.UpsertAddress(ctx, owner, testAddress))

	o, err := repo.Checkout(ctx, owner, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Regexp(t, `^[a-z0-9]{9}$`, o.OrderNumber)
	assert.True(t, decimal.NewFromInt(25).Equal(o.Total), o.Total.String())
	assert.Equal(t, testAddress, o.ShippingAddress)
	assert.Empty(t, cartQuantities(t, pool, owner))
	assert.Equal(t, 1, countRows(t, pool, `SELECT COUNT(*) FROM outbox WHERE event_type='order.created' AND msg_key=$1`, o.OrderNumber))

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.True(t, decimal.NewFromInt(25).Equal(got.Total))

	// later catalog price changes do not touch frozen prices
	_, err = pool.Exec(ctx, `UPDATE products SET price = 99.00 WHERE id=$1`, a)
	require.NoError(t, err)
	got, err = repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(25).Equal(got.Total))

	// the stored address is a copy
	require.NoError(t, repo.UpsertAddress(ctx, owner, Address{Line1: "1 New St", City: "Lima", PostalCode: "15001", Country: "PE"}))
	got, err = repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "742 Evergreen Terrace", got.ShippingAddress.Line1)

	list, err := repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Items, 2)
}

func TestCheckout_InsufficientStockRollsBack(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := NewPGRepo(pool)
	ctx := context.Background()

	owner := uuid.NewString()
	a := dbtest.SeedProduct(t, pool, uuid.NewString(), "A", "10.00", 3)
	addToCart(t, pool, owner, a, 5)

	_, err := repo.Checkout(ctx, owner, &testAddress)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, a, stockErr.ProductID)
	assert.Equal(t, map[string]int{a: 5}, cartQuantities(t, pool, owner))
	assert.Equal(t, 0, countRows(t, pool, `SELECT COUNT(*) FROM orders WHERE owner_id=$1`, owner))
	assert.Equal(t, 0, countRows(t, pool, `SELECT COUNT(*) FROM outbox`))
	// the override upsert rolled back too
	_, err = repo.GetAddress(ctx, owner)
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestCheckout_Preconditions(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := NewPGRepo(pool)
	ctx := context.Background()

	owner := uuid.NewString()
	_, err := repo.Checkout(ctx, owner, &testAddress)
	assert.ErrorIs(t, err, ErrEmptyCart)

	a := dbtest.SeedProduct(t, pool, uuid.NewString(), "A", "10.00", 3)
	addToCart(t, pool, owner, a, 1)
	_, err = repo.Checkout(ctx, owner, nil)
	assert.ErrorIs(t, err, ErrNoShippingAddress)

	o, err := repo.Checkout(ctx, owner, &testAddress)
	require.NoError(t, err)
	assert.Equal(t, "Springfield", o.ShippingAddress.City)
	stored, err := repo.GetAddress(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, testAddress, *stored)
}

func TestCheckout_RetriesTakenOrderNumber(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := NewPGRepo(pool)
	ctx := context.Background()

	first := uuid.NewString()
	a := dbtest.SeedProduct(t, pool, uuid.NewString(), "A", "10.00", 10)
	addToCart(t, pool, first, a, 1)
	repo.newNumber = func() (string, error) { return "aaaaaaaaa", nil }
	_, err := repo.Checkout(ctx, first, &testAddress)
	require.NoError(t, err)

	second := uuid.NewString()
	addToCart(t, pool, second, a, 1)
	numbers := []string{"aaaaaaaaa", "aaaaaaaaa", "bbbbbbbbb"}
	repo.newNumber = func() (string, error) {
		n := numbers[0]
		numbers = numbers[1:]
		return n, nil
	}
	o, err := repo.Checkout(ctx, second, &testAddress)
	require.NoError(t, err)
	assert.Equal(t, "bbbbbbbbb", o.OrderNumber)

	third := uuid.NewString()
	addToCart(t, pool, third, a, 1)
	repo.newNumber = func() (string, error) { return "aaaaaaaaa", nil }
	_, err = repo.Checkout(ctx, third, &testAddress)
	assert.Equal(t, apperr.KindInvariant, apperr.KindOf(err))
	assert.Equal(t, map[string]int{a: 1}, cartQuantities(t, pool, third))
}

func TestCheckout_ConcurrentOwnersGetDistinctNumbers(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := NewPGRepo(pool)
	ctx := context.Background()

	a := dbtest.SeedProduct(t, pool, uuid.NewString(), "A", "1.00", 1000)
	const n = 12
	owners := make([]string, n)
	for i := range owners {
		owners[i] = uuid.NewString()
		addToCart(t, pool, owners[i], a, 1)
		require.NoError(t, repo.UpsertAddress(ctx, owners[i], testAddress))
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[string]bool{}
	)
	for _, owner := range owners {
		wg.Add(1)
		go func(owner string) {
			defer wg.Done()
			o, err := repo.Checkout(ctx, owner, nil)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			numbers[o.OrderNumber] = true
			mu.Unlock()
		}(owner)
	}
	wg.Wait()
	assert.Len(t, numbers, n)
}

func TestCheckout_ConcurrentSameOwnerOnlyOneOrder(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := NewPGRepo(pool)
	ctx := context.Background()

	owner := uuid.NewString()
	a := dbtest.SeedProduct(t, pool, uuid.NewString(), "A", "1.00", 100)
	addToCart(t, pool, owner, a, 3)
	require.NoError(t, repo.UpsertAddress(ctx, owner, testAddress))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Checkout(ctx, owner, nil)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, ErrEmptyCart)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, countRows(t, pool, `SELECT COUNT(*) FROM orders WHERE owner_id=$1`, owner))
	assert.Equal(t, 3, countRows(t, pool, `
		SELECT COALESCE(SUM(oi.quantity),0) FROM order_items oi JOIN orders o ON o.id = oi.order_id WHERE o.owner_id=$1
	`, owner))
}

func TestApplySettlement(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := NewPGRepo(pool)
	ctx := context.Background()

	owner := uuid.NewString()
	a := dbtest.SeedProduct(t, pool, uuid.NewString(), "A", "10.00", 10)
	addToCart(t, pool, owner, a, 1)
	o, err := repo.Checkout(ctx, owner, &testAddress)
	require.NoError(t, err)

	s, err := repo.ApplySettlement(ctx, o.OrderNumber, PaymentPaid)
	require.NoError(t, err)
	assert.Equal(t, SettlementApplied, s.Outcome)
	assert.Equal(t, StatusProcessing, s.Status)

	s, err = repo.ApplySettlement(ctx, o.OrderNumber, PaymentPaid)
	require.NoError(t, err)
	assert.Equal(t, SettlementDuplicate, s.Outcome)

	s, err = repo.ApplySettlement(ctx, o.OrderNumber, PaymentFailed)
	require.NoError(t, err)
	assert.Equal(t, SettlementConflict, s.Outcome)
	assert.Equal(t, PaymentPaid, s.PaymentStatus)

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status)
	assert.Equal(t, PaymentPaid, got.PaymentStatus)
	assert.Equal(t, 1, countRows(t, pool, `SELECT COUNT(*) FROM outbox WHERE event_type='order.paid'`))

	_, err = repo.ApplySettlement(ctx, "nosuchnum", PaymentPaid)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus_WritesStatusOnly(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := NewPGRepo(pool)
	ctx := context.Background()

	owner := uuid.NewString()
	a := dbtest.SeedProduct(t, pool, uuid.NewString(), "A", "10.00", 10)
	addToCart(t, pool, owner, a, 1)
	o, err := repo.Checkout(ctx, owner, &testAddress)
	require.NoError(t, err)

	prev, err := repo.UpdateStatus(ctx, o.ID, StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, prev)

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, got.Status)
	assert.Equal(t, PaymentPending, got.PaymentStatus)

	_, err = repo.UpdateStatus(ctx, uuid.NewString(), StatusShipped)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}
