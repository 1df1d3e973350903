package product

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/ordenes-checkout/internal/db/dbtest"
)

func TestPGRepo_CreateGetList(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := NewPGRepo(pool)
	ctx := context.Background()

	p := &Product{ID: uuid.NewString(), Name: "Mechanical Keyboard", Description: "RGB 60%", Price: decimal.RequireFromString("199.90"), Stock: 10}
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mechanical Keyboard", got.Name)
	assert.Equal(t, "199.9", got.Price.String())
	assert.Equal(t, 10, got.Stock)

	items, err := repo.List(ctx, Query{Q: "keyboard"})
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NoError(t, repo.SetPrice(ctx, p.ID, decimal.RequireFromString("149.00")))
	got, err = repo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(149).Equal(got.Price))

	_, err = repo.GetProduct(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetProduct(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.SetPrice(ctx, uuid.NewString(), decimal.NewFromInt(1)), ErrNotFound)
}

func TestPGRepo_CreateRejectsBadPrice(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := NewPGRepo(pool)

	err := repo.Create(context.Background(), &Product{ID: uuid.NewString(), Name: "Free", Price: decimal.Zero})
	assert.Error(t, err)
}
