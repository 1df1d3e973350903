package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/ordenes-checkout/internal/db/dbtest"
)

func TestPGRepo_CreateGetGroups(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := NewPGRepo(pool)
	ctx := context.Background()

	u := &User{ID: uuid.NewString(), Username: "ana", Email: "ana@example.com", PasswordHash: "x", Groups: []string{GroupManager}}
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.IsManager())

	dup := &User{ID: uuid.NewString(), Username: "ana", Email: "other@example.com", PasswordHash: "x"}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrAlreadyExist)

	require.NoError(t, repo.RemoveFromGroup(ctx, u.ID, GroupManager))
	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCustomer())

	assert.ErrorIs(t, repo.AddToGroup(ctx, uuid.NewString(), GroupManager), ErrNotFound)
	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}
