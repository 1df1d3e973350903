package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/ordenes-checkout/internal/db/dbtest"
	"github.com/MikeMC777/ordenes-checkout/internal/identity"
	"github.com/MikeMC777/ordenes-checkout/internal/user"
)

func TestForgetPrincipal(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("identity:principal:u1", `{"user_id":"u1","is_manager":true}`))
	require.NoError(t, mr.Set("identity:principal:u2", `{"user_id":"u2"}`))

	require.NoError(t, forgetPrincipal(context.Background(), mr.Addr(), "u1"))
	assert.False(t, mr.Exists("identity:principal:u1"))
	assert.True(t, mr.Exists("identity:principal:u2"))

	// no cache configured
	assert.NoError(t, forgetPrincipal(context.Background(), "", "u2"))
}

func TestUsersSetManager_RevokeClearsCachedPrincipal(t *testing.T) {
	pool := dbtest.Pool(t)
	ctx := context.Background()
	users := user.NewService(user.NewPGRepo(pool))

	u, err := users.Create(ctx, user.CreateInput{
		Username: "ops", Email: "ops@example.com", Password: "s3cret",
		Groups: []string{user.GroupManager},
	})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cached := identity.NewCachedResolver(users, rdb, time.Hour)

	p, err := cached.Resolve(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, p.IsManager)

	_, err = run(t, "", "users", "set-manager", u.ID, "--revoke",
		"--dsn", pool.Config().ConnString(), "--redis", mr.Addr())
	require.NoError(t, err)

	assert.False(t, mr.Exists("identity:principal:"+u.ID))
	p, err = cached.Resolve(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, p.IsManager)
}
