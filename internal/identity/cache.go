package identity

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

func cacheKey(userID string) string { return "identity:principal:" + userID }

// CachedResolver keeps resolved principals in Redis for ttl. Concurrent
// misses for the same user share one upstream call. Redis errors fall back to
// the upstream resolver.
type CachedResolver struct {
	next Resolver
	rdb  *redis.Client
	ttl  time.Duration
	sfg  singleflight.Group
}

func NewCachedResolver(next Resolver, rdb *redis.Client, ttl time.Duration) *CachedResolver {
	return &CachedResolver{next: next, rdb: rdb, ttl: ttl}
}

func (c *CachedResolver) Resolve(ctx context.Context, userID string) (*Principal, error) {
	v, err, _ := c.sfg.Do(userID, func() (any, error) {
		data, err := c.rdb.Get(ctx, cacheKey(userID)).Bytes()
		if err == nil {
			var p Principal
			if err := json.Unmarshal(data, &p); err == nil {
				return &p, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Printf("[identity] cache get user=%s err=%v", userID, err)
		}

		p, err := c.next.Resolve(ctx, userID)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(p); err == nil {
			if err := c.rdb.Set(ctx, cacheKey(userID), data, c.ttl).Err(); err != nil {
				log.Printf("[identity] cache set user=%s err=%v", userID, err)
			}
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	p := *v.(*Principal)
	return &p, nil
}

// Invalidate drops the cached principal after a role change.
func (c *CachedResolver) Invalidate(ctx context.Context, userID string) error {
	return InvalidatePrincipal(ctx, c.rdb, userID)
}

// InvalidatePrincipal drops userID from a principal cache shared through rdb.
// Processes that change roles without a resolver of their own call it
// directly.
func InvalidatePrincipal(ctx context.Context, rdb *redis.Client, userID string) error {
	return rdb.Del(ctx, cacheKey(userID)).Err()
}
