package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease only when it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lease only when it still holds the caller's token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Lease is a held run lease.
type Lease struct {
	Key   string
	Token string
}

// AcquireLease takes key for ttl if nobody holds it. A nil lease with a nil error means it is taken.
func (c *RedisClient) AcquireLease(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	token := uuid.NewString()

	ok, err := c.Client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}

	return &Lease{Key: key, Token: token}, nil
}

// RenewLease resets the lease TTL. It reports false when the lease expired or passed to another holder.
func (c *RedisClient) RenewLease(ctx context.Context, lease *Lease, ttl time.Duration) (bool, error) {
	if lease == nil {
		return false, nil
	}
	n, err := renewScript.Run(ctx, c.Client, []string{lease.Key}, lease.Token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("renew lease %s: %w", lease.Key, err)
	}
	return n == 1, nil
}

// ReleaseLease drops the lease if it has not expired and been taken by someone else meanwhile.
func (c *RedisClient) ReleaseLease(ctx context.Context, lease *Lease) error {
	if lease == nil {
		return nil
	}
	if err := releaseScript.Run(ctx, c.Client, []string{lease.Key}, lease.Token).Err(); err != nil {
		return fmt.Errorf("release lease %s: %w", lease.Key, err)
	}
	return nil
}
