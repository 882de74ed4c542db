package database

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const customerMemoPrefix = "contact-sync:customer:"

// CustomerMemo remembers which billing customer was created for a record.
type CustomerMemo struct {
	redis *RedisClient
	ttl   time.Duration
}

func NewCustomerMemo(client *RedisClient, ttl time.Duration) *CustomerMemo {
	return &CustomerMemo{redis: client, ttl: ttl}
}

func customerMemoKey(recordID string) string {
	return customerMemoPrefix + recordID
}

// Lookup returns the remembered customer id, or "" when there is none.
func (m *CustomerMemo) Lookup(ctx context.Context, recordID string) (string, error) {
	val, err := m.redis.Client.Get(ctx, customerMemoKey(recordID)).Result()
	if stderrors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup customer for %s: %w", recordID, err)
	}
	return val, nil
}

func (m *CustomerMemo) Remember(ctx context.Context, recordID, customerID string) error {
	if err := m.redis.Client.Set(ctx, customerMemoKey(recordID), customerID, m.ttl).Err(); err != nil {
		return fmt.Errorf("remember customer for %s: %w", recordID, err)
	}
	return nil
}

func (m *CustomerMemo) Forget(ctx context.Context, recordID string) error {
	if err := m.redis.Client.Del(ctx, customerMemoKey(recordID)).Err(); err != nil {
		return fmt.Errorf("forget customer for %s: %w", recordID, err)
	}
	return nil
}
