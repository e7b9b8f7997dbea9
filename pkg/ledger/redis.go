package ledger

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces the ledger's Redis keys.
const DefaultKeyPrefix = "prepbrief:"

// RedisLedger keeps processed IDs in a Redis set shared by every
// prepbrief instance polling the same calendar.
type RedisLedger struct {
	client *redis.Client
	key    string
}

// NewRedisLedger creates a RedisLedger using the set <prefix>processed_events.
func NewRedisLedger(client *redis.Client, prefix string) *RedisLedger {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisLedger{client: client, key: prefix + "processed_events"}
}

// Key returns the Redis set holding processed IDs.
func (l *RedisLedger) Key() string {
	return l.key
}

// Seen implements Ledger.
func (l *RedisLedger) Seen(ctx context.Context, id string) (bool, error) {
	ok, err := l.client.SIsMember(ctx, l.key, id).Result()
	if err != nil {
		return false, fmt.Errorf("check ledger: %w", err)
	}
	return ok, nil
}

// Mark implements Ledger.
func (l *RedisLedger) Mark(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	if err := l.client.SAdd(ctx, l.key, id).Err(); err != nil {
		return fmt.Errorf("mark ledger: %w", err)
	}
	return nil
}

// ConnectRedis opens a client for addr and verifies it with a ping.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("testing connection: %w", err)
	}
	return client, nil
}
