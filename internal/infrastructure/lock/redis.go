package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/legal-aid-claims/internal/application/port"
)

// releaseScript deletes the key only while it still holds the caller's value.
// Returns 1 when deleted, 0 when the key is gone and -1 when another owner holds it.
var releaseScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if not v then
	return 0
end
if v == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return -1
`)

// RedisLocker serialises work across processes with SET NX and an owner token
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
	logger *zap.Logger
}

var _ port.Locker = (*RedisLocker)(nil)

// NewRedisLocker creates a locker; prefix namespaces every key
func NewRedisLocker(client redis.UniversalClient, prefix string, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

// TryLock attempts SET NX once and returns the owner token on success
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, string, error) {
	token := uuid.NewString()
	value, err := json.Marshal(token)
	if err != nil {
		return false, "", fmt.Errorf("failed to encode lock value: %w", err)
	}

	acquired, err := l.client.SetNX(ctx, l.prefix+key, value, ttl).Result()
	if err != nil {
		l.logger.Error("Failed to acquire redis lock", zap.String("key", key), zap.Error(err))
		return false, "", fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !acquired {
		return false, "", nil
	}

	l.logger.Debug("Acquired redis lock", zap.String("key", key))
	return true, token, nil
}

// Unlock compares the stored value with token and deletes it in one step
func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	value, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode lock value: %w", err)
	}

	res, err := releaseScript.Run(ctx, l.client, []string{l.prefix + key}, string(value)).Int()
	if err != nil {
		l.logger.Error("Failed to release redis lock", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis release %s: %w", key, err)
	}
	if res < 0 {
		l.logger.Error("Redis lock ownership mismatch", zap.String("key", key))
		return ErrNotOwner
	}
	return nil
}

// Ping checks the connection
func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
