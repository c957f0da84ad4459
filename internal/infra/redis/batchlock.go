package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"gateway-reconciliation-backend/internal/models"
)

const defaultLockTTL = 2 * time.Minute

// Release compares the stored token so one holder cannot release a lock that
// expired and was re-acquired by another.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// BatchLock serializes the mutating batch operations (submit, reconcile,
// filter) per batch id. Holding the lock is required but not sufficient:
// write-back still goes through the batch version check.
type BatchLock struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewBatchLock(client *goredis.Client) (*BatchLock, error) {
	return newBatchLock(client, defaultLockTTL)
}

func newBatchLock(client *goredis.Client, ttl time.Duration) (*BatchLock, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &BatchLock{client: client, ttl: ttl}, nil
}

// Acquire takes the per-batch lock and returns a release token. A batch
// already locked by another operation yields models.ErrConflict.
func (l *BatchLock) Acquire(ctx context.Context, batchID string) (string, error) {
	if l == nil || l.client == nil {
		return "", fmt.Errorf("batch lock is not initialized")
	}
	if batchID == "" {
		return "", fmt.Errorf("batch id is required")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKey(batchID), token, l.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire batch lock: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: batch %s is locked by another operation", models.ErrConflict, batchID)
	}

	return token, nil
}

func (l *BatchLock) Release(ctx context.Context, batchID, token string) error {
	if l == nil || l.client == nil {
		return fmt.Errorf("batch lock is not initialized")
	}

	if err := releaseScript.Run(ctx, l.client, []string{lockKey(batchID)}, token).Err(); err != nil {
		return fmt.Errorf("failed to release batch lock: %w", err)
	}
	return nil
}

func lockKey(batchID string) string {
	return "batchlock:" + batchID
}
