package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another status change for the account is in flight.
var ErrLockHeld = errors.New("account is locked by another status change")

// AccountLocker serializes status changes per account.
type AccountLocker interface {
	Acquire(ctx context.Context, accountID string) (release func(), err error)
}

// releaseScript deletes the key only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

type redisAccountLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewAccountLocker returns a Redis-backed locker whose locks expire after ttl.
func NewAccountLocker(client redis.UniversalClient, ttl time.Duration) AccountLocker {
	return &redisAccountLocker{client: client, ttl: ttl}
}

func lockKey(accountID string) string {
	return "account-console:status-lock:" + accountID
}

func (l *redisAccountLocker) Acquire(ctx context.Context, accountID string) (func(), error) {
	key := lockKey(accountID)
	owner := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, owner, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}

	return func() {
		// the caller's context may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{key}, owner).Err()
	}, nil
}
