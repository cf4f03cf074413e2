// Package leaderlock coordinates multiple clearing-core replicas so
// only one actively runs the round loop at a time: a second replica
// racing to submit the same opportunity would waste gas on a
// guaranteed-revert transaction once the first lands. Grounded on
// alanyoungcy-polymarketbot's internal/cache/redis LockManager
// (SETNX + TTL + a Lua-script conditional unlock), generalized from a
// per-market lock key to a single fixed leader key per orderbook
// deployment.
package leaderlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned from Acquire when another replica already holds
// the lock.
var ErrHeld = errors.New("leaderlock: already held by another replica")

const unlockScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// Lock is a single Redis-backed mutual-exclusion lock.
type Lock struct {
	rdb    *redis.Client
	unlock *redis.Script
}

// New builds a Lock against an already-configured Redis client.
func New(rdb *redis.Client) *Lock {
	return &Lock{rdb: rdb, unlock: redis.NewScript(unlockScript)}
}

// Acquire attempts to claim key for ttl, returning ErrHeld if another
// replica holds it. The returned release func is safe to call more
// than once and always uses a fresh background context, so the lock
// is released even if the caller's ctx is already done.
func (l *Lock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()

	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderlock: acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrHeld
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.unlock.Run(unlockCtx, l.rdb, []string{key}, token).Err()
	}

	return release, nil
}

// Renew extends an already-held lock's TTL, used from a heartbeat loop
// around a long-running round loop so the lock does not expire out from
// under an active leader.
func (l *Lock) Renew(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := l.rdb.Expire(ctx, key, ttl).Result()
	if err != nil {
		return fmt.Errorf("leaderlock: renew %s: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("leaderlock: %s not held, cannot renew", key)
	}
	return nil
}
