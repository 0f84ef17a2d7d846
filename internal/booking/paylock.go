package booking

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/wayfarer-backend/pkg/redis"
)

const defaultPayLockTTL = 2 * time.Minute

// PayLocks hands out one payment lock per user and trip. TryLock reports
// false when another request holds it.
type PayLocks interface {
	TryLock(ctx context.Context, userID, tripID string) (release func(context.Context) error, ok bool, err error)
}

type lockKeyStore interface {
	redis.LockStore
	LockKey(name string) string
}

// RedisPayLocks serializes payments across api replicas.
type RedisPayLocks struct {
	store lockKeyStore
	ttl   time.Duration
}

// NewRedisPayLocks returns locks that expire after ttl, which should outlast
// the slowest gateway call.
func NewRedisPayLocks(store lockKeyStore, ttl time.Duration) *RedisPayLocks {
	if ttl <= 0 {
		ttl = defaultPayLockTTL
	}
	return &RedisPayLocks{store: store, ttl: ttl}
}

func (r *RedisPayLocks) TryLock(ctx context.Context, userID, tripID string) (func(context.Context) error, bool, error) {
	lock, err := redis.NewLock(r.store, r.store.LockKey("pay:"+userID+":"+tripID), r.ttl)
	if err != nil {
		return nil, false, err
	}
	ok, err := lock.Acquire(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	return lock.Release, true, nil
}

// localPayLocks covers a single process.
type localPayLocks struct {
	mu   sync.Mutex
	held map[[2]string]struct{}
}

func newLocalPayLocks() *localPayLocks {
	return &localPayLocks{held: map[[2]string]struct{}{}}
}

func (l *localPayLocks) TryLock(_ context.Context, userID, tripID string) (func(context.Context) error, bool, error) {
	key := [2]string{userID, tripID}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return nil, false, nil
	}
	l.held[key] = struct{}{}
	return func(context.Context) error {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
		return nil
	}, true, nil
}
