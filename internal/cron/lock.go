package cron

import "context"

// Lock keeps a maintenance cycle to one worker replica. *redis.Lock
// satisfies it.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}
