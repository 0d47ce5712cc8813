package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Lock gives one cron instance at a time the right to run a named job.
type Lock interface {
	Acquire(ctx context.Context, job string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, job string) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseIfOwner(ctx context.Context, key, owner string) (bool, error)
	LockKey(name string) string
}

// RedisLock holds one redis key per job, valued with a random owner token so
// an instance whose lock already expired cannot free a successor's lock.
type RedisLock struct {
	store  lockStore
	prefix string

	mu     sync.Mutex
	owners map[string]string
}

// NewRedisLock scopes every job lock under prefix, usually the environment.
func NewRedisLock(store lockStore, prefix string) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	if prefix == "" {
		return nil, errors.New("lock prefix is required")
	}
	return &RedisLock{store: store, prefix: prefix, owners: map[string]string{}}, nil
}

func (l *RedisLock) key(job string) string {
	return l.store.LockKey(l.prefix + ":" + job)
}

func (l *RedisLock) Acquire(ctx context.Context, job string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, fmt.Errorf("lock ttl for %s must be positive", job)
	}
	owner := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key(job), owner, ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.mu.Lock()
		l.owners[job] = owner
		l.mu.Unlock()
	}
	return ok, nil
}

// Release is a no-op for jobs this instance does not hold.
func (l *RedisLock) Release(ctx context.Context, job string) error {
	l.mu.Lock()
	owner, held := l.owners[job]
	delete(l.owners, job)
	l.mu.Unlock()
	if !held {
		return nil
	}
	if _, err := l.store.ReleaseIfOwner(ctx, l.key(job), owner); err != nil {
		return fmt.Errorf("release lock %s: %w", job, err)
	}
	return nil
}
