package export

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

// Guard admits one export at a time. Acquire never waits for a running export.
type Guard interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// LocalGuard serializes exports inside one process
type LocalGuard struct {
	mu sync.Mutex
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{}
}

func (g *LocalGuard) Acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !g.mu.TryLock() {
		return nil, ErrExportInProgress
	}
	return g.mu.Unlock, nil
}

const (
	DefaultLockKey = "invoicegen:export"
	DefaultLockTTL = 2 * time.Minute
)

// RedisGuard serializes exports across every replica sharing one redis
type RedisGuard struct {
	locker *redislock.Client
	key    string
	ttl    time.Duration
	logger *logrus.Logger
}

func NewRedisGuard(locker *redislock.Client, key string, ttl time.Duration, logger *logrus.Logger) *RedisGuard {
	if key == "" {
		key = DefaultLockKey
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisGuard{locker: locker, key: key, ttl: ttl, logger: logger}
}

func (g *RedisGuard) Acquire(ctx context.Context) (func(), error) {
	lock, err := g.locker.Obtain(ctx, g.key, g.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrExportInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain export lock: %w", err)
	}
	return func() {
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			g.logger.WithError(err).WithField("key", g.key).Warn("Failed to release export lock")
		}
	}, nil
}
