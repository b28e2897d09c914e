package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"balance-ledger/config"
	"balance-ledger/internal/core/ports"
	"balance-ledger/pkg/apperror"

	"github.com/go-redsync/redsync/v4"
	rsgoredis "github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	defaultKeyPrefix   = "lock:account:"
	defaultRetryBase   = 50 * time.Millisecond
	defaultRetryMax    = 500 * time.Millisecond
	lockDriftFactor    = 0.01
	minAcquireAttempts = 2
)

// ErrForeignLease is returned when Release gets a lease this coordinator did not issue.
var ErrForeignLease = errors.New("lease was not issued by this coordinator")

// LockCoordinator implements ports.LockCoordinator with redsync over a single
// Redis instance. Locks are visible to every process sharing that instance.
type LockCoordinator struct {
	client    *goredis.Client
	rs        *redsync.Redsync
	prefix    string
	retryBase time.Duration
	retryMax  time.Duration
	log       zerolog.Logger
}

// NewLockCoordinator creates a coordinator on top of an existing client.
func NewLockCoordinator(client *goredis.Client, cfg config.LockConfig, log zerolog.Logger) *LockCoordinator {
	c := &LockCoordinator{
		client:    client,
		rs:        redsync.New(rsgoredis.NewPool(client)),
		prefix:    cfg.KeyPrefix,
		retryBase: cfg.RetryBase,
		retryMax:  cfg.RetryMax,
		log:       log.With().Str("component", "lock").Logger(),
	}
	if c.prefix == "" {
		c.prefix = defaultKeyPrefix
	}
	if c.retryBase <= 0 {
		c.retryBase = defaultRetryBase
	}
	if c.retryMax <= 0 {
		c.retryMax = defaultRetryMax
	}
	return c
}

// lease is the handle returned by Acquire.
type lease struct {
	key      string
	mutex    *redsync.Mutex
	released atomic.Bool
}

func (l *lease) Key() string          { return l.key }
func (l *lease) ExpiresAt() time.Time { return l.mutex.Until() }

// Acquire blocks until the key is free or waitTimeout elapses. Running out of
// wait yields apperror.ErrLockTimeout. A cancelled ctx is returned as is.
func (c *LockCoordinator) Acquire(ctx context.Context, key string, waitTimeout, leaseTimeout time.Duration) (ports.Lease, error) {
	if strings.TrimSpace(key) == "" {
		return nil, apperror.Validation("lock key is required")
	}
	if waitTimeout <= 0 || leaseTimeout <= 0 {
		return nil, apperror.Validation("lock timeouts must be positive")
	}

	name := c.prefix + key
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", name, err)
	}

	mutex := c.rs.NewMutex(name,
		redsync.WithExpiry(leaseTimeout),
		redsync.WithTries(c.attempts(waitTimeout)),
		redsync.WithRetryDelayFunc(retryDelayFunc(c.retryBase, c.retryMax)),
		redsync.WithDriftFactor(lockDriftFactor),
	)

	waitCtx, cancel := context.WithTimeout(ctx, waitTimeout)
	defer cancel()

	start := time.Now()
	if err := mutex.LockContext(waitCtx); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", name, ctx.Err())
		}
		if isContention(err) || waitCtx.Err() != nil {
			c.log.Warn().
				Str("lock_key", name).
				Dur("waited", time.Since(start)).
				Msg("lock acquisition timed out")
			return nil, apperror.ErrLockTimeout(err)
		}
		return nil, apperror.InternalError(fmt.Errorf("acquire lock %s: %w", name, err))
	}

	c.log.Debug().
		Str("lock_key", name).
		Dur("waited", time.Since(start)).
		Time("expires_at", mutex.Until()).
		Msg("lock acquired")

	return &lease{key: key, mutex: mutex}, nil
}

// Release frees the lease. It is a no-op when the lease was already released,
// already expired or has since been taken by another holder.
func (c *LockCoordinator) Release(ctx context.Context, l ports.Lease) error {
	if l == nil {
		return nil
	}
	ls, ok := l.(*lease)
	if !ok {
		return ErrForeignLease
	}
	if !ls.released.CompareAndSwap(false, true) {
		return nil
	}

	name := ls.mutex.Name()
	unlocked, err := ls.mutex.UnlockContext(ctx)
	if unlocked {
		c.log.Debug().Str("lock_key", name).Msg("lock released")
		return nil
	}
	if err == nil || errors.Is(err, redsync.ErrLockAlreadyExpired) || c.leaseLost(ctx, ls) {
		c.log.Debug().Str("lock_key", name).Msg("lock already expired")
		return nil
	}

	ls.released.Store(false)
	return fmt.Errorf("release lock %s: %w", name, err)
}

// leaseLost reports whether Redis no longer holds this lease's value.
func (c *LockCoordinator) leaseLost(ctx context.Context, ls *lease) bool {
	val, err := c.client.Get(ctx, ls.mutex.Name()).Result()
	if errors.Is(err, goredis.Nil) {
		return true
	}
	if err != nil {
		return false
	}
	return val != ls.mutex.Value()
}

// attempts bounds redsync's retry loop; the wait deadline is what actually
// stops it.
func (c *LockCoordinator) attempts(wait time.Duration) int {
	n := int(wait/minRetryDelay) + 1
	if n < minAcquireAttempts {
		return minAcquireAttempts
	}
	return n
}

func isContention(err error) bool {
	var taken *redsync.ErrTaken
	return errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken)
}
