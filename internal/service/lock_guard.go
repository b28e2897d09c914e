package service

import (
	"context"
	"time"

	"balance-ledger/config"
	"balance-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

// LockOptions bounds how long a guarded call waits for its lock and how long
// the lease survives a holder that never releases it.
type LockOptions struct {
	WaitTimeout  time.Duration
	LeaseTimeout time.Duration
}

// DefaultLockOptions waits one second and holds the lease for fifteen.
var DefaultLockOptions = LockOptions{
	WaitTimeout:  time.Second,
	LeaseTimeout: 15 * time.Second,
}

// LockOptionsFromConfig reads the lock section, keeping defaults for zero values.
func LockOptionsFromConfig(cfg config.LockConfig) LockOptions {
	opts := DefaultLockOptions
	if cfg.WaitTimeout > 0 {
		opts.WaitTimeout = cfg.WaitTimeout
	}
	if cfg.LeaseTimeout > 0 {
		opts.LeaseTimeout = cfg.LeaseTimeout
	}
	return opts
}

// Guard wraps op so that it only runs while holding the lock named by keyOf.
// The lease is released on every exit path, including a panic in op, which is
// re-raised once the lease is given back. A failed release is logged and does
// not replace op's result.
func Guard[Req, Resp any](
	locker ports.LockCoordinator,
	opts LockOptions,
	keyOf func(Req) string,
	op func(context.Context, Req) (Resp, error),
	log zerolog.Logger,
) func(context.Context, Req) (Resp, error) {
	return func(ctx context.Context, req Req) (Resp, error) {
		key := keyOf(req)

		lease, err := locker.Acquire(ctx, key, opts.WaitTimeout, opts.LeaseTimeout)
		if err != nil {
			var zero Resp
			return zero, err
		}
		log.Debug().Str("lock_key", key).Time("expires_at", lease.ExpiresAt()).Msg("lock acquired")

		defer func() {
			if err := locker.Release(context.WithoutCancel(ctx), lease); err != nil {
				log.Warn().Err(err).Str("lock_key", key).Msg("failed to release lock")
				return
			}
			log.Debug().Str("lock_key", key).Msg("lock released")
		}()

		return op(ctx, req)
	}
}
