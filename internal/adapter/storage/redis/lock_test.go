package redis_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"balance-ledger/config"
	"balance-ledger/internal/adapter/storage/redis"
	"balance-ledger/internal/core/ports"
	"balance-ledger/pkg/apperror"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLockConfig() config.LockConfig {
	return config.LockConfig{
		KeyPrefix: "lock:account:",
		RetryBase: 5 * time.Millisecond,
		RetryMax:  20 * time.Millisecond,
	}
}

func newCoordinator(t *testing.T, mr *miniredis.Miniredis) *redis.LockCoordinator {
	t.Helper()
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redis.NewLockCoordinator(client, testLockConfig(), zerolog.Nop())
}

func TestLockCoordinator_AcquireRelease(t *testing.T) {
	mr := miniredis.RunT(t)
	lc := newCoordinator(t, mr)
	ctx := context.Background()

	before := time.Now()
	lease, err := lc.Acquire(ctx, "1000000000", time.Second, 15*time.Second)
	require.NoError(t, err)
	require.NotNil(t, lease)

	assert.Equal(t, "1000000000", lease.Key())
	assert.True(t, mr.Exists("lock:account:1000000000"), "lock key should be namespaced")
	assert.True(t, lease.ExpiresAt().After(before))
	assert.False(t, lease.ExpiresAt().After(before.Add(15*time.Second+time.Second)))

	require.NoError(t, lc.Release(ctx, lease))
	assert.False(t, mr.Exists("lock:account:1000000000"))
}

func TestLockCoordinator_ContentionTimesOut(t *testing.T) {
	mr := miniredis.RunT(t)
	holder := newCoordinator(t, mr)
	waiter := newCoordinator(t, mr)
	ctx := context.Background()

	lease, err := holder.Acquire(ctx, "1000000000", time.Second, 15*time.Second)
	require.NoError(t, err)
	defer holder.Release(ctx, lease) //nolint:errcheck

	start := time.Now()
	_, err = waiter.Acquire(ctx, "1000000000", 150*time.Millisecond, 15*time.Second)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeLockTimeout), "got %v", err)
	assert.GreaterOrEqual(t, elapsed, 140*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestLockCoordinator_DifferentKeysDoNotContend(t *testing.T) {
	mr := miniredis.RunT(t)
	lc := newCoordinator(t, mr)
	ctx := context.Background()

	a, err := lc.Acquire(ctx, "1000000000", 100*time.Millisecond, time.Second)
	require.NoError(t, err)
	b, err := lc.Acquire(ctx, "1000000001", 100*time.Millisecond, time.Second)
	require.NoError(t, err)

	assert.NoError(t, lc.Release(ctx, a))
	assert.NoError(t, lc.Release(ctx, b))
}

func TestLockCoordinator_WaiterGetsLockAfterRelease(t *testing.T) {
	mr := miniredis.RunT(t)
	holder := newCoordinator(t, mr)
	waiter := newCoordinator(t, mr)
	ctx := context.Background()

	lease, err := holder.Acquire(ctx, "1000000000", time.Second, 15*time.Second)
	require.NoError(t, err)

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = holder.Release(ctx, lease)
	}()

	next, err := waiter.Acquire(ctx, "1000000000", 2*time.Second, 15*time.Second)
	require.NoError(t, err)
	assert.NoError(t, waiter.Release(ctx, next))
}

func TestLockCoordinator_LeaseExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	crashed := newCoordinator(t, mr)
	other := newCoordinator(t, mr)
	ctx := context.Background()

	stale, err := crashed.Acquire(ctx, "1000000000", time.Second, time.Second)
	require.NoError(t, err)

	// The holder never releases; the key times out in Redis.
	mr.FastForward(2 * time.Second)
	assert.False(t, mr.Exists("lock:account:1000000000"))

	fresh, err := other.Acquire(ctx, "1000000000", 200*time.Millisecond, 15*time.Second)
	require.NoError(t, err)

	// Releasing the stale lease must not free the new holder's lock.
	assert.NoError(t, crashed.Release(ctx, stale))
	assert.True(t, mr.Exists("lock:account:1000000000"))

	assert.NoError(t, other.Release(ctx, fresh))
	assert.False(t, mr.Exists("lock:account:1000000000"))
}

func TestLockCoordinator_ReleaseIsIdempotent(t *testing.T) {
	mr := miniredis.RunT(t)
	lc := newCoordinator(t, mr)
	ctx := context.Background()

	lease, err := lc.Acquire(ctx, "1000000000", time.Second, time.Second)
	require.NoError(t, err)

	assert.NoError(t, lc.Release(ctx, lease))
	assert.NoError(t, lc.Release(ctx, lease))
	assert.NoError(t, lc.Release(ctx, nil))
}

func TestLockCoordinator_ReleaseAfterExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	lc := newCoordinator(t, mr)
	ctx := context.Background()

	lease, err := lc.Acquire(ctx, "1000000000", time.Second, time.Second)
	require.NoError(t, err)

	mr.FastForward(5 * time.Second)
	assert.NoError(t, lc.Release(ctx, lease))
}

type otherLease struct{}

func (otherLease) Key() string          { return "x" }
func (otherLease) ExpiresAt() time.Time { return time.Time{} }

func TestLockCoordinator_ReleaseForeignLease(t *testing.T) {
	mr := miniredis.RunT(t)
	lc := newCoordinator(t, mr)

	err := lc.Release(context.Background(), otherLease{})
	assert.ErrorIs(t, err, redis.ErrForeignLease)
}

func TestLockCoordinator_InvalidArguments(t *testing.T) {
	mr := miniredis.RunT(t)
	lc := newCoordinator(t, mr)
	ctx := context.Background()

	tests := []struct {
		name  string
		key   string
		wait  time.Duration
		lease time.Duration
	}{
		{"empty key", "", time.Second, time.Second},
		{"blank key", "   ", time.Second, time.Second},
		{"zero wait", "1000000000", 0, time.Second},
		{"negative lease", "1000000000", time.Second, -time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lc.Acquire(ctx, tt.key, tt.wait, tt.lease)
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
		})
	}
	assert.Empty(t, mr.Keys(), "invalid calls must not touch redis")
}

func TestLockCoordinator_CancelledContext(t *testing.T) {
	mr := miniredis.RunT(t)
	lc := newCoordinator(t, mr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := lc.Acquire(ctx, "1000000000", time.Second, time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, apperror.HasCode(err, apperror.CodeLockTimeout))
}

func TestLockCoordinator_MutualExclusionAcrossCoordinators(t *testing.T) {
	mr := miniredis.RunT(t)
	coordinators := []ports.LockCoordinator{newCoordinator(t, mr), newCoordinator(t, mr), newCoordinator(t, mr)}
	ctx := context.Background()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(lc ports.LockCoordinator) {
			defer wg.Done()
			lease, err := lc.Acquire(ctx, "1000000000", 5*time.Second, 15*time.Second)
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inside.Add(-1)
			assert.NoError(t, lc.Release(ctx, lease))
		}(coordinators[i%len(coordinators)])
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load(), "at most one holder at a time")
}
