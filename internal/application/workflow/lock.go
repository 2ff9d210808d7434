package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/legal-aid-claims/internal/application/port"
)

// ErrLockUnavailable is returned when the claim lock could not be taken before ctx ended
var ErrLockUnavailable = errors.New("claim lock unavailable")

// LockTiming controls claim lock acquisition
type LockTiming struct {
	TTL   time.Duration
	Retry time.Duration
}

// DefaultLockTiming is used when no timing is configured
var DefaultLockTiming = LockTiming{TTL: 30 * time.Second, Retry: 25 * time.Millisecond}

type heldLockKey struct{}

// ClaimLockKey is the locker key for a claim
func ClaimLockKey(claimID string) string {
	return "claim-lock:" + claimID
}

// WithClaimLock runs fn while holding the claim's lock. Calls nested under an
// outer WithClaimLock for the same claim reuse the held lock.
func WithClaimLock(ctx context.Context, locker port.Locker, timing LockTiming, claimID string, fn func(ctx context.Context) error) error {
	if held, ok := ctx.Value(heldLockKey{}).(string); ok && held == claimID {
		return fn(ctx)
	}

	if timing.TTL <= 0 {
		timing.TTL = DefaultLockTiming.TTL
	}
	if timing.Retry <= 0 {
		timing.Retry = DefaultLockTiming.Retry
	}

	key := ClaimLockKey(claimID)
	token, err := acquire(ctx, locker, key, timing)
	if err != nil {
		return err
	}
	defer func() {
		_ = locker.Unlock(context.WithoutCancel(ctx), key, token)
	}()

	return fn(context.WithValue(ctx, heldLockKey{}, claimID))
}

func acquire(ctx context.Context, locker port.Locker, key string, timing LockTiming) (string, error) {
	ticker := time.NewTicker(timing.Retry)
	defer ticker.Stop()

	for {
		ok, token, err := locker.TryLock(ctx, key, timing.TTL)
		if err != nil {
			return "", fmt.Errorf("failed to acquire %s: %w", key, err)
		}
		if ok {
			return token, nil
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %s: %v", ErrLockUnavailable, key, ctx.Err())
		case <-ticker.C:
		}
	}
}
