package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/legal-aid-claims/internal/application/port"
)

// ErrNotOwner is returned when releasing a lock held under a different token
var ErrNotOwner = errors.New("lock not owned by this client")

type entry struct {
	token   string
	expires time.Time
}

// MemoryLocker serialises work within one process. Expired entries count as free.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]entry
	now   func() time.Time
}

var _ port.Locker = (*MemoryLocker)(nil)

// NewMemoryLocker creates an in-process locker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		locks: make(map[string]entry),
		now:   time.Now,
	}
}

// TryLock takes key if it is free or its previous holder's ttl has passed
func (l *MemoryLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, string, error) {
	if err := ctx.Err(); err != nil {
		return false, "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if held, ok := l.locks[key]; ok && now.Before(held.expires) {
		return false, "", nil
	}

	token := uuid.NewString()
	l.locks[key] = entry{token: token, expires: now.Add(ttl)}
	return true, token, nil
}

// Unlock releases key when token still owns it. Releasing a free key is a no-op.
func (l *MemoryLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	held, ok := l.locks[key]
	if !ok {
		return nil
	}
	if held.token != token {
		return ErrNotOwner
	}
	delete(l.locks, key)
	return nil
}
