package core

// limiter.go implements concurrency control for import processing.
//
// The limiter uses a semaphore to restrict parallel imports to a configurable
// maximum. When all slots are occupied, new requests wait up to maxWait
// before failing with ErrTooManyImports.
//
// Imports of the same container are additionally serialized: the engine
// replaces all children of a container, so two concurrent writers would race
// on the same result set. Imports of different containers never block each
// other beyond the global slot limit.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyImports is returned when all import slots are occupied and the
// wait timeout expires. Clients should retry after a short delay.
var ErrTooManyImports = errors.New("too many concurrent imports, please try again later")

// DefaultMaxConcurrentImports is the default limit for parallel imports.
const DefaultMaxConcurrentImports = 5

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// ImportLimiter controls concurrent import processing.
type ImportLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.Mutex
	active int
	// containers holds one lock channel per container being imported.
	containers map[string]chan struct{}
}

// NewImportLimiter creates a limiter that allows at most maxConcurrent
// simultaneous imports. Requests that cannot acquire a slot within maxWait
// receive ErrTooManyImports.
func NewImportLimiter(maxConcurrent int, maxWait time.Duration) *ImportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentImports
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &ImportLimiter{
		semaphore:  make(chan struct{}, maxConcurrent),
		maxWait:    maxWait,
		containers: make(map[string]chan struct{}),
	}
}

// Acquire waits for a global slot and the lock of container.
// Returns a release function on success, ErrTooManyImports if the wait
// times out. The caller MUST call release when the import completes.
func (l *ImportLimiter) Acquire(ctx context.Context, container string) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrTooManyImports
	}

	lock := l.containerLock(container)
	select {
	case lock <- struct{}{}:
	case <-waitCtx.Done():
		<-l.semaphore
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrTooManyImports
	}

	l.mu.Lock()
	l.active++
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			l.active--
			l.mu.Unlock()
			<-lock
			<-l.semaphore
		})
	}, nil
}

// TryAcquire attempts to acquire a slot and the container lock without
// blocking. Returns nil if either is taken.
func (l *ImportLimiter) TryAcquire(container string) func() {
	select {
	case l.semaphore <- struct{}{}:
	default:
		return nil
	}

	lock := l.containerLock(container)
	select {
	case lock <- struct{}{}:
	default:
		<-l.semaphore
		return nil
	}

	l.mu.Lock()
	l.active++
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			l.active--
			l.mu.Unlock()
			<-lock
			<-l.semaphore
		})
	}
}

func (l *ImportLimiter) containerLock(container string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.containers[container]
	if !ok {
		lock = make(chan struct{}, 1)
		l.containers[container] = lock
	}
	return lock
}

// ActiveCount returns the number of currently active imports.
func (l *ImportLimiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// MaxConcurrent returns the maximum allowed concurrent imports.
func (l *ImportLimiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// Available returns the number of available slots.
func (l *ImportLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until all active imports complete or ctx is cancelled.
// Used for graceful shutdown.
func (l *ImportLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ImportLimiterStatus is a snapshot of the limiter's current state.
type ImportLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *ImportLimiter) Status() ImportLimiterStatus {
	return ImportLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: cap(l.semaphore),
	}
}
