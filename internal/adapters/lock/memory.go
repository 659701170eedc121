package lock

import (
	"context"
	"sync"

	"eventadmission/internal/domain"
)

type keyLock struct {
	sem  chan struct{}
	refs int
}

// memoryLocker serializes work per event inside one process. Entries are dropped when no caller
// holds or waits on them.
type memoryLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

// NewMemoryLocker returns an EventLocker for single-instance deployments.
func NewMemoryLocker() domain.EventLocker {
	return &memoryLocker{locks: make(map[string]*keyLock)}
}

func (m *memoryLocker) Lock(ctx context.Context, eventID string) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[eventID]
	if !ok {
		l = &keyLock{sem: make(chan struct{}, 1)}
		m.locks[eventID] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		m.release(eventID, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.sem
			m.release(eventID, l)
		})
	}, nil
}

func (m *memoryLocker) release(eventID string, l *keyLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, eventID)
	}
}

// size is the number of tracked keys.
func (m *memoryLocker) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
