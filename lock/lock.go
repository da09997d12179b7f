// Package lock serialises mutations that touch the same pair of accounts.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Locker hands out exclusive locks by key. The returned unlock func must be
// called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Expiring is implemented by lockers whose locks run out on their own.
type Expiring interface {
	TTL() time.Duration
}

// Bound derives the context for work done while holding a lock of l. With an
// expiring locker the work gets a deadline at four fifths of the ttl, so it is
// cancelled before another holder can take the lock over.
func Bound(ctx context.Context, l Locker) (context.Context, context.CancelFunc) {
	if e, ok := l.(Expiring); ok {
		return context.WithTimeout(ctx, e.TTL()*4/5)
	}
	return context.WithCancel(ctx)
}

// PairKey returns the lock key of the unordered account pair a, b.
func PairKey(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("pair:%d:%d", a, b)
}

// Memory is an in-process Locker. It's enough as long as a single
// instance of the server talks to the database.
type Memory struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

func NewMemory() *Memory {
	return &Memory{locks: make(map[string]*entry)}
}

var _ Locker = &Memory{}

func (m *Memory) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		m.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			m.release(key, e)
		})
	}, nil
}

// release drops a reference and forgets the key once nobody waits on it.
func (m *Memory) release(key string, e *entry) {
	m.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
	m.mu.Unlock()
}
