// Package keyed serializes work per key (a container name) within one process.
package keyed

import (
	"context"
	"fmt"
	"sync"

	"github.com/projecteru2/vpsbot/lock"
)

// Set hands out one lock per key. Entries are reference counted and dropped
// once no caller holds or waits on them.
type Set struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

// New creates an empty Set.
func New() *Set {
	return &Set{entries: make(map[string]*entry)}
}

// Get returns a Locker bound to key.
func (s *Set) Get(key string) lock.Locker {
	return &keyLock{set: s, key: key}
}

// Do runs fn while holding the lock for key.
func (s *Set) Do(ctx context.Context, key string, fn func() error) error {
	return lock.WithLock(ctx, s.Get(key), fn)
}

func (s *Set) acquire(key string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[key]
	if e == nil {
		e = &entry{ch: make(chan struct{}, 1)}
		s.entries[key] = e
	}
	e.refs++
	return e
}

func (s *Set) release(key string, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(s.entries, key)
	}
}

type keyLock struct {
	set *Set
	key string
	e   *entry
}

func (l *keyLock) Lock(ctx context.Context) error {
	e := l.set.acquire(l.key)
	select {
	case e.ch <- struct{}{}:
		l.e = e
		return nil
	case <-ctx.Done():
		l.set.release(l.key, e)
		return fmt.Errorf("acquire lock %s: %w", l.key, ctx.Err())
	}
}

func (l *keyLock) TryLock(_ context.Context) (bool, error) {
	e := l.set.acquire(l.key)
	select {
	case e.ch <- struct{}{}:
		l.e = e
		return true, nil
	default:
		l.set.release(l.key, e)
		return false, nil
	}
}

func (l *keyLock) Unlock(_ context.Context) error {
	if l.e == nil {
		return fmt.Errorf("unlock %s: not held", l.key)
	}
	e := l.e
	l.e = nil
	<-e.ch
	l.set.release(l.key, e)
	return nil
}
