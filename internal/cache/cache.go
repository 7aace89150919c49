// Package cache is a bounded in-process cache with per-entry deadlines, and a
// manager that sweeps expired entries in the background.
package cache

import (
	"sync"
	"time"
)

type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	SetUntil(key string, value T, deadline time.Time)
	Delete(key string)
	Size() int
}

var _ Cache[string] = (*LRUCache[string])(nil)

// Cleaner is anything the Manager can sweep.
type Cleaner interface {
	CleanExpired() int
}

// Manager sweeps its registered caches on a ticker.
type Manager struct {
	onClean func(removed int)

	mu      sync.Mutex
	caches  []Cleaner
	running bool

	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewManager returns an idle manager. onClean, if set, hears about every
// sweep that removed something.
func NewManager(onClean func(removed int)) *Manager {
	return &Manager{onClean: onClean, quit: make(chan struct{}), done: make(chan struct{})}
}

func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	m.caches = append(m.caches, c)
	m.mu.Unlock()
}

// StartCleanup starts sweeping every interval. Later calls are no-ops.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	go func() {
		defer close(m.done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-m.quit:
				return
			case <-t.C:
				m.CleanNow()
			}
		}
	}()
}

// CleanNow sweeps once and returns the number of entries removed.
func (m *Manager) CleanNow() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	removed := 0
	for _, c := range caches {
		removed += c.CleanExpired()
	}
	if removed > 0 && m.onClean != nil {
		m.onClean(removed)
	}
	return removed
}

// Stop ends the sweeper and waits for it. Safe to call more than once, or
// on a manager that never started.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		running := m.running
		m.running = true // a late StartCleanup must not spawn a sweeper
		m.mu.Unlock()
		close(m.quit)
		if running {
			<-m.done
		}
	})
}
