// Package cache provides a small generic LRU with expiry and a manager
// that sweeps expired entries in the background.
package cache

import (
	"sync"
	"time"
)

// Cache is the read-through surface used by decorators.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Stats counts lookups since creation.
type Stats struct {
	Hits   uint64
	Misses uint64
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically calls CleanExpired on registered caches.
type Manager struct {
	mu      sync.Mutex
	caches  []Cleaner
	stop    chan struct{}
	done    chan struct{}
	onSweep func(removed int)
	started bool
	stopped bool
}

func NewManager() *Manager {
	return &Manager{stop: make(chan struct{}), done: make(chan struct{})}
}

func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// OnSweep installs a callback invoked after each sweep that removed entries.
func (m *Manager) OnSweep(fn func(removed int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSweep = fn
}

// StartCleanup sweeps every interval until Stop. A manager runs at most
// one sweep loop and cannot be restarted.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.stopped || interval <= 0 {
		return
	}
	m.started = true
	go m.loop(interval)
}

func (m *Manager) loop(interval time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-m.stop:
			return
		}
	}
}

// Sweep cleans every registered cache once and returns the number of
// entries removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	onSweep := m.onSweep
	m.mu.Unlock()

	removed := 0
	for _, c := range caches {
		removed += c.CleanExpired()
	}
	if removed > 0 && onSweep != nil {
		onSweep(removed)
	}
	return removed
}

// Stop ends the background sweep and waits for it to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	started := m.started && !m.stopped
	m.stopped = true
	m.mu.Unlock()
	if !started {
		return
	}
	close(m.stop)
	<-m.done
}
