// Package ratelimit implements fixed-window request counters keyed by caller.
package ratelimit

import (
	"sync"
	"time"
)

const (
	defaultWindow = time.Minute
	sweepInterval = 5 * time.Minute
)

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed bool
	Count   int
	Reset   time.Time
}

// Remaining reports how many calls are left in the current window.
func (d Decision) Remaining(limit int) int {
	return max(limit-d.Count, 0)
}

// Limiter counts calls per key. A non-positive limit disables limiting.
type Limiter interface {
	Allow(key string, limit int, window time.Duration) Decision
	Close()
}

// Memory is a process-local Limiter. Expired windows are swept periodically.
type Memory struct {
	mu      sync.Mutex
	windows map[string]window
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type window struct {
	count int
	end   time.Time
}

// NewMemory starts a Memory limiter and its sweeper.
func NewMemory() *Memory {
	m := &Memory{
		windows: make(map[string]window),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Allow implements Limiter.
func (m *Memory) Allow(key string, limit int, span time.Duration) Decision {
	if limit <= 0 {
		return Decision{Allowed: true}
	}
	if span <= 0 {
		span = defaultWindow
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || now.After(w.end) {
		w = window{count: 1, end: now.Add(span)}
		m.windows[key] = w
		return Decision{Allowed: true, Count: 1, Reset: w.end}
	}
	if w.count >= limit {
		return Decision{Allowed: false, Count: w.count, Reset: w.end}
	}
	w.count++
	m.windows[key] = w
	return Decision{Allowed: true, Count: w.count, Reset: w.end}
}

func (m *Memory) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.expire(m.now())
		case <-m.stop:
			return
		}
	}
}

func (m *Memory) expire(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, w := range m.windows {
		if now.After(w.end) {
			delete(m.windows, key)
		}
	}
}

// Close stops the sweeper.
func (m *Memory) Close() {
	m.once.Do(func() { close(m.stop) })
}
