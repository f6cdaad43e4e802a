package flow

import (
	"sort"
	"sync"
	"time"
)

// Scheduler schedules a function to run after a delay. The returned cancel
// function stops the callback if it has not fired yet.
type Scheduler interface {
	After(d time.Duration, fn func()) (cancel func())
}

// TimerScheduler runs callbacks on real timers
type TimerScheduler struct{}

func (TimerScheduler) After(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// ManualScheduler holds callbacks until time is advanced explicitly. It lets
// tests step through phase transitions deterministically.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	nextID  int
	pending map[int]manualEntry
}

type manualEntry struct {
	due time.Duration
	fn  func()
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{pending: make(map[int]manualEntry)}
}

func (m *ManualScheduler) After(d time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.pending[id] = manualEntry{due: m.now + d, fn: fn}

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.pending, id)
	}
}

// Advance moves virtual time forward and fires due callbacks in order
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d

	var due []int
	for id, e := range m.pending {
		if e.due <= m.now {
			due = append(due, id)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		a, b := m.pending[due[i]], m.pending[due[j]]
		if a.due != b.due {
			return a.due < b.due
		}
		return due[i] < due[j]
	})

	fns := make([]func(), 0, len(due))
	for _, id := range due {
		fns = append(fns, m.pending[id].fn)
		delete(m.pending, id)
	}
	m.mu.Unlock()

	// Callbacks run outside the lock so they can schedule followups
	for _, fn := range fns {
		fn()
	}
}

// Pending returns the number of callbacks not yet fired
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
