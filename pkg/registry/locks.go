package registry

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Lock is a non-reentrant mutual exclusion flag
type Lock struct {
	Name string
	held atomic.Bool
}

func (l *Lock) Acquire() bool { return l.held.CompareAndSwap(false, true) }
func (l *Lock) Release()      { l.held.Store(false) }
func (l *Lock) Held() bool    { return l.held.Load() }

// Locks is safe for concurrent use
type Locks struct {
	mu     sync.Mutex
	byName map[string]*Lock
}

func NewLocks() *Locks {
	return &Locks{byName: make(map[string]*Lock)}
}

// AcquireLock registers id on first use, then tries to take it. It reports
// whether the lock went from free to held.
func (ls *Locks) AcquireLock(id string) bool {
	ls.mu.Lock()
	l, ok := ls.byName[id]
	if !ok {
		l = &Lock{Name: id}
		ls.byName[id] = l
	}
	ls.mu.Unlock()
	return l.Acquire()
}

// ReleaseLock frees id and reports whether the lock was ever registered
func (ls *Locks) ReleaseLock(id string) bool {
	ls.mu.Lock()
	l, ok := ls.byName[id]
	ls.mu.Unlock()
	if !ok {
		return false
	}
	l.Release()
	return true
}

func (ls *Locks) HasLock(id string) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	_, ok := ls.byName[id]
	return ok
}

// Names returns the registered lock names in sorted order
func (ls *Locks) Names() []string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	names := make([]string, 0, len(ls.byName))
	for name := range ls.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
