package session

import (
	"sync"

	"github.com/ruteri/split-session-service/interfaces"
)

// sessionLocks serializes access per session ID. Entries are dropped once no
// caller holds or waits for them.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[interfaces.SessionID]*sessionLock
}

type sessionLock struct {
	sync.RWMutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[interfaces.SessionID]*sessionLock)}
}

func (l *sessionLocks) acquire(id interfaces.SessionID) *sessionLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &sessionLock{}
		l.locks[id] = entry
	}
	entry.refs++
	return entry
}

func (l *sessionLocks) release(id interfaces.SessionID, entry *sessionLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, id)
	}
}

// lock takes the exclusive lock for id and returns its unlock function.
func (l *sessionLocks) lock(id interfaces.SessionID) func() {
	entry := l.acquire(id)
	entry.Lock()
	return func() {
		entry.Unlock()
		l.release(id, entry)
	}
}

// rlock takes the shared lock for id and returns its unlock function.
func (l *sessionLocks) rlock(id interfaces.SessionID) func() {
	entry := l.acquire(id)
	entry.RLock()
	return func() {
		entry.RUnlock()
		l.release(id, entry)
	}
}
