package pending

import "sync"

// Locks serializes work per profile. Entries are dropped once no goroutine
// holds or waits for them.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*profileLock
}

type profileLock struct {
	mu   sync.Mutex
	refs int
}

func NewLocks() *Locks {
	return &Locks{locks: map[string]*profileLock{}}
}

// Lock blocks until the profile is free and returns its unlock func.
func (l *Locks) Lock(profileID string) func() {
	l.mu.Lock()
	pl, ok := l.locks[profileID]
	if !ok {
		pl = &profileLock{}
		l.locks[profileID] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.mu.Lock()
	return func() {
		pl.mu.Unlock()
		l.mu.Lock()
		pl.refs--
		if pl.refs == 0 {
			delete(l.locks, profileID)
		}
		l.mu.Unlock()
	}
}

func (l *Locks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
