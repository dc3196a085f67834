package versions

import "sync"

// keyedLocks hands out one RW lock per prompt id. Entries are reference
// counted and dropped once no goroutine holds or waits on them.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[int64]*keyedLock
}

type keyedLock struct {
	sync.RWMutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[int64]*keyedLock)}
}

func (k *keyedLocks) acquire(id int64) *keyedLock {
	k.mu.Lock()
	defer k.mu.Unlock()

	l, ok := k.locks[id]
	if !ok {
		l = &keyedLock{}
		k.locks[id] = l
	}
	l.refs++
	return l
}

func (k *keyedLocks) release(id int64, l *keyedLock) {
	k.mu.Lock()
	defer k.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(k.locks, id)
	}
}

// Lock takes the exclusive lock for id and returns its release func.
func (k *keyedLocks) Lock(id int64) func() {
	l := k.acquire(id)
	l.Lock()
	return func() {
		l.Unlock()
		k.release(id, l)
	}
}

// RLock takes the shared lock for id and returns its release func.
func (k *keyedLocks) RLock(id int64) func() {
	l := k.acquire(id)
	l.RLock()
	return func() {
		l.RUnlock()
		k.release(id, l)
	}
}

func (k *keyedLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
