package bot

import "sync"

// keyedMutex serializes work per owner. Entries are dropped once nobody
// holds or waits on them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*ownerLock
}

type ownerLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int64]*ownerLock)}
}

func (k *keyedMutex) Lock(owner int64) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[owner]
	if !ok {
		l = &ownerLock{}
		k.locks[owner] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, owner)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
