package state

import "sync"

// keyLocks hands out one mutex per state key. Entries are never evicted;
// the key space is the fixed set of component documents.
type keyLocks struct {
	mu   sync.Mutex
	held map[string]*sync.Mutex
}

func (k *keyLocks) lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.held[key]
	if !ok {
		m = &sync.Mutex{}
		k.held[key] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}
