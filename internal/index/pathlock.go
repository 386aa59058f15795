package index

import (
	"sync"
)

// pathLocks provides per-path mutual exclusion so reconciliations for
// the same path never race while distinct paths proceed concurrently.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

func newPathLocks() *pathLocks {
	return &pathLocks{locks: make(map[string]*pathLock)}
}

// Lock acquires the lock for a path, creating it on first use.
func (p *pathLocks) Lock(path string) {
	p.mu.Lock()
	entry, ok := p.locks[path]
	if !ok {
		entry = &pathLock{}
		p.locks[path] = entry
	}
	entry.refs++
	p.mu.Unlock()

	entry.mu.Lock()
}

// Unlock releases the lock for a path. The entry is dropped once no
// goroutine holds or waits on it, so the map stays bounded by the
// number of in-flight reconciliations.
func (p *pathLocks) Unlock(path string) {
	p.mu.Lock()
	entry, ok := p.locks[path]
	if !ok {
		p.mu.Unlock()
		return
	}
	entry.refs--
	if entry.refs == 0 {
		delete(p.locks, path)
	}
	p.mu.Unlock()

	entry.mu.Unlock()
}
