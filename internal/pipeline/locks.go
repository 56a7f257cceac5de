package pipeline

import "sync"

// videoLocks hands out one mutex per video id so claim decisions for a video
// are serialized. Entries are never evicted; the set is bounded by library
// size.
type videoLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newVideoLocks() *videoLocks {
	return &videoLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for id and returns its unlock function.
func (l *videoLocks) lock(id string) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
