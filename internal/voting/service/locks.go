package service

import "sync"

// voterLocks hands out one mutex per voter so two concurrent casts for the
// same voter serialize across the whole lookup-submit-flip sequence, while
// different voters proceed in parallel. Entries are reference-counted and
// dropped once the last holder releases, bounding the map to the number of
// in-flight votes.
type voterLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newVoterLocks() *voterLocks {
	return &voterLocks{entries: make(map[string]*lockEntry)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (l *voterLocks) Lock(key string) func() {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}
