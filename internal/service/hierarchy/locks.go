package hierarchy

import (
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// EntryLocks serializes mutations per entry id. Rename, move, trash and
// reap on the same entry take the same lock; operations on disjoint
// entries proceed concurrently. Shared between the hierarchy service
// and the trash reaper so a reap cannot race an in-flight restore.
type EntryLocks struct {
	mu    sync.Mutex
	locks map[bson.ObjectID]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

// NewEntryLocks creates an empty lock table.
func NewEntryLocks() *EntryLocks {
	return &EntryLocks{locks: make(map[bson.ObjectID]*entryLock)}
}

// Lock acquires the per-entry lock and returns its release function.
func (l *EntryLocks) Lock(id bson.ObjectID) func() {
	l.mu.Lock()
	el, ok := l.locks[id]
	if !ok {
		el = &entryLock{}
		l.locks[id] = el
	}
	el.refs++
	l.mu.Unlock()

	el.mu.Lock()

	return func() {
		el.mu.Unlock()

		l.mu.Lock()
		el.refs--
		if el.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
