package transaction

import "sync"

// WatchIndex is the bidirectional key/client relation described in §4.1.
// It is the reverse index the store's write path consults on every
// mutation, so touch must stay close to O(watchers-of-key); the forward
// side (a client's own watched set, held on ClientTxState) makes
// UnwatchAll proportional to the number of keys that one client watches
// rather than the size of the whole index.
type WatchIndex struct {
	mu      sync.Mutex
	clients map[dbKey][]*ClientTxState // insertion-ordered watchers per key (BI-3: never holds an empty slice)
}

// NewWatchIndex creates an empty index.
func NewWatchIndex() *WatchIndex {
	return &WatchIndex{clients: make(map[dbKey][]*ClientTxState)}
}

// Watch adds client to the watcher set of (db, key). A client already
// watching that exact pair is a no-op (BI-2).
func (w *WatchIndex) Watch(c *ClientTxState, db int, key string) {
	k := dbKey{db, key}

	w.mu.Lock()
	defer w.mu.Unlock()

	if c.hasWatch(k) {
		return
	}
	c.watched[k] = struct{}{}
	w.clients[k] = append(w.clients[k], c)
}

// UnwatchAll removes every watch relationship for c, pruning any key
// whose watcher set becomes empty (BI-3), and clears c.dirtyCAS: once a
// client stops watching, there is nothing left for the flag to describe.
func (w *WatchIndex) UnwatchAll(c *ClientTxState) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for k := range c.watched {
		list := w.clients[k]
		for i, watcher := range list {
			if watcher == c {
				list = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(list) == 0 {
			delete(w.clients, k)
		} else {
			w.clients[k] = list
		}
	}
	c.watched = make(map[dbKey]struct{})
	c.dirtyCAS.Clear()
}

// Touch marks every client currently watching (db, key) as CAS-failed.
// It performs no structural change to the index. This is the hot-path
// hook the store's mutation point calls before returning success from a
// write (§6 store-side hook).
func (w *WatchIndex) Touch(db int, key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	// The slice is read under the lock because UnwatchAll compacts it in
	// place; the loop only sets atomics and never calls back into the index.
	for _, c := range w.clients[dbKey{db, key}] {
		c.dirtyCAS.Set()
	}
}

// TouchOnFlush marks dirty every client watching a key in db (or in any
// database, when all is true) whose key currently exists in the store,
// per the "exists" probe. It must be called before the flush actually
// removes data, so exists still reflects pre-flush reality (§4.1).
func (w *WatchIndex) TouchOnFlush(db int, all bool, exists func(db int, key string) bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for k, watchers := range w.clients {
		if !all && k.db != db {
			continue
		}
		if !exists(k.db, k.key) {
			continue
		}
		for _, c := range watchers {
			c.dirtyCAS.Set()
		}
	}
}

// WatcherCount reports how many clients currently watch (db, key). It
// exists for tests and introspection (INFO-style watching_clients
// counters); nothing on the write path should call it.
func (w *WatchIndex) WatcherCount(db int, key string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.clients[dbKey{db, key}])
}
