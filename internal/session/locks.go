package session

import "sync"

// lockTable hands out one mutex per session id. Holding a session's mutex is
// the exclusive execution token for that session: offset allocation, state
// evaluation and variable writes triggered by one inbound activity happen
// under it as a single step. Different sessions never share a lock.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.Mutex)}
}

// get returns the per-session mutex, creating one if it doesn't exist.
func (t *lockTable) get(sessionID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	if lock, ok := t.locks[sessionID]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	t.locks[sessionID] = lock
	return lock
}
