// Package keyonlylocks provides non-blocking named locks kept in a sync.Map
package keyonlylocks

import (
	"errors"
	"sync"
)

var ErrLocked = errors.New("already running")

// AcquireLocks takes every key or none. Returns the acquired keys.
func AcquireLocks(lockStore *sync.Map, keys []string) ([]string, bool) {
	var acquired []string
	for _, key := range keys {
		_, loaded := lockStore.LoadOrStore(key, struct{}{})
		if loaded {
			// rollback previously acquired locks
			for _, k := range acquired {
				lockStore.Delete(k)
			}
			return nil, false
		}
		acquired = append(acquired, key)
	}
	return acquired, true
}

// ReleaseLocks delete locks from the lockStore *sync.Map
// Wrap this in deferred calls to guarantee to be called even if panic occurs.
func ReleaseLocks(lockStore *sync.Map, keys []string) {
	for _, key := range keys {
		lockStore.Delete(key)
	}
}

// TryWith runs fn holding the locks for keys, or returns ErrLocked at once
// when any of them is held
func TryWith(lockStore *sync.Map, keys []string, fn func() error) error {
	acquired, ok := AcquireLocks(lockStore, keys)
	if !ok {
		return ErrLocked
	}
	defer ReleaseLocks(lockStore, acquired)
	return fn()
}
