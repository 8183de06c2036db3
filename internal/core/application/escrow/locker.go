package escrow

import "sync"

// tradeLocker serializes operations on the same trade while letting those on
// different trades proceed concurrently.
type tradeLocker struct {
	mu    sync.Mutex
	locks map[uint64]*tradeLock
}

type tradeLock struct {
	sync.Mutex
	refs int
}

func newTradeLocker() *tradeLocker {
	return &tradeLocker{locks: make(map[uint64]*tradeLock)}
}

// lock acquires the lock for the given trade and returns the function that
// releases it.
func (l *tradeLocker) lock(tradeID uint64) func() {
	l.mu.Lock()
	lock, ok := l.locks[tradeID]
	if !ok {
		lock = &tradeLock{}
		l.locks[tradeID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.Lock()
	return func() {
		lock.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, tradeID)
		}
		l.mu.Unlock()
	}
}
