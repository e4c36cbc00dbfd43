package service

import (
	"context"
	"sync"
)

// folderLocks serializes work per folder id. Entries are dropped once no
// caller holds or waits for them.
type folderLocks struct {
	mu      sync.Mutex
	entries map[int32]*folderLock
}

type folderLock struct {
	sem  chan struct{}
	refs int
}

func newFolderLocks() *folderLocks {
	return &folderLocks{entries: make(map[int32]*folderLock)}
}

// lock blocks until id is free or ctx is done. The returned func unlocks.
func (l *folderLocks) lock(ctx context.Context, id int32) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[id]
	if !ok {
		e = &folderLock{sem: make(chan struct{}, 1)}
		l.entries[id] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		return func() {
			<-e.sem
			l.release(id, e)
		}, nil
	case <-ctx.Done():
		l.release(id, e)
		return nil, ctx.Err()
	}
}

func (l *folderLocks) release(id int32, e *folderLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, id)
	}
}

// size is the number of tracked folder ids.
func (l *folderLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
