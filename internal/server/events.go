package server

import "sync"

// broadcaster wakes every waiter when the edge set changes. Each change
// bumps the version and closes the current channel.
type broadcaster struct {
	mu      sync.Mutex
	version uint64
	ch      chan struct{}
	closed  bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{ch: make(chan struct{})}
}

func (b *broadcaster) publish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.version++
	close(b.ch)
	b.ch = make(chan struct{})
}

// wait returns the current version and a channel closed on the next change.
func (b *broadcaster) wait() (uint64, <-chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version, b.ch
}

// close releases all waiters for shutdown.
func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
}
