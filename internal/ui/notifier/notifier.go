// Package notifier broadcasts store changes to live SSE connections.
package notifier

import "sync"

// Notifier pings every subscriber when the sidebar data changes.
// Subscribers receive the latest version and re-render from the store;
// intermediate versions may be coalesced.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan uint64]struct{}
	version   uint64
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan uint64]struct{}),
	}
}

// Subscribe returns a channel that receives versions as they are committed.
// The caller must call Unsubscribe when done to prevent goroutine leaks.
func (n *Notifier) Subscribe() chan uint64 {
	ch := make(chan uint64, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan uint64) {
	n.mu.Lock()
	delete(n.listeners, ch)
	n.mu.Unlock()
	close(ch)
}

// Broadcast records version and pings all listeners.
// A listener whose buffer is full keeps its pending ping and is refreshed
// with the newest version instead.
func (n *Notifier) Broadcast(version uint64) {
	n.mu.Lock()
	if version > n.version {
		n.version = version
	}
	n.mu.Unlock()

	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners {
		select {
		case ch <- version:
		default:
			// Drain the stale ping and try once more with the newer version.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- version:
			default:
			}
		}
	}
}

// Version returns the highest version broadcast so far.
func (n *Notifier) Version() uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.version
}

// Len returns the number of active subscribers.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}
