package session

import "sync"

// Notifier fans out state-change ticks to transports pushing snapshots to
// the UI. Broadcasts coalesce: a subscriber that has not drained its channel
// sees at most one pending tick.
type Notifier struct {
	mu   sync.Mutex
	subs map[int]chan struct{}
	next int
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan struct{})}
}

// Subscribe returns a tick channel and a cancel func releasing it.
func (n *Notifier) Subscribe() (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++
	ch := make(chan struct{}, 1)
	n.subs[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
	return ch, cancel
}

// Broadcast wakes every subscriber without blocking.
func (n *Notifier) Broadcast() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
