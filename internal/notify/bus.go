package notify

import (
	"context"
	"sync"
	"time"
)

// Event describes one committed mutation.
type Event struct {
	Epoch     uint64    `json:"epoch"`
	Kind      string    `json:"kind"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

// Listener receives events after waiters have been released. Listeners run
// synchronously on the mutating goroutine and must not block or call back
// into the bus.
type Listener func(Event)

// Bus is the process-wide change notification bus.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - The bus lock is last in the lock order; Notify may be called while a
//     record mirror or the session maps are locked.
type Bus struct {
	mu        sync.Mutex
	epoch     uint64
	waiters   []chan uint64
	listeners []Listener
}

// New creates a bus at epoch zero.
func New() *Bus {
	return &Bus{}
}

// Notify records one mutation: the epoch is incremented exactly once, every
// parked waiter is resolved with the new epoch and the registry is cleared.
func (b *Bus) Notify(kind, op string) {
	b.mu.Lock()
	b.epoch++
	ev := Event{Epoch: b.epoch, Kind: kind, Op: op, Timestamp: time.Now().UTC()}
	for _, w := range b.waiters {
		w <- ev.Epoch // buffered, one send per waiter
	}
	b.waiters = nil
	listeners := b.listeners
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// Wait is the long-poll primitive.
//
// If known is non-nil and differs from the current epoch the current epoch is
// returned immediately. Otherwise the caller parks until the next Notify and
// receives the epoch it produced. If ctx ends first Wait returns ctx.Err();
// the abandoned slot stays registered and is dropped by the next Notify.
func (b *Bus) Wait(ctx context.Context, known *uint64) (uint64, error) {
	b.mu.Lock()
	if known != nil && *known != b.epoch {
		current := b.epoch
		b.mu.Unlock()
		return current, nil
	}
	ch := make(chan uint64, 1)
	b.waiters = append(b.waiters, ch)
	b.mu.Unlock()

	select {
	case epoch := <-ch:
		return epoch, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Subscribe registers fn for every future event.
func (b *Bus) Subscribe(fn Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Copy on write so Notify can iterate without the lock.
	next := make([]Listener, len(b.listeners), len(b.listeners)+1)
	copy(next, b.listeners)
	b.listeners = append(next, fn)
}

// Epoch returns the current epoch.
func (b *Bus) Epoch() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.epoch
}

// Pending returns the number of parked waiter slots, including abandoned ones.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.waiters)
}
