package watch

import "sync"

// Value is an observable holder of the latest T.
//
// Subscribers receive the current value immediately, then every change.
// Delivery is conflated: a slow subscriber skips intermediate values and
// always ends up holding the latest one. Storing a value equal to the
// current one is a no-op, so subscribers never see two identical values
// in a row.
type Value[T comparable] struct {
	mu   sync.Mutex
	cur  T
	next uint64
	subs map[uint64]chan T
}

// New returns a Value holding initial.
func New[T comparable](initial T) *Value[T] {
	return &Value[T]{cur: initial, subs: make(map[uint64]chan T)}
}

// Load returns the current value.
func (v *Value[T]) Load() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cur
}

// Store replaces the current value and notifies subscribers.
// Returns false when x equals the current value and nothing was emitted.
func (v *Value[T]) Store(x T) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if x == v.cur {
		return false
	}
	v.cur = x
	for _, ch := range v.subs {
		offer(ch, x)
	}
	return true
}

// Subscribe returns a channel primed with the current value and a cancel
// function. The channel is closed by cancel; cancel is idempotent.
func (v *Value[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)
	v.mu.Lock()
	id := v.next
	v.next++
	v.subs[id] = ch
	ch <- v.cur
	v.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, id)
			close(ch)
			v.mu.Unlock()
		})
	}
}

// offer replaces any undelivered value in ch with x. Only called with
// v.mu held, so after draining the send cannot block.
func offer[T any](ch chan T, x T) {
	select {
	case ch <- x:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- x
}
