package connectivity

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/apkfetch/watch"
)

// Source is a platform network-change facility.
type Source interface {
	// Probe synchronously reports whether the host is network-capable.
	Probe(ctx context.Context) (bool, error)
	// Register starts delivering availability changes to notify and
	// returns the function that stops delivery.
	Register(ctx context.Context, notify func(available bool)) (unregister func() error, err error)
}

// Monitor multicasts one Source registration as a boolean signal.
//
// The Source is registered on the 0→1 subscriber transition and
// deregistered on 1→0. Subscribers share one replay slot: each sees the
// last known value immediately and then only changes. Probe or
// registration failures leave the signal at false.
type Monitor struct {
	src    Source
	signal *watch.Value[bool]

	mu         sync.Mutex
	refs       int
	unregister func() error
	// gen invalidates notifications from a registration that was torn down.
	gen atomic.Uint64
}

// New creates a Monitor over src. Nothing is registered until the first
// Subscribe.
func New(src Source) *Monitor {
	return &Monitor{src: src, signal: watch.New(false)}
}

// Subscribe returns the signal channel and a cancel function. The channel
// is primed with the current value; cancel releases the subscription and
// is idempotent.
func (m *Monitor) Subscribe(ctx context.Context) (<-chan bool, func()) {
	m.acquire(ctx)
	ch, cancel := m.signal.Subscribe()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			cancel()
			m.release(ctx)
		})
	}
}

// Current returns the last known value without subscribing.
func (m *Monitor) Current() bool { return m.signal.Load() }

// Active reports whether the Source is currently registered.
func (m *Monitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unregister != nil
}

// Refresh re-probes the Source and publishes the result, catching changes
// the Source did not report. It only publishes while a registration is
// live; otherwise the signal is left as is. Returns the current value.
func (m *Monitor) Refresh(ctx context.Context) bool {
	m.mu.Lock()
	live := m.refs > 0 && m.unregister != nil
	gen := m.gen.Load()
	m.mu.Unlock()
	if !live {
		return m.Current()
	}
	m.notify(gen, m.probe(ctx))
	return m.Current()
}

func (m *Monitor) acquire(ctx context.Context) {
	logger := log.WithFunc("connectivity.acquire")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs++
	if m.refs != 1 {
		return
	}

	gen := m.gen.Add(1)
	m.signal.Store(m.probe(ctx))

	if m.src == nil {
		return
	}
	unregister, err := m.src.Register(ctx, func(available bool) {
		m.notify(gen, available)
	})
	if err != nil {
		logger.Warnf(ctx, "register network callback: %v", err)
		m.signal.Store(false)
		return
	}
	m.unregister = unregister
	logger.Debugf(ctx, "network callback registered")
}

func (m *Monitor) release(ctx context.Context) {
	logger := log.WithFunc("connectivity.release")
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refs == 0 {
		return
	}
	m.refs--
	if m.refs != 0 {
		return
	}
	m.gen.Add(1)
	if m.unregister == nil {
		return
	}
	if err := m.unregister(); err != nil {
		logger.Warnf(ctx, "unregister network callback: %v", err)
	}
	m.unregister = nil
	logger.Debugf(ctx, "network callback unregistered")
}

// notify never takes m.mu so a Source may call it from inside Register.
func (m *Monitor) notify(gen uint64, available bool) {
	if gen == m.gen.Load() {
		m.signal.Store(available)
	}
}

func (m *Monitor) probe(ctx context.Context) bool {
	if m.src == nil {
		return false
	}
	ok, err := m.src.Probe(ctx)
	if err != nil {
		log.WithFunc("connectivity.probe").Warnf(ctx, "probe network: %v", err)
		return false
	}
	return ok
}
