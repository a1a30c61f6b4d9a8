package connectivity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu          sync.Mutex
	up          bool
	probeErr    error
	registerErr error
	registers   int
	unregisters int
	notify      func(bool)
}

func (s *fakeSource) Probe(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.up, s.probeErr
}

func (s *fakeSource) Register(_ context.Context, notify func(bool)) (func() error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	s.registers++
	s.notify = notify
	return func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.unregisters++
		return nil
	}, nil
}

func (s *fakeSource) fire(up bool) {
	s.mu.Lock()
	notify := s.notify
	s.mu.Unlock()
	notify(up)
}

func (s *fakeSource) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registers, s.unregisters
}

func TestSingleRegistrationForConcurrentSubscribers(t *testing.T) {
	src := &fakeSource{up: true}
	m := New(src)
	ctx := context.Background()

	var wg sync.WaitGroup
	cancels := make([]func(), 8)
	primed := make([]bool, len(cancels))
	for i := range cancels {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ch, cancel := m.Subscribe(ctx)
			primed[i] = <-ch
			cancels[i] = cancel
		}(i)
	}
	wg.Wait()
	for _, v := range primed {
		require.True(t, v)
	}

	reg, unreg := src.counts()
	require.Equal(t, 1, reg)
	require.Zero(t, unreg)
	require.True(t, m.Active())

	for _, cancel := range cancels[1:] {
		cancel()
	}
	require.True(t, m.Active())
	cancels[0]()
	cancels[0]()

	reg, unreg = src.counts()
	require.Equal(t, 1, reg)
	require.Equal(t, 1, unreg)
	require.False(t, m.Active())
}

func TestResubscribeRegistersAgain(t *testing.T) {
	src := &fakeSource{up: true}
	m := New(src)
	_, cancel := m.Subscribe(context.Background())
	cancel()
	_, cancel = m.Subscribe(context.Background())
	defer cancel()

	reg, unreg := src.counts()
	require.Equal(t, 2, reg)
	require.Equal(t, 1, unreg)
}

func TestRegisterFailureFailsClosed(t *testing.T) {
	src := &fakeSource{up: true, registerErr: errors.New("denied")}
	m := New(src)
	ch, cancel := m.Subscribe(context.Background())
	defer cancel()

	require.False(t, <-ch)
	require.False(t, m.Current())
	require.False(t, m.Active())
}

func TestProbeErrorIsOffline(t *testing.T) {
	src := &fakeSource{up: true, probeErr: errors.New("no route")}
	m := New(src)
	ch, cancel := m.Subscribe(context.Background())
	defer cancel()
	require.False(t, <-ch)
}

func TestOnlyNetTransitions(t *testing.T) {
	src := &fakeSource{up: true}
	m := New(src)
	ch, cancel := m.Subscribe(context.Background())
	defer cancel()
	require.True(t, <-ch)

	src.fire(true)
	select {
	case v := <-ch:
		t.Fatalf("unexpected value %v", v)
	default:
	}

	src.fire(false)
	require.False(t, <-ch)
	src.fire(true)
	require.True(t, <-ch)
}

func TestLateSubscriberSeesLastValue(t *testing.T) {
	src := &fakeSource{up: true}
	m := New(src)
	_, cancelA := m.Subscribe(context.Background())
	defer cancelA()
	src.fire(false)

	ch, cancelB := m.Subscribe(context.Background())
	defer cancelB()
	require.False(t, <-ch)
}

func TestStaleNotificationsDropped(t *testing.T) {
	src := &fakeSource{up: false}
	m := New(src)
	_, cancel := m.Subscribe(context.Background())
	src.mu.Lock()
	stale := src.notify
	src.mu.Unlock()
	cancel()

	stale(true)
	require.False(t, m.Current())
}

func TestRefreshPublishesSilentChange(t *testing.T) {
	src := &fakeSource{up: false}
	m := New(src)
	ch, cancel := m.Subscribe(context.Background())
	defer cancel()
	require.False(t, <-ch)

	// Unchanged: nothing is emitted.
	require.False(t, m.Refresh(context.Background()))
	select {
	case v := <-ch:
		t.Fatalf("unexpected value %v", v)
	default:
	}

	src.mu.Lock()
	src.up = true
	src.mu.Unlock()
	require.True(t, m.Refresh(context.Background()))
	require.True(t, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected value %v", v)
	default:
	}
}

func TestRefreshIgnoredWithoutRegistration(t *testing.T) {
	src := &fakeSource{up: false}
	m := New(src)
	_, cancel := m.Subscribe(context.Background())
	cancel()

	src.mu.Lock()
	src.up = true
	src.mu.Unlock()
	require.False(t, m.Refresh(context.Background()))
	require.False(t, m.Current())

	failing := &fakeSource{up: true, registerErr: errors.New("denied")}
	m = New(failing)
	_, cancel = m.Subscribe(context.Background())
	defer cancel()
	require.False(t, m.Refresh(context.Background()))
}

func TestNilSource(t *testing.T) {
	m := New(nil)
	ch, cancel := m.Subscribe(context.Background())
	defer cancel()
	require.False(t, <-ch)
	require.False(t, m.Active())
}
