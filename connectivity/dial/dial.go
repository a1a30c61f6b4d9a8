// Package dial observes reachability by periodically dialing a TCP address.
package dial

import (
	"context"
	"net"
	"sync"
	"time"
)

// Source probes by opening (and closing) a TCP connection.
type Source struct {
	addr     string
	interval time.Duration
	timeout  time.Duration
	dial     func(ctx context.Context, network, addr string) (net.Conn, error)
}

// New creates a Source dialing addr every interval.
func New(addr string, interval, timeout time.Duration) *Source {
	d := &net.Dialer{}
	return &Source{addr: addr, interval: interval, timeout: timeout, dial: d.DialContext}
}

// Probe dials once. A failed dial is "unavailable", not an error.
func (s *Source) Probe(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	conn, err := s.dial(ctx, "tcp", s.addr)
	if err != nil {
		return false, nil
	}
	_ = conn.Close()
	return true, nil
}

// Register starts the probe ticker. The registration outlives ctx; only
// the returned function stops it.
func (s *Source) Register(ctx context.Context, notify func(bool)) (func() error, error) {
	ctx = context.WithoutCancel(ctx)
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
			up, _ := s.Probe(ctx)
			notify(up)
		}
	}()
	var once sync.Once
	return func() error {
		once.Do(func() {
			close(stop)
			wg.Wait()
		})
		return nil
	}, nil
}
