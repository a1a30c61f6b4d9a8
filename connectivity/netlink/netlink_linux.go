package netlink

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/projecteru2/core/log"
	"github.com/vishvananda/netlink"
)

// Probe lists links and their addresses.
func (s *Source) Probe(_ context.Context) (bool, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return false, fmt.Errorf("list links: %w", err)
	}
	for _, link := range links {
		attrs := link.Attrs()
		if attrs == nil || attrs.Flags&net.FlagLoopback != 0 || !s.match(attrs.Name) {
			continue
		}
		if attrs.OperState != netlink.OperUp && attrs.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := netlink.AddrList(link, netlink.FAMILY_ALL)
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if addr.IP != nil && addr.IP.IsGlobalUnicast() {
				return true, nil
			}
		}
	}
	return false, nil
}

// Register subscribes to link and address updates. Every update triggers a
// re-probe; the Monitor suppresses repeats.
func (s *Source) Register(ctx context.Context, notify func(bool)) (func() error, error) {
	logger := log.WithFunc("netlink.Register")
	ctx = context.WithoutCancel(ctx)
	done := make(chan struct{})
	linkCh := make(chan netlink.LinkUpdate, 16) //nolint:mnd
	addrCh := make(chan netlink.AddrUpdate, 16) //nolint:mnd

	if err := netlink.LinkSubscribe(linkCh, done); err != nil {
		close(done)
		return nil, fmt.Errorf("subscribe links: %w", err)
	}
	if err := netlink.AddrSubscribe(addrCh, done); err != nil {
		close(done)
		go drain(linkCh)
		return nil, fmt.Errorf("subscribe addrs: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// The subscription goroutines send without watching done and close
		// their channel only once the socket read fails.
		defer func() {
			go drain(linkCh)
			go drain(addrCh)
		}()
		for {
			select {
			case <-done:
				return
			case _, ok := <-linkCh:
				if !ok {
					return
				}
			case _, ok := <-addrCh:
				if !ok {
					return
				}
			}
			up, err := s.Probe(ctx)
			if err != nil {
				logger.Warnf(ctx, "re-probe after update: %v", err)
				up = false
			}
			notify(up)
		}
	}()

	var once sync.Once
	return func() error {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
		return nil
	}, nil
}

func drain[T any](ch <-chan T) {
	for range ch {
	}
}
