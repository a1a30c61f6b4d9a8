package netlink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"
)

func TestDrainUnblocksSender(t *testing.T) {
	ch := make(chan netlink.LinkUpdate)
	sent := make(chan struct{})
	go func() {
		defer close(sent)
		for range 3 {
			ch <- netlink.LinkUpdate{}
		}
		close(ch)
	}()

	finished := make(chan struct{})
	go func() {
		drain(ch)
		close(finished)
	}()
	require.Eventually(t, func() bool {
		select {
		case <-sent:
		default:
			return false
		}
		select {
		case <-finished:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}
