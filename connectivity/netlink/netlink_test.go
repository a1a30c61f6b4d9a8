package netlink

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	require.True(t, New(nil).match("eth0"))

	s := New([]string{"wl", "en"})
	require.True(t, s.match("wlan0"))
	require.True(t, s.match("enp3s0"))
	require.False(t, s.match("docker0"))
}
