// Package netlink observes link and address changes through rtnetlink.
package netlink

import "strings"

// Source reports the host as network-capable when at least one matching,
// operationally up, non-loopback link carries a global unicast address.
type Source struct {
	// prefixes restricts matching to link names with one of these prefixes.
	prefixes []string
}

// New creates a Source. An empty prefix list matches every link.
func New(prefixes []string) *Source {
	return &Source{prefixes: prefixes}
}

func (s *Source) match(name string) bool {
	if len(s.prefixes) == 0 {
		return true
	}
	for _, p := range s.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
