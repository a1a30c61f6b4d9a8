//go:build !linux

package netlink

import (
	"context"
	"errors"
)

// Probe is unsupported without rtnetlink; the Monitor fails closed.
func (s *Source) Probe(_ context.Context) (bool, error) {
	return false, errors.ErrUnsupported
}

// Register is unsupported without rtnetlink.
func (s *Source) Register(_ context.Context, _ func(bool)) (func() error, error) {
	return nil, errors.ErrUnsupported
}
