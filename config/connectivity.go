package config

import (
	"runtime"
	"time"
)

// Connectivity source names.
const (
	SourceNetlink = "netlink"
	SourceDial    = "dial"
)

// ConnectivityConfig selects how network reachability is observed.
type ConnectivityConfig struct {
	// Source is "netlink" (link/address notifications) or "dial" (TCP probe).
	Source string `json:"source" mapstructure:"source"`
	// Interfaces restricts netlink probing to links whose name has one of
	// these prefixes, e.g. ["wl"] for Wi-Fi only. Empty matches any link.
	Interfaces []string `json:"interfaces" mapstructure:"interfaces"`

	DialAddress  string        `json:"dial_address" mapstructure:"dial_address"`
	DialInterval time.Duration `json:"dial_interval" mapstructure:"dial_interval"`
	DialTimeout  time.Duration `json:"dial_timeout" mapstructure:"dial_timeout"`
}

// defaultSource is netlink where rtnetlink exists and dial elsewhere.
func defaultSource() string {
	if runtime.GOOS == "linux" {
		return SourceNetlink
	}
	return SourceDial
}
