// Package version holds build metadata injected through -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Set with -ldflags "-X github.com/projecteru2/apkfetch/version.VERSION=..."
var (
	NAME     = "apkfetch"
	VERSION  = "unknown"
	REVISION = "HEAD"
	BUILTAT  = "now"
)

// String returns the multi-line version banner.
func String() string {
	version := ""
	version += fmt.Sprintf("Version:        %s\n", VERSION)
	version += fmt.Sprintf("Git hash:       %s\n", REVISION)
	version += fmt.Sprintf("Built:          %s\n", BUILTAT)
	version += fmt.Sprintf("Golang version: %s\n", runtime.Version())
	version += fmt.Sprintf("OS/Arch:        %s/%s\n", runtime.GOOS, runtime.GOARCH)
	return version
}

// UserAgent is sent by the embedded engine when none is configured.
func UserAgent() string {
	return fmt.Sprintf("%s/%s (%s/%s)", NAME, VERSION, runtime.GOOS, runtime.GOARCH)
}
