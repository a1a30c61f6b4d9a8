package manager

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/projecteru2/apkfetch/engine"
)

func TestReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"no space", fmt.Errorf("download: %w", &fs.PathError{Op: "write", Path: "/x", Err: syscall.ENOSPC}), ReasonInsufficientSpace},
		{"too large", fmt.Errorf("%w: 3 > 2 bytes", engine.ErrTooLarge), ReasonInsufficientSpace},
		{"path", &fs.PathError{Op: "open", Path: "/x", Err: os.ErrPermission}, ReasonFileError},
		{"running", engine.ErrTaskRunning, ReasonFileAlreadyExists},
		{"redirects", &url.Error{Op: "Get", URL: "http://x", Err: engine.ErrTooManyRedirects}, ReasonTooManyRedirects},
		{"resume", fmt.Errorf("%w: http://x", engine.ErrCannotResume), ReasonCannotResume},
		{"status", &engine.HTTPStatusError{URL: "http://x", StatusCode: 500}, ReasonUnhandledHTTPCode},
		{"short body", fmt.Errorf("download: %w", engine.ErrShortBody), ReasonHTTPDataError},
		{"eof", fmt.Errorf("download: %w", io.ErrUnexpectedEOF), ReasonHTTPDataError},
		{"stalled", fmt.Errorf("download: %w", os.ErrDeadlineExceeded), ReasonHTTPDataError},
		{"other", errors.New("boom"), ReasonUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Reason(tt.err))
		})
	}
}
