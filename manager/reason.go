package manager

import (
	"errors"
	"io"
	"io/fs"
	"net"
	"os"
	"syscall"

	"github.com/projecteru2/apkfetch/engine"
)

// Failure and pause reasons reported in types.Row.Reason. The names follow
// the platform download manager's ERROR_* and PAUSED_* codes.
const (
	ReasonInsufficientSpace = "INSUFFICIENT_SPACE"
	ReasonFileError         = "FILE_ERROR"
	ReasonFileAlreadyExists = "FILE_ALREADY_EXISTS"
	ReasonHTTPDataError     = "HTTP_DATA_ERROR"
	ReasonUnhandledHTTPCode = "UNHANDLED_HTTP_CODE"
	ReasonTooManyRedirects  = "TOO_MANY_REDIRECTS"
	ReasonCannotResume      = "CANNOT_RESUME"
	ReasonUnknown           = "UNKNOWN"
	ReasonPausedByApp       = "PAUSED_BY_APP"
)

// Reason maps a transfer error to a failure reason code.
func Reason(err error) string {
	var (
		statusErr *engine.HTTPStatusError
		pathErr   *fs.PathError
		netErr    net.Error
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, syscall.ENOSPC), errors.Is(err, engine.ErrTooLarge):
		return ReasonInsufficientSpace
	case errors.Is(err, engine.ErrTaskRunning):
		return ReasonFileAlreadyExists
	case errors.Is(err, engine.ErrTooManyRedirects):
		return ReasonTooManyRedirects
	case errors.Is(err, engine.ErrCannotResume):
		return ReasonCannotResume
	case errors.As(err, &statusErr):
		return ReasonUnhandledHTTPCode
	case errors.As(err, &pathErr):
		return ReasonFileError
	case errors.Is(err, engine.ErrShortBody),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, os.ErrDeadlineExceeded),
		errors.As(err, &netErr):
		return ReasonHTTPDataError
	default:
		return ReasonUnknown
	}
}
