package utils

import (
	"fmt"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// APKMimeType is the MIME type handed to installers for Android packages.
const APKMimeType = "application/vnd.android.package-archive"

const defaultFileStem = "downloadfile"

func init() {
	_ = mime.AddExtensionType(".apk", APKMimeType)
}

// ParseHTTPURL parses raw and rejects anything that is not an absolute
// http or https URL with a host.
func ParseHTTPURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("unsupported url %q: want http(s)://host/...", raw)
	}
	return u, nil
}

// GuessFileName derives a local file name from a download URL.
// The last path segment wins; query and fragment are ignored. When the URL
// has no usable segment "downloadfile" is used, and when the name has no
// extension one is derived from mimeType (".bin" if that fails).
func GuessFileName(raw, mimeType string) string {
	name := ""
	if u, err := url.Parse(raw); err == nil {
		seg := path.Base(u.Path)
		if seg != "." && seg != "/" {
			name = seg
		}
	}
	name = sanitizeFileName(name)
	if name == "" {
		name = defaultFileStem
	}
	if filepath.Ext(name) == "" {
		ext := ".bin"
		if mimeType != "" {
			if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
				ext = exts[0]
			}
		}
		name += ext
	}
	return name
}

// MimeTypeFromURL returns the MIME type implied by the URL's file extension,
// or "" when unknown.
func MimeTypeFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" {
		return ""
	}
	typ := mime.TypeByExtension(ext)
	if i := strings.IndexByte(typ, ';'); i >= 0 {
		typ = strings.TrimSpace(typ[:i])
	}
	return typ
}

// FileURI returns the file:// URI for a local path.
func FileURI(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(p)}).String()
}

// PathFromLocation accepts either a file:// URI or a plain path and returns
// the local path.
func PathFromLocation(loc string) (string, error) {
	if !strings.Contains(loc, "://") {
		return loc, nil
	}
	u, err := url.Parse(loc)
	if err != nil {
		return "", fmt.Errorf("parse location %q: %w", loc, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("location %q is not a local file", loc)
	}
	return filepath.FromSlash(u.Path), nil
}

func sanitizeFileName(name string) string {
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, name)
	return strings.Trim(name, ". ")
}
