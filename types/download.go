package types

import "time"

// NoDownloadID marks "no manager download recorded".
const NoDownloadID int64 = -1

// Request describes one download submission.
type Request struct {
	URL         string `json:"url"`
	Dest        string `json:"dest"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
}

// ManagerStatus is a download manager status code. Values follow the
// platform download manager so rows read the same on every backend.
type ManagerStatus int

const (
	ManagerPending    ManagerStatus = 1
	ManagerRunning    ManagerStatus = 2
	ManagerPaused     ManagerStatus = 4
	ManagerSuccessful ManagerStatus = 8
	ManagerFailed     ManagerStatus = 16
)

func (s ManagerStatus) String() string {
	switch s {
	case ManagerPending:
		return "PENDING"
	case ManagerRunning:
		return "RUNNING"
	case ManagerPaused:
		return "PAUSED"
	case ManagerSuccessful:
		return "SUCCESSFUL"
	case ManagerFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Finished reports whether no further transitions are expected.
func (s ManagerStatus) Finished() bool {
	return s == ManagerSuccessful || s == ManagerFailed
}

// Row is one manager query result.
type Row struct {
	ID         int64         `json:"id"`
	URL        string        `json:"url"`
	Title      string        `json:"title,omitempty"`
	Status     ManagerStatus `json:"status"`
	TotalBytes int64         `json:"total_bytes"` // -1 while unknown
	BytesSoFar int64         `json:"bytes_so_far"`
	Reason     string        `json:"reason,omitempty"`
	LocalURI   string        `json:"local_uri,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at"`
}
