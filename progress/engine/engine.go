package engine

// Kind is the lifecycle callback an engine event represents.
type Kind int

const (
	KindPending   Kind = iota // Transfer accepted, no body bytes read yet.
	KindProgress              // Body bytes received.
	KindPaused                // Transfer suspended; the partial file is kept.
	KindCompleted             // Destination file is complete.
	KindError                 // Transfer failed; Err is set.
	KindWarn                  // A task for the same destination is already running.
)

func (k Kind) String() string {
	switch k {
	case KindPending:
		return "pending"
	case KindProgress:
		return "progress"
	case KindPaused:
		return "paused"
	case KindCompleted:
		return "completed"
	case KindError:
		return "error"
	case KindWarn:
		return "warn"
	default:
		return "unknown"
	}
}

// Event describes a single embedded-engine update.
type Event struct {
	Kind   Kind
	TaskID string
	Path   string // Destination path.
	SoFar  int64  // Bytes on disk, including resumed bytes.
	Total  int64  // Expected size; -1 if unknown.
	Err    error  // Set for KindError.
}
