package types

import "math"

// State names the active variant of a Status.
type State string

const (
	StateIdle        State = "idle"        // no attempt running or reset for a new one
	StateDownloading State = "downloading" // transfer in progress, Fraction valid
	StatePaused      State = "paused"      // transfer suspended, may resume
	StateSucceeded   State = "succeeded"   // terminal, Location valid
	StateFailed      State = "failed"      // terminal, Reason valid
)

// Status is the single value describing the current download attempt.
// It is a tagged union: only the payload field matching State is set.
// Build it with the constructors below so Fraction is always clamped.
type Status struct {
	State    State   `json:"state"`
	Fraction float64 `json:"fraction,omitempty"`
	Location string  `json:"location,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

// Idle is the reset status.
func Idle() Status { return Status{State: StateIdle} }

// Downloading clamps fraction into [0,1]; NaN becomes 0.
func Downloading(fraction float64) Status {
	return Status{State: StateDownloading, Fraction: Clamp(fraction)}
}

// DownloadingBytes computes the fraction soFar/total. A non-positive total
// yields 0.
func DownloadingBytes(soFar, total int64) Status {
	if total <= 0 {
		return Downloading(0)
	}
	return Downloading(float64(soFar) / float64(total))
}

func Paused() Status { return Status{State: StatePaused} }

func Succeeded(location string) Status { return Status{State: StateSucceeded, Location: location} }

func Failed(reason string) Status { return Status{State: StateFailed, Reason: reason} }

// Terminal reports whether s ends the current attempt.
func (s Status) Terminal() bool {
	return s.State == StateSucceeded || s.State == StateFailed
}

// Clamp bounds f into [0,1], mapping NaN to 0.
func Clamp(f float64) float64 {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
