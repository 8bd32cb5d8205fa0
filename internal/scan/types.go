// internal/scan/types.go
package scan

import (
	"errors"
	"time"

	"github.com/tamzrod/modbus-scout/internal/config"
)

// ErrConnectionExhausted is reported when every connect attempt of a run
// failed.
var ErrConnectionExhausted = errors.New("scan: failed to connect to serial port after multiple attempts")

// Range is an inclusive slave address range.
type Range struct {
	Start int
	End   int
}

// Validate enforces 1 <= Start <= End <= 247.
func (r Range) Validate() error {
	return config.ValidateRange(r.Start, r.End)
}

// Len is the number of addresses in the range.
func (r Range) Len() int {
	return r.End - r.Start + 1
}

// EventKind tags what an Event reports.
type EventKind uint8

const (
	// EventProbe: one address was probed.
	EventProbe EventKind = iota
	// EventComplete: every address was probed.
	EventComplete
	// EventStopped: the run was cancelled.
	EventStopped
	// EventFailed: the run ended on Err.
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventProbe:
		return "probe"
	case EventComplete:
		return "complete"
	case EventStopped:
		return "stopped"
	case EventFailed:
		return "failed"
	}
	return "unknown"
}

// Event is delivered to the progress callback.
// Probe events arrive in ascending address order, one per address; a
// run ends with exactly one terminal event.
type Event struct {
	Kind      EventKind
	Address   uint8 // probe events only
	Reachable bool  // probe events only
	Scanned   int
	Total     int
	Err       error // failed events only
}

// Progress is Scanned/Total in [0,1].
func (e Event) Progress() float64 {
	if e.Total <= 0 {
		return 0
	}
	return float64(e.Scanned) / float64(e.Total)
}

// ProgressFunc receives events on the worker goroutine. Callers with a
// single-threaded context must hand events over to it themselves.
type ProgressFunc func(Event)

// Result is the outcome for one address.
type Result struct {
	Address   uint8
	Reachable bool
}

// Timing holds every delay of a run. All values are empirical.
type Timing struct {
	// ProbeTimeout is the protocol timeout of the scan session. Most
	// addresses are expected to be absent, so it is far below the
	// interactive timeout.
	ProbeTimeout time.Duration
	// ProbeInterval is waited after each probe so the bus is not flooded.
	ProbeInterval time.Duration
	// ConnectAttempts is how many times Connect is tried.
	ConnectAttempts int
	// RetryWait is waited between failed connect attempts.
	RetryWait time.Duration
	// PreConnectWait follows the disconnect of an adopted session.
	PreConnectWait time.Duration
	// SessionSettle is passed to the scan session.
	SessionSettle time.Duration
	// ExitSettle is waited after the final disconnect of a run.
	ExitSettle time.Duration
	// StopWait bounds how long Stop waits for the worker.
	StopWait time.Duration
	// RestartSettle follows the implicit Stop when Start is called while
	// scanning.
	RestartSettle time.Duration
}

// DefaultTiming returns the shipped delays.
func DefaultTiming() Timing {
	return Timing{
		ProbeTimeout:    50 * time.Millisecond,
		ProbeInterval:   50 * time.Millisecond,
		ConnectAttempts: 3,
		RetryWait:       time.Second,
		PreConnectWait:  time.Second,
		SessionSettle:   500 * time.Millisecond,
		ExitSettle:      time.Second,
		StopWait:        time.Second,
		RestartSettle:   500 * time.Millisecond,
	}
}
