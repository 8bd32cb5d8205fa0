// internal/status/state.go
package status

// State is the scan engine lifecycle.
//
//	Idle -> Scanning -> Idle | Stopped | Failed
//
// Stopped and Failed behave like Idle for the next Start.
type State uint8

const (
	// Idle: no worker, last run (if any) completed.
	Idle State = iota
	// Scanning: a worker owns the bus.
	Scanning
	// Stopped: the last run was cancelled by the caller.
	Stopped
	// Failed: the last run ended on an error.
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Active reports whether a worker is running.
func (s State) Active() bool { return s == Scanning }
