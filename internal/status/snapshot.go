// internal/status/snapshot.go
package status

import "fmt"

// Snapshot is a point-in-time view of the engine.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	State     State
	Scanned   int
	Total     int
	Found     int
	LastError error
}

// Progress is Scanned/Total in [0,1]. Zero before the first probe.
func (s Snapshot) Progress() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Scanned) / float64(s.Total)
}

func (s Snapshot) String() string {
	out := fmt.Sprintf("%s %d/%d (%.0f%%), %d found", s.State, s.Scanned, s.Total, 100*s.Progress(), s.Found)
	if s.LastError != nil {
		out += ": " + s.LastError.Error()
	}
	return out
}
