// Package state provides session state management.
package state

// Phase represents the session lifecycle phase.
type Phase int

const (
	PhaseIdle    Phase = iota // Created, catalog not loaded yet
	PhaseLoading              // Catalog load in progress
	PhaseReady                // Catalog loaded, player usable
	PhaseClosed               // Session has ended
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}
