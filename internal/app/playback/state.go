// Package playback drives a single audio backend through the transport
// state machine and keeps the playback session.
package playback

// State represents the playback state.
type State int

const (
	StateStopped State = iota // Nothing loaded, or the sequence ran out
	StatePlaying              // Track is playing
	StatePaused               // Track is loaded but not playing
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}
