package playback

import (
	"context"

	"github.com/osa030/sonicbox/internal/domain/track"
)

// Backend is the audio output the controller drives. Implementations report
// progress and completion through Events.
type Backend interface {
	// Load replaces the current source. It does not start playback.
	Load(ctx context.Context, url string) error
	Play() error
	Pause() error
	// Seek moves the playhead to the given position in seconds.
	Seek(seconds float64) error
	Events() <-chan BackendEvent
	Close() error
}

// BackendEventKind is the kind of a backend event.
type BackendEventKind int

const (
	BackendTimeUpdate BackendEventKind = iota
	BackendEnded
	BackendError
)

// String returns the string representation of the kind.
func (k BackendEventKind) String() string {
	switch k {
	case BackendTimeUpdate:
		return "time_update"
	case BackendEnded:
		return "ended"
	case BackendError:
		return "error"
	default:
		return "unknown"
	}
}

// BackendEvent is a notification from the backend.
type BackendEvent struct {
	Kind     BackendEventKind
	Source   string  // URL of the source the event belongs to; "" for any
	Position float64 // Seconds (TimeUpdate)
	Duration float64 // Seconds, NaN or 0 if unknown (TimeUpdate)
	Err      error   // Error
}

// Clip is a short audio clip produced by an Announcer.
type Clip struct {
	Text     string // Spoken text
	MimeType string // e.g. audio/mpeg
	Data     []byte
}

// Announcer produces a spoken introduction for a track.
type Announcer interface {
	Announce(ctx context.Context, t track.Track) (Clip, error)
}

// ClipPlayer is implemented by backends that can play announcement clips
// over the current source.
type ClipPlayer interface {
	PlayClip(ctx context.Context, clip Clip) error
}

// CastRouter hands the current stream to an external output device.
type CastRouter interface {
	Available() bool
	Route(ctx context.Context, url string, t track.Track) error
}

// TrackSource supplies the ordered sequence used for next and previous.
type TrackSource interface {
	Songs() []track.Track
}
