package playback

import (
	"fmt"
	"math"

	"github.com/osa030/sonicbox/internal/domain/track"
)

// Session is the playback session. It is replaced as a whole value on every
// transition; callers receive copies.
type Session struct {
	CurrentTrack       *track.Track // nil until the first load
	State              State
	Position           float64 // Seconds
	Duration           float64 // Seconds, 0 while unknown
	Progress           float64 // Percent of Duration, 0..100
	LoadedURL          string  // Stream URL handed to the backend
	AnnouncementFailed bool    // Transient; cleared after a delay
}

// HasDuration reports whether the duration is known.
func (s Session) HasDuration() bool {
	return validSeconds(s.Duration) && s.Duration > 0
}

// TrackID returns the current track ID, or "" when nothing is loaded.
func (s Session) TrackID() string {
	if s.CurrentTrack == nil {
		return ""
	}
	return s.CurrentTrack.ID
}

// clone returns a copy that shares nothing with s.
func (s Session) clone() Session {
	if s.CurrentTrack != nil {
		t := *s.CurrentTrack
		s.CurrentTrack = &t
	}
	return s
}

// FormatTime renders seconds as m:ss. Invalid or non-positive input is 0:00.
func FormatTime(seconds float64) string {
	if !validSeconds(seconds) || seconds <= 0 {
		return "0:00"
	}
	total := int64(math.Floor(seconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func validSeconds(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
