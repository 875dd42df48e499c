package playback

// EventType represents a playback event type.
type EventType int

const (
	EventTrackStarted        EventType = iota // New track loaded and playing
	EventStateChanged                         // Playing/Paused/Stopped transition
	EventProgress                             // Position update from the backend
	EventSeeked                               // Seek applied
	EventError                                // Backend failure; session recovered
	EventAnnouncementReady                    // Announcer produced a clip
	EventAnnouncementFailed                   // Announcer failed
	EventAnnouncementCleared                  // Failure flag cleared
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventStateChanged:
		return "state_changed"
	case EventProgress:
		return "progress"
	case EventSeeked:
		return "seeked"
	case EventError:
		return "error"
	case EventAnnouncementReady:
		return "announcement_ready"
	case EventAnnouncementFailed:
		return "announcement_failed"
	case EventAnnouncementCleared:
		return "announcement_cleared"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type    EventType
	Session Session // Session after the transition
	Err     error   // Set for EventError and EventAnnouncementFailed
}
