// Package controlv1 defines the messages and procedures of the remote
// control service. Messages are plain structs carried by a JSON codec.
package controlv1

import "time"

// ServiceName is the fully-qualified service name.
const ServiceName = "sonicbox.control.v1.ControlService"

// Procedure paths.
const (
	ProcedureStatus          = "/" + ServiceName + "/Status"
	ProcedureListSongs       = "/" + ServiceName + "/ListSongs"
	ProcedurePlay            = "/" + ServiceName + "/Play"
	ProcedureTogglePlayPause = "/" + ServiceName + "/TogglePlayPause"
	ProcedureNext            = "/" + ServiceName + "/Next"
	ProcedurePrevious        = "/" + ServiceName + "/Previous"
	ProcedureSeek            = "/" + ServiceName + "/Seek"
	ProcedureAnnounce        = "/" + ServiceName + "/Announce"
	ProcedureCast            = "/" + ServiceName + "/Cast"
	ProcedureReload          = "/" + ServiceName + "/Reload"
	ProcedureConfigure       = "/" + ServiceName + "/Configure"
	ProcedureSubscribe       = "/" + ServiceName + "/Subscribe"
)

// Track is a catalog track.
type Track struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist,omitempty"`
	Album       string  `json:"album,omitempty"`
	CoverArtURL string  `json:"cover_art_url,omitempty"`
	DurationSec float64 `json:"duration_sec,omitempty"`
}

// PlaybackStatus is a snapshot of the playback session.
type PlaybackStatus struct {
	State              string  `json:"state"`
	Track              *Track  `json:"track,omitempty"`
	PositionSec        float64 `json:"position_sec"`
	DurationSec        float64 `json:"duration_sec"`
	Progress           float64 `json:"progress"`
	Position           string  `json:"position"` // m:ss
	Duration           string  `json:"duration"` // m:ss
	AnnouncementFailed bool    `json:"announcement_failed,omitempty"`
}

// Empty is used by procedures without parameters.
type Empty struct{}

// StatusResponse describes the player.
type StatusResponse struct {
	SessionID     string         `json:"session_id"`
	Source        string         `json:"source"`
	Playback      PlaybackStatus `json:"playback"`
	Songs         int            `json:"songs"`
	Albums        int            `json:"albums"`
	Playlists     int            `json:"playlists"`
	LoadedAt      time.Time      `json:"loaded_at"`
	CastAvailable bool           `json:"cast_available"`
}

// ListSongsResponse lists the ordered song sequence.
type ListSongsResponse struct {
	Songs []Track `json:"songs"`
}

// PlayRequest selects a track from the song sequence.
type PlayRequest struct {
	TrackID string `json:"track_id"`
}

// SeekRequest moves the playhead to a percentage of the duration.
type SeekRequest struct {
	Percent float64 `json:"percent"`
}

// PlaybackResponse returns the session after a transport command.
type PlaybackResponse struct {
	Playback PlaybackStatus `json:"playback"`
}

// ReloadResponse reports the catalog sizes after a reload.
type ReloadResponse struct {
	Songs     int `json:"songs"`
	Albums    int `json:"albums"`
	Playlists int `json:"playlists"`
}

// ConfigureRequest replaces the server credentials or switches to the
// demo catalog.
type ConfigureRequest struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	Demo     bool   `json:"demo"`
}

// Notification is a playback event pushed to subscribers.
type Notification struct {
	SequenceNo uint64         `json:"sequence_no"`
	Type       string         `json:"type"`
	Playback   PlaybackStatus `json:"playback"`
	Error      string         `json:"error,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}
