// Package playlist provides the Playlist domain entity.
package playlist

import (
	"time"

	"github.com/osa030/sonicbox/internal/domain/track"
)

// Playlist represents a server-side playlist.
// SongCount is the server's authoritative count; Tracks is only populated
// once the playlist details have been fetched and may be shorter.
type Playlist struct {
	ID        string        // Playlist ID
	Name      string        // Playlist name
	Owner     string        // Owning user
	CoverArt  string        // Cover art reference
	SongCount int           // Authoritative song count
	Duration  time.Duration // Total duration as reported by the server
	Tracks    []track.Track // Tracks, in playlist order (details only)
}

// TrackIDs returns all loaded track IDs in the playlist.
func (p *Playlist) TrackIDs() []string {
	return track.IDs(p.Tracks)
}

// TotalDuration returns the total duration of the loaded tracks in seconds.
func (p *Playlist) TotalDuration() int64 {
	var total int64
	for _, t := range p.Tracks {
		total += int64(t.Duration.Seconds())
	}
	return total
}

// HasDetails reports whether the track list has been fetched.
func (p *Playlist) HasDetails() bool {
	return p.Tracks != nil
}

// IsPartial reports whether fewer tracks are loaded than the server counts.
func (p *Playlist) IsPartial() bool {
	return len(p.Tracks) < p.SongCount
}
