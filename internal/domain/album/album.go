// Package album provides the Album domain entity.
package album

import "github.com/osa030/sonicbox/internal/domain/track"

// ListMode selects which album list the server returns.
type ListMode string

const (
	ListNewest ListMode = "newest" // Recently added
	ListRecent ListMode = "recent" // Recently played
)

// Valid reports whether the mode is one the server understands.
func (m ListMode) Valid() bool {
	return m == ListNewest || m == ListRecent
}

// Album represents an album on the server.
type Album struct {
	ID        string        // Album ID
	Title     string        // Album title
	Artist    string        // Album artist
	CoverArt  string        // Cover art reference
	Year      int           // Release year (0 if unknown)
	SongCount int           // Number of songs reported by the server
	Tracks    []track.Track // Tracks in disc order (details only)
}

// HasDetails reports whether the track list has been fetched.
func (a *Album) HasDetails() bool {
	return a.Tracks != nil
}
