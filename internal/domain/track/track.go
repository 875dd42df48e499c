// Package track provides the Track domain entity.
package track

import "time"

// Track represents a playable song on a Subsonic server.
// Only ID is guaranteed; every other field may be empty or zero.
type Track struct {
	ID       string        // Server-scoped track ID
	Title    string        // Track title
	Artist   string        // Artist name
	Album    string        // Album name
	AlbumID  string        // Album ID (for album navigation)
	CoverArt string        // Cover art reference (resolved to a URL by the protocol client)
	Duration time.Duration // Track duration (0 if unknown)
	TrackNo  int           // Position on the album (0 if unknown)
}

// HasDuration reports whether the server supplied a duration.
func (t *Track) HasDuration() bool {
	return t.Duration > 0
}

// DisplayName returns "Artist - Title", falling back to whichever part is known.
func (t *Track) DisplayName() string {
	switch {
	case t.Artist != "" && t.Title != "":
		return t.Artist + " - " + t.Title
	case t.Title != "":
		return t.Title
	case t.Artist != "":
		return t.Artist
	default:
		return t.ID
	}
}

// IndexOf returns the index of the track with the given ID, or -1.
func IndexOf(tracks []Track, id string) int {
	for i, t := range tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// IDs returns the IDs of the given tracks in order.
func IDs(tracks []Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}
