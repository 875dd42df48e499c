// Package navigation computes the next and previous track of an ordered
// sequence with wraparound. It performs no I/O.
package navigation

import "github.com/osa030/sonicbox/internal/domain/track"

// Next returns the track after currentID, wrapping from last to first.
// If currentID is not in seq the head is returned. An empty seq yields false.
func Next(seq []track.Track, currentID string) (track.Track, bool) {
	return step(seq, currentID, 1)
}

// Previous returns the track before currentID, wrapping from first to last.
// If currentID is not in seq the head is returned. An empty seq yields false.
func Previous(seq []track.Track, currentID string) (track.Track, bool) {
	return step(seq, currentID, -1)
}

func step(seq []track.Track, currentID string, delta int) (track.Track, bool) {
	n := len(seq)
	if n == 0 {
		return track.Track{}, false
	}
	i := track.IndexOf(seq, currentID)
	if i < 0 {
		return seq[0], true
	}
	return seq[(i+delta+n)%n], true
}
