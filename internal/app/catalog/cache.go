// Package catalog holds the catalog metadata of the active session and
// loads it from a Source.
package catalog

import (
	"sync"
	"time"

	"github.com/osa030/sonicbox/internal/domain/album"
	"github.com/osa030/sonicbox/internal/domain/playlist"
	"github.com/osa030/sonicbox/internal/domain/track"
)

// Cache holds the last-fetched songs, albums and playlists.
//
// Every load runs under a generation. Begin starts a new generation; stores
// tagged with an older generation are discarded so a slow response for
// superseded credentials never overwrites a newer one.
type Cache struct {
	mu sync.RWMutex

	generation uint64
	songs      []track.Track
	albums     []album.Album
	playlists  []playlist.Playlist
	loadedAt   time.Time
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		songs:     make([]track.Track, 0),
		albums:    make([]album.Album, 0),
		playlists: make([]playlist.Playlist, 0),
	}
}

// Begin starts a new generation and returns it.
func (c *Cache) Begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	return c.generation
}

// Generation returns the current generation.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// StoreSongs replaces the ordered song list. Returns false if gen is stale.
func (c *Cache) StoreSongs(gen uint64, songs []track.Track) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen < c.generation {
		return false
	}
	c.songs = append(make([]track.Track, 0, len(songs)), songs...)
	c.touchLocked()
	return true
}

// StoreAlbums replaces the album list. Returns false if gen is stale.
func (c *Cache) StoreAlbums(gen uint64, albums []album.Album) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen < c.generation {
		return false
	}
	c.albums = append(make([]album.Album, 0, len(albums)), albums...)
	c.touchLocked()
	return true
}

// StorePlaylists replaces the playlist list. Returns false if gen is stale.
func (c *Cache) StorePlaylists(gen uint64, playlists []playlist.Playlist) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen < c.generation {
		return false
	}
	c.playlists = append(make([]playlist.Playlist, 0, len(playlists)), playlists...)
	c.touchLocked()
	return true
}

// Songs returns a copy of the ordered song list.
func (c *Cache) Songs() []track.Track {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]track.Track, len(c.songs))
	copy(result, c.songs)
	return result
}

// Albums returns a copy of the album list.
func (c *Cache) Albums() []album.Album {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]album.Album, len(c.albums))
	copy(result, c.albums)
	return result
}

// Playlists returns a copy of the playlist list.
func (c *Cache) Playlists() []playlist.Playlist {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]playlist.Playlist, len(c.playlists))
	copy(result, c.playlists)
	return result
}

// FindSong looks up a song by ID.
func (c *Cache) FindSong(id string) (track.Track, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if i := track.IndexOf(c.songs, id); i >= 0 {
		return c.songs[i], true
	}
	return track.Track{}, false
}

// LoadedAt returns when the cache last accepted a store.
func (c *Cache) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

func (c *Cache) touchLocked() {
	c.loadedAt = time.Now()
}
