package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/sonicbox/internal/domain/album"
	"github.com/osa030/sonicbox/internal/domain/playlist"
	"github.com/osa030/sonicbox/internal/domain/track"
)

func TestCache_StaleGenerationDiscarded(t *testing.T) {
	c := NewCache()

	old := c.Begin()
	current := c.Begin()

	assert.True(t, c.StoreSongs(current, []track.Track{{ID: "new"}}))
	assert.False(t, c.StoreSongs(old, []track.Track{{ID: "old"}}))

	songs := c.Songs()
	assert.Len(t, songs, 1)
	assert.Equal(t, "new", songs[0].ID)

	assert.False(t, c.StoreAlbums(old, []album.Album{{ID: "a"}}))
	assert.Empty(t, c.Albums())
	assert.False(t, c.StorePlaylists(old, []playlist.Playlist{{ID: "p"}}))
	assert.Empty(t, c.Playlists())
}

func TestCache_SameGenerationLastWriteWins(t *testing.T) {
	c := NewCache()
	gen := c.Begin()

	c.StoreSongs(gen, []track.Track{{ID: "1"}})
	c.StoreSongs(gen, []track.Track{{ID: "2"}, {ID: "3"}})

	assert.Equal(t, []string{"2", "3"}, track.IDs(c.Songs()))
}

func TestCache_SongsReturnsCopy(t *testing.T) {
	c := NewCache()
	gen := c.Begin()
	input := []track.Track{{ID: "1"}, {ID: "2"}}
	c.StoreSongs(gen, input)

	input[0].ID = "mutated"
	songs := c.Songs()
	songs[1].ID = "mutated"

	assert.Equal(t, []string{"1", "2"}, track.IDs(c.Songs()))
}

func TestCache_FindSong(t *testing.T) {
	c := NewCache()
	c.StoreSongs(c.Begin(), []track.Track{{ID: "1", Title: "One"}, {ID: "2", Title: "Two"}})

	got, ok := c.FindSong("2")
	assert.True(t, ok)
	assert.Equal(t, "Two", got.Title)

	_, ok = c.FindSong("missing")
	assert.False(t, ok)
}

func TestCache_LoadedAt(t *testing.T) {
	c := NewCache()
	assert.True(t, c.LoadedAt().IsZero())

	c.StorePlaylists(c.Begin(), nil)
	assert.False(t, c.LoadedAt().IsZero())
}
