package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/sonicbox/internal/domain/album"
	"github.com/osa030/sonicbox/internal/domain/playlist"
	"github.com/osa030/sonicbox/internal/domain/track"
	"github.com/osa030/sonicbox/internal/infra/subsonic"
)

// blockingSource returns its catalog only after release is closed.
type blockingSource struct {
	*StaticSource
	release chan struct{}
}

func (s *blockingSource) RandomSongs(ctx context.Context, count int) []track.Track {
	<-s.release
	return s.StaticSource.RandomSongs(ctx, count)
}

func TestLoader_LoadStatic(t *testing.T) {
	src := NewStaticSource(
		[]track.Track{{ID: "1"}, {ID: "2"}, {ID: "3"}},
		[]album.Album{{ID: "a1", Title: "First"}},
		[]playlist.Playlist{{ID: "p1", Name: "Mix", SongCount: 3}},
	)
	cache := NewCache()
	loader := NewLoader(cache, LoaderConfig{SongCount: 2})

	gen := loader.Load(context.Background(), src)

	assert.Equal(t, cache.Generation(), gen)
	assert.Equal(t, []string{"1", "2"}, track.IDs(cache.Songs()))
	assert.Len(t, cache.Albums(), 1)
	assert.Len(t, cache.Playlists(), 1)
}

func TestLoader_SupersededLoadIsDiscarded(t *testing.T) {
	cache := NewCache()
	loader := NewLoader(cache, LoaderConfig{})

	slow := &blockingSource{
		StaticSource: NewStaticSource([]track.Track{{ID: "stale"}}, nil, nil),
		release:      make(chan struct{}),
	}
	fresh := NewStaticSource([]track.Track{{ID: "fresh"}}, nil, nil)

	done := make(chan uint64)
	go func() {
		done <- loader.Load(context.Background(), slow)
	}()

	// Wait until the slow load has begun its generation.
	require.Eventually(t, func() bool { return cache.Generation() == 1 }, time.Second, 5*time.Millisecond)

	loader.Load(context.Background(), fresh)
	close(slow.release)
	<-done

	assert.Equal(t, []string{"fresh"}, track.IDs(cache.Songs()))
}

func TestLoader_LiveSource(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/rest/getRandomSongs.view":
			fmt.Fprint(w, `{"subsonic-response": {"status": "ok", "randomSongs": {"song": [{"id": "s1", "title": "One"}]}}}`)
		case "/rest/getAlbumList2.view":
			fmt.Fprint(w, `{"subsonic-response": {"status": "ok", "albumList2": {"album": [{"id": "a1", "name": "Album"}]}}}`)
		case "/rest/getPlaylists.view":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := subsonic.New(subsonic.Config{Timeout: time.Second})
	src := NewLiveSource(client, subsonic.Credentials{URL: server.URL, Username: "alice"})
	cache := NewCache()

	NewLoader(cache, LoaderConfig{}).Load(context.Background(), src)

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []string{"s1"}, track.IDs(cache.Songs()))
	require.Len(t, cache.Albums(), 1)
	assert.Equal(t, "Album", cache.Albums()[0].Title)
	assert.Empty(t, cache.Playlists(), "failed fetch degrades to empty")
}

func TestStaticSource_Details(t *testing.T) {
	src := NewStaticSource(nil,
		[]album.Album{{ID: "a1", Tracks: []track.Track{{ID: "t1"}}}},
		[]playlist.Playlist{{ID: "p1", SongCount: 5}},
	)

	a, ok := src.AlbumDetails(context.Background(), "a1")
	require.True(t, ok)
	assert.True(t, a.HasDetails())

	p, ok := src.PlaylistDetails(context.Background(), "p1")
	require.True(t, ok)
	assert.True(t, p.HasDetails())
	assert.True(t, p.IsPartial())

	_, ok = src.AlbumDetails(context.Background(), "missing")
	assert.False(t, ok)
}
