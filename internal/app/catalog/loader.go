package catalog

import (
	"context"
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/sonicbox/internal/domain/album"
)

// LoaderConfig holds the list sizes requested on each load.
type LoaderConfig struct {
	SongCount  int
	AlbumCount int
	AlbumMode  album.ListMode
}

// Loader fills a Cache from a Source.
type Loader struct {
	cache  *Cache
	config LoaderConfig
}

// NewLoader creates a new loader.
func NewLoader(cache *Cache, config LoaderConfig) *Loader {
	if config.SongCount <= 0 {
		config.SongCount = 20
	}
	if config.AlbumCount <= 0 {
		config.AlbumCount = 10
	}
	if !config.AlbumMode.Valid() {
		config.AlbumMode = album.ListNewest
	}
	return &Loader{cache: cache, config: config}
}

// Cache returns the cache this loader fills.
func (l *Loader) Cache() *Cache {
	return l.cache
}

// Load starts a new generation and fetches songs, albums and playlists
// concurrently. Each list is stored as soon as it arrives. Load returns once
// all three fetches have finished and reports the generation it ran under.
func (l *Loader) Load(ctx context.Context, src Source) uint64 {
	gen := l.cache.Begin()
	zlog.Info().Msgf("catalog: loading: source=%s generation=%d", src.Name(), gen)

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		songs := src.RandomSongs(ctx, l.config.SongCount)
		if !l.cache.StoreSongs(gen, songs) {
			zlog.Debug().Msgf("catalog: discarded stale songs: generation=%d", gen)
		}
	}()

	go func() {
		defer wg.Done()
		albums := src.Albums(ctx, l.config.AlbumCount, l.config.AlbumMode)
		if !l.cache.StoreAlbums(gen, albums) {
			zlog.Debug().Msgf("catalog: discarded stale albums: generation=%d", gen)
		}
	}()

	go func() {
		defer wg.Done()
		playlists := src.Playlists(ctx)
		if !l.cache.StorePlaylists(gen, playlists) {
			zlog.Debug().Msgf("catalog: discarded stale playlists: generation=%d", gen)
		}
	}()

	wg.Wait()

	if gen == l.cache.Generation() {
		zlog.Info().Msgf("catalog: loaded: songs=%d albums=%d playlists=%d",
			len(l.cache.Songs()), len(l.cache.Albums()), len(l.cache.Playlists()))
	}
	return gen
}
