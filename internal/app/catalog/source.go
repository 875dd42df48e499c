package catalog

import (
	"context"

	"github.com/osa030/sonicbox/internal/domain/album"
	"github.com/osa030/sonicbox/internal/domain/playlist"
	"github.com/osa030/sonicbox/internal/domain/track"
	"github.com/osa030/sonicbox/internal/infra/subsonic"
)

// Source supplies catalog metadata. Implementations never return errors;
// failures degrade to empty results.
type Source interface {
	// Name returns the source name for logging.
	Name() string
	RandomSongs(ctx context.Context, count int) []track.Track
	Albums(ctx context.Context, count int, mode album.ListMode) []album.Album
	Playlists(ctx context.Context) []playlist.Playlist
	AlbumDetails(ctx context.Context, id string) (*album.Album, bool)
	PlaylistDetails(ctx context.Context, id string) (*playlist.Playlist, bool)
}

// LiveSource reads the catalog from a server.
type LiveSource struct {
	client *subsonic.Client
	creds  subsonic.Credentials
}

// NewLiveSource creates a source bound to the given credentials.
func NewLiveSource(client *subsonic.Client, creds subsonic.Credentials) *LiveSource {
	return &LiveSource{client: client, creds: creds}
}

// Name returns the source name.
func (s *LiveSource) Name() string {
	return "subsonic"
}

// RandomSongs implements Source.
func (s *LiveSource) RandomSongs(ctx context.Context, count int) []track.Track {
	return s.client.RandomSongs(ctx, s.creds, count)
}

// Albums implements Source.
func (s *LiveSource) Albums(ctx context.Context, count int, mode album.ListMode) []album.Album {
	return s.client.RecentAlbums(ctx, s.creds, count, mode)
}

// Playlists implements Source.
func (s *LiveSource) Playlists(ctx context.Context) []playlist.Playlist {
	return s.client.Playlists(ctx, s.creds)
}

// AlbumDetails implements Source.
func (s *LiveSource) AlbumDetails(ctx context.Context, id string) (*album.Album, bool) {
	return s.client.AlbumDetails(ctx, s.creds, id)
}

// PlaylistDetails implements Source.
func (s *LiveSource) PlaylistDetails(ctx context.Context, id string) (*playlist.Playlist, bool) {
	return s.client.PlaylistDetails(ctx, s.creds, id)
}

// StaticSource serves a fixed catalog, used in demo mode.
type StaticSource struct {
	songs     []track.Track
	albums    []album.Album
	playlists []playlist.Playlist
}

// NewStaticSource creates a source over the given catalog.
func NewStaticSource(songs []track.Track, albums []album.Album, playlists []playlist.Playlist) *StaticSource {
	return &StaticSource{songs: songs, albums: albums, playlists: playlists}
}

// Name returns the source name.
func (s *StaticSource) Name() string {
	return "demo"
}

// RandomSongs returns up to count songs in their configured order.
func (s *StaticSource) RandomSongs(_ context.Context, count int) []track.Track {
	return head(s.songs, count)
}

// Albums returns up to count albums regardless of mode.
func (s *StaticSource) Albums(_ context.Context, count int, _ album.ListMode) []album.Album {
	return head(s.albums, count)
}

// Playlists returns all configured playlists.
func (s *StaticSource) Playlists(_ context.Context) []playlist.Playlist {
	return head(s.playlists, 0)
}

// AlbumDetails implements Source.
func (s *StaticSource) AlbumDetails(_ context.Context, id string) (*album.Album, bool) {
	for _, a := range s.albums {
		if a.ID == id {
			if a.Tracks == nil {
				a.Tracks = []track.Track{}
			}
			return &a, true
		}
	}
	return nil, false
}

// PlaylistDetails implements Source.
func (s *StaticSource) PlaylistDetails(_ context.Context, id string) (*playlist.Playlist, bool) {
	for _, p := range s.playlists {
		if p.ID == id {
			if p.Tracks == nil {
				p.Tracks = []track.Track{}
			}
			return &p, true
		}
	}
	return nil, false
}

// head returns a copy of the first n items, or all of them when n <= 0.
func head[T any](items []T, n int) []T {
	if n <= 0 || n > len(items) {
		n = len(items)
	}
	result := make([]T, n)
	copy(result, items[:n])
	return result
}
