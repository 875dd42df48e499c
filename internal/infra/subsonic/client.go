// Package subsonic provides a client for Subsonic-compatible music servers.
//
// Every read operation degrades to an empty or absent result on failure.
// Failures are classified (network, HTTP status, server failure, decode)
// and logged; they never reach the caller as errors.
package subsonic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/sonicbox/internal/domain/album"
	"github.com/osa030/sonicbox/internal/domain/playlist"
	"github.com/osa030/sonicbox/internal/domain/track"
)

const (
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 16 << 20
	maxListSize      = 500
)

// Client issues authenticated calls against a server.
type Client struct {
	httpClient *http.Client
}

// Config represents client configuration.
type Config struct {
	Timeout time.Duration // Per-request timeout (default 10s)
}

// New creates a new client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// RandomSongs retrieves a random selection of songs.
// Reference: http://www.subsonic.org/pages/api.jsp#getRandomSongs
func (c *Client) RandomSongs(ctx context.Context, creds Credentials, count int) []track.Track {
	params := url.Values{}
	params.Set("size", fmt.Sprintf("%d", clampSize(count, 20)))

	body, err := c.call(ctx, creds, "getRandomSongs", params)
	if err == nil && body.RandomSongs == nil {
		err = decodeError(nil, "response has no randomSongs")
	}
	if err != nil {
		logFailure("getRandomSongs", err)
		return []track.Track{}
	}

	tracks := convertSongs(body.RandomSongs.Song)
	zlog.Debug().Msgf("subsonic: fetched random songs: count=%d", len(tracks))
	return tracks
}

// RecentAlbums retrieves newest or recently played albums.
// Reference: http://www.subsonic.org/pages/api.jsp#getAlbumList2
func (c *Client) RecentAlbums(ctx context.Context, creds Credentials, count int, mode album.ListMode) []album.Album {
	if !mode.Valid() {
		zlog.Warn().Msgf("subsonic: unknown album list mode %q, using %q", mode, album.ListNewest)
		mode = album.ListNewest
	}

	params := url.Values{}
	params.Set("type", string(mode))
	params.Set("size", fmt.Sprintf("%d", clampSize(count, 10)))

	body, err := c.call(ctx, creds, "getAlbumList2", params)
	if err == nil && body.AlbumList2 == nil {
		err = decodeError(nil, "response has no albumList2")
	}
	if err != nil {
		logFailure("getAlbumList2", err)
		return []album.Album{}
	}

	albums := make([]album.Album, 0, len(body.AlbumList2.Album))
	for _, a := range body.AlbumList2.Album {
		if a.ID == "" {
			continue
		}
		albums = append(albums, a.ToAlbum())
	}
	zlog.Debug().Msgf("subsonic: fetched albums: mode=%s count=%d", mode, len(albums))
	return albums
}

// Playlists retrieves the playlists visible to the user.
// Reference: http://www.subsonic.org/pages/api.jsp#getPlaylists
func (c *Client) Playlists(ctx context.Context, creds Credentials) []playlist.Playlist {
	body, err := c.call(ctx, creds, "getPlaylists", nil)
	if err == nil && body.Playlists == nil {
		err = decodeError(nil, "response has no playlists")
	}
	if err != nil {
		logFailure("getPlaylists", err)
		return []playlist.Playlist{}
	}

	playlists := make([]playlist.Playlist, 0, len(body.Playlists.Playlist))
	for _, p := range body.Playlists.Playlist {
		if p.ID == "" {
			continue
		}
		playlists = append(playlists, p.ToPlaylist())
	}
	zlog.Debug().Msgf("subsonic: fetched playlists: count=%d", len(playlists))
	return playlists
}

// AlbumDetails retrieves an album with its full ordered track list.
// Reference: http://www.subsonic.org/pages/api.jsp#getAlbum
func (c *Client) AlbumDetails(ctx context.Context, creds Credentials, albumID string) (*album.Album, bool) {
	if albumID == "" {
		return nil, false
	}

	params := url.Values{}
	params.Set("id", albumID)

	body, err := c.call(ctx, creds, "getAlbum", params)
	if err == nil && body.Album == nil {
		err = decodeError(nil, "response has no album")
	}
	if err != nil {
		logFailure("getAlbum", err)
		return nil, false
	}

	a := body.Album.ToAlbum()
	return &a, true
}

// PlaylistDetails retrieves a playlist with its full ordered track list.
// Reference: http://www.subsonic.org/pages/api.jsp#getPlaylist
func (c *Client) PlaylistDetails(ctx context.Context, creds Credentials, playlistID string) (*playlist.Playlist, bool) {
	if playlistID == "" {
		return nil, false
	}

	params := url.Values{}
	params.Set("id", playlistID)

	body, err := c.call(ctx, creds, "getPlaylist", params)
	if err == nil && body.Playlist == nil {
		err = decodeError(nil, "response has no playlist")
	}
	if err != nil {
		logFailure("getPlaylist", err)
		return nil, false
	}

	p := body.Playlist.ToPlaylist()
	return &p, true
}

// Ping reports whether the server is reachable and accepts the credentials.
// Reference: http://www.subsonic.org/pages/api.jsp#ping
func (c *Client) Ping(ctx context.Context, creds Credentials) bool {
	if _, err := c.call(ctx, creds, "ping", nil); err != nil {
		logFailure("ping", err)
		return false
	}
	return true
}

// call performs a request and returns the validated response body.
// The returned error is marked with one of the failure classes.
func (c *Client) call(ctx context.Context, creds Credentials, endpoint string, params url.Values) (*ResponseBody, error) {
	reqURL := creds.endpointURL(endpoint, params)

	parsed, err := url.Parse(reqURL)
	if err != nil {
		return nil, networkError(err, "invalid server URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.Mark(errors.Newf("unsupported URL scheme %q", parsed.Scheme), ErrNetwork)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, networkError(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, networkError(err, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Mark(errors.Newf("HTTP %d", resp.StatusCode), ErrHTTPStatus)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, networkError(err, "failed to read response body")
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, decodeError(err, "failed to parse response")
	}
	if env.Response == nil {
		return nil, decodeError(nil, "response has no subsonic-response")
	}
	if env.Response.Status != statusOK {
		serverErr := &ServerError{Message: "status " + env.Response.Status}
		if env.Response.Error != nil {
			serverErr.Code = env.Response.Error.Code
			serverErr.Message = env.Response.Error.Message
		}
		return nil, errors.Mark(serverErr, ErrServerFailed)
	}

	return env.Response, nil
}

// logFailure logs a failure with a message specific to its class.
func logFailure(endpoint string, err error) {
	switch Classify(err) {
	case FailureNetwork:
		zlog.Warn().Err(err).Str("endpoint", endpoint).Msg("subsonic: server unreachable")
	case FailureHTTPStatus:
		zlog.Warn().Err(err).Str("endpoint", endpoint).Msg("subsonic: server returned non-success HTTP status")
	case FailureServerFailed:
		zlog.Warn().Err(err).Str("endpoint", endpoint).Msg("subsonic: server rejected request")
	case FailureDecode:
		zlog.Warn().Err(err).Str("endpoint", endpoint).Msg("subsonic: response body could not be decoded")
	default:
		zlog.Error().Err(err).Str("endpoint", endpoint).Msg("subsonic: request failed")
	}
}

func clampSize(n, fallback int) int {
	if n <= 0 {
		return fallback
	}
	if n > maxListSize {
		return maxListSize
	}
	return n
}
