package subsonic

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/osa030/sonicbox/internal/domain/album"
	"github.com/osa030/sonicbox/internal/domain/playlist"
	"github.com/osa030/sonicbox/internal/domain/track"
)

const statusOK = "ok"

// Envelope is the top-level JSON document returned by every endpoint.
type Envelope struct {
	Response *ResponseBody `json:"subsonic-response"`
}

// ResponseBody holds the status and whichever payload the endpoint returns.
// Exactly one payload field is set for a successful call.
type ResponseBody struct {
	Status  string    `json:"status"`
	Version string    `json:"version"`
	Error   *APIError `json:"error,omitempty"`

	RandomSongs *SongList          `json:"randomSongs,omitempty"`
	AlbumList2  *AlbumList         `json:"albumList2,omitempty"`
	Playlists   *PlaylistList      `json:"playlists,omitempty"`
	Album       *AlbumWithSongs    `json:"album,omitempty"`
	Playlist    *PlaylistWithSongs `json:"playlist,omitempty"`
}

// APIError is the error object of a failed response.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SongList is the payload of getRandomSongs.
type SongList struct {
	Song []SongEntry `json:"song"`
}

// AlbumList is the payload of getAlbumList2.
type AlbumList struct {
	Album []AlbumEntry `json:"album"`
}

// PlaylistList is the payload of getPlaylists.
type PlaylistList struct {
	Playlist []PlaylistEntry `json:"playlist"`
}

// SongEntry is a song ("child") as returned by the server.
type SongEntry struct {
	ID       FlexID `json:"id"`
	Title    string `json:"title"`
	Name     string `json:"name"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	AlbumID  FlexID `json:"albumId"`
	CoverArt FlexID `json:"coverArt"`
	Duration int    `json:"duration"`
	Track    int    `json:"track"`
}

// AlbumEntry is an ID3 album.
type AlbumEntry struct {
	ID        FlexID `json:"id"`
	Title     string `json:"title"`
	Name      string `json:"name"`
	Artist    string `json:"artist"`
	CoverArt  FlexID `json:"coverArt"`
	Year      int    `json:"year"`
	SongCount int    `json:"songCount"`
}

// AlbumWithSongs is the payload of getAlbum.
type AlbumWithSongs struct {
	AlbumEntry
	Song []SongEntry `json:"song"`
}

// PlaylistEntry is a playlist summary.
type PlaylistEntry struct {
	ID        FlexID `json:"id"`
	Name      string `json:"name"`
	Title     string `json:"title"`
	Owner     string `json:"owner"`
	CoverArt  FlexID `json:"coverArt"`
	SongCount int    `json:"songCount"`
	Duration  int    `json:"duration"`
}

// PlaylistWithSongs is the payload of getPlaylist.
type PlaylistWithSongs struct {
	PlaylistEntry
	Entry []SongEntry `json:"entry"`
}

// FlexID accepts both string and numeric IDs; older servers send numbers.
type FlexID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *FlexID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexID(n.String())
	return nil
}

func (id FlexID) String() string {
	return string(id)
}

// firstNonEmpty returns the first non-empty value.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ToTrack converts the entry. Title falls back to name; cover art falls back
// to the album ID, then the song ID.
func (s SongEntry) ToTrack() track.Track {
	return track.Track{
		ID:       s.ID.String(),
		Title:    firstNonEmpty(s.Title, s.Name),
		Artist:   s.Artist,
		Album:    s.Album,
		AlbumID:  s.AlbumID.String(),
		CoverArt: firstNonEmpty(s.CoverArt.String(), s.AlbumID.String(), s.ID.String()),
		Duration: seconds(s.Duration),
		TrackNo:  s.Track,
	}
}

// ToAlbum converts the entry. Title falls back to name; cover art falls back
// to the album ID.
func (a AlbumEntry) ToAlbum() album.Album {
	return album.Album{
		ID:        a.ID.String(),
		Title:     firstNonEmpty(a.Title, a.Name),
		Artist:    a.Artist,
		CoverArt:  firstNonEmpty(a.CoverArt.String(), a.ID.String()),
		Year:      a.Year,
		SongCount: a.SongCount,
	}
}

// ToAlbum converts the album including its songs.
func (a AlbumWithSongs) ToAlbum() album.Album {
	al := a.AlbumEntry.ToAlbum()
	al.Tracks = convertSongs(a.Song)
	return al
}

// ToPlaylist converts the entry. Name falls back to title.
func (p PlaylistEntry) ToPlaylist() playlist.Playlist {
	return playlist.Playlist{
		ID:        p.ID.String(),
		Name:      firstNonEmpty(p.Name, p.Title),
		Owner:     p.Owner,
		CoverArt:  firstNonEmpty(p.CoverArt.String(), p.ID.String()),
		SongCount: p.SongCount,
		Duration:  seconds(p.Duration),
	}
}

// ToPlaylist converts the playlist including its entries.
func (p PlaylistWithSongs) ToPlaylist() playlist.Playlist {
	pl := p.PlaylistEntry.ToPlaylist()
	pl.Tracks = convertSongs(p.Entry)
	return pl
}

// convertSongs converts entries, dropping those without an ID.
func convertSongs(entries []SongEntry) []track.Track {
	tracks := make([]track.Track, 0, len(entries))
	for _, s := range entries {
		if s.ID == "" {
			continue
		}
		tracks = append(tracks, s.ToTrack())
	}
	return tracks
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
