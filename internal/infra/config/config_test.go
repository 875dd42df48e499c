package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/sonicbox/internal/domain/album"
)

const liveYAML = `
subsonic:
  url: https://music.example.com
  username: alice
  password: sesame
server:
  token: secret
`

const demoYAML = `
demo:
  enabled: true
  songs:
    - id: s1
      title: First
      artist: A
      duration_sec: 180
    - id: s2
      title: Second
      artist: B
      duration_sec: 120
  albums:
    - id: a1
      name: Both
      artist: Various
      songs: [s1, s2]
  playlists:
    - id: p1
      name: Mix
      artist: alice
      songs: [s2]
server:
  token: secret
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(liveYAML))
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Subsonic.TimeoutSec)
	assert.Equal(t, 10*time.Second, cfg.Timeout())
	assert.Equal(t, 20, cfg.Catalog.SongCount)
	assert.Equal(t, 10, cfg.Catalog.AlbumCount)
	assert.Equal(t, album.ListNewest, cfg.AlbumMode())
	assert.Equal(t, 300, cfg.Catalog.ArtworkSize)
	assert.Equal(t, 4*time.Second, cfg.AnnouncementClearDelay())
	assert.Equal(t, 44100, cfg.Audio.SampleRate)
	assert.Equal(t, 100, cfg.Audio.Volume)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Empty(t, cfg.Announcers)
	assert.Empty(t, cfg.Cast.Type)

	creds := cfg.Credentials()
	assert.Equal(t, "https://music.example.com", creds.URL)
	assert.Equal(t, "alice", creds.Username)
	assert.Equal(t, "sesame", creds.Password)
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid live config",
			yaml: liveYAML,
		},
		{
			name: "valid demo config",
			yaml: demoYAML,
		},
		{
			name:    "missing url",
			yaml:    "subsonic:\n  username: alice\nserver:\n  token: secret\n",
			wantErr: true,
			errMsg:  "subsonic url and username are required",
		},
		{
			name:    "invalid url",
			yaml:    "subsonic:\n  url: not a url\n  username: alice\nserver:\n  token: secret\n",
			wantErr: true,
			errMsg:  "URL",
		},
		{
			name:    "missing token",
			yaml:    "subsonic:\n  url: https://music.example.com\n  username: alice\n",
			wantErr: true,
			errMsg:  "Token",
		},
		{
			name:    "invalid album mode",
			yaml:    liveYAML + "catalog:\n  album_mode: frequent\n",
			wantErr: true,
			errMsg:  "AlbumMode",
		},
		{
			name:    "volume out of range",
			yaml:    liveYAML + "audio:\n  volume: 150\n",
			wantErr: true,
			errMsg:  "Volume",
		},
		{
			name:    "demo without songs",
			yaml:    "demo:\n  enabled: true\nserver:\n  token: secret\n",
			wantErr: true,
			errMsg:  "at least one song",
		},
		{
			name:    "demo album with unknown song",
			yaml:    "demo:\n  enabled: true\n  songs:\n    - id: s1\n      title: One\n  albums:\n    - id: a1\n      name: A\n      songs: [s9]\nserver:\n  token: secret\n",
			wantErr: true,
			errMsg:  "unknown demo song: s9",
		},
		{
			name:    "duplicate demo song",
			yaml:    "demo:\n  enabled: true\n  songs:\n    - id: s1\n      title: One\n    - id: s1\n      title: Again\nserver:\n  token: secret\n",
			wantErr: true,
			errMsg:  "duplicate demo song id",
		},
		{
			name:    "malformed yaml",
			yaml:    "subsonic: [",
			wantErr: true,
			errMsg:  "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("SUBSONIC_URL", "https://other.example.com")
	t.Setenv("SUBSONIC_USERNAME", "bob")
	t.Setenv("SUBSONIC_PASSWORD", "hunter2")
	t.Setenv("SONICBOX_CONTROL_TOKEN", "from-env")

	cfg, err := Parse([]byte("server:\n  addr: \":9000\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "https://other.example.com", cfg.Subsonic.URL)
	assert.Equal(t, "bob", cfg.Subsonic.Username)
	assert.Equal(t, "hunter2", cfg.Subsonic.Password)
	assert.Equal(t, "from-env", cfg.Server.Token)
	assert.Equal(t, ":9000", cfg.Server.Addr)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sonicbox.yaml")
	require.NoError(t, os.WriteFile(path, []byte(liveYAML+"announcers:\n  - type: gemini\n    display_name: Gemini\n    settings:\n      voice: Kore\n  - type: http\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Announcers, 2)
	assert.Equal(t, "gemini", cfg.Announcers[0].Type)
	assert.Equal(t, "Gemini", cfg.Announcers[0].DisplayName)
	assert.Equal(t, "Kore", cfg.Announcers[0].Settings["voice"])
	assert.Equal(t, "http", cfg.Announcers[1].Type)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestConfig_DemoCatalog(t *testing.T) {
	cfg, err := Parse([]byte(demoYAML))
	require.NoError(t, err)

	songs, albums, playlists := cfg.DemoCatalog()

	require.Len(t, songs, 2)
	assert.Equal(t, "s1", songs[0].ID)
	assert.Equal(t, 180*time.Second, songs[0].Duration)

	require.Len(t, albums, 1)
	assert.Equal(t, "Both", albums[0].Title)
	assert.Equal(t, 2, albums[0].SongCount)
	assert.True(t, albums[0].HasDetails())

	require.Len(t, playlists, 1)
	assert.Equal(t, "alice", playlists[0].Owner)
	assert.Equal(t, 120*time.Second, playlists[0].Duration)
	assert.False(t, playlists[0].IsPartial())
}
