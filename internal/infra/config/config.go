// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/osa030/sonicbox/internal/domain/album"
	"github.com/osa030/sonicbox/internal/domain/playlist"
	"github.com/osa030/sonicbox/internal/domain/track"
	"github.com/osa030/sonicbox/internal/infra/subsonic"
)

// Config represents the application configuration.
type Config struct {
	Subsonic   SubsonicConfig   `yaml:"subsonic"`
	Demo       DemoConfig       `yaml:"demo"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Playback   PlaybackConfig   `yaml:"playback"`
	Audio      AudioConfig      `yaml:"audio"`
	Announcers []ProviderConfig `yaml:"announcers" validate:"dive"`
	Cast       ProviderConfig   `yaml:"cast"`
	Server     ServerConfig     `yaml:"server"`
}

// SubsonicConfig represents the music server connection.
type SubsonicConfig struct {
	URL        string `yaml:"url" validate:"omitempty,url"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	TimeoutSec int    `yaml:"timeout_sec" default:"10" validate:"gte=1,lte=120"`
}

// DemoConfig represents the offline demo catalog.
type DemoConfig struct {
	Enabled   bool             `yaml:"enabled"`
	Songs     []DemoSongConfig `yaml:"songs" validate:"dive"`
	Albums    []DemoItemConfig `yaml:"albums" validate:"dive"`
	Playlists []DemoItemConfig `yaml:"playlists" validate:"dive"`
}

// DemoSongConfig represents a song of the demo catalog.
type DemoSongConfig struct {
	ID          string `yaml:"id" validate:"required"`
	Title       string `yaml:"title" validate:"required"`
	Artist      string `yaml:"artist"`
	Album       string `yaml:"album"`
	CoverArt    string `yaml:"cover_art"`
	DurationSec int    `yaml:"duration_sec" validate:"gte=0"`
}

// DemoItemConfig represents an album or playlist of the demo catalog.
type DemoItemConfig struct {
	ID       string   `yaml:"id" validate:"required"`
	Name     string   `yaml:"name" validate:"required"`
	Artist   string   `yaml:"artist"`
	CoverArt string   `yaml:"cover_art"`
	Songs    []string `yaml:"songs"` // IDs of demo songs
}

// CatalogConfig represents catalog loading configuration.
type CatalogConfig struct {
	SongCount   int    `yaml:"song_count" default:"20" validate:"gte=1,lte=500"`
	AlbumCount  int    `yaml:"album_count" default:"10" validate:"gte=1,lte=500"`
	AlbumMode   string `yaml:"album_mode" default:"newest" validate:"oneof=newest recent"`
	ArtworkSize int    `yaml:"artwork_size" default:"300" validate:"gte=16,lte=2000"`
}

// PlaybackConfig represents playback control configuration.
type PlaybackConfig struct {
	AutoPlay                 bool `yaml:"auto_play"`
	Announce                 bool `yaml:"announce"`
	AnnouncementClearDelayMs int  `yaml:"announcement_clear_delay_ms" default:"4000" validate:"gte=0,lte=60000"`
}

// AudioConfig represents the audio output configuration.
type AudioConfig struct {
	SampleRate     int `yaml:"sample_rate" default:"44100" validate:"oneof=22050 44100 48000 96000"`
	BufferMs       int `yaml:"buffer_ms" default:"100" validate:"gte=10,lte=2000"`
	Volume         int `yaml:"volume" default:"100" validate:"gte=1,lte=100"`
	TickIntervalMs int `yaml:"tick_interval_ms" default:"500" validate:"gte=50,lte=5000"`
}

// ProviderConfig represents an optional pluggable provider.
// An empty type disables the provider.
type ProviderConfig struct {
	Type        string         `yaml:"type"`
	DisplayName string         `yaml:"display_name"`
	Settings    map[string]any `yaml:"settings"`
}

// ServerConfig represents the control server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:"127.0.0.1:8080"`
	Token string      `yaml:"token" validate:"required"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SUBSONIC_URL"); v != "" {
		c.Subsonic.URL = v
	}
	if v := os.Getenv("SUBSONIC_USERNAME"); v != "" {
		c.Subsonic.Username = v
	}
	if v := os.Getenv("SUBSONIC_PASSWORD"); v != "" {
		c.Subsonic.Password = v
	}
	if v := os.Getenv("SONICBOX_CONTROL_TOKEN"); v != "" {
		c.Server.Token = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.Demo.Enabled {
		if len(c.Demo.Songs) == 0 {
			return errors.New("demo mode requires at least one song")
		}
	} else if c.Subsonic.URL == "" || c.Subsonic.Username == "" {
		return errors.New("subsonic url and username are required unless demo mode is enabled")
	}
	return c.validateDemoReferences()
}

// validateDemoReferences checks that albums and playlists only reference
// known demo songs.
func (c *Config) validateDemoReferences() error {
	known := make(map[string]bool, len(c.Demo.Songs))
	for _, s := range c.Demo.Songs {
		if known[s.ID] {
			return errors.Newf("duplicate demo song id: %s", s.ID)
		}
		known[s.ID] = true
	}

	for _, items := range [][]DemoItemConfig{c.Demo.Albums, c.Demo.Playlists} {
		for _, item := range items {
			for _, id := range item.Songs {
				if !known[id] {
					return errors.Newf("%s references unknown demo song: %s", item.ID, id)
				}
			}
		}
	}
	return nil
}

// Credentials returns the configured server credentials.
func (c *Config) Credentials() subsonic.Credentials {
	return subsonic.Credentials{
		URL:      c.Subsonic.URL,
		Username: c.Subsonic.Username,
		Password: c.Subsonic.Password,
	}
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Subsonic.TimeoutSec) * time.Second
}

// AlbumMode returns the album list mode.
func (c *Config) AlbumMode() album.ListMode {
	return album.ListMode(c.Catalog.AlbumMode)
}

// AnnouncementClearDelay returns how long an announcement failure is shown.
func (c *Config) AnnouncementClearDelay() time.Duration {
	return time.Duration(c.Playback.AnnouncementClearDelayMs) * time.Millisecond
}

// DemoCatalog builds the demo songs, albums and playlists.
func (c *Config) DemoCatalog() ([]track.Track, []album.Album, []playlist.Playlist) {
	songs := make([]track.Track, 0, len(c.Demo.Songs))
	byID := make(map[string]track.Track, len(c.Demo.Songs))
	for _, s := range c.Demo.Songs {
		t := track.Track{
			ID:       s.ID,
			Title:    s.Title,
			Artist:   s.Artist,
			Album:    s.Album,
			CoverArt: s.CoverArt,
			Duration: time.Duration(s.DurationSec) * time.Second,
		}
		songs = append(songs, t)
		byID[t.ID] = t
	}

	resolve := func(ids []string) []track.Track {
		out := make([]track.Track, 0, len(ids))
		for _, id := range ids {
			if t, ok := byID[id]; ok {
				out = append(out, t)
			}
		}
		return out
	}

	albums := make([]album.Album, 0, len(c.Demo.Albums))
	for _, a := range c.Demo.Albums {
		tracks := resolve(a.Songs)
		albums = append(albums, album.Album{
			ID:        a.ID,
			Title:     a.Name,
			Artist:    a.Artist,
			CoverArt:  a.CoverArt,
			SongCount: len(tracks),
			Tracks:    tracks,
		})
	}

	playlists := make([]playlist.Playlist, 0, len(c.Demo.Playlists))
	for _, p := range c.Demo.Playlists {
		tracks := resolve(p.Songs)
		pl := playlist.Playlist{
			ID:        p.ID,
			Name:      p.Name,
			Owner:     p.Artist,
			CoverArt:  p.CoverArt,
			SongCount: len(tracks),
			Tracks:    tracks,
		}
		pl.Duration = time.Duration(pl.TotalDuration()) * time.Second
		playlists = append(playlists, pl)
	}

	return songs, albums, playlists
}
