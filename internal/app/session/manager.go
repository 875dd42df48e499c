// Package session provides the session manager.
package session

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	controlv1 "github.com/osa030/sonicbox/internal/api/controlv1"
	"github.com/osa030/sonicbox/internal/app/catalog"
	"github.com/osa030/sonicbox/internal/app/notification"
	"github.com/osa030/sonicbox/internal/app/playback"
	"github.com/osa030/sonicbox/internal/app/session/state"
	"github.com/osa030/sonicbox/internal/domain/track"
	"github.com/osa030/sonicbox/internal/infra/subsonic"
)

var (
	ErrTrackNotFound = errors.New("track is not in the song list")
	ErrNoDemoCatalog = errors.New("demo mode requested but no demo catalog is configured")
	ErrClosed        = errors.New("session is closed")
)

// Config holds session configuration.
type Config struct {
	Credentials subsonic.Credentials
	Demo        bool
	AutoPlay    bool // Start the first song once the catalog is loaded
	Announce    bool // Request an announcement whenever a track starts
	ArtworkSize int
	Catalog     catalog.LoaderConfig
	Playback    playback.Config
}

// Deps are the external collaborators of a session.
type Deps struct {
	Client    *subsonic.Client
	Backend   playback.Backend
	Announcer playback.Announcer    // optional
	Cast      playback.CastRouter   // optional
	Demo      *catalog.StaticSource // required when Config.Demo is set
}

// Manager owns the credentials, the catalog and the playback controller
// and rebroadcasts playback events to subscribers.
type Manager struct {
	mu sync.RWMutex

	// Configuration
	config Config
	creds  subsonic.Credentials
	demo   bool

	// Components
	client       *subsonic.Client
	demoSource   *catalog.StaticSource
	stateMgr     *state.Manager
	cache        *catalog.Cache
	loader       *catalog.Loader
	playback     *playback.Controller
	notification *notification.Manager

	// Channels
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewManager creates a new session manager.
func NewManager(cfg Config, deps Deps) (*Manager, error) {
	if deps.Backend == nil {
		return nil, errors.New("audio backend is required")
	}
	if cfg.Demo && deps.Demo == nil {
		return nil, ErrNoDemoCatalog
	}
	if !cfg.Demo && deps.Client == nil {
		return nil, errors.New("subsonic client is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cache := catalog.NewCache()

	m := &Manager{
		config:       cfg,
		creds:        cfg.Credentials,
		demo:         cfg.Demo,
		client:       deps.Client,
		demoSource:   deps.Demo,
		stateMgr:     state.New(uuid.New().String()),
		cache:        cache,
		loader:       catalog.NewLoader(cache, cfg.Catalog),
		notification: notification.NewManager(),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	m.playback = playback.NewController(cfg.Playback, playback.Deps{
		Backend:   deps.Backend,
		Tracks:    cache,
		Announcer: deps.Announcer,
		Cast:      deps.Cast,
	}, cfg.Credentials)

	return m, nil
}

// Start loads the catalog and starts the event loops. With AutoPlay the
// first song starts playing.
func (m *Manager) Start(ctx context.Context) error {
	go m.playback.Run(m.ctx)
	go m.playbackLoop()

	result, err := m.Reload(ctx)
	if err != nil {
		return err
	}
	zlog.Info().Msgf("session started: id=%s source=%s songs=%d",
		m.stateMgr.GetSessionID(), m.stateMgr.GetSource(), result.Songs)

	if m.config.AutoPlay && result.Songs > 0 {
		if err := m.playback.Next(ctx); err != nil {
			zlog.Warn().Err(err).Msg("autoplay failed")
		}
	}
	return nil
}

// ReloadResult reports catalog sizes after a load.
type ReloadResult struct {
	Songs     int
	Albums    int
	Playlists int
}

// Reload fetches the catalog again from the active source.
func (m *Manager) Reload(ctx context.Context) (ReloadResult, error) {
	src := m.source()
	if !m.stateMgr.BeginLoad(src.Name()) {
		return ReloadResult{}, ErrClosed
	}
	defer m.stateMgr.EndLoad()

	m.loader.Load(ctx, src)
	return ReloadResult{
		Songs:     len(m.cache.Songs()),
		Albums:    len(m.cache.Albums()),
		Playlists: len(m.cache.Playlists()),
	}, nil
}

// UpdateCredentials switches credentials or demo mode, reloads the catalog
// and forwards the credentials to the controller.
func (m *Manager) UpdateCredentials(ctx context.Context, creds subsonic.Credentials, demo bool) error {
	if demo && m.demoSource == nil {
		return ErrNoDemoCatalog
	}

	m.mu.Lock()
	m.creds = creds
	m.demo = demo
	m.mu.Unlock()

	zlog.Info().Msgf("credentials updated: url=%s user=%s demo=%t", creds.BaseURL(), creds.Username, demo)

	if _, err := m.Reload(ctx); err != nil {
		return err
	}
	// A later update may have replaced creds while this reload ran; the
	// controller follows whatever is current now.
	return m.playback.SetCredentials(ctx, m.Credentials())
}

// source returns the catalog source for the current settings.
func (m *Manager) source() catalog.Source {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.demo {
		return m.demoSource
	}
	return catalog.NewLiveSource(m.client, m.creds)
}

// Credentials returns the active credentials.
func (m *Manager) Credentials() subsonic.Credentials {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds
}

// Songs returns the ordered song list.
func (m *Manager) Songs() []track.Track {
	return m.cache.Songs()
}

// Play starts the song with the given ID from the song list.
func (m *Manager) Play(ctx context.Context, trackID string) error {
	t, ok := m.cache.FindSong(trackID)
	if !ok {
		return ErrTrackNotFound
	}
	return m.playback.LoadAndPlay(ctx, t)
}

// TogglePlayPause toggles playback.
func (m *Manager) TogglePlayPause(ctx context.Context) error {
	return m.playback.TogglePlayPause(ctx)
}

// Next plays the next song.
func (m *Manager) Next(ctx context.Context) error {
	return m.playback.Next(ctx)
}

// Previous plays the previous song.
func (m *Manager) Previous(ctx context.Context) error {
	return m.playback.Previous(ctx)
}

// Seek moves the playhead to percent of the duration.
func (m *Manager) Seek(percent float64) error {
	return m.playback.Seek(percent)
}

// Announce requests an announcement for the current track.
// The request runs under the session context, not the caller's.
func (m *Manager) Announce() error {
	return m.playback.Announce(m.ctx)
}

// Cast routes the current stream to the cast target.
func (m *Manager) Cast(ctx context.Context) error {
	return m.playback.Cast(ctx)
}

// Playback returns a copy of the playback session.
func (m *Manager) Playback() playback.Session {
	return m.playback.Session()
}

// Status represents the current session status with all information.
type Status struct {
	SessionID     string
	Phase         state.Phase
	Source        string
	Playback      playback.Session
	Songs         int
	Albums        int
	Playlists     int
	CastAvailable bool
	PlaybackInfo  controlv1.PlaybackStatus
}

// GetStatus returns the current session status.
func (m *Manager) GetStatus() *Status {
	s := m.playback.Session()
	return &Status{
		SessionID:     m.stateMgr.GetSessionID(),
		Phase:         m.stateMgr.GetPhase(),
		Source:        m.stateMgr.GetSource(),
		Playback:      s,
		Songs:         len(m.cache.Songs()),
		Albums:        len(m.cache.Albums()),
		Playlists:     len(m.cache.Playlists()),
		CastAvailable: m.playback.CastAvailable(),
		PlaybackInfo:  m.BuildPlaybackStatus(s),
	}
}

// Catalog returns the catalog cache.
func (m *Manager) Catalog() *catalog.Cache {
	return m.cache
}

// GetNotificationManager returns the notification manager.
func (m *Manager) GetNotificationManager() *notification.Manager {
	return m.notification
}

// Done is closed when the session has been closed.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// playbackLoop handles playback events.
func (m *Manager) playbackLoop() {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("playback loop panicked: %v", r)
			// Restart loop to prevent zombie session
			zlog.Info().Msg("restarting playback loop")
			go m.playbackLoop()
		}
	}()

	events := m.playback.Events()
	for {
		select {
		case <-m.ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			m.handlePlaybackEvent(event)
		}
	}
}

// handlePlaybackEvent handles playback events.
func (m *Manager) handlePlaybackEvent(event playback.Event) {
	if event.Type == playback.EventProgress {
		zlog.Trace().Msgf("playback event: type=%s position=%s", event.Type, playback.FormatTime(event.Session.Position))
	} else {
		zlog.Info().Msgf("playback event: type=%s state=%s track=%s", event.Type, event.Session.State, event.Session.TrackID())
	}

	n := &controlv1.Notification{
		Type:     event.Type.String(),
		Playback: m.BuildPlaybackStatus(event.Session),
	}
	if event.Err != nil {
		n.Error = event.Err.Error()
	}
	m.notification.Broadcast(n)

	if event.Type == playback.EventTrackStarted && m.config.Announce {
		if err := m.playback.Announce(m.ctx); err != nil && !errors.Is(err, playback.ErrAnnouncerUnavailable) {
			zlog.Warn().Err(err).Msg("failed to request announcement")
		}
	}
}

// BuildPlaybackStatus converts a session to its wire form.
func (m *Manager) BuildPlaybackStatus(s playback.Session) controlv1.PlaybackStatus {
	status := controlv1.PlaybackStatus{
		State:              s.State.String(),
		PositionSec:        s.Position,
		DurationSec:        s.Duration,
		Progress:           s.Progress,
		Position:           playback.FormatTime(s.Position),
		Duration:           playback.FormatTime(s.Duration),
		AnnouncementFailed: s.AnnouncementFailed,
	}
	if s.CurrentTrack != nil {
		t := m.BuildTrack(*s.CurrentTrack)
		status.Track = &t
	}
	return status
}

// BuildTrack converts a track to its wire form with a resolved artwork URL.
func (m *Manager) BuildTrack(t track.Track) controlv1.Track {
	return controlv1.Track{
		ID:          t.ID,
		Title:       t.Title,
		Artist:      t.Artist,
		Album:       t.Album,
		CoverArtURL: m.Credentials().ArtworkURL(t.CoverArt, m.config.ArtworkSize),
		DurationSec: t.Duration.Seconds(),
	}
}

// Close closes the session manager.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.stateMgr.Close()
		m.cancel()
		if err := m.playback.Close(); err != nil {
			zlog.Error().Err(err).Msg("failed to close playback")
		}
		m.notification.Close()
		close(m.done)
		zlog.Info().Msgf("session closed: id=%s", m.stateMgr.GetSessionID())
	})
}
