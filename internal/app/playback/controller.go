package playback

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/sonicbox/internal/app/navigation"
	"github.com/osa030/sonicbox/internal/domain/track"
	"github.com/osa030/sonicbox/internal/infra/subsonic"
)

// Errors
var (
	ErrNoTrack              = errors.New("no track loaded")
	ErrNoTracks             = errors.New("track sequence is empty")
	ErrBackend              = errors.New("audio backend failure")
	ErrCastUnavailable      = errors.New("cast is not available")
	ErrAnnouncerUnavailable = errors.New("announcer is not configured")
	ErrClosed               = errors.New("controller is closed")
)

const (
	defaultAnnouncementClearDelay = 4 * time.Second
	defaultEventBuffer            = 64
)

// Config holds controller configuration.
type Config struct {
	AnnouncementClearDelay time.Duration // How long AnnouncementFailed stays set (default 4s)
	EventBuffer            int           // Event channel capacity (default 64)
}

// Deps are the collaborators of a controller. Backend and Tracks are
// required; Announcer and Cast may be nil.
type Deps struct {
	Backend   Backend
	Tracks    TrackSource
	Announcer Announcer
	Cast      CastRouter
}

// Controller owns the playback session and drives the backend.
type Controller struct {
	mu sync.RWMutex

	backend   Backend
	tracks    TrackSource
	announcer Announcer
	cast      CastRouter

	creds   subsonic.Credentials
	session Session

	// Announcement bookkeeping
	announceSeq uint64
	clearTimer  *time.Timer

	// Configuration
	config Config

	// Events
	eventCh chan Event
	closed  bool

	// Context
	ctx    context.Context
	cancel context.CancelFunc
}

// NewController creates a new playback controller.
func NewController(config Config, deps Deps, creds subsonic.Credentials) *Controller {
	if config.AnnouncementClearDelay <= 0 {
		config.AnnouncementClearDelay = defaultAnnouncementClearDelay
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = defaultEventBuffer
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		backend:   deps.Backend,
		tracks:    deps.Tracks,
		announcer: deps.Announcer,
		cast:      deps.Cast,
		creds:     creds,
		session:   Session{State: StateStopped},
		config:    config,
		eventCh:   make(chan Event, config.EventBuffer),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Events returns the event channel. It is closed by Close.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Session returns a copy of the current session.
func (c *Controller) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.clone()
}

// Run consumes backend events until ctx is cancelled, the controller is
// closed, or the backend closes its event channel.
func (c *Controller) Run(ctx context.Context) {
	events := c.backend.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.handleBackendEvent(ctx, ev)
		}
	}
}

func (c *Controller) handleBackendEvent(ctx context.Context, ev BackendEvent) {
	switch ev.Kind {
	case BackendTimeUpdate:
		c.timeUpdate(ev.Source, ev.Position, ev.Duration)
	case BackendEnded:
		c.sourceEnded(ctx, ev.Source)
	case BackendError:
		c.backendError(ev.Source, ev.Err)
	}
}

// staleLocked reports whether an event from source belongs to a source that
// has since been replaced. An empty source matches any.
func (c *Controller) staleLocked(source string, kind BackendEventKind) bool {
	if source == "" || source == c.session.LoadedURL {
		return false
	}
	zlog.Debug().Msgf("playback: ignoring %s event from previous source", kind)
	return true
}

// LoadAndPlay makes t the current track and starts it. If t's stream URL is
// already loaded the source is kept and only playback is ensured.
// Backend failures leave the track loaded and the session Paused.
func (c *Controller) LoadAndPlay(ctx context.Context, t track.Track) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	return c.loadAndPlayLocked(ctx, t)
}

func (c *Controller) loadAndPlayLocked(ctx context.Context, t track.Track) error {
	url := c.creds.StreamURL(t.ID)

	if url == c.session.LoadedURL && c.session.TrackID() == t.ID {
		if c.session.State == StatePlaying {
			return nil
		}
		return c.playLocked()
	}

	c.resetAnnouncementLocked()

	s := Session{
		CurrentTrack: &t,
		State:        StatePaused,
	}
	if t.HasDuration() {
		s.Duration = t.Duration.Seconds()
	}
	c.session = s

	// LoadedURL stays empty until the backend holds the source, so a
	// failed load is retried by the next play request.
	if err := c.backend.Load(ctx, url); err != nil {
		return c.backendFailureLocked(err, "failed to load source")
	}
	c.session.LoadedURL = url

	zlog.Info().Msgf("playback: loaded track: id=%s track=%s", t.ID, t.DisplayName())

	if err := c.backend.Play(); err != nil {
		return c.backendFailureLocked(err, "failed to start playback")
	}

	c.session.State = StatePlaying
	c.sendEventLocked(EventTrackStarted, nil)
	return nil
}

// playLocked resumes the loaded source.
func (c *Controller) playLocked() error {
	if err := c.backend.Play(); err != nil {
		c.session.State = StatePaused
		return c.backendFailureLocked(err, "failed to resume playback")
	}
	c.session.State = StatePlaying
	c.sendEventLocked(EventStateChanged, nil)
	return nil
}

// backendFailureLocked recovers the session to Paused and reports err.
func (c *Controller) backendFailureLocked(err error, msg string) error {
	wrapped := errors.Mark(errors.Wrap(err, msg), ErrBackend)
	zlog.Warn().Err(err).Msgf("playback: %s: track=%s", msg, c.session.TrackID())

	c.session.State = StatePaused
	c.sendEventLocked(EventError, wrapped)
	return wrapped
}

// TogglePlayPause switches between Playing and Paused. A Stopped session
// with a track starts it again; without a track this is a no-op.
func (c *Controller) TogglePlayPause(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if c.session.CurrentTrack == nil {
		return nil
	}

	switch {
	case c.session.State == StatePlaying:
		// Audio keeps running when the backend refuses, so the session
		// stays Playing.
		if err := c.backend.Pause(); err != nil {
			zlog.Error().Err(err).Msgf("playback: backend rejected pause: track=%s", c.session.TrackID())
			wrapped := errors.Mark(errors.Wrap(err, "failed to pause playback"), ErrBackend)
			c.sendEventLocked(EventError, wrapped)
			return wrapped
		}
		c.session.State = StatePaused
		c.sendEventLocked(EventStateChanged, nil)
		return nil

	case c.session.LoadedURL == "":
		return c.loadAndPlayLocked(ctx, *c.session.CurrentTrack)

	default:
		return c.playLocked()
	}
}

// Seek moves the playhead to percent of the duration. It is a no-op while
// the duration is unknown. A backend failure leaves the session unchanged.
func (c *Controller) Seek(percent float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.session.CurrentTrack == nil || !c.session.HasDuration() || math.IsNaN(percent) {
		return nil
	}

	percent = math.Max(0, math.Min(100, percent))
	target := percent / 100 * c.session.Duration

	if err := c.backend.Seek(target); err != nil {
		zlog.Warn().Err(err).Msgf("playback: seek failed: target=%s", FormatTime(target))
		return errors.Mark(errors.Wrap(err, "failed to seek"), ErrBackend)
	}

	c.session.Position = target
	c.session.Progress = percent
	c.sendEventLocked(EventSeeked, nil)
	return nil
}

// Next plays the track after the current one, wrapping around. With no
// current track the head of the sequence is played.
func (c *Controller) Next(ctx context.Context) error {
	return c.step(ctx, navigation.Next)
}

// Previous plays the track before the current one, wrapping around.
func (c *Controller) Previous(ctx context.Context) error {
	return c.step(ctx, navigation.Previous)
}

func (c *Controller) step(ctx context.Context, pick func([]track.Track, string) (track.Track, bool)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	t, ok := pick(c.tracks.Songs(), c.session.TrackID())
	if !ok {
		return ErrNoTracks
	}
	return c.loadAndPlayLocked(ctx, t)
}

// OnSourceEnded advances to the next track. If the sequence is empty the
// session stops and the source is released.
func (c *Controller) OnSourceEnded(ctx context.Context) {
	c.sourceEnded(ctx, "")
}

func (c *Controller) sourceEnded(ctx context.Context, source string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.session.CurrentTrack == nil || c.staleLocked(source, BackendEnded) {
		return
	}

	zlog.Debug().Msgf("playback: source ended: track=%s", c.session.TrackID())

	t, ok := navigation.Next(c.tracks.Songs(), c.session.TrackID())
	if !ok {
		c.session.State = StateStopped
		c.session.LoadedURL = ""
		if c.session.HasDuration() {
			c.session.Position = c.session.Duration
			c.session.Progress = 100
		}
		c.sendEventLocked(EventStateChanged, nil)
		return
	}
	_ = c.loadAndPlayLocked(ctx, t)
}

// OnTimeUpdate records the backend's position and duration. An unknown or
// invalid duration keeps the last known duration and progress.
func (c *Controller) OnTimeUpdate(position, duration float64) {
	c.timeUpdate("", position, duration)
}

func (c *Controller) timeUpdate(source string, position, duration float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.session.CurrentTrack == nil || !validSeconds(position) ||
		c.staleLocked(source, BackendTimeUpdate) {
		return
	}

	if validSeconds(duration) && duration > 0 {
		c.session.Duration = duration
	}

	position = math.Max(0, position)
	if c.session.HasDuration() {
		position = math.Min(position, c.session.Duration)
		c.session.Position = position
		c.session.Progress = position / c.session.Duration * 100
	} else {
		c.session.Position = math.Max(position, c.session.Position)
	}

	c.sendEventLocked(EventProgress, nil)
}

// OnBackendError pauses the session after an asynchronous backend failure.
func (c *Controller) OnBackendError(err error) {
	c.backendError("", err)
}

func (c *Controller) backendError(source string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.session.CurrentTrack == nil || c.staleLocked(source, BackendError) {
		return
	}
	if err == nil {
		err = errors.New("unknown backend error")
	}
	_ = c.backendFailureLocked(err, "playback interrupted")
}

// SetCredentials replaces the credentials. If the current track's stream
// URL changes the source is reloaded, resuming only if it was playing.
func (c *Controller) SetCredentials(ctx context.Context, creds subsonic.Credentials) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	c.creds = creds
	if c.session.CurrentTrack == nil || c.session.LoadedURL == "" {
		return nil
	}

	url := creds.StreamURL(c.session.CurrentTrack.ID)
	if url == c.session.LoadedURL {
		return nil
	}

	wasPlaying := c.session.State == StatePlaying
	zlog.Info().Msgf("playback: credentials changed, reloading source: track=%s resume=%t",
		c.session.TrackID(), wasPlaying)

	c.session.LoadedURL = ""
	c.session.Position = 0
	c.session.Progress = 0
	c.session.State = StatePaused

	if err := c.backend.Load(ctx, url); err != nil {
		return c.backendFailureLocked(err, "failed to reload source")
	}
	c.session.LoadedURL = url
	if wasPlaying {
		return c.playLocked()
	}
	c.sendEventLocked(EventStateChanged, nil)
	return nil
}

// Announce asks the announcer for a clip introducing the current track.
// The request runs in the background; the outcome is reported as an event.
// A failure sets AnnouncementFailed until the clear delay elapses.
func (c *Controller) Announce(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.announcer == nil {
		return ErrAnnouncerUnavailable
	}
	if c.session.CurrentTrack == nil {
		return ErrNoTrack
	}

	c.resetAnnouncementLocked()
	seq := c.announceSeq
	t := *c.session.CurrentTrack

	go c.announce(ctx, seq, t)
	return nil
}

func (c *Controller) announce(ctx context.Context, seq uint64, t track.Track) {
	clip, err := c.announcer.Announce(ctx, t)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || seq != c.announceSeq || c.session.TrackID() != t.ID {
		return
	}

	if err != nil {
		zlog.Warn().Err(err).Msgf("playback: announcement failed: track=%s", t.DisplayName())
		c.session.AnnouncementFailed = true
		c.sendEventLocked(EventAnnouncementFailed, err)
		c.clearTimer = time.AfterFunc(c.config.AnnouncementClearDelay, func() {
			c.clearAnnouncementFailure(seq)
		})
		return
	}

	zlog.Debug().Msgf("playback: announcement ready: track=%s bytes=%d", t.DisplayName(), len(clip.Data))
	c.sendEventLocked(EventAnnouncementReady, nil)

	if player, ok := c.backend.(ClipPlayer); ok {
		go func() {
			if err := player.PlayClip(ctx, clip); err != nil {
				zlog.Warn().Err(err).Msg("playback: failed to play announcement")
			}
		}()
	}
}

func (c *Controller) clearAnnouncementFailure(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || seq != c.announceSeq || !c.session.AnnouncementFailed {
		return
	}
	c.session.AnnouncementFailed = false
	c.sendEventLocked(EventAnnouncementCleared, nil)
}

// resetAnnouncementLocked invalidates any in-flight announcement.
func (c *Controller) resetAnnouncementLocked() {
	c.announceSeq++
	if c.clearTimer != nil {
		c.clearTimer.Stop()
		c.clearTimer = nil
	}
	c.session.AnnouncementFailed = false
}

// CastAvailable reports whether a cast target can be used.
func (c *Controller) CastAvailable() bool {
	return c.cast != nil && c.cast.Available()
}

// Cast routes the loaded stream to the cast target.
func (c *Controller) Cast(ctx context.Context) error {
	if !c.CastAvailable() {
		return ErrCastUnavailable
	}

	s := c.Session()
	if s.CurrentTrack == nil || s.LoadedURL == "" {
		return ErrNoTrack
	}

	if err := c.cast.Route(ctx, s.LoadedURL, *s.CurrentTrack); err != nil {
		return errors.Wrap(err, "failed to cast")
	}
	zlog.Info().Msgf("playback: cast started: track=%s", s.CurrentTrack.DisplayName())
	return nil
}

// Close stops the controller and releases the backend.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.cancel()

	if c.clearTimer != nil {
		c.clearTimer.Stop()
		c.clearTimer = nil
	}
	close(c.eventCh)

	if err := c.backend.Close(); err != nil {
		return errors.Wrap(err, "failed to close backend")
	}
	return nil
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(t EventType, err error) {
	if c.closed {
		return
	}
	select {
	case c.eventCh <- Event{Type: t, Session: c.session.clone(), Err: err}:
	default:
		zlog.Debug().Msgf("playback: event channel full, dropping %s", t)
	}
}
