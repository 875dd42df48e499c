// Package audio plays HTTP audio streams on the local sound device.
package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"math"
	"mime"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"

	"github.com/osa030/sonicbox/internal/app/playback"
	"github.com/osa030/sonicbox/internal/infra/logger"
)

const (
	resampleQuality = 4
	minVolumeDB     = -10.0
	volumeCurve     = 0.5
	duckVolumeDB    = -1.5
	eventBuffer     = 32
)

// Errors
var (
	ErrNotLoaded   = errors.New("no source loaded")
	ErrNotSeekable = errors.New("source is not seekable")
	ErrUnsupported = errors.New("unsupported audio format")
	ErrClosed      = errors.New("player is closed")
)

// Config represents audio output configuration.
type Config struct {
	SampleRate   int           // Output sample rate in Hz (default 44100)
	BufferSize   time.Duration // Speaker buffer (default 100ms)
	Volume       int           // Volume percent 0-100 (default 100)
	TickInterval time.Duration // Position report interval (default 500ms)
}

// Player streams a URL through beep and implements playback.Backend.
// Events is never closed; consumers stop on their own context.
type Player struct {
	mu sync.Mutex

	config     Config
	httpClient *http.Client
	events     chan playback.BackendEvent
	done       chan struct{}
	closed     bool

	speakerInit bool
	sampleRate  beep.SampleRate

	// Current source
	url          string
	body         io.ReadCloser
	seekable     bool
	streamer     beep.StreamSeekCloser
	format       beep.Format
	ctrl         *beep.Ctrl
	volume       *effects.Volume
	cancelSource context.CancelFunc
}

// NewPlayer creates a new player. The sound device is opened on first load.
func NewPlayer(cfg Config) *Player {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100 * time.Millisecond
	}
	if cfg.Volume <= 0 || cfg.Volume > 100 {
		cfg.Volume = 100
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 500 * time.Millisecond
	}

	return &Player{
		config:     cfg,
		sampleRate: beep.SampleRate(cfg.SampleRate),
		httpClient: &http.Client{
			// Streams are long-lived; only connection setup is bounded.
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 15 * time.Second,
				DisableCompression:    true,
			},
		},
		events: make(chan playback.BackendEvent, eventBuffer),
		done:   make(chan struct{}),
	}
}

// Events implements playback.Backend.
func (p *Player) Events() <-chan playback.BackendEvent {
	return p.events
}

// Load opens url and prepares it paused.
func (p *Player) Load(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	p.stopLocked()

	// The source outlives the request that loads it; stopLocked cancels it.
	srcCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	body, contentType, err := openStream(srcCtx, p.httpClient, url)
	if err != nil {
		cancel()
		return err
	}

	// With a seekable body the MP3 decoder reads the source once here to
	// index frames, which gives a known length.
	streamer, format, err := decode(contentType, body)
	if err != nil {
		body.Close()
		cancel()
		return err
	}

	if err := p.initSpeakerLocked(); err != nil {
		streamer.Close()
		body.Close()
		cancel()
		return err
	}

	var out beep.Streamer = streamer
	if format.SampleRate != p.sampleRate {
		out = beep.Resample(resampleQuality, format.SampleRate, p.sampleRate, streamer)
	}

	p.url = url
	p.body = body
	_, p.seekable = body.(io.Seeker)
	p.streamer = streamer
	p.format = format
	p.ctrl = &beep.Ctrl{Streamer: out, Paused: true}
	p.volume = &effects.Volume{
		Streamer: p.ctrl,
		Base:     2,
		Volume:   percentToExponent(p.config.Volume),
		Silent:   false,
	}

	source := url
	decoded := streamer
	speaker.Play(beep.Seq(p.volume, beep.Callback(func() {
		// Runs on the speaker goroutine; must not take p.mu.
		if err := decoded.Err(); err != nil {
			p.emit(playback.BackendEvent{Kind: playback.BackendError, Source: source, Err: err})
			return
		}
		p.emit(playback.BackendEvent{Kind: playback.BackendEnded, Source: source})
	})))

	p.cancelSource = cancel
	go p.reportProgress(srcCtx, source)

	logger.Component("audio").Debug().Msgf("loaded stream: rate=%d channels=%d", format.SampleRate, format.NumChannels)
	return nil
}

// Play implements playback.Backend.
func (p *Player) Play() error {
	return p.setPaused(false)
}

// Pause implements playback.Backend.
func (p *Player) Pause() error {
	return p.setPaused(true)
}

func (p *Player) setPaused(paused bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.ctrl == nil {
		return ErrNotLoaded
	}
	speaker.Lock()
	p.ctrl.Paused = paused
	speaker.Unlock()
	return nil
}

// Seek implements playback.Backend. Only sources served with byte ranges
// have a known length and can seek; others return ErrNotSeekable.
func (p *Player) Seek(seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.streamer == nil {
		return ErrNotLoaded
	}

	speaker.Lock()
	defer speaker.Unlock()

	// The WAV decoder panics when seeking a plain body.
	length := p.streamer.Len()
	if !p.seekable || length <= 0 {
		return ErrNotSeekable
	}
	target := p.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	target = max(0, min(target, length-1))

	if err := p.streamer.Seek(target); err != nil {
		return errors.Wrap(err, "failed to seek")
	}
	return nil
}

// SetVolume sets the volume percent (0-100).
func (p *Player) SetVolume(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.config.Volume = max(0, min(100, percent))
	if p.volume == nil {
		return
	}
	speaker.Lock()
	p.volume.Volume = percentToExponent(p.config.Volume)
	p.volume.Silent = p.config.Volume == 0
	speaker.Unlock()
}

// PlayClip mixes an announcement clip over the current source, ducking the
// source while the clip plays.
func (p *Player) PlayClip(_ context.Context, clip playback.Clip) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	streamer, format, err := decode(clip.MimeType, io.NopCloser(bytes.NewReader(clip.Data)))
	if err != nil {
		return err
	}
	if err := p.initSpeakerLocked(); err != nil {
		streamer.Close()
		return err
	}

	var out beep.Streamer = streamer
	if format.SampleRate != p.sampleRate {
		out = beep.Resample(resampleQuality, format.SampleRate, p.sampleRate, streamer)
	}

	music := p.volume
	base := percentToExponent(p.config.Volume)
	if music != nil {
		speaker.Lock()
		music.Volume = base + duckVolumeDB
		speaker.Unlock()
	}

	speaker.Play(beep.Seq(out, beep.Callback(func() {
		// Speaker lock is held here.
		if music != nil {
			music.Volume = base
		}
		streamer.Close()
	})))
	return nil
}

// Close stops playback and releases the sound device.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.stopLocked()
	close(p.done)

	if p.speakerInit {
		speaker.Close()
		p.speakerInit = false
	}
	return nil
}

// stopLocked releases the current source.
func (p *Player) stopLocked() {
	if p.cancelSource != nil {
		p.cancelSource()
		p.cancelSource = nil
	}
	if p.speakerInit {
		speaker.Clear()
	}
	if p.streamer != nil {
		p.streamer.Close()
		p.streamer = nil
	}
	if p.body != nil {
		p.body.Close()
		p.body = nil
		p.seekable = false
	}
	p.ctrl = nil
	p.volume = nil
	p.url = ""
}

func (p *Player) initSpeakerLocked() error {
	if p.speakerInit {
		return nil
	}
	if err := speaker.Init(p.sampleRate, p.sampleRate.N(p.config.BufferSize)); err != nil {
		return errors.Wrap(err, "failed to initialize speaker")
	}
	p.speakerInit = true
	logger.Component("audio").Debug().Msgf("speaker initialized: rate=%d buffer=%v", p.sampleRate, p.config.BufferSize)
	return nil
}

// reportProgress emits a TimeUpdate every tick while the source plays.
func (p *Player) reportProgress(ctx context.Context, source string) {
	ticker := time.NewTicker(p.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ev, ok := p.position(source)
			if ok {
				p.emit(ev)
			}
		}
	}
}

func (p *Player) position(source string) (playback.BackendEvent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.streamer == nil || p.url != source || p.ctrl == nil {
		return playback.BackendEvent{}, false
	}

	speaker.Lock()
	paused := p.ctrl.Paused
	pos := p.format.SampleRate.D(p.streamer.Position())
	length := p.streamer.Len()
	speaker.Unlock()

	if paused {
		return playback.BackendEvent{}, false
	}

	duration := math.NaN()
	if length > 0 {
		duration = p.format.SampleRate.D(length).Seconds()
	}
	return playback.BackendEvent{
		Kind:     playback.BackendTimeUpdate,
		Source:   source,
		Position: pos.Seconds(),
		Duration: duration,
	}, true
}

// emit sends an event without blocking.
func (p *Player) emit(ev playback.BackendEvent) {
	select {
	case <-p.done:
		return
	default:
	}
	select {
	case p.events <- ev:
	default:
		logger.Component("audio").Debug().Msgf("event channel full, dropping %s", ev.Kind)
	}
}

// decode picks a decoder by content type. Unknown types are tried as MP3,
// which is what servers transcode to by default.
func decode(contentType string, rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	mt, params := mediaType(contentType)
	switch mt {
	case "audio/flac", "audio/x-flac":
		s, f, err := flac.Decode(rc)
		if err != nil {
			return nil, beep.Format{}, errors.Mark(errors.Wrap(err, "failed to decode FLAC"), ErrUnsupported)
		}
		return s, f, nil
	case "audio/wav", "audio/wave", "audio/x-wav":
		s, f, err := wav.Decode(rc)
		if err != nil {
			return nil, beep.Format{}, errors.Mark(errors.Wrap(err, "failed to decode WAV"), ErrUnsupported)
		}
		return s, f, nil
	case "audio/l16", "audio/pcm":
		// Raw signed 16-bit little-endian PCM, as returned by TTS services.
		s, f, err := wav.Decode(withWAVHeader(rc, params))
		if err != nil {
			return nil, beep.Format{}, errors.Mark(errors.Wrap(err, "failed to decode PCM"), ErrUnsupported)
		}
		return s, f, nil
	case "", "audio/mpeg", "audio/mp3", "application/octet-stream":
		s, f, err := mp3.Decode(rc)
		if err != nil {
			return nil, beep.Format{}, errors.Mark(errors.Wrap(err, "failed to decode MP3"), ErrUnsupported)
		}
		return s, f, nil
	default:
		return nil, beep.Format{}, errors.Mark(errors.Newf("content type %q", contentType), ErrUnsupported)
	}
}

func mediaType(contentType string) (string, map[string]string) {
	if contentType == "" {
		return "", nil
	}
	mt, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", nil
	}
	return mt, params
}

// withWAVHeader prefixes raw PCM with a RIFF header. Sample rate and
// channel count come from the rate and channels parameters (default
// 24000 Hz mono). The data size is left open-ended.
func withWAVHeader(pcm io.Reader, params map[string]string) io.Reader {
	rate := 24000
	if v, err := strconv.Atoi(params["rate"]); err == nil && v > 0 {
		rate = v
	}
	channels := 1
	if v, err := strconv.Atoi(params["channels"]); err == nil && v > 0 {
		channels = v
	}
	const bitsPerSample = 16
	blockAlign := channels * bitsPerSample / 8

	header := make([]byte, 44)
	copy(header[0:], "RIFF")
	binary.LittleEndian.PutUint32(header[4:], 0xFFFFFFFF)
	copy(header[8:], "WAVE")
	copy(header[12:], "fmt ")
	binary.LittleEndian.PutUint32(header[16:], 16)
	binary.LittleEndian.PutUint16(header[20:], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:], uint32(rate))
	binary.LittleEndian.PutUint32(header[28:], uint32(rate*blockAlign))
	binary.LittleEndian.PutUint16(header[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:], bitsPerSample)
	copy(header[36:], "data")
	binary.LittleEndian.PutUint32(header[40:], 0xFFFFFFFF-36)

	return io.MultiReader(bytes.NewReader(header), pcm)
}

// percentToExponent maps a 0-100 volume to beep's base-2 exponent.
func percentToExponent(percent int) float64 {
	if percent <= 0 {
		return minVolumeDB
	}
	if percent >= 100 {
		return 0
	}
	adjusted := math.Pow(float64(percent)/100, volumeCurve)
	return (1 - adjusted) * minVolumeDB
}
