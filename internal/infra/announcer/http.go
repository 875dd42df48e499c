package announcer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/sonicbox/internal/app/playback"
	"github.com/osa030/sonicbox/internal/domain/track"
)

const maxClipBytes = 8 << 20

// HTTPConfig represents settings for a generic text-to-speech endpoint.
// The endpoint receives {"text": ..., "voice": ...} and answers with audio.
type HTTPConfig struct {
	URL        string            `yaml:"url" mapstructure:"url" validate:"required,url"`
	Voice      string            `yaml:"voice" mapstructure:"voice"`
	Prompt     string            `yaml:"prompt" mapstructure:"prompt"`
	Headers    map[string]string `yaml:"headers" mapstructure:"headers"`
	TimeoutSec int               `yaml:"timeout_sec" mapstructure:"timeout_sec" default:"15" validate:"gte=1"`
}

// HTTP speaks announcements through a generic endpoint.
type HTTP struct {
	config     HTTPConfig
	httpClient *http.Client
}

// NewHTTP creates a new HTTP announcer.
func NewHTTP(cfg HTTPConfig) *HTTP {
	if cfg.Prompt == "" {
		cfg.Prompt = "Now playing {title} by {artist}."
	}
	return &HTTP{
		config:     cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
	}
}

// Announce implements playback.Announcer.
func (h *HTTP) Announce(ctx context.Context, t track.Track) (playback.Clip, error) {
	text := renderPrompt(h.config.Prompt, t)

	payload, err := json.Marshal(map[string]string{"text": text, "voice": h.config.Voice})
	if err != nil {
		return playback.Clip{}, errors.Wrap(err, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.config.URL, bytes.NewReader(payload))
	if err != nil {
		return playback.Clip{}, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range h.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return playback.Clip{}, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return playback.Clip{}, errors.Newf("announcer endpoint returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxClipBytes))
	if err != nil {
		return playback.Clip{}, errors.Wrap(err, "failed to read response body")
	}
	if len(data) == 0 {
		return playback.Clip{}, ErrNoAudio
	}

	return playback.Clip{Text: text, MimeType: resp.Header.Get("Content-Type"), Data: data}, nil
}
