// Package announcer produces spoken track introductions from text-to-speech
// services.
package announcer

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/sonicbox/internal/app/playback"
	"github.com/osa030/sonicbox/internal/domain/track"
)

// DefaultPrompt is the announcement prompt used when none is configured.
const DefaultPrompt = `You are an energetic radio DJ. Announce the song "{title}" by {artist}. At most 10 seconds. Voice only, no sound effects.`

// ErrNoAudio is returned when the service answered without audio data.
var ErrNoAudio = errors.New("announcer: response contains no audio")

// New creates an announcer of the given type. An empty type disables
// announcements and returns nil.
func New(typ string, settings map[string]any) (playback.Announcer, error) {
	switch typ {
	case "":
		return nil, nil
	case "gemini":
		var cfg GeminiConfig
		if err := decodeSettings(settings, &cfg); err != nil {
			return nil, errors.Wrap(err, "invalid gemini announcer settings")
		}
		zlog.Info().Msgf("announcer: using gemini: model=%s voice=%s", cfg.Model, cfg.Voice)
		return NewGemini(cfg), nil
	case "http":
		var cfg HTTPConfig
		if err := decodeSettings(settings, &cfg); err != nil {
			return nil, errors.Wrap(err, "invalid http announcer settings")
		}
		zlog.Info().Msgf("announcer: using http endpoint: url=%s", cfg.URL)
		return NewHTTP(cfg), nil
	default:
		return nil, errors.Newf("unsupported announcer type: %s", typ)
	}
}

// decodeSettings decodes, defaults and validates provider settings.
func decodeSettings(settings map[string]any, out any) error {
	if err := mapstructure.Decode(settings, out); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if g, ok := out.(*GeminiConfig); ok && g.APIKey == "" {
		g.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

// renderPrompt substitutes {title}, {artist} and {album}.
func renderPrompt(prompt string, t track.Track) string {
	title := t.Title
	if title == "" {
		title = "this track"
	}
	artist := t.Artist
	if artist == "" {
		artist = "an unknown artist"
	}
	return strings.NewReplacer(
		"{title}", title,
		"{artist}", artist,
		"{album}", t.Album,
	).Replace(prompt)
}
