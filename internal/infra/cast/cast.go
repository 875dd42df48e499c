// Package cast routes the current stream to an external output device by
// running a configured shell command.
package cast

import (
	"context"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/sonicbox/internal/app/playback"
	"github.com/osa030/sonicbox/internal/domain/track"
	"github.com/osa030/sonicbox/internal/infra/logger"
)

// Environment variables passed to cast commands.
const (
	EnvStreamURL   = "SONICBOX_STREAM_URL"
	EnvTrackID     = "SONICBOX_TRACK_ID"
	EnvTrackTitle  = "SONICBOX_TRACK_TITLE"
	EnvTrackArtist = "SONICBOX_TRACK_ARTIST"
)

// CommandConfig represents settings of the command router.
type CommandConfig struct {
	Command     string `yaml:"command" mapstructure:"command" validate:"required"`
	Requires    string `yaml:"requires" mapstructure:"requires"`
	Probe       string `yaml:"probe" mapstructure:"probe"`
	ProbeTTLSec int    `yaml:"probe_ttl_sec" mapstructure:"probe_ttl_sec" default:"30" validate:"gte=0"`
	TimeoutSec  int    `yaml:"timeout_sec" mapstructure:"timeout_sec" default:"10" validate:"gte=1"`
}

// New creates a cast router of the given type. An empty type disables
// casting and returns nil.
func New(typ string, settings map[string]any) (playback.CastRouter, error) {
	switch typ {
	case "":
		return nil, nil
	case "command":
		var cfg CommandConfig
		if err := mapstructure.Decode(settings, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to decode settings")
		}
		if err := defaults.Set(&cfg); err != nil {
			return nil, errors.Wrap(err, "failed to set defaults")
		}
		if err := validator.New().Struct(cfg); err != nil {
			return nil, errors.Wrap(err, "validation failed")
		}
		return NewCommandRouter(cfg), nil
	default:
		return nil, errors.Newf("unsupported cast type: %s", typ)
	}
}

// CommandRouter runs a shell command to start casting.
type CommandRouter struct {
	config CommandConfig

	mu        sync.Mutex
	probedAt  time.Time
	available bool
}

// NewCommandRouter creates a new command router.
func NewCommandRouter(cfg CommandConfig) *CommandRouter {
	return &CommandRouter{config: cfg}
}

// Available reports whether casting can be used. The required binary must
// be on PATH and the probe command, if any, must succeed. Probe results are
// cached for ProbeTTLSec.
func (r *CommandRouter) Available() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ttl := time.Duration(r.config.ProbeTTLSec) * time.Second
	if !r.probedAt.IsZero() && time.Since(r.probedAt) < ttl {
		return r.available
	}

	r.available = r.probe()
	r.probedAt = time.Now()
	return r.available
}

func (r *CommandRouter) probe() bool {
	if r.config.Requires != "" {
		if _, err := exec.LookPath(r.config.Requires); err != nil {
			logger.Component("cast").Debug().Msgf("required binary not found: %s", r.config.Requires)
			return false
		}
	}
	if r.config.Probe == "" {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.config.TimeoutSec)*time.Second)
	defer cancel()

	// Use sh -c to allow shell features like redirection or pipes
	if err := exec.CommandContext(ctx, "sh", "-c", r.config.Probe).Run(); err != nil {
		logger.Component("cast").Debug().Err(err).Msg("availability check failed")
		return false
	}
	return true
}

// Route runs the cast command with the stream URL and track in its
// environment.
func (r *CommandRouter) Route(ctx context.Context, url string, t track.Track) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.config.TimeoutSec)*time.Second)
	defer cancel()

	logger.Component("cast").Info().Msgf("executing command for track=%s", t.DisplayName())

	cmd := exec.CommandContext(ctx, "sh", "-c", r.config.Command)
	cmd.Env = append(os.Environ(),
		EnvStreamURL+"="+url,
		EnvTrackID+"="+t.ID,
		EnvTrackTitle+"="+t.Title,
		EnvTrackArtist+"="+t.Artist,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return errors.Wrap(err, "cast command failed")
	}
	return nil
}
