package announcer

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/sonicbox/internal/app/playback"
	"github.com/osa030/sonicbox/internal/domain/track"
	"github.com/osa030/sonicbox/internal/infra/config"
)

// ErrAllFailed is returned when no announcer in a chain produced a clip.
var ErrAllFailed = errors.New("announcer: all announcers failed")

// Named wraps an announcer with its display name.
type Named struct {
	Announcer   playback.Announcer
	DisplayName string
}

// Chain tries announcers in order until one produces a clip.
type Chain struct {
	announcers []Named
}

// NewChain creates a new announcer chain.
func NewChain(announcers []Named) *Chain {
	return &Chain{announcers: announcers}
}

// Announce implements playback.Announcer.
func (c *Chain) Announce(ctx context.Context, t track.Track) (playback.Clip, error) {
	for i, a := range c.announcers {
		if err := ctx.Err(); err != nil {
			return playback.Clip{}, err
		}

		zlog.Debug().Msgf("announcer: trying: index=%d total=%d name=%s", i+1, len(c.announcers), a.DisplayName)

		clip, err := a.Announcer.Announce(ctx, t)
		if err != nil {
			zlog.Warn().Msgf("announcer: failed, trying next: name=%s error=%v", a.DisplayName, err)
			continue
		}
		return clip, nil
	}
	return playback.Clip{}, ErrAllFailed
}

// NewFromConfig creates announcers from configuration. No entries disables
// announcements and returns nil; a single entry is used directly.
func NewFromConfig(cfgs []config.ProviderConfig) (playback.Announcer, error) {
	var announcers []Named

	for i, pcfg := range cfgs {
		a, err := New(pcfg.Type, pcfg.Settings)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create announcer (index %d, type %s)", i, pcfg.Type)
		}
		if a == nil {
			continue
		}

		name := pcfg.DisplayName
		if name == "" {
			name = pcfg.Type
		}
		announcers = append(announcers, Named{Announcer: a, DisplayName: name})
		zlog.Info().Msgf("announcer: registered: index=%d type=%s display_name=%s", i+1, pcfg.Type, name)
	}

	switch len(announcers) {
	case 0:
		return nil, nil
	case 1:
		return announcers[0].Announcer, nil
	default:
		return NewChain(announcers), nil
	}
}
