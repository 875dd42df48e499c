package cast

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/sonicbox/internal/domain/track"
)

func TestNew(t *testing.T) {
	r, err := New("", nil)
	require.NoError(t, err)
	assert.Nil(t, r)

	_, err = New("chromecast", nil)
	assert.Error(t, err)

	_, err = New("command", map[string]any{})
	assert.Error(t, err, "command is required")

	r, err = New("command", map[string]any{"command": "true"})
	require.NoError(t, err)
	router, ok := r.(*CommandRouter)
	require.True(t, ok)
	assert.Equal(t, 30, router.config.ProbeTTLSec)
	assert.Equal(t, 10, router.config.TimeoutSec)
}

func TestCommandRouter_Available(t *testing.T) {
	tests := []struct {
		name     string
		config   CommandConfig
		expected bool
	}{
		{name: "no probe", config: CommandConfig{Command: "true", TimeoutSec: 5}, expected: true},
		{name: "probe succeeds", config: CommandConfig{Command: "true", Probe: "exit 0", TimeoutSec: 5}, expected: true},
		{name: "probe fails", config: CommandConfig{Command: "true", Probe: "exit 3", TimeoutSec: 5}, expected: false},
		{name: "missing binary", config: CommandConfig{Command: "true", Requires: "definitely-not-installed-binary", TimeoutSec: 5}, expected: false},
		{name: "present binary", config: CommandConfig{Command: "true", Requires: "sh", TimeoutSec: 5}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewCommandRouter(tt.config).Available())
		})
	}
}

func TestCommandRouter_AvailableCachesProbe(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "probe")
	r := NewCommandRouter(CommandConfig{
		Command:     "true",
		Probe:       "test ! -e " + marker,
		ProbeTTLSec: 60,
		TimeoutSec:  5,
	})

	assert.True(t, r.Available())
	require.NoError(t, os.WriteFile(marker, nil, 0o600))
	assert.True(t, r.Available(), "cached result is reused within the TTL")
}

func TestCommandRouter_Route(t *testing.T) {
	out := filepath.Join(t.TempDir(), "cast.txt")
	r := NewCommandRouter(CommandConfig{
		Command:    `printf '%s|%s|%s' "$SONICBOX_STREAM_URL" "$SONICBOX_TRACK_ID" "$SONICBOX_TRACK_TITLE" > ` + out,
		TimeoutSec: 5,
	})

	err := r.Route(context.Background(), "https://music.example.com/rest/stream.view?id=7", track.Track{ID: "7", Title: "Seven"})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "https://music.example.com/rest/stream.view?id=7|7|Seven", strings.TrimSpace(string(data)))
}

func TestCommandRouter_RouteFailure(t *testing.T) {
	r := NewCommandRouter(CommandConfig{Command: "exit 1", TimeoutSec: 5})

	err := r.Route(context.Background(), "http://x", track.Track{ID: "1"})
	assert.Error(t, err)
}
