package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"", zerolog.InfoLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestInit_FileOutput(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	path := filepath.Join(t.TempDir(), "sonicbox.log")
	require.NoError(t, Init(Config{Output: "file", Level: "debug", File: path}))

	zlog.Debug().Msg("logger: test message")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"logger: test message"`)
	assert.Contains(t, string(data), `"caller"`)
}

func TestInit_FileOutputRequiresPath(t *testing.T) {
	err := Init(Config{Output: "file"})
	assert.Error(t, err)
}

func TestComponent(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	path := filepath.Join(t.TempDir(), "sonicbox.log")
	require.NoError(t, Init(Config{Output: "file", Level: "info", File: path}))

	Component("audio").Info().Msg("loaded stream")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"audio"`)
	assert.Contains(t, string(data), `"message":"loaded stream"`)
	assert.NotContains(t, string(data), `"caller"`)
}

func TestConsoleWriter_Component(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(consoleWriter(&buf, true, false)).With().Str(ComponentField, "cast").Logger()

	l.Info().Str("track", "t1").Msg("executing command")
	l.Info().Msg("no component")

	out := buf.String()
	assert.Contains(t, out, "[cast] executing command")
	assert.Contains(t, out, "track=t1")
	assert.NotContains(t, out, "component=")
}
