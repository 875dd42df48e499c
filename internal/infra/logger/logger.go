// Package logger configures the global zerolog logger.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// ComponentField is the field that names the emitting component.
const ComponentField = "component"

// Config represents logger configuration.
type Config struct {
	Output  string // "stdout", "stderr", or "file"
	Level   string // "trace", "debug", "info", "warn", "error"
	File    string // log file path (used when Output is "file")
	NoColor bool   // Disable console colors
}

// console reports whether output goes to a terminal stream.
func (c Config) console() bool {
	switch strings.ToLower(c.Output) {
	case "", "stdout", "stderr":
		return true
	default:
		return false
	}
}

// Init initializes the global zerolog logger with the given configuration.
// Console output is human readable; file output is JSON. Callers are
// recorded at debug and trace levels.
func Init(cfg Config) error {
	writer, err := openWriter(cfg)
	if err != nil {
		return err
	}

	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.TimeOnly
	zerolog.TimestampFieldName = "time"
	zerolog.LevelFieldName = "level"
	zerolog.MessageFieldName = "message"
	zerolog.CallerMarshalFunc = shortCaller

	if cfg.console() {
		writer = consoleWriter(writer, cfg.NoColor, level <= zerolog.DebugLevel)
	}

	ctx := zerolog.New(writer).With().Timestamp()
	if level <= zerolog.DebugLevel {
		ctx = ctx.Caller()
	}
	logger := ctx.Logger()

	zerolog.DefaultContextLogger = &logger
	zlog.Logger = logger
	return nil
}

// Component returns the global logger tagged with a component name. It
// reads the global logger on every call, so it is safe to use before Init.
func Component(name string) *zerolog.Logger {
	l := zlog.Logger.With().Str(ComponentField, name).Logger()
	return &l
}

func openWriter(cfg Config) (io.Writer, error) {
	switch strings.ToLower(cfg.Output) {
	case "stdout", "":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}

	if cfg.File == "" {
		return nil, errors.New("log file path is required for file output")
	}
	if dir := filepath.Dir(cfg.File); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create log directory")
		}
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open log file")
	}
	return f, nil
}

func consoleWriter(out io.Writer, noColor, withCaller bool) zerolog.ConsoleWriter {
	w := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    noColor,
		TimeFormat: time.TimeOnly,
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			ComponentField,
			zerolog.MessageFieldName,
		},
		FieldsExclude: []string{ComponentField},
		FormatPartValueByName: func(v interface{}, _ string) string {
			if name, ok := v.(string); ok && name != "" {
				return "[" + name + "]"
			}
			return ""
		},
	}
	if withCaller {
		w.PartsOrder = append(w.PartsOrder, zerolog.CallerFieldName)
		w.FormatCaller = func(i interface{}) string {
			return "(" + i.(string) + ")"
		}
	}
	return w
}

// shortCaller renders a caller as dir/file.go:line.
func shortCaller(_ uintptr, file string, line int) string {
	parts := strings.Split(file, string(filepath.Separator))
	if len(parts) > 1 {
		return filepath.Join(parts[len(parts)-2:]...) + ":" + strconv.Itoa(line)
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}

// parseLevel parses the log level string.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
