package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// FieldApp names the running binary.
	FieldApp = "app"
	// FieldVersion is the build version of the binary.
	FieldVersion = "version"
)

// Options control the application logger.
type Options struct {
	JSON bool
	// Debug forces the debug level regardless of Level.
	Debug bool
	// Level is a zap level name, info when empty.
	Level   string
	App     string
	Version string
}

// level resolves the effective level.
func (o Options) level() (zapcore.Level, error) {
	if o.Debug {
		return zapcore.DebugLevel, nil
	}
	name := strings.TrimSpace(o.Level)
	if name == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return level, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

// New builds the application logger. It writes to stderr so command output
// on stdout stays clean, and tags every entry with the app and version.
func New(opts Options) (*zap.Logger, error) {
	level, err := opts.level()
	if err != nil {
		return nil, err
	}

	encoding := "console"
	if opts.JSON {
		encoding = "json"
	}

	cfg := zap.Config{
		Encoding:         encoding,
		Level:            zap.NewAtomicLevelAt(level),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		InitialFields:    initialFields(opts),
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "step",

			LevelKey:    "level",
			EncodeLevel: zapcore.LowercaseLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.RFC3339TimeEncoder,

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,
		},
	}
	return cfg.Build()
}

func initialFields(opts Options) map[string]any {
	fields := make(map[string]any)
	for _, f := range StringFields(
		StringField{Key: FieldApp, Value: opts.App},
		StringField{Key: FieldVersion, Value: opts.Version},
	) {
		fields[f.Key] = f.String
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// ForSession returns a child logger tagged with the session and its phase.
func ForSession(logger *zap.Logger, sessionID, phase string) *zap.Logger {
	return WithFields(logger, SessionFields(sessionID, phase)...)
}
