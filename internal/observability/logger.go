package observability

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// LoggerConfig configures NewLogger.
type LoggerConfig struct {
	Level  string // debug, info, warn or error; empty means info
	Format string // json or console; empty means console
	// Output replaces stderr when set.
	Output  io.Writer
	Service string
	Version string
}

// ParseLevel converts a level name into a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	l, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}

// NewLogger builds a zap logger. The json format uses the production
// encoder, console the development one.
func NewLogger(config LoggerConfig) (*zap.Logger, error) {
	level, err := ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	switch strings.ToLower(config.Format) {
	case FormatJSON:
		zc = zap.NewProductionConfig()
	case FormatConsole, "":
		zc = zap.NewDevelopmentConfig()
		zc.Development = false
		zc.DisableStacktrace = true
	default:
		return nil, fmt.Errorf("invalid log format %q: use %s or %s", config.Format, FormatJSON, FormatConsole)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	var fields []zap.Field
	if config.Service != "" {
		fields = append(fields, zap.String("service", config.Service))
	}
	if config.Version != "" {
		fields = append(fields, zap.String("version", config.Version))
	}

	if config.Output != nil {
		var enc zapcore.Encoder
		if zc.Encoding == FormatJSON {
			enc = zapcore.NewJSONEncoder(zc.EncoderConfig)
		} else {
			enc = zapcore.NewConsoleEncoder(zc.EncoderConfig)
		}
		core := zapcore.NewCore(enc, zapcore.AddSync(config.Output), zc.Level)
		return zap.New(core).With(fields...), nil
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger.With(fields...), nil
}
