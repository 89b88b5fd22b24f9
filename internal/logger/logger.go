package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	asyncBufferSize    = 1000
	asyncBatchSize     = 100
	asyncFlushInterval = 500 * time.Millisecond
)

// Build constructs the named logger described by cfg. Console output uses a colored
// console encoder; file outputs are JSON, rotated by lumberjack when enabled and
// optionally written through an AsyncCore.
func Build(name string, cfg Config) (*zap.Logger, error) {
	ApplyDefaults(&cfg)

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        cfg.Encoding.TimeKey,
		LevelKey:       cfg.Encoding.LevelKey,
		NameKey:        cfg.Encoding.NameKey,
		CallerKey:      cfg.Encoding.CallerKey,
		MessageKey:     cfg.Encoding.MessageKey,
		StacktraceKey:  cfg.Encoding.StacktraceKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    levelEncoder(cfg.Encoding.LevelEncoder),
		EncodeTime:     timeEncoder(cfg.Encoding.TimeEncoder),
		EncodeDuration: durationEncoder(cfg.Encoding.DurationEncoder),
		EncodeCaller:   callerEncoder(cfg.Encoding.CallerEncoder),
	}

	level := zap.NewAtomicLevelAt(ParseLevel(cfg.Level))

	var cores []zapcore.Core
	for _, path := range cfg.OutputPaths {
		switch path {
		case "stdout", "stderr":
			if !cfg.LogToConsole && !cfg.Development {
				// JSON to the stream for log shippers
				ws := zapcore.Lock(stream(path))
				cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), ws, level))
				continue
			}
			consoleConfig := encoderConfig
			consoleConfig.EncodeLevel = coloredLevelEncoder
			ws := zapcore.Lock(stream(path))
			cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), ws, level))
		default:
			ws, err := fileSyncer(path, cfg.LogRotation)
			if err != nil {
				return nil, err
			}
			var core zapcore.Core = zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), ws, level)
			if cfg.Async {
				core = NewAsyncCore(core, asyncBufferSize, asyncBatchSize, asyncFlushInterval)
			}
			cores = append(cores, core)
		}
	}

	core := zapcore.NewTee(cores...)
	if len(cfg.Sanitization.SensitiveFields) > 0 {
		core = NewSanitizerCore(core, cfg.Sanitization.SensitiveFields, cfg.Sanitization.Mask)
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}

	return zap.New(core, opts...).Named(name), nil
}

func stream(path string) *os.File {
	if path == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

func fileSyncer(path string, rotation LogRotation) (zapcore.WriteSyncer, error) {
	if rotation.Enabled {
		return zapcore.AddSync(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    rotation.MaxSizeMB,
			MaxBackups: rotation.MaxBackups,
			MaxAge:     rotation.MaxAgeDays,
			Compress:   rotation.Compress,
		}), nil
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %q: %w", path, err)
	}
	return zapcore.AddSync(file), nil
}

// ParseLevel maps a level name to zapcore.Level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	case "dpanic":
		return zap.DPanicLevel
	case "panic":
		return zap.PanicLevel
	case "fatal":
		return zap.FatalLevel
	default:
		return zap.InfoLevel
	}
}

func levelEncoder(name string) zapcore.LevelEncoder {
	switch strings.ToLower(name) {
	case "uppercase", "capital":
		return zapcore.CapitalLevelEncoder
	default:
		return zapcore.LowercaseLevelEncoder
	}
}

func timeEncoder(name string) zapcore.TimeEncoder {
	switch strings.ToLower(name) {
	case "epoch":
		return zapcore.EpochTimeEncoder
	case "millis":
		return zapcore.EpochMillisTimeEncoder
	case "nanos":
		return zapcore.EpochNanosTimeEncoder
	case "rfc3339":
		return zapcore.RFC3339TimeEncoder
	default:
		return zapcore.ISO8601TimeEncoder
	}
}

func durationEncoder(name string) zapcore.DurationEncoder {
	switch strings.ToLower(name) {
	case "seconds":
		return zapcore.SecondsDurationEncoder
	case "millis":
		return zapcore.MillisDurationEncoder
	case "nanos":
		return zapcore.NanosDurationEncoder
	default:
		return zapcore.StringDurationEncoder
	}
}

func callerEncoder(name string) zapcore.CallerEncoder {
	if strings.ToLower(name) == "full" {
		return zapcore.FullCallerEncoder
	}
	return zapcore.ShortCallerEncoder
}

// console only
func coloredLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	color := ""
	switch l {
	case zapcore.DebugLevel:
		color = "\x1b[36m"
	case zapcore.InfoLevel:
		color = "\x1b[32m"
	case zapcore.WarnLevel:
		color = "\x1b[33m"
	case zapcore.ErrorLevel:
		color = "\x1b[31m"
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		color = "\x1b[35m"
	}
	if color == "" {
		enc.AppendString(l.String())
		return
	}
	enc.AppendString(color + l.String() + "\x1b[0m")
}
