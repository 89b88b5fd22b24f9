package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapWriter is an io.Writer that forwards each line to a zap logger at a fixed level.
// It backs the standard library *log.Logger handed to http.Server.ErrorLog.
type ZapWriter struct {
	logger *zap.Logger
	level  zapcore.Level
}

func NewZapWriter(logger *zap.Logger, level zapcore.Level) *ZapWriter {
	return &ZapWriter{logger: logger, level: level}
}

func (w *ZapWriter) Write(p []byte) (int, error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		if ce := w.logger.Check(w.level, msg); ce != nil {
			ce.Write()
		}
	}
	return len(p), nil
}

// GooseLogger adapts zap to the goose migration logger interface.
type GooseLogger struct {
	logger *zap.Logger
}

func NewGooseLogger(logger *zap.Logger) *GooseLogger {
	return &GooseLogger{logger: logger}
}

func (g *GooseLogger) Printf(format string, v ...interface{}) {
	g.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (g *GooseLogger) Fatalf(format string, v ...interface{}) {
	g.logger.Fatal(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
