package logger

import (
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Logger writes JSON lines with a level, a message and a flat field map.
type Logger struct {
	zl zerolog.Logger
}

// New builds a logger writing to w. An unknown level falls back to info.
func New(w io.Writer, level string) *Logger {
	if w == nil {
		w = os.Stdout
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	zl := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// Nop discards everything. Used by tests and optional dependencies.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger that always carries fields.
func (l *Logger) With(fields map[string]any) *Logger {
	return &Logger{zl: l.zl.With().Fields(fields).Logger()}
}

func (l *Logger) Debug(msg string, fields map[string]any) {
	l.zl.Debug().Fields(fields).Msg(msg)
}

func (l *Logger) Info(msg string, fields map[string]any) {
	l.zl.Info().Fields(fields).Msg(msg)
}

func (l *Logger) Warn(msg string, fields map[string]any) {
	l.zl.Warn().Fields(fields).Msg(msg)
}

func (l *Logger) Error(msg string, fields map[string]any) {
	l.zl.Error().Fields(fields).Msg(msg)
}

// Fatal logs and exits the process with status 1.
func (l *Logger) Fatal(msg string, fields map[string]any) {
	l.zl.WithLevel(zerolog.FatalLevel).Fields(fields).Msg(msg)
	os.Exit(1)
}

// GinMiddleware logs one line per request after the handler chain ran.
func (l *Logger) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]any{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"ip":       c.ClientIP(),
			"duration": time.Since(start).String(),
		}

		if c.Writer.Status() >= 500 {
			l.Error("request", fields)
			return
		}
		l.Info("request", fields)
	}
}
