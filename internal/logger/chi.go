package logger

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// quietPaths are not logged on success.
var quietPaths = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

// RequestLogger returns chi middleware that writes one zerolog event per
// request. It must be installed after middleware.RequestID.
func RequestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return middleware.RequestLogger(logFormatter{log: log})
}

type logFormatter struct {
	log zerolog.Logger
}

func (f logFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return logEntry{
		log: f.log.With().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("from", r.RemoteAddr).
			Str("user_agent", r.UserAgent()).
			Logger(),
		path: r.URL.Path,
	}
}

type logEntry struct {
	log  zerolog.Logger
	path string
}

func (e logEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ any) {
	level := zerolog.InfoLevel
	switch {
	case status >= http.StatusInternalServerError:
		level = zerolog.ErrorLevel
	case status >= http.StatusBadRequest:
		level = zerolog.WarnLevel
	case quietPaths[e.path]:
		return
	}

	e.log.WithLevel(level).
		Int("status", status).
		Int("bytes", bytes).
		Dur("duration", elapsed).
		Msg("request")
}

func (e logEntry) Panic(v any, stack []byte) {
	e.log.Error().
		Interface("panic", v).
		Bytes("stack", stack).
		Msg("request panicked")
}
