package kit

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Recoverer is chi's panic recovery. Mounted after Logging, the panic and its
// stack go to the request's zap entry.
func Recoverer(next http.Handler) http.Handler {
	return middleware.Recoverer(next)
}

// Logging emits one zap line per request through chi's RequestLogger.
func Logging(log *zap.Logger) func(http.Handler) http.Handler {
	return middleware.RequestLogger(&zapFormatter{log: log})
}

type zapFormatter struct {
	log *zap.Logger
}

func (f *zapFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &zapEntry{
		log: f.log.With(
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
		),
	}
}

type zapEntry struct {
	log *zap.Logger
}

func (e *zapEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ any) {
	if status == 0 {
		status = http.StatusOK
	}

	lvl := e.log.Info
	if status >= http.StatusInternalServerError {
		lvl = e.log.Warn
	}
	lvl("request",
		zap.Int("status", status),
		zap.Int("bytes", bytes),
		zap.Duration("duration", elapsed),
	)
}

func (e *zapEntry) Panic(v any, stack []byte) {
	e.log.Error("handler panic",
		zap.Any("panic", v),
		zap.ByteString("stack", stack),
	)
}
