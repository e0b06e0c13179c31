package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// pathLogFormatter writes one line per request with the path only. Query
// strings are never logged because /ws/events carries the bearer token there.
type pathLogFormatter struct {
	logger middleware.LoggerInterface
}

type pathLogEntry struct {
	logger    middleware.LoggerInterface
	requestID string
	method    string
	path      string
	remote    string
}

func (f *pathLogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &pathLogEntry{
		logger:    f.logger,
		requestID: middleware.GetReqID(r.Context()),
		method:    r.Method,
		path:      r.URL.Path,
		remote:    r.RemoteAddr,
	}
}

func (e *pathLogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	e.logger.Print(fmt.Sprintf("[http] [%s] %s %s from %s - %03d %dB in %s",
		e.requestID, e.method, e.path, e.remote, status, bytes, elapsed))
}

func (e *pathLogEntry) Panic(v interface{}, stack []byte) {
	e.logger.Print(fmt.Sprintf("[http] [%s] panic serving %s %s: %v\n%s", e.requestID, e.method, e.path, v, stack))
}
