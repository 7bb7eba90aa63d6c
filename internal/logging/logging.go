// Package logging configures the process-wide zerolog logger and provides the
// HTTP request logger.
package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/ytanalytics/internal/telemetry"
)

// Output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Init sets the global level and replaces log.Logger. Unknown levels fall
// back to info; any format other than "json" writes human-readable output.
func Init(level, format string) {
	InitWriter(os.Stderr, level, format)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level, format string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = true

	if format != FormatJSON {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Middleware logs each request and records its duration.
// Client addresses are hashed and query strings are never logged.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		duration := time.Since(start)
		route := telemetry.Route(r.URL.Path)
		telemetry.RequestDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).
			Observe(duration.Seconds())

		evt := log.Info()
		switch {
		case rec.status >= 500:
			evt = log.Error()
		case rec.status >= 400:
			evt = log.Warn()
		case route == "/static/*" || route == "/health" || route == "/metrics":
			evt = log.Debug()
		}
		evt.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration_ms", duration).
			Str("ip_hash", hashIP(r.RemoteAddr)).
			Int("bytes_sent", rec.bytes).
			Msg("request")
	})
}

// hashIP returns a short irreversible prefix of the client address.
func hashIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	h := sha256.Sum256([]byte(host))
	return hex.EncodeToString(h[:])[:12]
}
