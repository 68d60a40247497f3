package middleware

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// statusWriter captures the final HTTP status code and number of bytes written.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Record implicit 200 responses when handlers write without calling WriteHeader.
func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// RequestLogger logs one line per request with its status, size and duration.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}

		next.ServeHTTP(sw, r)

		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		entry := log.WithFields(log.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.status,
			"bytes":       sw.bytes,
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          getClientIP(r),
		})
		switch {
		case sw.status >= 500:
			entry.Error("Request processed")
		case sw.status >= 400:
			entry.Warn("Request processed")
		default:
			entry.Info("Request processed")
		}
	})
}

// Recover turns handler panics into 500 responses.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithFields(log.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
					"panic":  rec,
				}).Error("handler panicked")
				deny(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
