package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("encode response failed")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// internalError logs err and writes a generic 500 so internals never leak.
func internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	log.WithFields(log.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"op":     op,
	}).WithError(err).Error("request failed")
	writeError(w, r, http.StatusInternalServerError, "internal server error")
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return errors.New("request body too large")
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		default:
			return errors.New("invalid JSON")
		}
	}
	return nil
}
