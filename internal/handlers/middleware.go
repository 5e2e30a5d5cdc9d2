package handlers

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"tinytactics/internal/arbiter"
	"tinytactics/internal/mode"
	"tinytactics/internal/puzzle"
	"tinytactics/internal/session"
)

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fail writes {"ok": false} with the error and, when known, the state.
func fail(w http.ResponseWriter, err error, state *session.Snapshot) {
	body := map[string]any{"ok": false, "error": err.Error()}
	if state != nil {
		body["state"] = state
	}
	WriteJSON(w, statusFor(err), body)
}

// statusFor maps domain errors to HTTP statuses. Gameplay refusals stay
// 200 so clients can render the returned state.
func statusFor(err error) int {
	switch {
	case errors.Is(err, arbiter.ErrIllegalMove),
		errors.Is(err, session.ErrSessionEnded),
		errors.Is(err, session.ErrNoHints),
		errors.Is(err, session.ErrConfirmRequired):
		return http.StatusOK
	case errors.Is(err, mode.ErrUnknownMode), errors.Is(err, puzzle.ErrBadName):
		return http.StatusBadRequest
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNoPuzzles):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// LogRequests logs every request at debug level and failures at warn.
func LogRequests(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		attrs := []any{"method", r.Method, "path", r.URL.Path, "status", sw.status,
			"duration", time.Since(start), "client", ClientIP(r)}
		if sw.status >= http.StatusInternalServerError {
			log.Warn("request failed", attrs...)
			return
		}
		log.Debug("request", attrs...)
	})
}
