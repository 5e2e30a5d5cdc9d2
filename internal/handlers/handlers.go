package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tinytactics/internal/game"
	"tinytactics/internal/logging"
	"tinytactics/internal/mode"
	"tinytactics/internal/progress"
	"tinytactics/internal/puzzle"
	"tinytactics/internal/session"
	"tinytactics/internal/srs"
	"tinytactics/internal/storage"
)

// Handler contains dependencies for HTTP handlers
type Handler struct {
	Hub      *game.Hub
	Library  *puzzle.Library
	Registry *mode.Registry
	Progress *progress.Repository
	Recorder storage.Recorder

	SRS          srs.Config
	Seed         uint64
	TickInterval time.Duration
	Logger       *slog.Logger
}

// Routes registers every endpoint on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /new", h.HandleNew)
	mux.HandleFunc("GET /sse/{id}", h.HandleSSE)
	mux.HandleFunc("GET /state/{id}", h.HandleState)
	mux.HandleFunc("POST /move/{id}", h.HandleMove)
	mux.HandleFunc("POST /hint/{id}", h.HandleHint)
	mux.HandleFunc("POST /mode/{id}", h.HandleMode)
	mux.HandleFunc("POST /reset/{id}", h.HandleReset)
	mux.HandleFunc("POST /stop/{id}", h.HandleStop)
	mux.HandleFunc("GET /puzzles", h.HandlePuzzles)
	mux.HandleFunc("GET /modes", h.HandleModes)
	mux.HandleFunc("POST /clear/{file}", h.HandleClear)
	mux.HandleFunc("GET /stats", h.HandleStats)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	return mux
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// game looks up the session named in the path and marks it as used.
func (h *Handler) game(w http.ResponseWriter, r *http.Request) (*game.Game, bool) {
	g, ok := h.Hub.Get(r.PathValue("id"))
	if !ok {
		WriteJSON(w, http.StatusNotFound, map[string]any{"ok": false, "error": "unknown session"})
		return nil, false
	}
	g.Touch()
	return g, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad json"})
		return false
	}
	return true
}

// HandleNew starts a session on a puzzle file.
func (h *Handler) HandleNew(w http.ResponseWriter, r *http.Request) {
	var req game.NewRequest
	if !decode(w, r, &req) {
		return
	}
	src, err := h.Library.Load(strings.TrimSpace(req.File))
	if err != nil {
		fail(w, err, nil)
		return
	}
	opts := session.Options{
		Source:       src,
		Registry:     h.Registry,
		Mode:         mode.ID(req.Mode),
		Resume:       req.Resume,
		Recorder:     h.Recorder,
		SRS:          h.SRS,
		Seed:         h.Seed,
		TickInterval: h.TickInterval,
		Logger:       h.logger(),
	}
	if h.Progress != nil {
		opts.Progress = h.Progress
	}
	g, err := h.Hub.Create(r.Context(), opts)
	if err != nil {
		fail(w, err, nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "id": g.Session().ID().String(), "state": g.Session().State()})
}

// HandleSSE handles Server-Sent Events for real-time session updates
func (h *Handler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	g, ok := h.game(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan []byte, 16)
	g.AddWatcher(ch)
	defer g.RemoveWatcher(ch)
	defer g.Touch()

	initial, _ := json.Marshal(g.Session().State())
	_, _ = fmt.Fprintf(w, "data: %s\n\n", initial)
	flusher.Flush()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-g.Done():
			return
		case <-ticker.C:
			// heartbeat
			_, _ = w.Write([]byte("data: {}\n\n"))
			flusher.Flush()
		case msg := <-ch:
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(msg)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}

// HandleState returns the current snapshot.
func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	g, ok := h.game(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "state": g.Session().State()})
}

// HandleMove judges a move in SAN or UCI.
func (h *Handler) HandleMove(w http.ResponseWriter, r *http.Request) {
	g, ok := h.game(w, r)
	if !ok {
		return
	}
	var m game.MoveRequest
	if !decode(w, r, &m) {
		return
	}
	move := strings.TrimSpace(m.Move)
	if move == "" {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "missing move"})
		return
	}

	res, err := g.Session().Move(r.Context(), move)
	if err != nil {
		logging.Debugf("move %s on %s: %v", move, r.PathValue("id"), err)
		fail(w, err, &res.State)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": res.Outcome == session.OutcomeCorrect, "result": res, "state": res.State})
}

// HandleHint reveals the expected move.
func (h *Handler) HandleHint(w http.ResponseWriter, r *http.Request) {
	g, ok := h.game(w, r)
	if !ok {
		return
	}
	uci, err := g.Session().Hint(r.Context())
	state := g.Session().State()
	if err != nil {
		fail(w, err, &state)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "hint": game.HintPayload{UCI: uci, State: state}, "state": state})
}

// HandleMode switches the session to another mode.
func (h *Handler) HandleMode(w http.ResponseWriter, r *http.Request) {
	g, ok := h.game(w, r)
	if !ok {
		return
	}
	var m game.ModeRequest
	if !decode(w, r, &m) {
		return
	}
	err := g.Session().SwitchMode(r.Context(), mode.ID(m.Mode), m.Confirm)
	state := g.Session().State()
	if err != nil {
		fail(w, err, &state)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "state": state})
}

// HandleReset restarts the current mode from the first puzzle.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.gesture(w, r, (*session.Session).Reset)
}

// HandleStop ends the run, keeping resumable progress.
func (h *Handler) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.gesture(w, r, (*session.Session).Stop)
}

func (h *Handler) gesture(w http.ResponseWriter, r *http.Request, fn func(*session.Session, context.Context) error) {
	g, ok := h.game(w, r)
	if !ok {
		return
	}
	err := fn(g.Session(), r.Context())
	state := g.Session().State()
	if err != nil {
		fail(w, err, &state)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "state": state})
}

// PuzzleFile describes one file of the library.
type PuzzleFile struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	Count       int    `json:"count"`
	HasProgress bool   `json:"hasProgress"`
	Error       string `json:"error,omitempty"`
}

// HandlePuzzles lists the puzzle files.
func (h *Handler) HandlePuzzles(w http.ResponseWriter, r *http.Request) {
	names, err := h.Library.List()
	if err != nil {
		fail(w, err, nil)
		return
	}
	files := make([]PuzzleFile, 0, len(names))
	for _, name := range names {
		f := PuzzleFile{Name: name, ID: puzzle.SourceID(name)}
		if src, err := h.Library.Load(name); err != nil {
			f.Error = err.Error()
		} else {
			f.Count = src.Len()
		}
		if h.Progress != nil {
			f.HasProgress = h.Progress.HasProgress(r.Context(), f.ID)
		}
		files = append(files, f)
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "puzzles": files})
}

// HandleModes lists the registered modes.
func (h *Handler) HandleModes(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "modes": h.Registry.Definitions()})
}

// HandleClear deletes saved progress for a puzzle file. Live sessions on
// the file restart from scratch.
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	if err := puzzle.CheckName(file); err != nil {
		fail(w, err, nil)
		return
	}
	id := puzzle.SourceID(file)
	if h.Progress != nil {
		if err := h.Progress.Clear(r.Context(), id); err != nil {
			fail(w, err, nil)
			return
		}
	}

	h.Hub.Mu.Lock()
	var live []*game.Game
	for _, g := range h.Hub.Games {
		if g.Session().Source().ID == id {
			live = append(live, g)
		}
	}
	h.Hub.Mu.Unlock()

	for _, g := range live {
		if err := g.Session().ClearProgress(r.Context()); err != nil {
			h.logger().Warn("clear live session", "session", g.Session().ID().String(), "error", err)
		}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "cleared": file, "sessions": len(live)})
}

// HandleStats reports the recorded session history.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if h.Recorder == nil {
		WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "stats": storage.Stats{}, "live": h.Hub.Len()})
		return
	}
	st, err := h.Recorder.FetchStats(r.Context())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fail(w, err, nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "stats": st, "live": h.Hub.Len()})
}

// ClientIP extracts the client IP from the request
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
