// Package editorapi exposes the preference editing surface over HTTP. It is
// the programmatic stand-in for a settings panel: read the full snapshot,
// patch boolean flags, inspect agent status. The playback rate is not
// editable here; it is set only through the in-page control.
package editorapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/domtuner/internal/prefs"
)

// Status reports the agent's live enforcement state.
type Status struct {
	Injected      bool    `json:"injected"`
	Override      bool    `json:"override"`
	MasterEnabled bool    `json:"master_enabled"`
	TargetRate    float64 `json:"target_rate"`
}

// Config assembles the API router.
type Config struct {
	Store    *prefs.Store
	Snapshot func() prefs.Snapshot
	// Publish notifies the agent that the listed keys changed, after a
	// successful write.
	Publish func(keys []string)
	Status  func() Status
	Logger  *slog.Logger
}

// NewRouter builds the chi router serving the editor API.
func NewRouter(cfg Config) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &server{cfg: cfg}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(cfg.Logger))

	r.Get("/healthz", s.health)
	r.Get("/api/prefs", s.getPrefs)
	r.Patch("/api/prefs", s.patchPrefs)
	r.Get("/api/status", s.getStatus)

	return r
}

type server struct {
	cfg Config
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *server) getPrefs(w http.ResponseWriter, _ *http.Request) {
	snap := s.cfg.Snapshot()

	out := make(map[string]any, len(prefs.BoolKeys)+1)
	for _, key := range prefs.BoolKeys {
		v, _ := snap.Bool(key)
		out[key] = v
	}
	out[prefs.KeyPlaybackRate] = snap.PlaybackRate

	writeJSON(w, http.StatusOK, out)
}

// patchPrefs accepts a partial update of boolean flags. The playback rate is
// rejected outright rather than ignored, so a misdirected client learns
// immediately that this surface cannot set it.
func (s *server) patchPrefs(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "empty patch")
		return
	}

	rec := make(prefs.Record, len(body))
	for key, raw := range body {
		if key == prefs.KeyPlaybackRate {
			writeError(w, http.StatusUnprocessableEntity,
				"playbackRate is set through the in-page control, not this API")
			return
		}
		if !isBoolKey(key) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown key %q", key))
			return
		}
		v, ok := raw.(bool)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("key %q requires a boolean", key))
			return
		}
		rec[key] = prefs.FormatBool(v)
	}

	s.cfg.Store.Save(r.Context(), rec)

	keys := make([]string, 0, len(rec))
	for key := range rec {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if s.cfg.Publish != nil {
		s.cfg.Publish(keys)
	}

	s.getPrefs(w, r)
}

func (s *server) getStatus(w http.ResponseWriter, _ *http.Request) {
	if s.cfg.Status == nil {
		writeError(w, http.StatusNotFound, "status not wired")
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Status())
}

func isBoolKey(key string) bool {
	for _, k := range prefs.BoolKeys {
		if k == key {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("editorapi: request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}
