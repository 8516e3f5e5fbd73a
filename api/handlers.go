package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"chosen-one-server/autohost"
	"chosen-one-server/challenge"
	"chosen-one-server/config"
	"chosen-one-server/game"
	"chosen-one-server/lobby"
	"chosen-one-server/session"
	"chosen-one-server/sessionerrors"
)

// snapshotWait bounds how long a state request waits for the session loop.
const snapshotWait = 2 * time.Second

// SessionSource is what the handlers need from the lobby.
type SessionSource interface {
	List() []lobby.Summary
	Get(id string) (*session.Session, error)
	GamesWon() int64
}

// Handler holds dependencies for API handlers.
type Handler struct {
	Config   *config.Config
	Sessions SessionSource
}

// NewHandler creates a new API handler with the given dependencies.
func NewHandler(cfg *config.Config, sessions SessionSource) *Handler {
	return &Handler{
		Config:   cfg,
		Sessions: sessions,
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/api/defaults", h.Defaults)
	mux.HandleFunc("/api/sessions", h.ListSessions)
	mux.HandleFunc("/api/sessions/{id}/state", h.SessionState)
}

// CORS sets CORS headers on the response. Call before writing body.
func CORS(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

// allowGet handles CORS preflight and rejects everything but GET. It reports whether to continue.
func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if CORS(w, r) {
		return false
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "tag", "api", "error", err)
	}
}

// Health reports that the server is up.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// DefaultsResponse is the JSON structure for /api/defaults.
type DefaultsResponse struct {
	DefaultTotalPlayers int      `json:"defaultTotalPlayers"`
	MaxTotalPlayers     int      `json:"maxTotalPlayers"`
	VictimRevealDelayMS int      `json:"victimRevealDelayMs"`
	MathPhaseAbove      int      `json:"mathPhaseAbove"`
	ChallengePhaseMin   int      `json:"challengePhaseMin"`
	MaxVictimsPerRound  int      `json:"maxVictimsPerRound"`
	Challenges          []string `json:"challenges"`
	Strategies          []string `json:"strategies"`
}

// Defaults returns the game settings a host console needs before starting a game.
func (h *Handler) Defaults(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	writeJSON(w, DefaultsResponse{
		DefaultTotalPlayers: h.Config.DefaultTotalPlayers,
		MaxTotalPlayers:     h.Config.MaxTotalPlayers,
		VictimRevealDelayMS: h.Config.VictimRevealDelayMS,
		MathPhaseAbove:      game.MathPhaseAbove,
		ChallengePhaseMin:   game.ChallengePhaseMin,
		MaxVictimsPerRound:  game.MaxVictimsPerRound,
		Challenges:          challenge.FromTexts(h.Config.Challenges).All(),
		Strategies:          autohost.Names(),
	})
}

// SessionsResponse is the JSON structure for /api/sessions.
type SessionsResponse struct {
	Sessions []lobby.Summary `json:"sessions"`
	GamesWon int64           `json:"gamesWon"`
}

// ListSessions returns the open sessions, oldest first.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	writeJSON(w, SessionsResponse{Sessions: h.Sessions.List(), GamesWon: h.Sessions.GamesWon()})
}

// SessionState returns the current snapshot of one session.
func (h *Handler) SessionState(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	s, err := h.Sessions.Get(r.PathValue("id"))
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), snapshotWait)
	defer cancel()
	snap, err := s.Snapshot(ctx)
	switch {
	case errors.Is(err, sessionerrors.ErrSessionClosed):
		http.Error(w, "session closed", http.StatusGone)
		return
	case err != nil:
		slog.Warn("session snapshot", "tag", "api", "session", s.ID, "error", err)
		http.Error(w, "failed to load state", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, snap)
}
