package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/folnerty/mini-app/internal/app"
	"github.com/folnerty/mini-app/internal/domain"
)

// Handler exposes the round lifecycle to the mini-app frontend over REST,
// plus a websocket feed of leaderboard updates.
type Handler struct {
	service *app.GameService
	log     zerolog.Logger
	hub     *hub
}

func NewHandler(service *app.GameService, log zerolog.Logger) *Handler {
	return &Handler{service: service, log: log, hub: newHub()}
}

// Router wires the HTTP surface.
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/round", h.handleStartRound)
	mux.HandleFunc("/api/round/result", h.handleFinishRound)
	mux.HandleFunc("/api/stats", h.handleStats)
	mux.HandleFunc("/api/leaderboard", h.handleLeaderboard)
	mux.HandleFunc("/ws", h.serveWS)
	return mux
}

type roundResultRequest struct {
	User      *domain.Identity  `json:"user,omitempty"`
	Questions []domain.Question `json:"questions"`
	Answers   []int             `json:"answers"`
	TimeSpent []int             `json:"timeSpent"`
}

func (h *Handler) handleStartRound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	questions, err := h.service.StartRound(r.Context(), identityFromQuery(r))
	if err != nil {
		h.log.Error().Err(err).Msg("start round failed")
		http.Error(w, "question bank unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, questions)
}

func (h *Handler) handleFinishRound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req roundResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid round payload", http.StatusBadRequest)
		return
	}
	outcome, err := h.service.FinishRound(r.Context(), req.User, domain.RoundResult{
		Questions: req.Questions,
		Answers:   req.Answers,
		TimeSpent: req.TimeSpent,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.hub.broadcast(outcome.Board)
	writeJSON(w, outcome)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, h.service.Stats(r.Context(), identityFromQuery(r)))
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	board := h.service.Leaderboard(r.Context())
	writeJSON(w, leaderboardView{
		Entries: board,
		Rank:    rankFromQuery(board, r),
	})
}

type leaderboardView struct {
	Entries []domain.LeaderboardEntry `json:"entries"`
	Rank    int                       `json:"rank"`
}

// identityFromQuery builds the optional platform identity from query
// params; absence means the guest path.
func identityFromQuery(r *http.Request) *domain.Identity {
	raw := r.URL.Query().Get("userId")
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &domain.Identity{
		ID:        id,
		FirstName: r.URL.Query().Get("firstName"),
		LastName:  r.URL.Query().Get("lastName"),
		Avatar:    r.URL.Query().Get("avatar"),
	}
}

func rankFromQuery(board []domain.LeaderboardEntry, r *http.Request) int {
	user := identityFromQuery(r)
	if user == nil {
		return 0
	}
	return app.RankOf(board, user.Key())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
