package http

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/folnerty/mini-app/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type boardMessage struct {
	Type    string                    `json:"type"`
	Entries []domain.LeaderboardEntry `json:"entries"`
}

// hub fans leaderboard snapshots out to connected websocket clients.
type hub struct {
	mu    sync.Mutex
	conns map[chan []domain.LeaderboardEntry]struct{}
}

func newHub() *hub {
	return &hub{conns: make(map[chan []domain.LeaderboardEntry]struct{})}
}

func (h *hub) subscribe() (chan []domain.LeaderboardEntry, func()) {
	ch := make(chan []domain.LeaderboardEntry, 8)
	h.mu.Lock()
	h.conns[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.conns[ch]; ok {
			delete(h.conns, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *hub) broadcast(board []domain.LeaderboardEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.conns {
		select {
		case ch <- board:
		default:
			// drop the stale snapshot so a slow client never blocks the round
			select {
			case <-ch:
			default:
			}
			ch <- board
		}
	}
}

// serveWS upgrades the connection and streams leaderboard snapshots,
// starting with the current one.
func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel := h.hub.subscribe()
	defer cancel()

	initial := h.service.Leaderboard(r.Context())
	if err := conn.WriteJSON(boardMessage{Type: "leaderboard", Entries: initial}); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		// the client sends nothing meaningful; the read loop detects closure
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case board, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(boardMessage{Type: "leaderboard", Entries: board}); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
