package http

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/folnerty/mini-app/internal/app"
	"github.com/folnerty/mini-app/internal/domain"
	"github.com/folnerty/mini-app/internal/infra/memory"
)

func newTestHandler() *Handler {
	questions := make([]domain.Question, 20)
	for i := range questions {
		questions[i] = domain.Question{
			ID:           i + 1,
			Category:     "Physics",
			Prompt:       "Pick the first option",
			Options:      []string{"right", "wrong"},
			CorrectIndex: 0,
		}
	}
	bank := memory.NewStaticBank(questions)
	store := memory.NewKVStore()
	agg := app.NewAggregator(store, memory.NewKVStore(), bank, zerolog.Nop())
	rec := app.NewReconciler(store, memory.NewKVStore(), 0, zerolog.Nop())
	service := app.NewGameService(bank, agg, rec, rand.New(rand.NewSource(13)), 10, zerolog.Nop())
	return NewHandler(service, zerolog.Nop())
}

func TestRoundFlow(t *testing.T) {
	handler := newTestHandler()
	server := httptest.NewServer(handler.Router())
	defer server.Close()

	// fetch a round
	resp, err := http.Get(server.URL + "/api/round?userId=7&firstName=Grace&lastName=Hopper")
	if err != nil {
		t.Fatalf("get round: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var questions []domain.Question
	if err := json.NewDecoder(resp.Body).Decode(&questions); err != nil {
		t.Fatalf("decode questions: %v", err)
	}
	if len(questions) != 10 {
		t.Fatalf("expected 10 questions, got %d", len(questions))
	}

	// submit the result, everything correct
	answers := make([]int, len(questions))
	spent := make([]int, len(questions))
	for i := range questions {
		answers[i] = questions[i].CorrectIndex
		spent[i] = 30
	}
	body, _ := json.Marshal(map[string]any{
		"user":      domain.Identity{ID: 7, FirstName: "Grace", LastName: "Hopper"},
		"questions": questions,
		"answers":   answers,
		"timeSpent": spent,
	})
	resp2, err := http.Post(server.URL+"/api/round/result", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post result: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp2.StatusCode)
	}
	var outcome app.RoundOutcome
	if err := json.NewDecoder(resp2.Body).Decode(&outcome); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if outcome.Score != 1050 || outcome.Rank != 1 {
		t.Fatalf("expected score 1050 rank 1, got score=%d rank=%d", outcome.Score, outcome.Rank)
	}

	// leaderboard reflects the round
	resp3, err := http.Get(server.URL + "/api/leaderboard?userId=7")
	if err != nil {
		t.Fatalf("get leaderboard: %v", err)
	}
	defer resp3.Body.Close()
	var view leaderboardView
	if err := json.NewDecoder(resp3.Body).Decode(&view); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}
	if len(view.Entries) != 1 || view.Entries[0].ID != "vk_7" || view.Rank != 1 {
		t.Fatalf("unexpected leaderboard %+v", view)
	}
}

func TestFinishRoundRejectsBadPayload(t *testing.T) {
	handler := newTestHandler()
	server := httptest.NewServer(handler.Router())
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/round/result", "application/json", bytes.NewReader([]byte("{broken")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestWebSocketReceivesLeaderboardUpdates(t *testing.T) {
	handler := newTestHandler()
	server := httptest.NewServer(handler.Router())
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// initial snapshot arrives first
	var msg boardMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	if msg.Type != "leaderboard" || len(msg.Entries) != 0 {
		t.Fatalf("expected empty initial leaderboard, got %+v", msg)
	}

	// finishing a round pushes an update
	questions := []domain.Question{{ID: 1, Category: "Physics", Options: []string{"right", "wrong"}, CorrectIndex: 0}}
	body, _ := json.Marshal(map[string]any{
		"user":      domain.Identity{ID: 9, FirstName: "Alan", LastName: "Turing"},
		"questions": questions,
		"answers":   []int{0},
		"timeSpent": []int{30},
	})
	resp, err := http.Post(server.URL+"/api/round/result", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post result: %v", err)
	}
	resp.Body.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if len(msg.Entries) != 1 || msg.Entries[0].ID != "vk_9" {
		t.Fatalf("expected vk_9 on the board, got %+v", msg.Entries)
	}
}
