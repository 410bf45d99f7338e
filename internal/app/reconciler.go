package app

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/folnerty/mini-app/internal/domain"
)

// MaxLeaderboardEntries caps the shared ranked list.
const MaxLeaderboardEntries = 100

// Reconciler merges a user's updated statistics into the shared ranked
// list. The remote store is the platform bridge; the cache store holds the
// last known-good copy and serves reads when the remote path fails. No
// failure escapes past this component: the caller always gets a list.
type Reconciler struct {
	remote KeyValueStore
	cache  KeyValueStore
	limit  int
	log    zerolog.Logger
}

func NewReconciler(remote, cache KeyValueStore, limit int, log zerolog.Logger) *Reconciler {
	if limit <= 0 {
		limit = MaxLeaderboardEntries
	}
	return &Reconciler{remote: remote, cache: cache, limit: limit, log: log}
}

// BuildEntry projects updated statistics onto a leaderboard row. A nil
// identity takes the guest path with a freshly generated key, so guests
// never collide with each other or with identified users.
func BuildEntry(stats domain.UserStats, user *domain.Identity) domain.LeaderboardEntry {
	entry := domain.LeaderboardEntry{
		ID:           "guest_" + uuid.NewString(),
		Name:         "Anonymous",
		Avatar:       "👤",
		TotalPoints:  stats.TotalPoints,
		GamesPlayed:  stats.GamesPlayed(),
		AverageScore: stats.AverageScore,
	}
	if user != nil {
		entry.ID = user.Key()
		entry.Name = user.DisplayName()
		if user.Avatar != "" {
			entry.Avatar = user.Avatar
		}
	}
	return entry
}

// Reconcile folds the updated statistics into the shared list and returns
// the refreshed ranking.
func (r *Reconciler) Reconcile(ctx context.Context, stats domain.UserStats, user *domain.Identity) []domain.LeaderboardEntry {
	return r.ReconcileEntry(ctx, BuildEntry(stats, user))
}

// ReconcileEntry upserts one entry into the shared list, persists the
// result remotely (best effort) and mirrors it into the cache.
func (r *Reconciler) ReconcileEntry(ctx context.Context, entry domain.LeaderboardEntry) []domain.LeaderboardEntry {
	board, ok := r.read(ctx, r.remote, leaderboardKey)
	if !ok {
		board, _ = r.read(ctx, r.cache, leaderboardCacheKey)
	}
	board = Upsert(board, entry)
	board = rankAndTrim(board, r.limit)
	r.write(ctx, board)
	return board
}

// Leaderboard loads the ranked list for display, combining the remote copy
// with the local cache. Entries present in both keep whichever copy has
// the higher point total; points only ever grow, so the higher value is at
// least as fresh. The merged result is mirrored back into the cache.
func (r *Reconciler) Leaderboard(ctx context.Context) []domain.LeaderboardEntry {
	remote, remoteOK := r.read(ctx, r.remote, leaderboardKey)
	cached, _ := r.read(ctx, r.cache, leaderboardCacheKey)

	var board []domain.LeaderboardEntry
	if remoteOK {
		board = MergeBoards(remote, cached)
	} else {
		board = cached
	}
	board = rankAndTrim(board, r.limit)
	r.write(ctx, board)
	return board
}

// MergeBoards combines two independently maintained copies of the list.
// For an identity present in both, the entry with the higher TotalPoints
// wins; relative order of the first source is preserved.
func MergeBoards(a, b []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	merged := append([]domain.LeaderboardEntry(nil), a...)
	index := make(map[string]int, len(merged))
	for i, entry := range merged {
		index[entry.ID] = i
	}
	for _, entry := range b {
		if i, ok := index[entry.ID]; ok {
			if entry.TotalPoints > merged[i].TotalPoints {
				merged[i] = entry
			}
			continue
		}
		index[entry.ID] = len(merged)
		merged = append(merged, entry)
	}
	return merged
}

// Upsert replaces the entry with the same identity key or appends a new one.
func Upsert(board []domain.LeaderboardEntry, entry domain.LeaderboardEntry) []domain.LeaderboardEntry {
	for i := range board {
		if board[i].ID == entry.ID {
			board[i] = entry
			return board
		}
	}
	return append(board, entry)
}

// RankOf returns the 1-based position of the identity key, or 0 if absent.
func RankOf(board []domain.LeaderboardEntry, key string) int {
	for i, entry := range board {
		if entry.ID == key {
			return i + 1
		}
	}
	return 0
}

// rankAndTrim sorts descending by points and truncates. The sort is stable
// so equal-score entries keep their prior relative position.
func rankAndTrim(board []domain.LeaderboardEntry, limit int) []domain.LeaderboardEntry {
	sort.SliceStable(board, func(i, j int) bool {
		return board[i].TotalPoints > board[j].TotalPoints
	})
	if len(board) > limit {
		board = board[:limit]
	}
	return board
}

func (r *Reconciler) read(ctx context.Context, store KeyValueStore, key string) ([]domain.LeaderboardEntry, bool) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("leaderboard read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var board []domain.LeaderboardEntry
	if err := json.Unmarshal([]byte(raw), &board); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("leaderboard payload malformed, treating as absent")
		return nil, false
	}
	return board, true
}

// write persists remotely best-effort and always mirrors into the cache,
// so later local reads reflect the latest known-good state.
func (r *Reconciler) write(ctx context.Context, board []domain.LeaderboardEntry) {
	raw, err := json.Marshal(board)
	if err != nil {
		r.log.Warn().Err(err).Msg("leaderboard marshal failed")
		return
	}
	if err := r.remote.Set(ctx, leaderboardKey, string(raw)); err != nil {
		r.log.Warn().Err(err).Msg("leaderboard remote write failed")
	}
	if err := r.cache.Set(ctx, leaderboardCacheKey, string(raw)); err != nil {
		r.log.Warn().Err(err).Msg("leaderboard cache write failed")
	}
}
