package app

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/folnerty/mini-app/internal/domain"
)

// KeyValueStore abstracts the host-platform storage bridge (in-memory,
// file, Redis, remote JSON store). Values are JSON text; a missing key is
// reported through the bool, not an error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// QuestionBank serves the static question set (embedded or cached from a
// backing store).
type QuestionBank interface {
	// Size returns the bank size, or 0 when it is not yet known.
	Size() int
	Questions(ctx context.Context) ([]domain.Question, error)
}

// Storage key namespace.
const (
	statsKeyPrefix      = "stats:"
	localStatsKey       = "stats:local"
	leaderboardKey      = "leaderboard:global"
	leaderboardCacheKey = "leaderboard:cache"
)

// StatsKey scopes the statistics record by user identity; guests map to the
// fallback key that the aggregator keeps in the device-local store.
func StatsKey(user *domain.Identity) string {
	if user == nil {
		return localStatsKey
	}
	return statsKeyPrefix + user.Key()
}

// DefaultRoundSize is the fixed round length.
const DefaultRoundSize = 10

// GameService wires the round lifecycle: pick questions, score the result,
// fold it into statistics and reconcile the shared leaderboard.
type GameService struct {
	bank      QuestionBank
	agg       *Aggregator
	board     *Reconciler
	rnd       *rand.Rand
	roundSize int
	log       zerolog.Logger
}

func NewGameService(bank QuestionBank, agg *Aggregator, board *Reconciler, rnd *rand.Rand, roundSize int, log zerolog.Logger) *GameService {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if roundSize <= 0 {
		roundSize = DefaultRoundSize
	}
	return &GameService{bank: bank, agg: agg, board: board, rnd: rnd, roundSize: roundSize, log: log}
}

// RoundOutcome is everything the results screen needs after a round.
type RoundOutcome struct {
	Score   int                       `json:"score"`
	Correct int                       `json:"correct"`
	Stats   domain.UserStats          `json:"stats"`
	Board   []domain.LeaderboardEntry `json:"leaderboard"`
	Rank    int                       `json:"rank"`
}

// StartRound picks the next set of questions for the user, skipping ones
// already answered.
func (s *GameService) StartRound(ctx context.Context, user *domain.Identity) ([]domain.Question, error) {
	questions, err := s.bank.Questions(ctx)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, domain.ErrBankEmpty
	}
	stats := s.agg.Stats(ctx, StatsKey(user))
	return PickQuestions(s.rnd, questions, s.roundSize, stats.AnsweredQuestions), nil
}

// FinishRound scores the round authoritatively, updates statistics and the
// shared leaderboard, and returns the refreshed view. Storage failures
// inside aggregation and reconciliation never surface here.
func (s *GameService) FinishRound(ctx context.Context, user *domain.Identity, round domain.RoundResult) (RoundOutcome, error) {
	if len(round.Questions) == 0 || len(round.Answers) != len(round.Questions) {
		return RoundOutcome{}, domain.ErrRoundMismatch
	}

	round.Score = ScoreRound(round)
	stats := s.agg.ApplyRound(ctx, StatsKey(user), round)

	entry := BuildEntry(stats, user)
	board := s.board.ReconcileEntry(ctx, entry)

	return RoundOutcome{
		Score:   round.Score,
		Correct: round.CorrectCount(),
		Stats:   stats,
		Board:   board,
		Rank:    RankOf(board, entry.ID),
	}, nil
}

// Stats returns the persisted statistics record for display.
func (s *GameService) Stats(ctx context.Context, user *domain.Identity) domain.UserStats {
	return s.agg.Stats(ctx, StatsKey(user))
}

// Leaderboard returns the merged ranked list for display.
func (s *GameService) Leaderboard(ctx context.Context) []domain.LeaderboardEntry {
	return s.board.Leaderboard(ctx)
}
