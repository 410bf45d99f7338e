package app

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/folnerty/mini-app/internal/domain"
)

// Achievement thresholds, checked against cumulative counters.
const (
	AchievementNovice  = "Novice"  // 50 questions answered
	AchievementExpert  = "Expert"  // 100 questions answered
	AchievementScholar = "Scholar" // 100 correct answers
	AchievementMaster  = "Master"  // 1000 points
)

// Aggregator folds finished rounds into the persisted per-user statistics
// record. Identified users live in the shared store; the guest record stays
// in the device-local store so guests on different devices never share it.
// Storage failures are absorbed: the computed record is always returned even
// when the durable write fails.
type Aggregator struct {
	shared KeyValueStore
	local  KeyValueStore
	bank   QuestionBank
	now    func() time.Time
	log    zerolog.Logger
}

func NewAggregator(shared, local KeyValueStore, bank QuestionBank, log zerolog.Logger) *Aggregator {
	return NewAggregatorWithClock(shared, local, bank, log, time.Now)
}

// NewAggregatorWithClock allows deterministic timestamps in tests.
func NewAggregatorWithClock(shared, local KeyValueStore, bank QuestionBank, log zerolog.Logger, now func() time.Time) *Aggregator {
	if local == nil {
		local = shared
	}
	return &Aggregator{shared: shared, local: local, bank: bank, now: now, log: log}
}

func (a *Aggregator) storeFor(key string) KeyValueStore {
	if key == localStatsKey {
		return a.local
	}
	return a.shared
}

// Stats loads the statistics record stored under key. A missing or
// malformed payload yields a zero record, never an error.
func (a *Aggregator) Stats(ctx context.Context, key string) domain.UserStats {
	var stats domain.UserStats
	raw, ok, err := a.storeFor(key).Get(ctx, key)
	if err != nil {
		a.log.Warn().Err(err).Str("key", key).Msg("stats read failed, starting from empty record")
		return stats
	}
	if !ok {
		return stats
	}
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		a.log.Warn().Err(err).Str("key", key).Msg("stats payload malformed, starting from empty record")
		return domain.UserStats{}
	}
	return stats
}

// ApplyRound folds one round into the record under key and persists it.
func (a *Aggregator) ApplyRound(ctx context.Context, key string, round domain.RoundResult) domain.UserStats {
	stats := a.Stats(ctx, key)

	// Once 80% of the bank has been seen, the answered set and the history
	// log restart so questions can recirculate.
	if a.shouldResetHistory(stats) {
		stats.AnsweredQuestions = nil
		stats.History = nil
	}

	total := len(round.Questions)
	correct := round.CorrectCount()

	stats.TotalQuestions += total
	stats.CorrectAnswers += correct
	stats.TotalPoints += round.Score
	if stats.TotalQuestions > 0 {
		stats.AverageScore = int(math.Round(float64(stats.TotalPoints) / (float64(stats.TotalQuestions) / 10)))
	} else {
		stats.AverageScore = 0
	}
	now := a.now()
	stats.LastPlayed = now

	for i, q := range round.Questions {
		answer := domain.NoAnswer
		if i < len(round.Answers) {
			answer = round.Answers[i]
		}
		spent := QuestionSeconds // timed out or not reported
		if i < len(round.TimeSpent) && round.TimeSpent[i] > 0 {
			spent = round.TimeSpent[i]
		}
		if !stats.HasAnswered(q.ID) {
			stats.AnsweredQuestions = append(stats.AnsweredQuestions, q.ID)
		}
		stats.History = append(stats.History, domain.AnswerEvent{
			QuestionID: q.ID,
			Answer:     answer,
			Correct:    answer == q.CorrectIndex,
			Timestamp:  now,
			TimeSpent:  spent,
		})
	}

	if stats.Categories == nil {
		stats.Categories = make(map[string]domain.CategoryStat)
	}
	// Totals first, correctness second, so a category total can never lag
	// behind its correct counter.
	for _, q := range round.Questions {
		cs := stats.Categories[q.Category]
		cs.Total++
		stats.Categories[q.Category] = cs
	}
	for i, q := range round.Questions {
		if i < len(round.Answers) && round.Answers[i] == q.CorrectIndex {
			cs := stats.Categories[q.Category]
			cs.Correct++
			stats.Categories[q.Category] = cs
		}
	}

	stats.Achievements = append(stats.Achievements, EarnedAchievements(stats)...)

	a.persist(ctx, key, stats)
	return stats
}

// EarnedAchievements returns the newly crossed thresholds that the record
// does not hold yet. Re-running it on the same record yields nothing new.
func EarnedAchievements(stats domain.UserStats) []string {
	var earned []string
	if stats.TotalQuestions >= 50 && !stats.HasAchievement(AchievementNovice) {
		earned = append(earned, AchievementNovice)
	}
	if stats.TotalQuestions >= 100 && !stats.HasAchievement(AchievementExpert) {
		earned = append(earned, AchievementExpert)
	}
	if stats.CorrectAnswers >= 100 && !stats.HasAchievement(AchievementScholar) {
		earned = append(earned, AchievementScholar)
	}
	if stats.TotalPoints >= 1000 && !stats.HasAchievement(AchievementMaster) {
		earned = append(earned, AchievementMaster)
	}
	return earned
}

func (a *Aggregator) shouldResetHistory(stats domain.UserStats) bool {
	size := a.bank.Size()
	if size <= 0 {
		return false
	}
	return len(stats.AnsweredQuestions) >= size*4/5
}

func (a *Aggregator) persist(ctx context.Context, key string, stats domain.UserStats) {
	raw, err := json.Marshal(stats)
	if err != nil {
		a.log.Warn().Err(err).Str("key", key).Msg("stats marshal failed")
		return
	}
	if err := a.storeFor(key).Set(ctx, key, string(raw)); err != nil {
		a.log.Warn().Err(err).Str("key", key).Msg("stats write failed, keeping in-memory record")
	}
}
