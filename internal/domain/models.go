package domain

import (
	"fmt"
	"time"
)

// Question is a single multiple-choice question from the bank.
type Question struct {
	ID           int      `json:"id"`
	Category     string   `json:"category"`
	Prompt       string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctAnswer"`
	Explanation  string   `json:"explanation"`
	Difficulty   string   `json:"difficulty"` // easy | medium | hard
}

// Valid reports whether the correct-answer index is within the options list.
func (q Question) Valid() bool {
	return len(q.Options) > 0 && q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Options)
}

// NoAnswer is the sentinel for a question that timed out before a choice was made.
const NoAnswer = -1

// RoundResult captures one finished play session. Immutable once produced;
// Answers and TimeSpent are parallel to Questions.
type RoundResult struct {
	Questions []Question `json:"questions"`
	Answers   []int      `json:"answers"`
	TimeSpent []int      `json:"timeSpent"`
	Score     int        `json:"score"`
}

// CorrectCount returns how many answers match their question's correct index.
func (r RoundResult) CorrectCount() int {
	n := 0
	for i, q := range r.Questions {
		if i < len(r.Answers) && r.Answers[i] == q.CorrectIndex {
			n++
		}
	}
	return n
}

// CategoryStat tracks per-category accuracy.
type CategoryStat struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// AnswerEvent is one entry in the append-only answer history log.
type AnswerEvent struct {
	QuestionID int       `json:"questionId"`
	Answer     int       `json:"userAnswer"`
	Correct    bool      `json:"isCorrect"`
	Timestamp  time.Time `json:"timestamp"`
	TimeSpent  int       `json:"timeSpent"`
}

// UserStats is the cumulative per-user statistics record. It is created
// empty on first use and mutated only by the aggregator.
type UserStats struct {
	TotalQuestions    int                     `json:"totalQuestions"`
	CorrectAnswers    int                     `json:"correctAnswers"`
	TotalPoints       int                     `json:"totalPoints"`
	AverageScore      int                     `json:"averageScore"`
	Categories        map[string]CategoryStat `json:"categoriesStats"`
	Achievements      []string                `json:"achievements"`
	LastPlayed        time.Time               `json:"lastPlayed"`
	AnsweredQuestions []int                   `json:"answeredQuestions"`
	History           []AnswerEvent           `json:"questionHistory"`
}

// HasAchievement reports whether the named achievement is already held.
func (s UserStats) HasAchievement(name string) bool {
	for _, a := range s.Achievements {
		if a == name {
			return true
		}
	}
	return false
}

// HasAnswered reports whether the question id is in the answered-question set.
func (s UserStats) HasAnswered(questionID int) bool {
	for _, id := range s.AnsweredQuestions {
		if id == questionID {
			return true
		}
	}
	return false
}

// GamesPlayed derives the round count from the fixed 10-question round length.
func (s UserStats) GamesPlayed() int {
	return s.TotalQuestions / 10
}

// Identity is the host-platform user. Absence of an Identity means the
// guest path, which is a first-class mode.
type Identity struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Avatar    string `json:"avatar"`
}

// Key is the stable leaderboard identity for a platform user.
func (u Identity) Key() string {
	return fmt.Sprintf("vk_%d", u.ID)
}

// DisplayName renders "First L." like the host profile card.
func (u Identity) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	initial := []rune(u.LastName)[:1]
	return fmt.Sprintf("%s %s.", u.FirstName, string(initial))
}

// LeaderboardEntry is one row of the shared ranked list.
type LeaderboardEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Avatar       string `json:"avatar"`
	TotalPoints  int    `json:"totalPoints"`
	GamesPlayed  int    `json:"gamesPlayed"`
	AverageScore int    `json:"averageScore"`
}
