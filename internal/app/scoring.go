package app

import "github.com/folnerty/mini-app/internal/domain"

// QuestionSeconds is the fixed per-question timer.
const QuestionSeconds = 30

// ComputeScore computes a round's point total from the number of correct
// answers and the accumulated time bonus. Base is 100 points per correct
// answer; an accuracy bonus of 50 is added above 80% and 25 above 60%.
// total must be positive, which holds because round length is fixed.
func ComputeScore(correct, total, timeBonus int) int {
	base := correct * 100
	percentage := float64(correct) / float64(total) * 100
	bonus := 0
	switch {
	case percentage > 80:
		bonus = 50
	case percentage > 60:
		bonus = 25
	}
	return base + bonus + timeBonus
}

// TimeBonus awards floor(secondsLeft/5) for a correct answer and nothing
// for a wrong or timed-out one.
func TimeBonus(correct bool, secondsLeft int) int {
	if !correct || secondsLeft <= 0 {
		return 0
	}
	return secondsLeft / 5
}

// RoundTimeBonus sums the per-question time bonuses of a round. A missing
// time entry counts as the full timer spent, so it earns nothing.
func RoundTimeBonus(r domain.RoundResult) int {
	total := 0
	for i, q := range r.Questions {
		if i >= len(r.Answers) || r.Answers[i] != q.CorrectIndex {
			continue
		}
		spent := QuestionSeconds
		if i < len(r.TimeSpent) && r.TimeSpent[i] > 0 {
			spent = r.TimeSpent[i]
		}
		total += TimeBonus(true, QuestionSeconds-spent)
	}
	return total
}

// ScoreRound computes the authoritative point total for a finished round.
func ScoreRound(r domain.RoundResult) int {
	if len(r.Questions) == 0 {
		return 0
	}
	return ComputeScore(r.CorrectCount(), len(r.Questions), RoundTimeBonus(r))
}
