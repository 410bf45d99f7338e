package app

import (
	"math/rand"

	"github.com/folnerty/mini-app/internal/domain"
)

// PickQuestions selects up to count questions, preferring ones whose ids
// are not in exclude. When too few unseen questions remain the whole bank
// becomes eligible again. The rand source is injected so selection is
// reproducible in tests.
func PickQuestions(rnd *rand.Rand, questions []domain.Question, count int, exclude []int) []domain.Question {
	excluded := make(map[int]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}

	available := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if _, seen := excluded[q.ID]; !seen {
			available = append(available, q)
		}
	}

	pool := available
	if len(available) < count {
		pool = questions
	}

	shuffled := append([]domain.Question(nil), pool...)
	rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if count > len(shuffled) {
		count = len(shuffled)
	}
	return shuffled[:count]
}
