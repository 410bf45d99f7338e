package memory

import (
	"context"

	"github.com/folnerty/mini-app/internal/domain"
)

// StaticBank is an app.QuestionBank over a fixed slice, used when no
// backing store is configured and as the deterministic bank in tests.
type StaticBank struct {
	questions []domain.Question
}

func NewStaticBank(questions []domain.Question) *StaticBank {
	return &StaticBank{questions: questions}
}

func (b *StaticBank) Size() int {
	return len(b.questions)
}

func (b *StaticBank) Questions(_ context.Context) ([]domain.Question, error) {
	if len(b.questions) == 0 {
		return nil, domain.ErrBankEmpty
	}
	return b.questions, nil
}
