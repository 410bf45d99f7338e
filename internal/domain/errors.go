package domain

import "errors"

var (
	// ErrBankEmpty indicates the question bank has no questions to serve.
	ErrBankEmpty = errors.New("question bank is empty")
	// ErrRoundMismatch indicates a round result whose answers do not line up with its questions.
	ErrRoundMismatch = errors.New("round answers do not match questions")
)
