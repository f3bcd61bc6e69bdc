package app

import (
	"context"

	"ai-interview-service/internal/domain"
)

// QuestionProvider supplies question text and scoring. The production
// implementation would call an AI service; the controller only depends on
// this contract.
//
// NextQuestion must return a question whose TimeLimit matches the fixed
// per-difficulty table; the store rejects questions that deviate.
type QuestionProvider interface {
	NextQuestion(ctx context.Context, difficulty domain.Difficulty, ordinal int) (domain.Question, error)
	GradeAnswer(ctx context.Context, question domain.Question, answerText string) (domain.GradeResult, error)
	Finalize(ctx context.Context, answers []domain.Answer) (domain.FinalResult, error)
}

// CandidateArchive persists completed candidate records for review after the
// process exits. Implementations live in infra.
type CandidateArchive interface {
	ArchiveCandidate(ctx context.Context, c domain.Candidate) error
	LoadCompleted(ctx context.Context) ([]domain.Candidate, error)
}

// ClampScore bounds provider scores to the 0..100 contract.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
