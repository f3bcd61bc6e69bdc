package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"ai-interview-service/internal/domain"
	"github.com/google/uuid"
)

// Question banks per difficulty. A real provider would generate these; the
// static set mirrors what an AI service returns for a fullstack role.
var questionBanks = map[domain.Difficulty][]string{
	domain.DifficultyEasy: {
		"What is the difference between let, const, and var in JavaScript?",
		"Explain the concept of hoisting in JavaScript.",
		"What are the basic HTTP methods and their purposes?",
		"What is the difference between == and === in JavaScript?",
	},
	domain.DifficultyMedium: {
		"Explain the concept of closures in JavaScript with an example.",
		"What are React hooks and why were they introduced?",
		"Describe the difference between SQL and NoSQL databases.",
		"How would you implement authentication in a web application?",
	},
	domain.DifficultyHard: {
		"Design a scalable system for handling millions of concurrent users.",
		"Explain how you would optimize a React application for performance.",
		"Describe microservices architecture and its trade-offs.",
		"How would you handle state management in a large React application?",
	},
}

// StaticProvider serves fixed question banks and mock scoring. It stands in
// for a real AI-backed provider behind the same contract.
type StaticProvider struct {
	role string

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewStaticProvider() *StaticProvider {
	return NewStaticProviderWithSeed(time.Now().UnixNano())
}

// NewStaticProviderWithSeed pins the mock scoring for tests.
func NewStaticProviderWithSeed(seed int64) *StaticProvider {
	return &StaticProvider{
		role: "fullstack",
		rnd:  rand.New(rand.NewSource(seed)),
	}
}

func (p *StaticProvider) NextQuestion(_ context.Context, difficulty domain.Difficulty, ordinal int) (domain.Question, error) {
	bank, ok := questionBanks[difficulty]
	if !ok || len(bank) == 0 {
		return domain.Question{}, domain.ErrProviderUnavailable
	}
	return domain.Question{
		ID:         uuid.NewString(),
		Text:       bank[ordinal%len(bank)],
		Difficulty: difficulty,
		TimeLimit:  domain.TimeLimitFor(difficulty),
		Role:       p.role,
		Category:   "technical",
	}, nil
}

// GradeAnswer produces a mock score. Longer answers score somewhat higher so
// demo sessions look plausible; the placeholder expiry answer scores zero.
func (p *StaticProvider) GradeAnswer(_ context.Context, _ domain.Question, answerText string) (domain.GradeResult, error) {
	if answerText == "" || answerText == "No answer provided (time expired)" {
		return domain.GradeResult{Score: 0, Feedback: "No answer was provided."}, nil
	}

	p.mu.Lock()
	jitter := p.rnd.Intn(30)
	p.mu.Unlock()

	base := len(answerText)
	if base > 70 {
		base = 70
	}
	return domain.GradeResult{
		Score:    base + jitter,
		Feedback: "Answer recorded for review.",
	}, nil
}

// Finalize averages the per-question scores into the final result.
func (p *StaticProvider) Finalize(_ context.Context, answers []domain.Answer) (domain.FinalResult, error) {
	if len(answers) == 0 {
		return domain.FinalResult{Score: 0, Summary: "No answers were recorded."}, nil
	}
	sum := 0
	for _, a := range answers {
		sum += a.Score
	}
	return domain.FinalResult{
		Score:   sum / len(answers),
		Summary: "Interview completed. The candidate demonstrated good technical knowledge with room for improvement in advanced concepts.",
	}, nil
}
