package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ai-interview-service/internal/app"
	"ai-interview-service/internal/domain"
)

func TestStartIssuesFirstQuestion(t *testing.T) {
	ctx := context.Background()
	store, controller, _ := newTestSession(t, &stubProvider{score: 70})

	if err := controller.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	c, _ := store.Candidate("c1")
	if c.Status != domain.StatusInProgress || c.StartedAt == nil {
		t.Fatalf("expected in-progress candidate, got %+v", c)
	}
	q, ok := store.CurrentQuestion()
	if !ok || q.Difficulty != domain.DifficultyEasy {
		t.Fatalf("expected easy first question, got %+v", q)
	}
	if store.TimeRemaining() != 20 {
		t.Fatalf("expected initial countdown 0:20, got %d", store.TimeRemaining())
	}
	chat := store.Snapshot().ChatMessages
	if len(chat) != 2 || !chat[1].IsQuestion {
		t.Fatalf("expected welcome + question messages, got %+v", chat)
	}
}

func TestSubmitComputesTimeUsed(t *testing.T) {
	ctx := context.Background()
	store, controller, _ := newTestSession(t, &stubProvider{score: 70})

	if err := controller.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 15; i++ {
		controller.Tick()
	}
	if store.TimeRemaining() != 5 {
		t.Fatalf("expected 5s remaining after 15 ticks, got %d", store.TimeRemaining())
	}

	if err := controller.SubmitAnswer(ctx, "let is block scoped"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	c, _ := store.Candidate("c1")
	if len(c.Answers) != 1 {
		t.Fatalf("expected 1 answer, got %d", len(c.Answers))
	}
	a := c.Answers[0]
	if a.TimeUsed != 15 || a.TimeAllowed != 20 {
		t.Fatalf("expected timeUsed 15 of 20, got %d of %d", a.TimeUsed, a.TimeAllowed)
	}
	if a.Score != 70 {
		t.Fatalf("expected provider score, got %d", a.Score)
	}
	// Second easy question issued, countdown reset.
	if store.TimeRemaining() != 20 {
		t.Fatalf("expected countdown reset to 20, got %d", store.TimeRemaining())
	}
}

func TestEmptyAnswerRejected(t *testing.T) {
	ctx := context.Background()
	store, controller, _ := newTestSession(t, &stubProvider{score: 70})

	if err := controller.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := controller.SubmitAnswer(ctx, "   "); err != domain.ErrEmptyAnswer {
		t.Fatalf("expected empty answer rejection, got %v", err)
	}
	c, _ := store.Candidate("c1")
	if len(c.Answers) != 0 {
		t.Fatalf("expected no answer recorded, got %d", len(c.Answers))
	}
}

func TestTimerExpiryAutoSubmitsPlaceholder(t *testing.T) {
	ctx := context.Background()
	store, controller, _ := newTestSession(t, &stubProvider{score: 70})

	if err := controller.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 20; i++ {
		controller.Tick()
	}

	c, _ := store.Candidate("c1")
	if len(c.Answers) != 1 {
		t.Fatalf("expected auto-submitted answer, got %d", len(c.Answers))
	}
	a := c.Answers[0]
	if a.Answer != app.ExpiredAnswerText {
		t.Fatalf("expected placeholder text, got %q", a.Answer)
	}
	if a.TimeUsed != a.TimeAllowed {
		t.Fatalf("expected timeUsed == timeAllowed, got %d vs %d", a.TimeUsed, a.TimeAllowed)
	}
}

func TestFullInterviewCompletes(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{score: 80}
	store, controller, archive := newTestSession(t, provider)

	if err := controller.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < domain.TotalQuestions; i++ {
		if err := controller.SubmitAnswer(ctx, fmt.Sprintf("answer %d", i)); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	c, _ := store.Candidate("c1")
	if c.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", c.Status)
	}
	if len(c.Answers) != domain.TotalQuestions {
		t.Fatalf("expected %d answers, got %d", domain.TotalQuestions, len(c.Answers))
	}
	for i, a := range c.Answers {
		if a.Difficulty != domain.DifficultyPlan[i] {
			t.Fatalf("answer %d difficulty %s, want %s", i, a.Difficulty, domain.DifficultyPlan[i])
		}
	}
	if c.Score != 88 || c.CompletedAt == nil || c.FinalSummary == "" {
		t.Fatalf("expected finalized candidate, got %+v", c)
	}
	if store.InterviewActive() {
		t.Fatalf("expected inactive session after completion")
	}
	if _, ok := store.CurrentQuestion(); ok {
		t.Fatalf("expected cleared question after completion")
	}
	if len(archive.stored) != 1 || archive.stored[0].ID != "c1" {
		t.Fatalf("expected archived candidate, got %+v", archive.stored)
	}

	// No transitions accepted after completion.
	if err := controller.SubmitAnswer(ctx, "late"); err != domain.ErrInvalidTransition {
		t.Fatalf("expected invalid transition after completion, got %v", err)
	}
}

func TestGradingFailureFallsBackToZero(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{score: 70, gradeErr: errors.New("llm down")}
	store, controller, _ := newTestSession(t, provider)

	if err := controller.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := controller.SubmitAnswer(ctx, "an answer"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	c, _ := store.Candidate("c1")
	if len(c.Answers) != 1 {
		t.Fatalf("expected answer recorded despite grading failure")
	}
	if c.Answers[0].Score != 0 || c.Answers[0].Feedback != "scoring unavailable" {
		t.Fatalf("expected flagged zero score, got %+v", c.Answers[0])
	}
	// The session kept moving.
	if _, ok := store.CurrentQuestion(); !ok {
		t.Fatalf("expected next question issued")
	}
}

func TestNextQuestionFailurePausesForRetry(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{score: 70, nextErr: errors.New("llm down"), failFrom: 1}
	store, controller, _ := newTestSession(t, provider)

	if err := controller.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	err := controller.SubmitAnswer(ctx, "an answer")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected provider unavailable, got %v", err)
	}

	c, _ := store.Candidate("c1")
	if c.Status != domain.StatusPaused {
		t.Fatalf("expected paused session, got %s", c.Status)
	}
	if len(c.Answers) != 1 {
		t.Fatalf("answer must survive the failure, got %d", len(c.Answers))
	}

	// Provider recovers; retry resumes and issues question 2.
	provider.nextErr = nil
	if err := controller.RetryNextQuestion(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	c, _ = store.Candidate("c1")
	if c.Status != domain.StatusInProgress {
		t.Fatalf("expected in-progress after retry, got %s", c.Status)
	}
	q, ok := store.CurrentQuestion()
	if !ok || q.Difficulty != domain.DifficultyEasy || store.TimeRemaining() != 20 {
		t.Fatalf("expected fresh easy question, got %+v remaining=%d", q, store.TimeRemaining())
	}
}

func TestStaleGradeDiscardedAfterPause(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{score: 70}
	store, controller, _ := newTestSession(t, provider)

	if err := controller.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Session pauses while the grading call is in flight.
	provider.onGrade = func() {
		if err := store.Pause("c1"); err != nil {
			t.Errorf("pause during grade: %v", err)
		}
	}

	if err := controller.SubmitAnswer(ctx, "an answer"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	c, _ := store.Candidate("c1")
	if len(c.Answers) != 0 {
		t.Fatalf("stale grade must be discarded, got %d answers", len(c.Answers))
	}
	if c.Status != domain.StatusPaused {
		t.Fatalf("expected paused candidate, got %s", c.Status)
	}
	// The discarded submission must not leave its text in the transcript.
	for _, m := range store.Snapshot().ChatMessages {
		if m.Type == domain.MessageUser {
			t.Fatalf("discarded submission left transcript entry: %+v", m)
		}
	}
}

func TestExpiryDuringGradeRecordsSingleAnswer(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{score: 70}
	store, controller, _ := newTestSession(t, provider)

	if err := controller.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 19; i++ {
		controller.Tick()
	}
	// The countdown expires while the manual submission's grade is in
	// flight; the auto-submit must win the slot and the manual one must
	// be discarded, not stacked on top.
	provider.onGrade = func() {
		provider.onGrade = nil
		controller.Tick()
	}

	if err := controller.SubmitAnswer(ctx, "a real answer"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	c, _ := store.Candidate("c1")
	if len(c.Answers) != 1 {
		t.Fatalf("expected exactly one answer for the slot, got %d", len(c.Answers))
	}
	if c.CurrentQuestionIndex != 1 {
		t.Fatalf("expected index 1, got %d", c.CurrentQuestionIndex)
	}
	if c.Answers[0].Answer != app.ExpiredAnswerText {
		t.Fatalf("expected the auto-submitted answer kept, got %q", c.Answers[0].Answer)
	}
	// Plan stays on course: the second question is the second easy slot.
	q, ok := store.CurrentQuestion()
	if !ok || q.Difficulty != domain.DifficultyPlan[1] {
		t.Fatalf("expected next plan question, got %+v", q)
	}
	for _, m := range store.Snapshot().ChatMessages {
		if m.Content == "a real answer" {
			t.Fatalf("discarded submission left transcript entry: %+v", m)
		}
	}
}

func TestPauseResumeThroughController(t *testing.T) {
	ctx := context.Background()
	store, controller, _ := newTestSession(t, &stubProvider{score: 70})

	if err := controller.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 7; i++ {
		controller.Tick()
	}
	if err := controller.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	controller.Tick() // paused: must be a no-op
	if store.TimeRemaining() != 13 {
		t.Fatalf("tick while paused changed remaining: %d", store.TimeRemaining())
	}
	if err := controller.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if store.TimeRemaining() != 13 {
		t.Fatalf("expected remaining 13 after resume, got %d", store.TimeRemaining())
	}
}

// stubProvider is a deterministic QuestionProvider for controller tests.
type stubProvider struct {
	score    int
	gradeErr error
	nextErr  error
	failFrom int
	onGrade  func()
}

func (p *stubProvider) NextQuestion(_ context.Context, difficulty domain.Difficulty, ordinal int) (domain.Question, error) {
	if p.nextErr != nil && ordinal >= p.failFrom {
		return domain.Question{}, p.nextErr
	}
	return domain.Question{
		ID:         fmt.Sprintf("q-%d", ordinal),
		Text:       fmt.Sprintf("question %d", ordinal),
		Difficulty: difficulty,
		TimeLimit:  domain.TimeLimitFor(difficulty),
		Role:       "fullstack",
		Category:   "technical",
	}, nil
}

func (p *stubProvider) GradeAnswer(_ context.Context, _ domain.Question, _ string) (domain.GradeResult, error) {
	if p.onGrade != nil {
		p.onGrade()
	}
	if p.gradeErr != nil {
		return domain.GradeResult{}, p.gradeErr
	}
	return domain.GradeResult{Score: p.score, Feedback: "ok"}, nil
}

func (p *stubProvider) Finalize(_ context.Context, _ []domain.Answer) (domain.FinalResult, error) {
	return domain.FinalResult{Score: 88, Summary: "strong fundamentals"}, nil
}

type fakeArchive struct {
	stored []domain.Candidate
}

func (a *fakeArchive) ArchiveCandidate(_ context.Context, c domain.Candidate) error {
	a.stored = append(a.stored, c)
	return nil
}

func (a *fakeArchive) LoadCompleted(_ context.Context) ([]domain.Candidate, error) {
	return a.stored, nil
}

func newTestSession(t *testing.T, provider app.QuestionProvider) (*app.SessionStore, *app.Controller, *fakeArchive) {
	t.Helper()
	store := app.NewSessionStore()
	if err := store.AddCandidate(makeCandidate("c1", "Jane Doe")); err != nil {
		t.Fatalf("add candidate: %v", err)
	}
	if err := store.SetActiveCandidate("c1"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	archive := &fakeArchive{}
	controller := app.NewControllerWithClock(store, provider, func() time.Time {
		return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	})
	controller.SetArchive(archive)
	return store, controller, archive
}
