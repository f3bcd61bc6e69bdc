package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"ai-interview-service/internal/domain"
	"github.com/google/uuid"
)

// ExpiredAnswerText is recorded when the countdown reaches zero with no
// submission.
const ExpiredAnswerText = "No answer provided (time expired)"

const defaultProviderTimeout = 10 * time.Second

// Controller drives the question/answer cycle for the active candidate:
// start, per-second ticks with auto-submit on expiry, grading, progression
// through the difficulty plan, and pause/resume.
//
// Provider calls are suspension points: the controller re-checks the active
// candidate after each call and discards stale responses instead of applying
// them.
type Controller struct {
	store           *SessionStore
	provider        QuestionProvider
	archive         CandidateArchive
	now             func() time.Time
	tickEvery       time.Duration
	providerTimeout time.Duration

	mu        sync.Mutex
	stopTimer chan struct{}
}

func NewController(store *SessionStore, provider QuestionProvider) *Controller {
	return &Controller{
		store:           store,
		provider:        provider,
		now:             time.Now,
		tickEvery:       time.Second,
		providerTimeout: defaultProviderTimeout,
	}
}

// NewControllerWithClock is test-only: it disables the background countdown
// (tests call Tick directly) and uses the given clock for timestamps.
func NewControllerWithClock(store *SessionStore, provider QuestionProvider, now func() time.Time) *Controller {
	return &Controller{
		store:           store,
		provider:        provider,
		now:             now,
		providerTimeout: defaultProviderTimeout,
	}
}

// SetArchive attaches a persistence sink for completed candidates. Optional.
func (c *Controller) SetArchive(a CandidateArchive) {
	c.archive = a
}

// Start begins the interview for the active candidate: fetches the first
// question of the plan, emits the welcome and question messages, and starts
// the countdown.
func (c *Controller) Start(ctx context.Context) error {
	candidateID := c.store.CurrentCandidateID()
	candidate, ok := c.store.Candidate(candidateID)
	if !ok {
		return domain.ErrUnknownCandidate
	}
	if candidate.Status != domain.StatusPending {
		return domain.ErrInvalidTransition
	}

	question, err := c.fetchQuestion(ctx, domain.DifficultyPlan[0], 0)
	if err != nil {
		return err
	}
	// The provider call suspended us; drop the response if the session moved on.
	if c.store.CurrentCandidateID() != candidateID {
		return nil
	}

	if err := c.store.StartInterview(candidateID, question); err != nil {
		return err
	}
	c.appendAI(fmt.Sprintf(
		"Hello %s! Welcome to your Full Stack Developer interview. You'll be asked %d questions total: 2 easy, 2 medium, and 2 hard. Each question has a time limit. Let's begin with your first question.",
		candidate.Name, domain.TotalQuestions))
	c.appendQuestion(question)
	c.startCountdown()
	return nil
}

// SubmitAnswer records a manual submission for the pending question.
// Empty or whitespace-only answers are rejected.
func (c *Controller) SubmitAnswer(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return domain.ErrEmptyAnswer
	}
	return c.submit(ctx, text)
}

// Tick advances the countdown by one second and auto-submits the placeholder
// answer when time runs out. The background countdown calls it once per
// second; tests call it directly.
func (c *Controller) Tick() {
	if !c.store.InterviewActive() {
		return
	}
	remaining := c.store.TimeRemaining() - 1
	c.store.Tick(remaining)
	if remaining <= 0 {
		ctx, cancel := context.WithTimeout(context.Background(), c.providerTimeout)
		defer cancel()
		if err := c.submit(ctx, ExpiredAnswerText); err != nil {
			log.Printf("auto-submit failed: %v", err)
		}
	}
}

func (c *Controller) submit(ctx context.Context, text string) error {
	candidateID := c.store.CurrentCandidateID()
	candidate, ok := c.store.Candidate(candidateID)
	if !ok {
		return domain.ErrUnknownCandidate
	}
	if candidate.Status != domain.StatusInProgress {
		return domain.ErrInvalidTransition
	}
	question, ok := c.store.CurrentQuestion()
	if !ok {
		return domain.ErrNoActiveQuestion
	}
	slot := candidate.CurrentQuestionIndex

	timeUsed := question.TimeLimit - c.store.TimeRemaining()
	if timeUsed < 0 {
		timeUsed = 0
	}
	if timeUsed > question.TimeLimit {
		timeUsed = question.TimeLimit
	}

	grade := c.grade(ctx, question, text)
	if !c.stillInProgress(candidateID) {
		return nil
	}

	answer := domain.Answer{
		QuestionID:  question.ID,
		Question:    question.Text,
		Answer:      text,
		Difficulty:  question.Difficulty,
		TimeAllowed: question.TimeLimit,
		TimeUsed:    timeUsed,
		Score:       grade.Score,
		Feedback:    grade.Feedback,
		AnsweredAt:  c.now(),
	}
	if err := c.store.RecordAnswer(candidateID, answer, slot); err != nil {
		// A concurrent submission filled this slot while the grade was in
		// flight; drop the loser.
		if errors.Is(err, domain.ErrStaleAnswer) {
			return nil
		}
		return err
	}
	c.store.AppendChatMessage(c.newMessage(domain.MessageUser, text))

	next := slot + 1
	if next >= domain.TotalQuestions {
		return c.complete(ctx, candidateID)
	}
	return c.advance(ctx, candidateID, next)
}

// grade asks the provider to score one answer. On provider failure the
// session continues with a zero score flagged in the feedback.
func (c *Controller) grade(ctx context.Context, question domain.Question, text string) domain.GradeResult {
	ctx, cancel := context.WithTimeout(ctx, c.providerTimeout)
	defer cancel()
	grade, err := c.provider.GradeAnswer(ctx, question, text)
	if err != nil {
		log.Printf("grading unavailable for question %s: %v", question.ID, err)
		return domain.GradeResult{Score: 0, Feedback: "scoring unavailable"}
	}
	grade.Score = ClampScore(grade.Score)
	return grade
}

func (c *Controller) advance(ctx context.Context, candidateID string, next int) error {
	question, err := c.fetchQuestion(ctx, domain.DifficultyPlan[next], next)
	if err != nil {
		// Pause rather than fail the candidate; RetryNextQuestion picks the
		// session back up once the provider recovers.
		if perr := c.store.Pause(candidateID); perr != nil {
			log.Printf("pause after provider failure: %v", perr)
		}
		c.stopCountdown()
		return err
	}
	if !c.stillInProgress(candidateID) {
		return nil
	}
	if err := c.store.SetCurrentQuestion(question); err != nil {
		return err
	}
	c.appendQuestion(question)
	return nil
}

// RetryNextQuestion re-attempts a question fetch after a provider failure
// paused the session mid-progression.
func (c *Controller) RetryNextQuestion(ctx context.Context) error {
	candidateID := c.store.CurrentCandidateID()
	candidate, ok := c.store.Candidate(candidateID)
	if !ok {
		return domain.ErrUnknownCandidate
	}
	if candidate.Status != domain.StatusPaused {
		return domain.ErrInvalidTransition
	}
	next := candidate.CurrentQuestionIndex
	if next >= domain.TotalQuestions {
		return domain.ErrInvalidTransition
	}

	question, err := c.fetchQuestion(ctx, domain.DifficultyPlan[next], next)
	if err != nil {
		return err
	}
	if err := c.store.Resume(candidateID); err != nil {
		return err
	}
	if err := c.store.SetCurrentQuestion(question); err != nil {
		return err
	}
	c.appendQuestion(question)
	c.startCountdown()
	return nil
}

func (c *Controller) complete(ctx context.Context, candidateID string) error {
	candidate, ok := c.store.Candidate(candidateID)
	if !ok {
		return domain.ErrUnknownCandidate
	}

	fctx, cancel := context.WithTimeout(ctx, c.providerTimeout)
	defer cancel()
	final, err := c.provider.Finalize(fctx, candidate.Answers)
	if err != nil {
		log.Printf("finalize unavailable for candidate %s: %v", candidateID, err)
		final = domain.FinalResult{Score: 0, Summary: "final scoring unavailable"}
	}
	final.Score = ClampScore(final.Score)

	c.appendAI(fmt.Sprintf(
		"Congratulations! You've completed your interview. Your final score is %d%%. Thank you for your time, and we'll be in touch soon.",
		final.Score))
	if err := c.store.CompleteSession(candidateID, final.Score, final.Summary); err != nil {
		return err
	}
	c.stopCountdown()

	if c.archive != nil {
		if done, ok := c.store.Candidate(candidateID); ok {
			if err := c.archive.ArchiveCandidate(ctx, done); err != nil {
				log.Printf("archive candidate %s: %v", candidateID, err)
			}
		}
	}
	return nil
}

// Pause stops the countdown and persists the remaining time.
func (c *Controller) Pause() error {
	candidateID := c.store.CurrentCandidateID()
	if err := c.store.Pause(candidateID); err != nil {
		return err
	}
	c.stopCountdown()
	return nil
}

// Resume restarts the countdown from the persisted remaining time.
func (c *Controller) Resume() error {
	candidateID := c.store.CurrentCandidateID()
	if err := c.store.Resume(candidateID); err != nil {
		return err
	}
	c.startCountdown()
	return nil
}

// DismissWelcomeBack clears the prompt without resuming.
func (c *Controller) DismissWelcomeBack() {
	c.store.DismissWelcomeBack()
}

// Close stops the background countdown.
func (c *Controller) Close() {
	c.stopCountdown()
}

func (c *Controller) fetchQuestion(ctx context.Context, difficulty domain.Difficulty, ordinal int) (domain.Question, error) {
	ctx, cancel := context.WithTimeout(ctx, c.providerTimeout)
	defer cancel()
	question, err := c.provider.NextQuestion(ctx, difficulty, ordinal)
	if err != nil {
		return domain.Question{}, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	return question, nil
}

// stillInProgress guards transitions applied after a provider call: the
// response is stale if the candidate changed or the session left in-progress.
func (c *Controller) stillInProgress(candidateID string) bool {
	if c.store.CurrentCandidateID() != candidateID {
		return false
	}
	candidate, ok := c.store.Candidate(candidateID)
	return ok && candidate.Status == domain.StatusInProgress
}

func (c *Controller) appendAI(content string) {
	c.store.AppendChatMessage(c.newMessage(domain.MessageAI, content))
}

func (c *Controller) appendQuestion(q domain.Question) {
	m := c.newMessage(domain.MessageAI, q.Text)
	m.QuestionID = q.ID
	m.IsQuestion = true
	c.store.AppendChatMessage(m)
}

func (c *Controller) newMessage(t domain.MessageType, content string) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        uuid.NewString(),
		Type:      t,
		Content:   content,
		Timestamp: c.now(),
	}
}

func (c *Controller) startCountdown() {
	if c.tickEvery <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopTimer != nil {
		return
	}
	stop := make(chan struct{})
	c.stopTimer = stop

	go func() {
		ticker := time.NewTicker(c.tickEvery)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.Tick()
			}
		}
	}()
}

func (c *Controller) stopCountdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopTimer != nil {
		close(c.stopTimer)
		c.stopTimer = nil
	}
}
