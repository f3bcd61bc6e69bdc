package app

import (
	"sync"
	"time"

	"ai-interview-service/internal/domain"
)

// PauseKeeper persists paused-candidate snapshots outside the process
// (Redis in production). Calls are best effort; the store never fails a
// transition because the keeper did.
type PauseKeeper interface {
	SavePaused(candidate domain.Candidate)
	ClearPaused(candidateID string)
}

// SessionStore owns all mutable interview state: the candidate roster, the
// active candidate, the pending question and countdown, and the chat
// transcript. Every mutation funnels through it; other components read
// snapshots and issue transition requests.
type SessionStore struct {
	mu  sync.RWMutex
	now func() time.Time

	order       []string
	candidates  map[string]*domain.Candidate
	currentID   string
	active      bool
	question    *domain.Question
	remaining   int
	chat        []domain.ChatMessage
	welcomeBack bool

	pauses      PauseKeeper
	subscribers map[chan domain.SessionSnapshot]struct{}
}

func NewSessionStore() *SessionStore {
	return NewSessionStoreWithClock(time.Now)
}

// NewSessionStoreWithClock allows deterministic timestamps in tests.
func NewSessionStoreWithClock(now func() time.Time) *SessionStore {
	return &SessionStore{
		now:         now,
		candidates:  make(map[string]*domain.Candidate),
		subscribers: make(map[chan domain.SessionSnapshot]struct{}),
	}
}

// SetPauseKeeper attaches an external pause snapshot sink. Optional.
func (s *SessionStore) SetPauseKeeper(k PauseKeeper) {
	s.mu.Lock()
	s.pauses = k
	s.mu.Unlock()
}

// AddCandidate appends a candidate to the roster. Duplicate ids are rejected.
func (s *SessionStore) AddCandidate(c domain.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.candidates[c.ID]; ok {
		return domain.ErrDuplicateCandidate
	}
	if c.Status == "" {
		c.Status = domain.StatusPending
	}
	if c.Answers == nil {
		c.Answers = []domain.Answer{}
	}
	stored := c
	s.candidates[c.ID] = &stored
	s.order = append(s.order, c.ID)
	s.broadcastLocked()
	return nil
}

// AttachResume records the uploaded resume filename on an existing candidate.
func (s *SessionStore) AttachResume(candidateID, fileName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.candidates[candidateID]
	if !ok {
		return domain.ErrUnknownCandidate
	}
	c.ResumeFileName = fileName
	s.broadcastLocked()
	return nil
}

// SetActiveCandidate switches the session to the given candidate. Switching
// to a paused candidate raises the welcome-back prompt. Switching away from
// the previous candidate clears the chat transcript.
func (s *SessionStore) SetActiveCandidate(candidateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.candidates[candidateID]
	if !ok {
		return domain.ErrUnknownCandidate
	}
	if s.currentID != candidateID {
		s.chat = nil
	}
	s.currentID = candidateID
	if c.Status == domain.StatusPaused {
		s.welcomeBack = true
	}
	s.broadcastLocked()
	return nil
}

// StartInterview moves a pending candidate to in-progress and issues the
// first question. The countdown starts at the question's time limit.
func (s *SessionStore) StartInterview(candidateID string, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.candidates[candidateID]
	if !ok {
		return domain.ErrUnknownCandidate
	}
	if c.Status != domain.StatusPending {
		return domain.ErrInvalidTransition
	}
	if q.TimeLimit != domain.TimeLimitFor(q.Difficulty) {
		return domain.ErrBadTimeLimit
	}

	now := s.now()
	c.Status = domain.StatusInProgress
	c.StartedAt = &now
	s.active = true
	s.question = &q
	s.remaining = q.TimeLimit
	s.broadcastLocked()
	return nil
}

// SetCurrentQuestion replaces the pending question and resets the countdown.
func (s *SessionStore) SetCurrentQuestion(q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q.TimeLimit != domain.TimeLimitFor(q.Difficulty) {
		return domain.ErrBadTimeLimit
	}
	s.question = &q
	s.remaining = q.TimeLimit
	s.broadcastLocked()
	return nil
}

// Tick sets the countdown. The controller owns the clock; the store only
// records the new value.
func (s *SessionStore) Tick(remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if remaining < 0 {
		remaining = 0
	}
	s.remaining = remaining
	s.broadcastLocked()
}

// RecordAnswer appends the answer for the plan slot at atIndex and advances
// the candidate's question index. The index check is the arbiter when the
// countdown expiry and a manual submission race for the same slot: whichever
// lands second sees a moved index and gets ErrStaleAnswer.
func (s *SessionStore) RecordAnswer(candidateID string, a domain.Answer, atIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.candidates[candidateID]
	if !ok {
		return domain.ErrUnknownCandidate
	}
	if c.Status == domain.StatusCompleted {
		return domain.ErrInvalidTransition
	}
	if c.CurrentQuestionIndex != atIndex {
		return domain.ErrStaleAnswer
	}
	c.Answers = append(c.Answers, a)
	c.CurrentQuestionIndex = len(c.Answers)
	s.broadcastLocked()
	return nil
}

// CompleteSession finalizes a candidate: status, score, summary, timestamps.
// Completed is terminal; the live question and countdown are cleared.
func (s *SessionStore) CompleteSession(candidateID string, finalScore int, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.candidates[candidateID]
	if !ok {
		return domain.ErrUnknownCandidate
	}
	if c.Status != domain.StatusInProgress {
		return domain.ErrInvalidTransition
	}

	now := s.now()
	c.Status = domain.StatusCompleted
	c.Score = finalScore
	c.FinalSummary = summary
	c.CompletedAt = &now
	c.TimeRemaining = nil

	s.active = false
	s.question = nil
	s.remaining = 0
	s.broadcastLocked()
	return nil
}

// Pause stops the countdown and persists the remaining time on the candidate.
func (s *SessionStore) Pause(candidateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.candidates[candidateID]
	if !ok {
		return domain.ErrUnknownCandidate
	}
	if c.Status != domain.StatusInProgress {
		return domain.ErrInvalidTransition
	}

	rem := s.remaining
	c.Status = domain.StatusPaused
	c.TimeRemaining = &rem
	s.active = false

	if s.pauses != nil {
		s.pauses.SavePaused(*cloneCandidate(c))
	}
	s.broadcastLocked()
	return nil
}

// Resume restores a paused candidate. The countdown picks up the persisted
// remaining time; when that is absent it falls back to the pending question's
// full limit rather than expiring the question on the spot.
func (s *SessionStore) Resume(candidateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.candidates[candidateID]
	if !ok {
		return domain.ErrUnknownCandidate
	}
	if c.Status != domain.StatusPaused {
		return domain.ErrInvalidTransition
	}

	c.Status = domain.StatusInProgress
	switch {
	case c.TimeRemaining != nil:
		s.remaining = *c.TimeRemaining
	case s.question != nil:
		s.remaining = s.question.TimeLimit
	default:
		s.remaining = 0
	}
	c.TimeRemaining = nil
	s.active = true
	s.welcomeBack = false

	if s.pauses != nil {
		s.pauses.ClearPaused(candidateID)
	}
	s.broadcastLocked()
	return nil
}

// AppendChatMessage appends to the transcript.
func (s *SessionStore) AppendChatMessage(m domain.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat = append(s.chat, m)
	s.broadcastLocked()
}

// ClearChat drops the transcript (used when the session view resets).
func (s *SessionStore) ClearChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat = nil
	s.broadcastLocked()
}

// DismissWelcomeBack clears the prompt without resuming.
func (s *SessionStore) DismissWelcomeBack() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.welcomeBack = false
	s.broadcastLocked()
}

// Candidate returns a copy of the candidate with the given id.
func (s *SessionStore) Candidate(candidateID string) (domain.Candidate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.candidates[candidateID]
	if !ok {
		return domain.Candidate{}, false
	}
	return *cloneCandidate(c), true
}

// Candidates returns roster copies in insertion order.
func (s *SessionStore) Candidates() []domain.Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Candidate, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *cloneCandidate(s.candidates[id]))
	}
	return out
}

// CurrentCandidateID returns the active candidate id, or "".
func (s *SessionStore) CurrentCandidateID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentID
}

// CurrentQuestion returns a copy of the pending question, if any.
func (s *SessionStore) CurrentQuestion() (domain.Question, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.question == nil {
		return domain.Question{}, false
	}
	return *s.question, true
}

// TimeRemaining returns the seconds left on the pending question.
func (s *SessionStore) TimeRemaining() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remaining
}

// InterviewActive reports whether a countdown is running.
func (s *SessionStore) InterviewActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Snapshot returns the full session view.
func (s *SessionStore) Snapshot() domain.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel receiving a snapshot after every mutation.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *SessionStore) Subscribe() (<-chan domain.SessionSnapshot, func()) {
	ch := make(chan domain.SessionSnapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *SessionStore) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so a slow consumer never blocks a transition.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *SessionStore) snapshotLocked() domain.SessionSnapshot {
	snap := domain.SessionSnapshot{
		CurrentCandidateID: s.currentID,
		IsInterviewActive:  s.active,
		TimeRemaining:      s.remaining,
		ShowWelcomeBack:    s.welcomeBack,
		UpdatedAt:          s.now(),
	}
	if s.question != nil {
		q := *s.question
		snap.CurrentQuestion = &q
	}
	snap.ChatMessages = make([]domain.ChatMessage, len(s.chat))
	copy(snap.ChatMessages, s.chat)
	return snap
}

func cloneCandidate(c *domain.Candidate) *domain.Candidate {
	out := *c
	out.Answers = make([]domain.Answer, len(c.Answers))
	copy(out.Answers, c.Answers)
	if c.TimeRemaining != nil {
		rem := *c.TimeRemaining
		out.TimeRemaining = &rem
	}
	if c.StartedAt != nil {
		t := *c.StartedAt
		out.StartedAt = &t
	}
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}
