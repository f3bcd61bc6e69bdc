package domain

import "time"

// Status tracks a candidate through the interview lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusPaused     Status = "paused"
)

// Difficulty classifies questions and fixes their time limit.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// DifficultyPlan is the fixed question order for every interview:
// two easy, two medium, two hard.
var DifficultyPlan = [6]Difficulty{
	DifficultyEasy, DifficultyEasy,
	DifficultyMedium, DifficultyMedium,
	DifficultyHard, DifficultyHard,
}

// TotalQuestions is the length of the difficulty plan.
const TotalQuestions = len(DifficultyPlan)

// TimeLimitFor returns the per-question time limit in seconds.
// The table is a system invariant; providers must not deviate from it.
func TimeLimitFor(d Difficulty) int {
	switch d {
	case DifficultyEasy:
		return 20
	case DifficultyMedium:
		return 60
	case DifficultyHard:
		return 120
	}
	return 0
}

// Candidate is a person taking the interview, tracked from intake to completion.
type Candidate struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	Phone                string     `json:"phone"`
	ResumeFileName       string     `json:"resumeFileName,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	Status               Status     `json:"status"`
	CurrentQuestionIndex int        `json:"currentQuestionIndex"`
	Score                int        `json:"score"`
	FinalSummary         string     `json:"finalSummary,omitempty"`
	Answers              []Answer   `json:"answers"`
	TimeRemaining        *int       `json:"timeRemaining,omitempty"` // persisted only while paused
	StartedAt            *time.Time `json:"startedAt,omitempty"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
}

// Question is immutable once issued.
type Question struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	Difficulty Difficulty `json:"difficulty"`
	TimeLimit  int        `json:"timeLimit"` // seconds
	Role       string     `json:"role"`
	Category   string     `json:"category"`
}

// Answer records one submitted answer; immutable once created.
// Question text and difficulty are duplicated for display.
type Answer struct {
	QuestionID  string     `json:"questionId"`
	Question    string     `json:"question"`
	Answer      string     `json:"answer"`
	Difficulty  Difficulty `json:"difficulty"`
	TimeAllowed int        `json:"timeAllowed"`
	TimeUsed    int        `json:"timeUsed"`
	Score       int        `json:"score"`
	Feedback    string     `json:"feedback,omitempty"`
	AnsweredAt  time.Time  `json:"answeredAt"`
}

// MessageType distinguishes transcript entries.
type MessageType string

const (
	MessageUser   MessageType = "user"
	MessageAI     MessageType = "ai"
	MessageSystem MessageType = "system"
)

// ChatMessage is an append-only transcript entry; insertion order is significant.
type ChatMessage struct {
	ID         string      `json:"id"`
	Type       MessageType `json:"type"`
	Content    string      `json:"content"`
	Timestamp  time.Time   `json:"timestamp"`
	QuestionID string      `json:"questionId,omitempty"`
	IsQuestion bool        `json:"isQuestion,omitempty"`
}

// CandidateDraft is the identity extracted at intake, before the user
// confirms it. Any field may be empty until session creation.
type CandidateDraft struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	ResumeFileName string `json:"resumeFileName,omitempty"`
}

// SessionSnapshot is a read-only view of the live session state, broadcast
// to subscribers after every mutation.
type SessionSnapshot struct {
	CurrentCandidateID string        `json:"currentCandidateId,omitempty"`
	IsInterviewActive  bool          `json:"isInterviewActive"`
	CurrentQuestion    *Question     `json:"currentQuestion,omitempty"`
	TimeRemaining      int           `json:"timeRemaining"`
	ChatMessages       []ChatMessage `json:"chatMessages"`
	ShowWelcomeBack    bool          `json:"showWelcomeBack"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// GradeResult is the provider's verdict for a single answer.
type GradeResult struct {
	Score    int    `json:"score"` // 0..100
	Feedback string `json:"feedback,omitempty"`
}

// FinalResult is the provider's verdict for a finished interview.
type FinalResult struct {
	Score   int    `json:"score"` // 0..100
	Summary string `json:"summary"`
}
