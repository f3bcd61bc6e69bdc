package domain

import "errors"

var (
	// ErrUnknownCandidate is returned when a transition references a candidate id not in the roster.
	ErrUnknownCandidate = errors.New("candidate not found")
	// ErrDuplicateCandidate is returned when a candidate id is added twice.
	ErrDuplicateCandidate = errors.New("candidate id already registered")
	// ErrInvalidTransition is returned for lifecycle moves the status machine forbids.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrProviderUnavailable indicates the question/scoring provider failed or timed out.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrEmptyAnswer is returned when a manual submission carries no text.
	ErrEmptyAnswer = errors.New("answer is empty")
	// ErrNoActiveQuestion is returned when an answer arrives with no question pending.
	ErrNoActiveQuestion = errors.New("no active question")
	// ErrInvalidFileType is returned for resume uploads that are not PDF or DOCX.
	ErrInvalidFileType = errors.New("invalid resume file type")
	// ErrMissingField is returned when name, email, or phone is empty at session creation.
	ErrMissingField = errors.New("missing required candidate field")
	// ErrBadTimeLimit indicates a provider issued a question with a time limit
	// that contradicts the fixed per-difficulty table.
	ErrBadTimeLimit = errors.New("question time limit violates difficulty table")
	// ErrStaleAnswer is returned when an answer arrives for a plan slot that a
	// concurrent submission already filled.
	ErrStaleAnswer = errors.New("answer arrived for a superseded question")
)
