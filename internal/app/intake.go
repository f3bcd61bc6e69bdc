package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-interview-service/internal/domain"
	"github.com/google/uuid"
)

// Resume MIME types the intake flow accepts.
const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ResumeParser extracts a candidate identity draft from an uploaded resume.
// The bundled implementation is a stub; a real extractor slots in here.
type ResumeParser interface {
	Parse(ctx context.Context, fileName string, data []byte) (domain.CandidateDraft, error)
}

// IntakeService collects candidate identity (via resume upload or manual
// form) and creates the initial candidate record.
type IntakeService struct {
	store  *SessionStore
	parser ResumeParser
	now    func() time.Time
	newID  func() string
}

func NewIntakeService(store *SessionStore, parser ResumeParser) *IntakeService {
	return &IntakeService{
		store:  store,
		parser: parser,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// NewIntakeServiceWithClock is test-only for deterministic ids and timestamps.
func NewIntakeServiceWithClock(store *SessionStore, parser ResumeParser, now func() time.Time, newID func() string) *IntakeService {
	return &IntakeService{store: store, parser: parser, now: now, newID: newID}
}

// ValidateResumeType rejects anything that is not a PDF or DOCX upload.
func ValidateResumeType(mimeType string) error {
	switch mimeType {
	case MimePDF, MimeDOCX:
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidFileType, mimeType)
}

// ParseResume validates the upload and produces an identity draft for the
// user to confirm or edit. Draft fields may be empty; they are checked at
// session creation, not here.
func (s *IntakeService) ParseResume(ctx context.Context, fileName, mimeType string, data []byte) (domain.CandidateDraft, error) {
	if err := ValidateResumeType(mimeType); err != nil {
		return domain.CandidateDraft{}, err
	}
	draft, err := s.parser.Parse(ctx, fileName, data)
	if err != nil {
		return domain.CandidateDraft{}, fmt.Errorf("parse resume: %w", err)
	}
	draft.ResumeFileName = fileName
	return draft, nil
}

// CreateCandidate validates the confirmed draft, registers the candidate,
// and makes them the active session candidate. Nothing is created when a
// required field is missing.
func (s *IntakeService) CreateCandidate(draft domain.CandidateDraft) (domain.Candidate, error) {
	for field, value := range map[string]string{
		"name":  draft.Name,
		"email": draft.Email,
		"phone": draft.Phone,
	} {
		if strings.TrimSpace(value) == "" {
			return domain.Candidate{}, fmt.Errorf("%w: %s", domain.ErrMissingField, field)
		}
	}

	candidate := domain.Candidate{
		ID:             s.newID(),
		Name:           strings.TrimSpace(draft.Name),
		Email:          strings.TrimSpace(draft.Email),
		Phone:          strings.TrimSpace(draft.Phone),
		ResumeFileName: draft.ResumeFileName,
		CreatedAt:      s.now(),
		Status:         domain.StatusPending,
		Answers:        []domain.Answer{},
	}
	if err := s.store.AddCandidate(candidate); err != nil {
		return domain.Candidate{}, err
	}
	if err := s.store.SetActiveCandidate(candidate.ID); err != nil {
		return domain.Candidate{}, err
	}
	return candidate, nil
}
