package memory

import (
	"context"

	"ai-interview-service/internal/domain"
)

// StubResumeParser returns a canned identity draft regardless of input.
// It stands in for a real PDF/DOCX extractor; phone is left empty on purpose
// so the confirmation form has something to complete.
type StubResumeParser struct {
	draft domain.CandidateDraft
}

func NewStubResumeParser() *StubResumeParser {
	return &StubResumeParser{
		draft: domain.CandidateDraft{
			Name:  "John Doe",
			Email: "john.doe@email.com",
			Phone: "",
		},
	}
}

// NewStubResumeParserWithDraft pins the extracted draft for tests.
func NewStubResumeParserWithDraft(draft domain.CandidateDraft) *StubResumeParser {
	return &StubResumeParser{draft: draft}
}

func (p *StubResumeParser) Parse(_ context.Context, _ string, _ []byte) (domain.CandidateDraft, error) {
	return p.draft, nil
}
