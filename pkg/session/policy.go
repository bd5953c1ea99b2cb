package session

import (
	"fmt"
	"strings"
)

// ForbiddenPattern is a question pattern that must not enter a sealed
// transcript. Follow-up sessions are advisory only; anything that tries to
// introduce new material belongs in the ingestion path, where it gets
// sealed and custody-tracked.
type ForbiddenPattern struct {
	Pattern     string
	Description string
}

// DefaultForbiddenPatterns returns the default question policy.
func DefaultForbiddenPatterns() []ForbiddenPattern {
	return []ForbiddenPattern{
		{"upload", "references uploading new material"},
		{"attach", "references attaching new material"},
		{"new document", "references introducing a new document"},
		{"new evidence", "references introducing new evidence"},
		{"raw document", "references the raw source document"},
		{"original file", "references the original evidence file"},
		{"send you", "offers to transmit material into the session"},
	}
}

// QuestionPolicy screens questions before they are chained.
type QuestionPolicy struct {
	patterns []ForbiddenPattern
}

// NewQuestionPolicy creates a policy over the given patterns.
func NewQuestionPolicy(patterns []ForbiddenPattern) *QuestionPolicy {
	return &QuestionPolicy{patterns: patterns}
}

// NewDefaultQuestionPolicy creates a policy with the default patterns.
func NewDefaultQuestionPolicy() *QuestionPolicy {
	return NewQuestionPolicy(DefaultForbiddenPatterns())
}

// Check returns an error describing the matched pattern if the question is
// not admissible. The question text itself is never echoed back.
func (p *QuestionPolicy) Check(question string) error {
	lower := strings.ToLower(question)
	for _, fp := range p.patterns {
		if strings.Contains(lower, fp.Pattern) {
			return fmt.Errorf("%w: %s", ErrQuestionRejected, fp.Description)
		}
	}
	return nil
}
