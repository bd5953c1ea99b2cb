package session

import (
	"errors"
	"strings"
	"testing"
)

func TestPolicyAllowsAdvisoryQuestions(t *testing.T) {
	p := NewDefaultQuestionPolicy()
	allowed := []string{
		"what are the recommended next steps for this case",
		"is this finding admissible in the primary jurisdiction",
		"how should the custody chain be presented",
	}
	for _, q := range allowed {
		if err := p.Check(q); err != nil {
			t.Fatalf("%q should be admissible, got %v", q, err)
		}
	}
}

func TestPolicyRejectsNewMaterial(t *testing.T) {
	p := NewDefaultQuestionPolicy()
	rejected := []string{
		"can I upload another scan",
		"I will ATTACH the missing page",
		"here is a new document to consider",
		"please review the raw document directly",
		"let me send you the original file",
	}
	for _, q := range rejected {
		err := p.Check(q)
		if !errors.Is(err, ErrQuestionRejected) {
			t.Fatalf("%q should be rejected, got %v", q, err)
		}
		if strings.Contains(err.Error(), q) {
			t.Fatalf("rejection for %q must not echo the question", q)
		}
	}
}

func TestPolicyCaseInsensitive(t *testing.T) {
	p := NewDefaultQuestionPolicy()
	if err := p.Check("UPLOAD this for me"); !errors.Is(err, ErrQuestionRejected) {
		t.Fatal("pattern matching must ignore case")
	}
}

func TestCustomPolicy(t *testing.T) {
	p := NewQuestionPolicy([]ForbiddenPattern{{"telefone", "references a phone transfer"}})
	if err := p.Check("can I upload a file"); err != nil {
		t.Fatal("custom policy must replace, not extend, the defaults")
	}
	if err := p.Check("via telefone"); !errors.Is(err, ErrQuestionRejected) {
		t.Fatal("custom pattern must match")
	}
}
