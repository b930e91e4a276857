package types

import (
	"fmt"
	"strings"
)

// Subject is the closed set of knowledge-base subject tags.
type Subject string

// Subject constants
const (
	SubjectScience       Subject = "science"
	SubjectMath          Subject = "math"
	SubjectLanguage      Subject = "language"
	SubjectSocialStudies Subject = "social_studies"
	SubjectGeneral       Subject = "general"
)

// ValidSubjects contains all valid subject values
var ValidSubjects = []Subject{
	SubjectScience,
	SubjectMath,
	SubjectLanguage,
	SubjectSocialStudies,
	SubjectGeneral,
}

// IsValid reports whether s is a known subject.
func (s Subject) IsValid() bool {
	for _, v := range ValidSubjects {
		if s == v {
			return true
		}
	}
	return false
}

// Concept is an immutable knowledge-base entry.
type Concept struct {
	ID         string   `json:"concept_id" yaml:"id"`
	Name       string   `json:"name,omitempty" yaml:"name,omitempty"`
	Subject    Subject  `json:"subject" yaml:"subject"`
	Definition string   `json:"definition" yaml:"definition"`
	Keywords   []string `json:"keywords" yaml:"keywords"`
	Related    []string `json:"related,omitempty" yaml:"related,omitempty"`
}

// DisplayName returns the concept name, falling back to the id with
// underscores turned into spaces.
func (c Concept) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return strings.ReplaceAll(c.ID, "_", " ")
}

// Validate checks the concept invariants: id present, subject known,
// keywords non-empty and lowercase.
func (c Concept) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return NewError(CodeInvalidInput, "concept id is required", ErrInvalidInput)
	}
	if !c.Subject.IsValid() {
		return NewError(CodeInvalidInput, fmt.Sprintf("concept %s: invalid subject %q", c.ID, c.Subject), ErrInvalidInput)
	}
	if len(c.Keywords) == 0 {
		return NewError(CodeInvalidInput, fmt.Sprintf("concept %s: keywords must not be empty", c.ID), ErrInvalidInput)
	}
	for _, kw := range c.Keywords {
		if kw == "" || kw != strings.ToLower(kw) {
			return NewError(CodeInvalidInput, fmt.Sprintf("concept %s: keyword %q must be non-empty lowercase", c.ID, kw), ErrInvalidInput)
		}
	}
	return nil
}
