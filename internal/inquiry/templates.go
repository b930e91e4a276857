package inquiry

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/scrypster/socratic/pkg/types"
)

// TopicPlaceholder is replaced by the current topic when a template is rendered.
const TopicPlaceholder = "{topic}"

// defaultTopic stands in for an empty topic.
const defaultTopic = "this topic"

//go:embed templates.yaml
var defaultTemplates []byte

// Templates holds the question templates for each question type.
type Templates struct {
	byType map[types.QuestionType][]string
}

type templateFile struct {
	Templates map[string][]string `yaml:"templates"`
}

// LoadTemplates reads a template document. Every question type must have at
// least one template and no other keys are allowed.
func LoadTemplates(r io.Reader) (*Templates, error) {
	var f templateFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("inquiry: decode templates: %w", err)
	}

	t := &Templates{byType: make(map[types.QuestionType][]string, len(types.AllQuestionTypes))}
	for name, list := range f.Templates {
		q, err := types.ParseQuestionType(name)
		if err != nil {
			return nil, fmt.Errorf("inquiry: templates: %w", err)
		}
		for _, tpl := range list {
			if strings.TrimSpace(tpl) != "" {
				t.byType[q] = append(t.byType[q], tpl)
			}
		}
	}
	for _, q := range types.AllQuestionTypes {
		if len(t.byType[q]) == 0 {
			return nil, fmt.Errorf("inquiry: templates: %w", types.NewError(types.CodeInvalidInput, "no templates for "+string(q), types.ErrInvalidInput))
		}
	}
	return t, nil
}

// LoadTemplatesFile reads a template file from disk.
func LoadTemplatesFile(path string) (*Templates, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("inquiry: open templates: %w", err)
	}
	defer f.Close()
	return LoadTemplates(f)
}

// DefaultTemplates returns the built-in templates.
func DefaultTemplates() *Templates {
	t, err := LoadTemplates(bytes.NewReader(defaultTemplates))
	if err != nil {
		panic(fmt.Sprintf("inquiry: built-in templates are invalid: %v", err))
	}
	return t
}

// For returns the templates for q.
func (t *Templates) For(q types.QuestionType) []string {
	return append([]string(nil), t.byType[q]...)
}

// Render picks the template at index pick(n) for q and substitutes topic.
func (t *Templates) Render(q types.QuestionType, topic string, pick func(n int) int) string {
	list := t.byType[q]
	if strings.TrimSpace(topic) == "" {
		topic = defaultTopic
	}
	return strings.ReplaceAll(list[pick(len(list))], TopicPlaceholder, topic)
}

// LevelMarker names the band of a learner level.
func LevelMarker(level float64) string {
	switch {
	case level < 0.34:
		return "beginner"
	case level < 0.67:
		return "intermediate"
	default:
		return "advanced"
	}
}
