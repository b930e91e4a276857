package knowledge

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/scrypster/socratic/pkg/types"
)

//go:embed concepts.yaml
var defaultConcepts []byte

// seedFile is the YAML layout of a concept seed file.
type seedFile struct {
	Concepts []types.Concept `yaml:"concepts"`
}

// LoadYAML reads a concept seed document and builds a Base from it.
func LoadYAML(r io.Reader) (*Base, error) {
	var seed seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return New(nil)
		}
		return nil, fmt.Errorf("knowledge: decode seed: %w", err)
	}
	return New(seed.Concepts)
}

// LoadFile reads a concept seed file from disk.
func LoadFile(path string) (*Base, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("knowledge: open seed: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}

// Default returns the built-in concept set.
func Default() *Base {
	kb, err := LoadYAML(bytes.NewReader(defaultConcepts))
	if err != nil {
		panic(fmt.Sprintf("knowledge: built-in concepts are invalid: %v", err))
	}
	return kb
}
