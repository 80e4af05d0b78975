// Package questionbank loads the behavioral question bank and selects topics
// and questions for interview sessions.
package questionbank

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Topic is one behavioral theme with its pool of main questions.
type Topic struct {
	// Name identifies the topic (e.g., "Ownership").
	Name string `yaml:"name"`

	// Questions is the pool of main questions for this topic.
	Questions []string `yaml:"questions"`
}

// bankFile is the YAML document layout of a question bank.
type bankFile struct {
	Topics []Topic `yaml:"topics"`
}

// Bank is an immutable, loaded question bank shared across sessions.
type Bank struct {
	topics []Topic
	byName map[string][]string
}

// Load reads the YAML question bank at path.
func Load(path string) (*Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("questionbank: open %q: %w", path, err)
	}
	defer f.Close()

	b, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("questionbank: parse %q: %w", path, err)
	}
	return b, nil
}

// LoadFromReader decodes a YAML question bank from r and validates it.
func LoadFromReader(r io.Reader) (*Bank, error) {
	var file bankFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("questionbank: decode yaml: %w", err)
	}

	if len(file.Topics) == 0 {
		return nil, fmt.Errorf("questionbank: no topics defined")
	}

	byName := make(map[string][]string, len(file.Topics))
	for i, t := range file.Topics {
		if t.Name == "" {
			return nil, fmt.Errorf("questionbank: topics[%d].name is required", i)
		}
		if _, dup := byName[t.Name]; dup {
			return nil, fmt.Errorf("questionbank: topic %q is defined twice", t.Name)
		}
		if len(t.Questions) == 0 {
			return nil, fmt.Errorf("questionbank: topic %q has no questions", t.Name)
		}
		byName[t.Name] = t.Questions
	}

	return &Bank{topics: file.Topics, byName: byName}, nil
}

// Topics returns the topic names in file order.
func (b *Bank) Topics() []string {
	names := make([]string, len(b.topics))
	for i, t := range b.topics {
		names[i] = t.Name
	}
	return names
}

// Questions returns the question pool for topic, or nil for an unknown topic.
func (b *Bank) Questions(topic string) []string {
	return b.byName[topic]
}

// Len returns the number of topics in the bank.
func (b *Bank) Len() int {
	return len(b.topics)
}
