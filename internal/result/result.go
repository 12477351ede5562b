// Package result defines the page record produced by the analyzer. Outer
// collaborators (history, export, merging) only read and write this shape.
package result

import (
	"encoding/json"
	"fmt"
	"os"
)

// Answer states.
const (
	StateChecked = "checked"
	StateEmpty   = "empty"
)

// Answer is the observed state of one expected checkbox, in template order.
type Answer struct {
	Index int    `json:"index"`
	State string `json:"state"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	W     int    `json:"w"`
	H     int    `json:"h"`
}

// Question holds the ordered answers of one question.
type Question struct {
	Answers []Answer `json:"answers"`
}

// Ambiguity flags an expected box that could not be resolved to either a
// detected empty box or a checked inference.
type Ambiguity struct {
	Question string `json:"question"`
	Index    int    `json:"index"`
}

// Page is the record produced for one scanned page. A landmark failure
// leaves Error set and Questions empty; the batch continues.
type Page struct {
	Page        int                 `json:"page"`
	DX          int                 `json:"dx"`
	ScaleScores []int               `json:"scale_scores"`
	Questions   map[string]Question `json:"questions"`
	Ambiguities []Ambiguity         `json:"ambiguities,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// Document wraps the page records of one processing run.
type Document struct {
	TemplateFile string `json:"template_file"`
	SourceFile   string `json:"source_file"`
	Pages        []Page `json:"pages"`
}

// Save writes the document as indented JSON.
func (d *Document) Save(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}

// LoadDocument reads a document written by Save.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode results %s: %w", path, err)
	}
	return &doc, nil
}
