// Package merge joins template titles onto page records and computes each
// page's overall severity score.
package merge

import (
	"encoding/json"
	"fmt"
	"os"

	"formscan/internal/result"
	"formscan/internal/template"

	"gonum.org/v1/gonum/stat"
)

// Answer is a labeled answer state.
type Answer struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	State string `json:"state"`
}

// Question is a titled, ordered answer list.
type Question struct {
	Title   string   `json:"title"`
	Answers []Answer `json:"answers"`
}

// Page is one fused page: question titles plus the overall score.
type Page struct {
	Page      int                 `json:"page"`
	Overall   *float64            `json:"overall"`
	Questions map[string]Question `json:"questions"`
	Error     string              `json:"error,omitempty"`
}

// Document is the fused output consumed by the spreadsheet export.
type Document struct {
	TemplateFile string `json:"template_file"`
	SourceFile   string `json:"source_file"`
	Pages        []Page `json:"pages"`
}

// Merge joins the template's titles and labels onto the analyzer's page
// records. The overall score is the arithmetic mean of the page's scored
// graduations, nil when none were marked.
func Merge(tmpl *template.Template, doc *result.Document) *Document {
	tmplPage := &tmpl.Pages[0]

	fused := &Document{
		TemplateFile: doc.TemplateFile,
		SourceFile:   doc.SourceFile,
	}

	for _, page := range doc.Pages {
		out := Page{
			Page:      page.Page,
			Overall:   overallScore(page.ScaleScores),
			Questions: map[string]Question{},
			Error:     page.Error,
		}

		for id, question := range page.Questions {
			tmplQ, ok := tmplPage.Questions[id]
			if !ok {
				continue
			}

			fq := Question{Title: tmplQ.Title}
			for _, answer := range question.Answers {
				label := ""
				if answer.Index < len(tmplQ.Boxes) {
					label = tmplQ.Boxes[answer.Index].Label
				}
				fq.Answers = append(fq.Answers, Answer{
					Index: answer.Index,
					Label: label,
					State: answer.State,
				})
			}
			out.Questions[id] = fq
		}

		fused.Pages = append(fused.Pages, out)
	}

	return fused
}

func overallScore(scores []int) *float64 {
	if len(scores) == 0 {
		return nil
	}
	values := make([]float64, len(scores))
	for i, s := range scores {
		values[i] = float64(s)
	}
	mean := stat.Mean(values, nil)
	return &mean
}

// Save writes the fused document as indented JSON.
func (d *Document) Save(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fused results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write fused results: %w", err)
	}
	return nil
}

// Load reads a fused document written by Save.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fused results: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode fused results %s: %w", path, err)
	}
	return &doc, nil
}
