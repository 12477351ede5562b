// Package template models the blank-form reference: the expected scale
// landmarks and the ordered checkbox geometry of every question. Templates
// are loaded once per run and read-only afterwards.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"formscan/pkg/geometry"
)

// ErrMalformed reports a template missing required fields. A malformed
// template aborts the whole run: it is a process-wide input, not a per-page
// one.
var ErrMalformed = errors.New("malformed template")

// Scale is the expected scale line landmark pair.
type Scale struct {
	Left  geometry.PointInt `json:"left"`
	Right geometry.PointInt `json:"right"`
}

// Box is one expected checkbox geometry with its answer label.
type Box struct {
	Label string `json:"label"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	W     int    `json:"w"`
	H     int    `json:"h"`
}

// Question is an ordered list of expected boxes under one title.
type Question struct {
	Title string `json:"title"`
	Boxes []Box  `json:"boxes"`
}

// Page describes one template page.
type Page struct {
	Scale     *Scale              `json:"scale"`
	Questions map[string]Question `json:"questions"`
}

// Template is the whole blank-form reference.
type Template struct {
	Pages []Page `json:"pages"`
}

// Load reads and validates a template from a JSON file.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}

	var tmpl Template
	if err := json.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// Validate checks the template for required fields and sane geometry.
func (t *Template) Validate() error {
	if len(t.Pages) == 0 {
		return fmt.Errorf("%w: no pages", ErrMalformed)
	}
	for i, page := range t.Pages {
		if len(page.Questions) == 0 {
			return fmt.Errorf("%w: page %d has no questions", ErrMalformed, i+1)
		}
		for id, q := range page.Questions {
			if len(q.Boxes) == 0 {
				return fmt.Errorf("%w: %s has no boxes", ErrMalformed, id)
			}
			for j, box := range q.Boxes {
				if box.W <= 0 || box.H <= 0 {
					return fmt.Errorf("%w: %s box %d has non-positive size", ErrMalformed, id, j)
				}
			}
		}
	}
	return nil
}

// QuestionIDs returns the page's question identifiers in form order.
// Identifiers carrying a numeric suffix ("question_12") sort numerically.
func (p *Page) QuestionIDs() []string {
	ids := make([]string, 0, len(p.Questions))
	for id := range p.Questions {
		ids = append(ids, id)
	}
	SortQuestionIDs(ids)
	return ids
}

// SortQuestionIDs sorts question identifiers into form order.
func SortQuestionIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		ni, iOK := numericSuffix(ids[i])
		nj, jOK := numericSuffix(ids[j])
		if iOK && jOK {
			return ni < nj
		}
		return ids[i] < ids[j]
	})
}

func numericSuffix(id string) (int, bool) {
	idx := strings.LastIndexByte(id, '_')
	if idx < 0 || idx == len(id)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(id[idx+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}
