// Package analyze sequences landmark location, scale scoring, checkbox
// detection and mark classification into one page record.
//
// Analysis is a pure function of (image, template): no state is shared
// across pages beyond the read-only template, so callers may process pages
// concurrently without coordination.
package analyze

import (
	"fmt"

	"formscan/internal/checkbox"
	"formscan/internal/imageio"
	"formscan/internal/landmark"
	"formscan/internal/mark"
	"formscan/internal/preprocess"
	"formscan/internal/result"
	"formscan/internal/scale"
	"formscan/internal/template"
	"formscan/pkg/geometry"

	"gocv.io/x/gocv"
)

// Config aggregates the component configurations.
type Config struct {
	Preprocess preprocess.Config `yaml:"preprocess"`
	Landmark   landmark.Config   `yaml:"landmark"`
	Checkbox   checkbox.Config   `yaml:"checkbox"`
	Mark       mark.Config       `yaml:"mark"`
	Scale      scale.Config      `yaml:"scale"`

	// MatchToleranceX is the horizontal tolerance when matching a detected
	// box to an expected template position.
	MatchToleranceX int `yaml:"match_tolerance_x"`
}

// DefaultConfig returns the full default configuration for 600 DPI scans.
func DefaultConfig() Config {
	return Config{
		Preprocess:      preprocess.DefaultConfig(),
		Landmark:        landmark.DefaultConfig(),
		Checkbox:        checkbox.DefaultConfig(),
		Mark:            mark.DefaultConfig(),
		Scale:           scale.DefaultConfig(),
		MatchToleranceX: 200,
	}
}

// PageView carries the intermediate detections of one page for observers.
// Observers must not retain the image beyond the callback.
type PageView struct {
	Image     gocv.Mat
	Landmarks *landmark.Set

	Empty    []checkbox.Box  // detected, classified empty
	Dense    []checkbox.Box  // classified filled-by-density
	Strokes  []checkbox.Box  // classified filled-by-strokes
	Inferred []geometry.Rect // projected positions inferred as checked

	Scale scale.Result
}

// Observer receives each finished page alongside its intermediate
// detections. Purely observational: implementations have no effect on the
// page record.
type Observer interface {
	PageAnalyzed(page result.Page, view PageView)
}

// Analyzer turns scanned pages into page records.
type Analyzer struct {
	cfg        Config
	page       *template.Page
	locator    *landmark.Locator
	detector   *checkbox.Detector
	classifier *mark.Classifier
	scorer     *scale.Scorer
	observer   Observer
}

// New creates an Analyzer for the given template. The template is validated
// up front; a malformed template is fatal to the run.
func New(cfg Config, tmpl *template.Template) (*Analyzer, error) {
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}

	// One fixed layout per run; every scanned page is read against the
	// first template page.
	page := &tmpl.Pages[0]

	cleaner := preprocess.NewCleaner(cfg.Preprocess)
	return &Analyzer{
		cfg:        cfg,
		page:       page,
		locator:    landmark.NewLocator(cfg.Landmark, cleaner),
		detector:   checkbox.NewDetector(cfg.Checkbox),
		classifier: mark.NewClassifier(cfg.Mark),
		scorer:     scale.NewScorer(cfg.Scale),
	}, nil
}

// SetObserver registers a diagnostic observer, typically an overlay
// renderer.
func (a *Analyzer) SetObserver(o Observer) {
	a.observer = o
}

// AnalyzePage produces the record for one scanned page. Landmark failures
// are local: the returned record carries the error and empty question data.
func (a *Analyzer) AnalyzePage(gray gocv.Mat, pageNum int) result.Page {
	page := result.Page{
		Page:      pageNum,
		Questions: map[string]result.Question{},
	}

	set, err := a.locator.Locate(gray)
	if err != nil {
		page.Error = err.Error()
		return page
	}

	scanScale := set.Scale()
	if a.page.Scale != nil {
		tmplScale := landmark.Span{
			LeftX:  a.page.Scale.Left.X,
			RightX: a.page.Scale.Right.X,
			Y:      a.page.Scale.Left.Y,
		}
		page.DX = landmark.Offset(&tmplScale, &scanScale)
	}

	scaleResult := a.scorer.Score(gray, scanScale)
	page.ScaleScores = scaleResult.Scores

	boxes := a.detector.Dedupe(a.detector.Detect(gray))

	view := PageView{Image: gray, Landmarks: set, Scale: scaleResult}
	for _, box := range boxes {
		switch a.classifier.Classify(gray, box).State {
		case mark.FilledDensity:
			view.Dense = append(view.Dense, box)
		case mark.FilledStrokes:
			view.Strokes = append(view.Strokes, box)
		default:
			view.Empty = append(view.Empty, box)
		}
	}

	rows := a.detector.GroupRows(view.Empty)
	a.matchQuestions(rows, &page, &view)

	if a.observer != nil {
		a.observer.PageAnalyzed(page, view)
	}
	return page
}

// matchQuestions resolves each template question against the detected rows
// of empty boxes and appends the ordered answers to the page record.
func (a *Analyzer) matchQuestions(rows [][]checkbox.Box, page *result.Page, view *PageView) {
	ids := a.page.QuestionIDs()
	n := min(len(rows), len(ids))

	for i := 0; i < n; i++ {
		id := ids[i]
		question := a.page.Questions[id]
		row := rows[i]

		y := rowY(row, question.Boxes)
		missing := missingIndices(row, question.Boxes, page.DX, a.cfg.MatchToleranceX)

		answers := make([]result.Answer, 0, len(question.Boxes))
		for idx, tmplBox := range question.Boxes {
			if contains(missing, idx) {
				projected := geometry.Rect{
					X: tmplBox.X + page.DX, Y: y,
					Width: tmplBox.W, Height: tmplBox.H,
				}
				view.Inferred = append(view.Inferred, projected)
				answers = append(answers, result.Answer{
					Index: idx, State: result.StateChecked,
					X: projected.X, Y: projected.Y, W: projected.Width, H: projected.Height,
				})
				continue
			}

			found := findEmpty(row, tmplBox.X+page.DX, a.cfg.MatchToleranceX)
			if found == nil {
				// Neither inferred checked nor matched to an empty
				// detection: surface it instead of defaulting.
				page.Ambiguities = append(page.Ambiguities, result.Ambiguity{
					Question: id, Index: idx,
				})
				answers = append(answers, result.Answer{
					Index: idx, State: result.StateEmpty,
					X: tmplBox.X + page.DX, Y: y, W: tmplBox.W, H: tmplBox.H,
				})
				continue
			}

			answers = append(answers, result.Answer{
				Index: idx, State: result.StateEmpty,
				X: found.X, Y: found.Y, W: found.W, H: found.H,
			})
		}

		page.Questions[id] = result.Question{Answers: answers}
	}
}

// AnalyzeFiles loads and analyzes page images in order. Per-page landmark
// failures end up in the page records; only unreadable files abort.
func (a *Analyzer) AnalyzeFiles(paths []string) ([]result.Page, error) {
	pages := make([]result.Page, 0, len(paths))
	for i, path := range paths {
		gray, err := imageio.LoadGrayMat(path)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		pages = append(pages, a.AnalyzePage(gray, i+1))
		gray.Close()
	}
	return pages, nil
}
