package analyze

import (
	"testing"

	"formscan/internal/checkbox"
	"formscan/internal/result"
	"formscan/internal/template"
	"formscan/pkg/geometry"
)

func fourBoxRow(xs ...int) []template.Box {
	boxes := make([]template.Box, len(xs))
	for i, x := range xs {
		boxes[i] = template.Box{Label: "l", X: x, Y: 400, W: 45, H: 45}
	}
	return boxes
}

func TestMissingIndices(t *testing.T) {
	expected := fourBoxRow(100, 300, 500, 700)

	// Shift of 25, tolerance 200: the box expected near 325 is absent.
	row := []checkbox.Box{
		{X: 125, Y: 405},
		{X: 525, Y: 405},
		{X: 725, Y: 405},
	}

	missing := missingIndices(row, expected, 25, 200)
	if len(missing) != 1 || missing[0] != 1 {
		t.Errorf("missingIndices: got %v, want [1]", missing)
	}
}

func TestMissingIndices_EmptyRow(t *testing.T) {
	expected := fourBoxRow(100, 300)

	missing := missingIndices(nil, expected, 0, 200)
	if len(missing) != 2 || missing[0] != 0 || missing[1] != 1 {
		t.Errorf("missingIndices on empty row: got %v, want [0 1]", missing)
	}
}

func TestFindEmpty_ToleranceIsStrict(t *testing.T) {
	row := []checkbox.Box{{X: 125}}

	if found := findEmpty(row, 325, 200); found != nil {
		t.Errorf("box exactly at tolerance matched: %+v", found)
	}
	if found := findEmpty(row, 324, 200); found == nil {
		t.Error("box just inside tolerance not matched")
	}
}

func TestRowY(t *testing.T) {
	row := []checkbox.Box{{Y: 400}, {Y: 410}, {Y: 405}}
	if got := rowY(row, nil); got != 405 {
		t.Errorf("rowY: got %d, want 405", got)
	}

	expected := fourBoxRow(100)
	if got := rowY(nil, expected); got != 400 {
		t.Errorf("rowY fallback: got %d, want template y 400", got)
	}
}

func testTemplate() *template.Template {
	return &template.Template{Pages: []template.Page{{
		Scale: &template.Scale{
			Left:  geometry.PointInt{X: 500, Y: 300},
			Right: geometry.PointInt{X: 1000, Y: 300},
		},
		Questions: map[string]template.Question{
			"question_1": {Title: "Severity", Boxes: fourBoxRow(100, 300, 500, 700)},
		},
	}}}
}

func TestMatchQuestions_CheckedInferredFromAbsence(t *testing.T) {
	a, err := New(DefaultConfig(), testTemplate())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	page := result.Page{DX: 25, Questions: map[string]result.Question{}}
	view := PageView{}

	// Empty boxes detected for indices 0, 2 and 3; index 1 was filled in and
	// therefore never detected as an empty quadrilateral.
	rows := [][]checkbox.Box{{
		{X: 125, Y: 405, W: 45, H: 45},
		{X: 525, Y: 405, W: 45, H: 45},
		{X: 725, Y: 405, W: 45, H: 45},
	}}

	a.matchQuestions(rows, &page, &view)

	question, ok := page.Questions["question_1"]
	if !ok {
		t.Fatal("question_1 missing from page record")
	}
	if len(question.Answers) != 4 {
		t.Fatalf("got %d answers, want 4", len(question.Answers))
	}

	wantStates := []string{result.StateEmpty, result.StateChecked, result.StateEmpty, result.StateEmpty}
	for i, answer := range question.Answers {
		if answer.Index != i {
			t.Errorf("answer %d: index %d", i, answer.Index)
		}
		if answer.State != wantStates[i] {
			t.Errorf("answer %d: state %q, want %q", i, answer.State, wantStates[i])
		}
	}

	// The checked answer gets the projected template geometry.
	checked := question.Answers[1]
	if checked.X != 325 || checked.Y != 405 {
		t.Errorf("checked geometry: got (%d,%d), want (325,405)", checked.X, checked.Y)
	}
	if len(view.Inferred) != 1 {
		t.Fatalf("got %d inferred rects, want 1", len(view.Inferred))
	}

	// The empty answers keep the detected geometry.
	if question.Answers[0].X != 125 {
		t.Errorf("empty geometry: got x=%d, want detected 125", question.Answers[0].X)
	}

	if len(page.Ambiguities) != 0 {
		t.Errorf("unexpected ambiguities: %v", page.Ambiguities)
	}
}

func TestMatchQuestions_EmptyRowMeansAllChecked(t *testing.T) {
	a, err := New(DefaultConfig(), testTemplate())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	page := result.Page{Questions: map[string]result.Question{}}
	view := PageView{}

	a.matchQuestions([][]checkbox.Box{{}}, &page, &view)

	question := page.Questions["question_1"]
	for i, answer := range question.Answers {
		if answer.State != result.StateChecked {
			t.Errorf("answer %d: state %q, want checked", i, answer.State)
		}
	}
	if len(view.Inferred) != 4 {
		t.Errorf("got %d inferred rects, want 4", len(view.Inferred))
	}
}

func TestMatchQuestions_MoreRowsThanQuestions(t *testing.T) {
	a, err := New(DefaultConfig(), testTemplate())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	page := result.Page{Questions: map[string]result.Question{}}
	view := PageView{}

	rows := [][]checkbox.Box{
		{{X: 100, Y: 405, W: 45, H: 45}},
		{{X: 100, Y: 805, W: 45, H: 45}}, // spurious extra row
	}
	a.matchQuestions(rows, &page, &view)

	if len(page.Questions) != 1 {
		t.Errorf("got %d questions, want 1", len(page.Questions))
	}
}

func TestNew_RejectsMalformedTemplate(t *testing.T) {
	tmpl := &template.Template{}
	if _, err := New(DefaultConfig(), tmpl); err == nil {
		t.Error("New accepted a template with no pages")
	}
}
