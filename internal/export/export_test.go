package export

import (
	"path/filepath"
	"testing"

	"formscan/internal/merge"
	"formscan/internal/result"

	"github.com/xuri/excelize/v2"
)

func testDocument() *merge.Document {
	overall := 2.5
	return &merge.Document{
		TemplateFile: "template.json",
		SourceFile:   "scan.png",
		Pages: []merge.Page{
			{
				Page:    1,
				Overall: &overall,
				Questions: map[string]merge.Question{
					"question_1": {Title: "Severity", Answers: []merge.Answer{
						{Index: 0, Label: "never", State: result.StateEmpty},
						{Index: 1, Label: "often", State: result.StateChecked},
					}},
				},
			},
			{Page: 2, Error: "landmark not found"},
		},
	}
}

func cell(t *testing.T, f *excelize.File, ref string) string {
	t.Helper()
	v, err := f.GetCellValue("Results", ref)
	if err != nil {
		t.Fatalf("GetCellValue(%s): %v", ref, err)
	}
	return v
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	if err := WriteXLSX(testDocument(), path); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	if got := cell(t, f, "A1"); got != "Page" {
		t.Errorf("A1: got %q, want Page", got)
	}
	if got := cell(t, f, "B1"); got != "Overall" {
		t.Errorf("B1: got %q, want Overall", got)
	}
	if got := cell(t, f, "C1"); got != "Severity - never" {
		t.Errorf("C1: got %q", got)
	}
	if got := cell(t, f, "D1"); got != "Severity - often" {
		t.Errorf("D1: got %q", got)
	}

	if got := cell(t, f, "A2"); got != "1" {
		t.Errorf("A2: got %q, want 1", got)
	}
	if got := cell(t, f, "B2"); got != "2.5" {
		t.Errorf("B2: got %q, want 2.5", got)
	}
	if got := cell(t, f, "C2"); got != "" {
		t.Errorf("C2: empty answer marked: %q", got)
	}
	if got := cell(t, f, "D2"); got != "X" {
		t.Errorf("D2: got %q, want X", got)
	}

	// The failed page contributes a row with no overall and no marks.
	if got := cell(t, f, "A3"); got != "2" {
		t.Errorf("A3: got %q, want 2", got)
	}
	if got := cell(t, f, "B3"); got != "" {
		t.Errorf("B3: got %q, want empty", got)
	}
}

func TestWriteXLSX_EmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	doc := &merge.Document{}

	if err := WriteXLSX(doc, path); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	if got := cell(t, f, "A1"); got != "Page" {
		t.Errorf("A1: got %q, want Page", got)
	}
}
