// Package export renders a fused document as a spreadsheet, one row per
// scanned page.
package export

import (
	"fmt"

	"formscan/internal/merge"
	"formscan/internal/result"
	"formscan/internal/template"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Results"

// WriteXLSX writes the fused document to an .xlsx workbook. Columns are
// built from the union of questions across pages: one column per possible
// answer, marked "X" when checked.
func WriteXLSX(doc *merge.Document, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	ids, questions := collectQuestions(doc)

	headers := []string{"Page", "Overall"}
	for _, id := range ids {
		q := questions[id]
		for _, answer := range q.Answers {
			headers = append(headers, fmt.Sprintf("%s - %s", q.Title, answer.Label))
		}
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return err
		}
	}
	if err := styleHeader(f, len(headers)); err != nil {
		return err
	}

	for i, page := range doc.Pages {
		row := i + 2
		setCell(f, 1, row, page.Page)
		if page.Overall != nil {
			setCell(f, 2, row, *page.Overall)
		}

		col := 3
		for _, id := range ids {
			reference := questions[id]
			answers := page.Questions[id].Answers
			for j := range reference.Answers {
				if j < len(answers) && answers[j].State == result.StateChecked {
					setCell(f, col, row, "X")
				}
				col++
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// collectQuestions gathers every question seen across pages, keyed by id,
// in form order. Pages that failed analysis contribute nothing.
func collectQuestions(doc *merge.Document) ([]string, map[string]merge.Question) {
	questions := map[string]merge.Question{}
	for _, page := range doc.Pages {
		for id, q := range page.Questions {
			if _, ok := questions[id]; !ok {
				questions[id] = q
			}
		}
	}

	ids := make([]string, 0, len(questions))
	for id := range questions {
		ids = append(ids, id)
	}
	template.SortQuestionIDs(ids)
	return ids, questions
}

func styleHeader(f *excelize.File, columns int) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDDDDD"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	first, err := excelize.CoordinatesToCellName(1, 1)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(columns, 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheetName, first, last, style)
}

func setCell(f *excelize.File, col, row int, value any) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return
	}
	_ = f.SetCellValue(sheetName, cell, value)
}
