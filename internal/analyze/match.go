package analyze

import (
	"formscan/internal/checkbox"
	"formscan/internal/template"
)

// missingIndices returns the template indices with no empty-classified box
// within tolX of the expected position (template x + dx) on the row.
//
// A missing empty detection is how a checked box manifests: heavily filled
// boxes often fail quadrilateral detection, so the checked state is inferred
// from absence rather than detected directly. Kept behind this narrow helper
// so a direct fill-detector can replace the inference wholesale.
func missingIndices(row []checkbox.Box, expected []template.Box, dx, tolX int) []int {
	if len(row) == 0 {
		indices := make([]int, len(expected))
		for i := range indices {
			indices[i] = i
		}
		return indices
	}

	var missing []int
	for idx, tmpl := range expected {
		if findEmpty(row, tmpl.X+dx, tolX) == nil {
			missing = append(missing, idx)
		}
	}
	return missing
}

// findEmpty returns the first box on the row within tolX of the expected x,
// or nil.
func findEmpty(row []checkbox.Box, expectedX, tolX int) *checkbox.Box {
	for i := range row {
		if abs(row[i].X-expectedX) < tolX {
			return &row[i]
		}
	}
	return nil
}

// rowY returns the representative y of a detected row, falling back to the
// template's first expected box when the row is empty.
func rowY(row []checkbox.Box, expected []template.Box) int {
	if len(row) == 0 {
		if len(expected) > 0 {
			return expected[0].Y
		}
		return 0
	}
	var sum int
	for _, box := range row {
		sum += box.Y
	}
	return sum / len(row)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func contains(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
