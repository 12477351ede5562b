package landmark

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// findScaleLine locates the row carrying the longest contiguous horizontal
// segment on the page, which is the severity scale rule.
//
// Every row is thickened by LineBandHalfHeight pixels on each side before
// building its column-existence vector, so small waviness in the printed rule
// does not break the run. The globally longest run wins; the first occurrence
// wins ties.
func (l *Locator) findScaleLine(clean gocv.Mat) (int, bool) {
	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(clean, &binary, 127, 255, gocv.ThresholdBinaryInv)

	h := binary.Rows()
	w := binary.Cols()
	if h == 0 || w == 0 {
		return 0, false
	}

	hb := l.cfg.LineBandHalfHeight

	// Per-column count of foreground pixels inside the sliding band
	// [y-hb, y+hb). Updated incrementally as the band moves down.
	colCount := make([]int, w)
	addRow := func(y int) {
		for x := 0; x < w; x++ {
			if binary.GetUCharAt(y, x) > 0 {
				colCount[x]++
			}
		}
	}
	removeRow := func(y int) {
		for x := 0; x < w; x++ {
			if binary.GetUCharAt(y, x) > 0 {
				colCount[x]--
			}
		}
	}

	for y := 0; y < min(hb, h); y++ {
		addRow(y)
	}

	bestY := 0
	bestLen := 0
	found := false

	for y := 0; y < h; y++ {
		if y+hb-1 < h && y > 0 {
			addRow(y + hb - 1)
		}
		if y-hb-1 >= 0 {
			removeRow(y - hb - 1)
		}

		_, runLen := longestRun(colCount)
		if runLen > bestLen {
			bestLen = runLen
			bestY = y
			found = true
		}
	}

	return bestY, found
}

// longestRun returns the start and length of the longest run of positive
// entries. First occurrence wins on ties.
func longestRun(counts []int) (int, int) {
	bestStart, bestLen := 0, 0
	start := -1

	for x, c := range counts {
		if c > 0 {
			if start < 0 {
				start = x
			}
			continue
		}
		if start >= 0 {
			if x-start > bestLen {
				bestStart, bestLen = start, x-start
			}
			start = -1
		}
	}
	if start >= 0 && len(counts)-start > bestLen {
		bestStart, bestLen = start, len(counts)-start
	}

	return bestStart, bestLen
}

// findScaleEdges locates the left and right endpoints of the scale line by
// sliding a density window inward from each side of a horizontal band around
// the line.
func (l *Locator) findScaleEdges(clean gocv.Mat, lineY int) (int, int, error) {
	h := clean.Rows()
	w := clean.Cols()

	y0 := max(0, lineY-l.cfg.EdgeBandHeight/2)
	y1 := min(h, lineY+l.cfg.EdgeBandHeight/2)

	band := clean.Region(image.Rect(0, y0, w, y1))
	defer band.Close()

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(band, &binary, 0, 255, gocv.ThresholdBinaryInv|gocv.ThresholdOtsu)

	// Column density, normalized to [0,1].
	density := make([]float64, w)
	for x := 0; x < w; x++ {
		var sum float64
		for y := 0; y < binary.Rows(); y++ {
			sum += float64(binary.GetUCharAt(y, x))
		}
		density[x] = sum
	}
	if m := floats.Max(density); m > 0 {
		floats.Scale(1/m, density)
	}

	window := l.cfg.EdgeWindow

	left := -1
	for x := 0; x+window < w; x++ {
		if stat.Mean(density[x:x+window], nil) > l.cfg.EdgeDensity {
			left = x
			break
		}
	}

	right := -1
	for x := w - 1; x > window; x-- {
		if stat.Mean(density[x-window:x], nil) > l.cfg.EdgeDensity {
			right = x
			break
		}
	}

	if left < 0 || right < 0 {
		return 0, 0, fmt.Errorf("scale edges: %w", ErrNotFound)
	}
	return left, right, nil
}
