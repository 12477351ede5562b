package landmark

import (
	"fmt"
	"image"
	"sort"

	"formscan/pkg/geometry"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

// findShadedRect locates the shaded answer rectangle by row-intensity
// analysis of the bottom half / right third of the page. The shaded fill is
// lighter than ink but darker than paper, so the search works on normalized
// intensities rather than the binary mask.
func (l *Locator) findShadedRect(clean gocv.Mat) (geometry.Rect, error) {
	h := clean.Rows()
	w := clean.Cols()

	yTop := int(float64(h) * l.cfg.RectSearchYFrac)
	xLeft := int(float64(w) * l.cfg.RectSearchXFrac)

	zone := clean.Region(image.Rect(xLeft, yTop, w, h))
	defer zone.Close()

	norm := gocv.NewMat()
	defer norm.Close()
	gocv.Normalize(zone, &norm, 0, 255, gocv.NormMinMax)

	rowMeans := make([]float64, norm.Rows())
	for y := range rowMeans {
		var sum float64
		for x := 0; x < norm.Cols(); x++ {
			sum += float64(norm.GetUCharAt(y, x))
		}
		rowMeans[y] = sum / float64(norm.Cols())
	}

	// Threshold halfway between the median row and white.
	threshold := (median(rowMeans) + 255) / 2

	bestStart, bestLen := longestBelow(rowMeans, threshold)
	if bestLen < l.cfg.RectMinHeight {
		return geometry.Rect{}, fmt.Errorf("shaded rectangle: %w", ErrNotFound)
	}

	// Full page width; the lateral edges are refined separately.
	return geometry.Rect{X: 0, Y: bestStart + yTop, Width: w, Height: bestLen}, nil
}

// findRectEdges locates the rectangle's lateral edges within a band at its
// vertical middle. An edge is accepted only when the outward continuity
// window is mostly dark, so isolated ink specks cannot fake an edge.
func (l *Locator) findRectEdges(clean gocv.Mat, rect geometry.Rect) (int, int, error) {
	w := clean.Cols()

	yMid := rect.Y + rect.Height/2
	bandH := rect.Height / 4
	y0 := max(0, yMid-bandH/2)
	y1 := min(clean.Rows(), yMid+bandH/2)

	band := clean.Region(image.Rect(0, y0, w, y1))
	defer band.Close()

	norm := gocv.NewMat()
	defer norm.Close()
	gocv.Normalize(band, &norm, 0, 255, gocv.NormMinMax)

	colMeans := make([]float64, w)
	for x := 0; x < w; x++ {
		var sum float64
		for y := 0; y < norm.Rows(); y++ {
			sum += float64(norm.GetUCharAt(y, x))
		}
		colMeans[x] = sum / float64(norm.Rows())
	}

	threshold := (median(colMeans) + 255) / 2
	window := l.cfg.RectEdgeWindow

	left := -1
	for x := 0; x+window < w; x++ {
		if colMeans[x] < threshold && fractionBelow(colMeans[x:x+window], threshold) > l.cfg.RectEdgeFill {
			left = x
			break
		}
	}

	right := -1
	for x := w - 1; x > window; x-- {
		if colMeans[x] < threshold && fractionBelow(colMeans[x-window:x], threshold) > l.cfg.RectEdgeFill {
			right = x
			break
		}
	}

	if left < 0 || right < 0 {
		return 0, 0, fmt.Errorf("rectangle edges: %w", ErrNotFound)
	}
	return left, right, nil
}

// longestBelow returns the start and length of the longest run of values
// strictly below the threshold.
func longestBelow(values []float64, threshold float64) (int, int) {
	bestStart, bestLen := 0, 0
	start := -1

	for i, v := range values {
		if v < threshold {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if i-start > bestLen {
				bestStart, bestLen = start, i-start
			}
			start = -1
		}
	}
	if start >= 0 && len(values)-start > bestLen {
		bestStart, bestLen = start, len(values)-start
	}

	return bestStart, bestLen
}

// fractionBelow returns the fraction of samples strictly below the threshold.
func fractionBelow(values []float64, threshold float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var n int
	for _, v := range values {
		if v < threshold {
			n++
		}
	}
	return float64(n) / float64(len(values))
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
