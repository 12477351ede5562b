// Package checkbox detects the quadrilateral answer boxes printed on a
// questionnaire page and orders them into left-to-right rows.
package checkbox

import (
	"sort"

	"formscan/pkg/geometry"

	"gocv.io/x/gocv"
)

// Box is a detected checkbox candidate.
type Box struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	W      int     `json:"w"`
	H      int     `json:"h"`
	Area   int     `json:"area"`
	Aspect float64 `json:"aspect"`
}

// Center returns the box center.
func (b Box) Center() geometry.Point2D {
	return geometry.Point2D{
		X: float64(b.X) + float64(b.W)/2,
		Y: float64(b.Y) + float64(b.H)/2,
	}
}

// Rect returns the bounding rectangle.
func (b Box) Rect() geometry.Rect {
	return geometry.Rect{X: b.X, Y: b.Y, Width: b.W, Height: b.H}
}

// Config holds the detection parameters. Areas are in px² at scan
// resolution.
type Config struct {
	MinArea       float64 `yaml:"min_area"`
	MaxArea       float64 `yaml:"max_area"`
	MinAspect     float64 `yaml:"min_aspect"`
	MaxAspect     float64 `yaml:"max_aspect"`
	ApproxEpsilon float64 `yaml:"approx_epsilon"` // polygon approximation, fraction of perimeter
	DedupeDist    float64 `yaml:"dedupe_dist"`    // min center distance between distinct boxes
	RowToleranceY int     `yaml:"row_tolerance_y"` // max y offset from the row's first box
}

// DefaultConfig returns the parameters tuned for 600 DPI questionnaire scans.
func DefaultConfig() Config {
	return Config{
		MinArea:       1000,
		MaxArea:       2500,
		MinAspect:     0.85,
		MaxAspect:     1.4,
		ApproxEpsilon: 0.02,
		DedupeDist:    10,
		RowToleranceY: 50,
	}
}

// Detector finds checkbox glyphs on grayscale pages.
type Detector struct {
	cfg Config
}

// NewDetector creates a Detector with the given configuration.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Detect returns every raw checkbox candidate on the page: contours
// (nested ones included) whose polygon approximation has exactly four
// vertices and whose bounding area and aspect ratio fall inside the
// configured bounds.
func (d *Detector) Detect(gray gocv.Mat) []Box {
	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(gray, &binary, 0, 255, gocv.ThresholdBinaryInv|gocv.ThresholdOtsu)

	contours := gocv.FindContours(binary, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer contours.Close()

	var boxes []Box
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)

		epsilon := d.cfg.ApproxEpsilon * gocv.ArcLength(contour, true)
		approx := gocv.ApproxPolyDP(contour, epsilon, true)
		vertices := approx.Size()
		approx.Close()

		if vertices != 4 {
			continue
		}

		rect := gocv.BoundingRect(contour)
		area := gocv.ContourArea(contour)
		if rect.Dy() == 0 {
			continue
		}
		aspect := float64(rect.Dx()) / float64(rect.Dy())

		if area < d.cfg.MinArea || area > d.cfg.MaxArea {
			continue
		}
		if aspect < d.cfg.MinAspect || aspect > d.cfg.MaxAspect {
			continue
		}

		boxes = append(boxes, Box{
			X:      rect.Min.X,
			Y:      rect.Min.Y,
			W:      rect.Dx(),
			H:      rect.Dy(),
			Area:   int(area),
			Aspect: aspect,
		})
	}

	return boxes
}

// Dedupe collapses candidates whose centers lie closer than the configured
// distance. Greedy largest-first suppression: the inner and outer contours of
// one printed box both survive detection, and the larger one wins.
func (d *Detector) Dedupe(boxes []Box) []Box {
	if len(boxes) == 0 {
		return nil
	}

	sorted := make([]Box, len(boxes))
	copy(sorted, boxes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Area > sorted[j].Area
	})

	var unique []Box
	for _, box := range sorted {
		duplicate := false
		for _, kept := range unique {
			if box.Center().Distance(kept.Center()) < d.cfg.DedupeDist {
				duplicate = true
				break
			}
		}
		if !duplicate {
			unique = append(unique, box)
		}
	}

	return unique
}

// GroupRows orders boxes into rows sharing y within tolerance, each row
// sorted left to right. The first box of a row sets its reference y.
func (d *Detector) GroupRows(boxes []Box) [][]Box {
	if len(boxes) == 0 {
		return nil
	}

	sorted := make([]Box, len(boxes))
	copy(sorted, boxes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y < sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var rows [][]Box
	current := []Box{sorted[0]}
	refY := sorted[0].Y

	flush := func() {
		sort.SliceStable(current, func(i, j int) bool {
			return current[i].X < current[j].X
		})
		rows = append(rows, current)
	}

	for _, box := range sorted[1:] {
		if abs(box.Y-refY) <= d.cfg.RowToleranceY {
			current = append(current, box)
			continue
		}
		flush()
		current = []Box{box}
		refY = box.Y
	}
	flush()

	return rows
}

// DetectRows runs the full pipeline: detection, deduplication and row
// grouping.
func (d *Detector) DetectRows(gray gocv.Mat) [][]Box {
	return d.GroupRows(d.Dedupe(d.Detect(gray)))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
