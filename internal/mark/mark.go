// Package mark classifies detected checkboxes as filled or empty from the
// ink inside their borders.
package mark

import (
	"image"

	"formscan/internal/checkbox"

	"gocv.io/x/gocv"
)

// State is the classification outcome for one box.
type State int

const (
	// Empty means no deliberate mark was found inside the box.
	Empty State = iota
	// FilledDensity means the interior is mostly ink (heavy scribble).
	FilledDensity
	// FilledStrokes means distinct stroke components were found (cross, tick).
	FilledStrokes
)

func (s State) String() string {
	switch s {
	case FilledDensity:
		return "filled-by-density"
	case FilledStrokes:
		return "filled-by-strokes"
	default:
		return "empty"
	}
}

// Filled reports whether the state counts as a marked box.
func (s State) Filled() bool {
	return s != Empty
}

// Result carries the classification and the measurements behind it.
type Result struct {
	State    State
	InkRatio float64 // foreground fraction of the interior
	Strokes  int     // significant connected components
}

// Config holds the classification parameters.
type Config struct {
	InteriorMargin float64 `yaml:"interior_margin"`  // crop margin per axis, fraction of box size
	InkThreshold   int     `yaml:"ink_threshold"`    // fixed binarization threshold, ink below
	FillRatio      float64 `yaml:"fill_ratio"`       // interior ink fraction above which the box is filled
	StrokeMinFrac  float64 `yaml:"stroke_min_frac"`  // min component area, fraction of the interior
	MinStrokeCount int     `yaml:"min_stroke_count"` // components required for filled-by-strokes
}

// DefaultConfig returns the parameters tuned for 600 DPI questionnaire scans.
func DefaultConfig() Config {
	return Config{
		InteriorMargin: 0.25,
		InkThreshold:   180,
		FillRatio:      0.5,
		StrokeMinFrac:  0.1,
		MinStrokeCount: 1,
	}
}

// Classifier decides filled/empty for detected boxes.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a Classifier with the given configuration.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Stats Mat column for the component pixel count (CC_STAT_AREA).
const ccStatArea = 4

// Classify inspects the interior of one box on the grayscale page.
//
// The interior is cropped with a margin on each axis so border ink never
// counts. The box is filled when the ink ratio strictly exceeds the
// configured fraction, or when enough large connected stroke components
// remain after noise filtering.
func (c *Classifier) Classify(gray gocv.Mat, box checkbox.Box) Result {
	marginX := int(float64(box.W) * c.cfg.InteriorMargin)
	marginY := int(float64(box.H) * c.cfg.InteriorMargin)

	x0 := box.X + marginX
	y0 := box.Y + marginY
	w := box.W - 2*marginX
	h := box.H - 2*marginY
	if w <= 0 || h <= 0 {
		return Result{State: Empty}
	}

	roi := gray.Region(image.Rect(x0, y0, x0+w, y0+h))
	defer roi.Close()

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(roi, &binary, float32(c.cfg.InkThreshold), 255, gocv.ThresholdBinaryInv)

	interior := float64(w * h)
	inkRatio := float64(gocv.CountNonZero(binary)) / interior

	if inkRatio > c.cfg.FillRatio {
		return Result{State: FilledDensity, InkRatio: inkRatio}
	}

	// Count components big enough to be a deliberate stroke; specks of
	// noise and bleed-through stay below the area floor.
	labels := gocv.NewMat()
	defer labels.Close()
	stats := gocv.NewMat()
	defer stats.Close()
	centroids := gocv.NewMat()
	defer centroids.Close()

	n := gocv.ConnectedComponentsWithStats(binary, &labels, &stats, &centroids)

	minArea := interior * c.cfg.StrokeMinFrac
	strokes := 0
	for i := 1; i < n; i++ { // label 0 is the background
		if float64(stats.GetIntAt(i, ccStatArea)) > minArea {
			strokes++
		}
	}

	if strokes >= c.cfg.MinStrokeCount {
		return Result{State: FilledStrokes, InkRatio: inkRatio, Strokes: strokes}
	}

	return Result{State: Empty, InkRatio: inkRatio, Strokes: strokes}
}
