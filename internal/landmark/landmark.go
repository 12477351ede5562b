// Package landmark locates the calibration landmarks of a scanned
// questionnaire page: the severity scale line and the shaded answer
// rectangle. The six resulting points align scan coordinates to the blank
// template; only a rigid horizontal shift is modeled.
package landmark

import (
	"errors"
	"fmt"

	"formscan/internal/preprocess"
	"formscan/pkg/geometry"

	"gocv.io/x/gocv"
)

// ErrNotFound reports an undetectable landmark. Callers treat it as a
// per-page failure, never as a batch failure.
var ErrNotFound = errors.New("landmark not found")

// Span is a horizontal segment located on the page.
type Span struct {
	LeftX  int `json:"left_x"`
	RightX int `json:"right_x"`
	Y      int `json:"y"`
}

// Width returns the segment length in pixels.
func (s Span) Width() int {
	return s.RightX - s.LeftX
}

// Left returns the left endpoint.
func (s Span) Left() geometry.PointInt {
	return geometry.PointInt{X: s.LeftX, Y: s.Y}
}

// Right returns the right endpoint.
func (s Span) Right() geometry.PointInt {
	return geometry.PointInt{X: s.RightX, Y: s.Y}
}

// Set holds the six calibration points of one page.
type Set struct {
	ScaleLeft       geometry.PointInt `json:"scale_left"`
	ScaleRight      geometry.PointInt `json:"scale_right"`
	RectTopLeft     geometry.PointInt `json:"rect_top_left"`
	RectTopRight    geometry.PointInt `json:"rect_top_right"`
	RectBottomLeft  geometry.PointInt `json:"rect_bottom_left"`
	RectBottomRight geometry.PointInt `json:"rect_bottom_right"`
}

// Scale returns the scale line as a span.
func (s *Set) Scale() Span {
	return Span{LeftX: s.ScaleLeft.X, RightX: s.ScaleRight.X, Y: s.ScaleLeft.Y}
}

// Config holds the landmark search parameters, tuned for 600 DPI scans.
type Config struct {
	// Scale line search.
	LineBandHalfHeight int     `yaml:"line_band_half_height"` // thickening applied to each scanned row
	EdgeBandHeight     int     `yaml:"edge_band_height"`      // band height around the found line
	EdgeWindow         int     `yaml:"edge_window"`           // sliding window width for edge detection
	EdgeDensity        float64 `yaml:"edge_density"`          // min mean normalized density inside a window

	// Shaded rectangle search.
	RectSearchYFrac float64 `yaml:"rect_search_y_frac"` // top of the search region, fraction of height
	RectSearchXFrac float64 `yaml:"rect_search_x_frac"` // left of the search region, fraction of width
	RectMinHeight   int     `yaml:"rect_min_height"`    // reject candidate runs shorter than this
	RectEdgeWindow  int     `yaml:"rect_edge_window"`   // continuity window for the vertical edges
	RectEdgeFill    float64 `yaml:"rect_edge_fill"`     // min fraction of dark samples inside the window
}

// DefaultConfig returns the parameters tuned for 600 DPI questionnaire scans.
func DefaultConfig() Config {
	return Config{
		LineBandHalfHeight: 5,
		EdgeBandHeight:     40,
		EdgeWindow:         20,
		EdgeDensity:        0.15,
		RectSearchYFrac:    0.5,
		RectSearchXFrac:    2.0 / 3.0,
		RectMinHeight:      200,
		RectEdgeWindow:     200,
		RectEdgeFill:       0.8,
	}
}

// Locator finds the calibration landmarks on cleaned page images.
type Locator struct {
	cfg     Config
	cleaner *preprocess.Cleaner
}

// NewLocator creates a Locator using the given cleaner for the two cleanup
// passes.
func NewLocator(cfg Config, cleaner *preprocess.Cleaner) *Locator {
	return &Locator{cfg: cfg, cleaner: cleaner}
}

// Locate finds all six calibration points on a grayscale page.
//
// The scale line is searched on the aggressively cleaned image (long vertical
// scan artifacts erased), the rectangle on the base-cleaned image: the
// aggressive pass would erase the rectangle's own edges.
func (l *Locator) Locate(gray gocv.Mat) (*Set, error) {
	scale, err := l.LocateScale(gray)
	if err != nil {
		return nil, err
	}

	rect, left, right, err := l.LocateRect(gray)
	if err != nil {
		return nil, err
	}

	return &Set{
		ScaleLeft:       scale.Left(),
		ScaleRight:      scale.Right(),
		RectTopLeft:     geometry.PointInt{X: left, Y: rect.Y},
		RectTopRight:    geometry.PointInt{X: right, Y: rect.Y},
		RectBottomLeft:  geometry.PointInt{X: left, Y: rect.Y + rect.Height},
		RectBottomRight: geometry.PointInt{X: right, Y: rect.Y + rect.Height},
	}, nil
}

// LocateScale finds the severity scale line and its left/right endpoints.
func (l *Locator) LocateScale(gray gocv.Mat) (Span, error) {
	clean := l.cleaner.CleanAggressive(gray)
	defer clean.Close()

	y, ok := l.findScaleLine(clean)
	if !ok {
		return Span{}, fmt.Errorf("scale line: %w", ErrNotFound)
	}

	left, right, err := l.findScaleEdges(clean, y)
	if err != nil {
		return Span{}, err
	}

	return Span{LeftX: left, RightX: right, Y: y}, nil
}

// LocateRect finds the shaded rectangle's vertical span and lateral edges.
func (l *Locator) LocateRect(gray gocv.Mat) (geometry.Rect, int, int, error) {
	clean := l.cleaner.CleanBase(gray)
	defer clean.Close()

	rect, err := l.findShadedRect(clean)
	if err != nil {
		return geometry.Rect{}, 0, 0, err
	}

	left, right, err := l.findRectEdges(clean, rect)
	if err != nil {
		return geometry.Rect{}, 0, 0, err
	}

	return rect, left, right, nil
}

// Offset returns the horizontal shift between a template scale and a scanned
// one, from the left endpoints. Zero when either side is undetected.
func Offset(template, scan *Span) int {
	if template == nil || scan == nil {
		return 0
	}
	return scan.LeftX - template.LeftX
}
