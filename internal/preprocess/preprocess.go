// Package preprocess produces binary foreground masks with scanner ruling
// artifacts removed while glyph content is preserved.
package preprocess

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// Config holds the line-removal parameters.
type Config struct {
	// Thin structures at most this wide and at least this long are erased
	// in both orientations.
	ThinLineMaxWidth int `yaml:"thin_line_max_width"`
	ThinLineMinLen   int `yaml:"thin_line_min_len"`

	// Segment-transform pass used by CleanAggressive only.
	HoughThreshold      int     `yaml:"hough_threshold"`
	HoughMinLineLen     int     `yaml:"hough_min_line_len"`
	HoughMaxGap         int     `yaml:"hough_max_gap"`
	HoughAngleMinDeg    float64 `yaml:"hough_angle_min_deg"`
	HoughAngleMaxDeg    float64 `yaml:"hough_angle_max_deg"`
	HoughEraseHalfWidth int     `yaml:"hough_erase_half_width"`
}

// DefaultConfig returns the parameters tuned for 600 DPI questionnaire scans.
func DefaultConfig() Config {
	return Config{
		ThinLineMaxWidth:    2,
		ThinLineMinLen:      100,
		HoughThreshold:      50,
		HoughMinLineLen:     500,
		HoughMaxGap:         100,
		HoughAngleMinDeg:    85,
		HoughAngleMaxDeg:    95,
		HoughEraseHalfWidth: 10,
	}
}

// Cleaner removes ruling lines from scanned pages.
type Cleaner struct {
	cfg Config
}

// NewCleaner creates a Cleaner with the given configuration.
func NewCleaner(cfg Config) *Cleaner {
	return &Cleaner{cfg: cfg}
}

// CleanBase binarizes the page and removes thin-and-long line structures in
// both orientations. It never touches page-edge content, so the shaded
// rectangle survives. Always returns a grayscale image (ink dark).
func (c *Cleaner) CleanBase(gray gocv.Mat) gocv.Mat {
	binary := binarizeInkWhite(gray)
	defer binary.Close()

	result := binary.Clone()
	c.eraseThinLines(binary, &result)

	gocv.BitwiseNot(result, &result)
	return result
}

// CleanAggressive runs the base cleanup plus a line-segment transform that
// erases long near-vertical segments, dashed ones included. Used only for
// the scale-line search: it would cut the shaded rectangle's own edges.
func (c *Cleaner) CleanAggressive(gray gocv.Mat) gocv.Mat {
	binary := binarizeInkWhite(gray)
	defer binary.Close()

	result := binary.Clone()
	c.eraseThinLines(binary, &result)
	c.eraseVerticalSegments(binary, &result)

	gocv.BitwiseNot(result, &result)
	return result
}

// binarizeInkWhite applies Otsu thresholding and flips the polarity if needed
// so ink ends up white on black.
func binarizeInkWhite(gray gocv.Mat) gocv.Mat {
	binary := gocv.NewMat()
	gocv.Threshold(gray, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	if binary.Mean().Val1 > 127 {
		gocv.BitwiseNot(binary, &binary)
	}
	return binary
}

// eraseThinLines detects thin horizontal and vertical structures through
// directional morphological opening and blacks out their bounding boxes.
func (c *Cleaner) eraseThinLines(binary gocv.Mat, result *gocv.Mat) {
	black := color.RGBA{}

	kernelH := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(c.cfg.ThinLineMinLen, 1))
	defer kernelH.Close()
	detectedH := gocv.NewMat()
	defer detectedH.Close()
	gocv.MorphologyEx(binary, &detectedH, gocv.MorphOpen, kernelH)

	contoursH := gocv.FindContours(detectedH, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contoursH.Close()
	for i := 0; i < contoursH.Size(); i++ {
		rect := gocv.BoundingRect(contoursH.At(i))
		if rect.Dy() <= c.cfg.ThinLineMaxWidth && rect.Dx() >= c.cfg.ThinLineMinLen {
			gocv.Rectangle(result, rect, black, -1)
		}
	}

	kernelV := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(1, c.cfg.ThinLineMinLen))
	defer kernelV.Close()
	detectedV := gocv.NewMat()
	defer detectedV.Close()
	gocv.MorphologyEx(binary, &detectedV, gocv.MorphOpen, kernelV)

	contoursV := gocv.FindContours(detectedV, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contoursV.Close()
	for i := 0; i < contoursV.Size(); i++ {
		rect := gocv.BoundingRect(contoursV.At(i))
		if rect.Dx() <= c.cfg.ThinLineMaxWidth && rect.Dy() >= c.cfg.ThinLineMinLen {
			gocv.Rectangle(result, rect, black, -1)
		}
	}
}

// eraseVerticalSegments removes long near-vertical segments found by a
// probabilistic line transform over the edge map. Catches dashed cut/scan
// lines that the morphological pass misses.
func (c *Cleaner) eraseVerticalSegments(binary gocv.Mat, result *gocv.Mat) {
	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(binary, &edges, 50, 150)

	lines := gocv.NewMat()
	defer lines.Close()
	gocv.HoughLinesPWithParams(edges, &lines, 1, math.Pi/180,
		c.cfg.HoughThreshold, float32(c.cfg.HoughMinLineLen), float32(c.cfg.HoughMaxGap))

	black := color.RGBA{}
	for i := 0; i < lines.Rows(); i++ {
		v := lines.GetVeciAt(i, 0)
		x1, y1, x2, y2 := int(v[0]), int(v[1]), int(v[2]), int(v[3])

		angle := 90.0
		if x2 != x1 {
			angle = math.Abs(math.Atan2(float64(y2-y1), float64(x2-x1)) * 180 / math.Pi)
		}
		if angle < c.cfg.HoughAngleMinDeg || angle > c.cfg.HoughAngleMaxDeg {
			continue
		}
		if abs(y2-y1) < c.cfg.HoughMinLineLen {
			continue
		}

		xMid := (x1 + x2) / 2
		band := image.Rect(xMid-c.cfg.HoughEraseHalfWidth, min(y1, y2),
			xMid+c.cfg.HoughEraseHalfWidth, max(y1, y2))
		gocv.Rectangle(result, band, black, -1)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
