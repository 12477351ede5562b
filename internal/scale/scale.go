// Package scale scores the six-position severity scale from pencil marks
// left in the band under the printed rule.
package scale

import (
	"image"
	"image/color"
	"math"
	"sort"

	"formscan/internal/landmark"
	"formscan/pkg/geometry"

	"gocv.io/x/gocv"
)

// Blob is a connected foreground region inside the analysis band.
// Coordinates are relative to the band.
type Blob struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	W    int `json:"w"`
	H    int `json:"h"`
	Area int `json:"area"`
	CX   int `json:"cx"`
	CY   int `json:"cy"`
}

// Result carries the scored graduations plus the intermediate regions,
// which the diagnostic overlay renders.
type Result struct {
	Scores []int // sorted graduation indices, each at most once

	Digits []Blob // printed digits excluded from scoring
	Marks  []Blob // pencil marks mapped to graduations

	CropOrigin geometry.PointInt // crop offset in page coordinates
	Band       geometry.Rect     // analysis band in crop coordinates
}

// Config holds the scoring parameters.
type Config struct {
	CropMarginX      int `yaml:"crop_margin_x"`      // horizontal margin around the scale endpoints
	CropMarginTop    int `yaml:"crop_margin_top"`    // margin above the rule
	CropMarginBottom int `yaml:"crop_margin_bottom"` // margin below the rule

	InkThreshold      int `yaml:"ink_threshold"`        // fixed binarization threshold, ink below
	RuleEraseHalfBand int `yaml:"rule_erase_half_band"` // half-height of the erased band around the rule
	BandOffset        int `yaml:"band_offset"`          // gap between the erased band and the analysis band
	BandHeight        int `yaml:"band_height"`          // analysis band height
	MinBlobArea       int `yaml:"min_blob_area"`        // components smaller than this are noise
	MaxDigitWidth     int `yaml:"max_digit_width"`      // blobs at most this wide are printed digits
	Graduations       int `yaml:"graduations"`          // number of discrete scale positions
}

// DefaultConfig returns the parameters tuned for 600 DPI questionnaire scans.
func DefaultConfig() Config {
	return Config{
		CropMarginX:       250,
		CropMarginTop:     125,
		CropMarginBottom:  250,
		InkThreshold:      200,
		RuleEraseHalfBand: 20,
		BandOffset:        20,
		BandHeight:        200,
		MinBlobArea:       200,
		MaxDigitWidth:     45,
		Graduations:       6,
	}
}

// Scorer maps pencil marks under a located scale line to graduations.
type Scorer struct {
	cfg Config
}

// NewScorer creates a Scorer with the given configuration.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score analyzes the band under the scale line and returns the marked
// graduations.
//
// The printed rule itself is erased before component labeling so it cannot
// register as a mark; printed digits are told apart from pencil marks by
// width alone, which holds at the fixed scan resolution.
func (s *Scorer) Score(gray gocv.Mat, sc landmark.Span) Result {
	h := gray.Rows()
	w := gray.Cols()

	xMin := max(0, sc.LeftX-s.cfg.CropMarginX)
	xMax := min(w, sc.RightX+s.cfg.CropMarginX)
	yMin := max(0, sc.Y-s.cfg.CropMarginTop)
	yMax := min(h, sc.Y+s.cfg.CropMarginBottom)

	crop := gray.Region(image.Rect(xMin, yMin, xMax, yMax))
	defer crop.Close()

	// Scale coordinates inside the crop.
	left := sc.LeftX - xMin
	right := sc.RightX - xMin
	lineY := sc.Y - yMin

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(crop, &binary, float32(s.cfg.InkThreshold), 255, gocv.ThresholdBinaryInv)

	eraseTop := max(0, lineY-s.cfg.RuleEraseHalfBand)
	eraseBottom := min(binary.Rows(), lineY+s.cfg.RuleEraseHalfBand)
	gocv.Rectangle(&binary, image.Rect(left, eraseTop, right, eraseBottom), color.RGBA{}, -1)

	bandTop := eraseBottom + s.cfg.BandOffset
	bandBottom := min(binary.Rows(), bandTop+s.cfg.BandHeight)
	result := Result{
		CropOrigin: geometry.PointInt{X: xMin, Y: yMin},
	}
	if bandTop >= bandBottom {
		return result
	}
	result.Band = geometry.Rect{X: 0, Y: bandTop, Width: binary.Cols(), Height: bandBottom - bandTop}

	band := binary.Region(image.Rect(0, bandTop, binary.Cols(), bandBottom))
	defer band.Close()

	blobs := labelBlobs(band, s.cfg.MinBlobArea)

	for _, blob := range blobs {
		if blob.W <= s.cfg.MaxDigitWidth {
			result.Digits = append(result.Digits, blob)
		} else {
			result.Marks = append(result.Marks, blob)
		}
	}

	seen := make(map[int]bool)
	for _, blob := range result.Marks {
		grad := nearestGraduation(blob.CX, left, right-left, s.cfg.Graduations)
		if !seen[grad] {
			seen[grad] = true
			result.Scores = append(result.Scores, grad)
		}
	}
	sort.Ints(result.Scores)

	return result
}

// Stats Mat columns from component labeling.
const (
	ccStatLeft   = 0
	ccStatTop    = 1
	ccStatWidth  = 2
	ccStatHeight = 3
	ccStatArea   = 4
)

// labelBlobs runs connected-component labeling and keeps components above
// the area floor.
func labelBlobs(binary gocv.Mat, minArea int) []Blob {
	labels := gocv.NewMat()
	defer labels.Close()
	stats := gocv.NewMat()
	defer stats.Close()
	centroids := gocv.NewMat()
	defer centroids.Close()

	n := gocv.ConnectedComponentsWithStats(binary, &labels, &stats, &centroids)

	var blobs []Blob
	for i := 1; i < n; i++ { // label 0 is the background
		area := int(stats.GetIntAt(i, ccStatArea))
		if area <= minArea {
			continue
		}
		blobs = append(blobs, Blob{
			X:    int(stats.GetIntAt(i, ccStatLeft)),
			Y:    int(stats.GetIntAt(i, ccStatTop)),
			W:    int(stats.GetIntAt(i, ccStatWidth)),
			H:    int(stats.GetIntAt(i, ccStatHeight)),
			Area: area,
			CX:   int(centroids.GetDoubleAt(i, 0)),
			CY:   int(centroids.GetDoubleAt(i, 1)),
		})
	}
	return blobs
}

// nearestGraduation snaps a centroid x to the closest of n evenly spaced
// graduation positions along the scale.
func nearestGraduation(cx, left, width, graduations int) int {
	spacing := float64(width) / float64(graduations-1)

	best := 0
	bestDist := math.Inf(1)
	for g := 0; g < graduations; g++ {
		pos := float64(left) + float64(g)*spacing
		if d := math.Abs(float64(cx) - pos); d < bestDist {
			bestDist = d
			best = g
		}
	}
	return best
}
