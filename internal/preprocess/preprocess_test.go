package preprocess

import (
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

func newPage(rows, cols int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), rows, cols, gocv.MatTypeCV8UC1)
}

func TestCleanBase_RemovesThinRuling(t *testing.T) {
	img := newPage(400, 800)
	defer img.Close()

	// A 1px ruling line and a checkbox-sized square.
	gocv.Line(&img, image.Pt(50, 100), image.Pt(350, 100), color.RGBA{}, 1)
	gocv.Rectangle(&img, image.Rect(100, 200, 146, 246), color.RGBA{}, 3)

	c := NewCleaner(DefaultConfig())
	clean := c.CleanBase(img)
	defer clean.Close()

	if got := clean.GetUCharAt(100, 200); got != 255 {
		t.Errorf("ruling line survived at (200,100): %d", got)
	}
	if got := clean.GetUCharAt(200, 123); got != 0 {
		t.Errorf("checkbox border erased at (123,200): %d", got)
	}
}

func TestCleanBase_KeepsThickLines(t *testing.T) {
	img := newPage(400, 800)
	defer img.Close()

	// The scale rule is thicker than the thin-line ceiling.
	gocv.Line(&img, image.Pt(50, 100), image.Pt(350, 100), color.RGBA{}, 5)

	c := NewCleaner(DefaultConfig())
	clean := c.CleanBase(img)
	defer clean.Close()

	if got := clean.GetUCharAt(100, 200); got != 0 {
		t.Errorf("thick rule erased at (200,100): %d", got)
	}
}

func TestCleanAggressive_RemovesLongVerticalSegments(t *testing.T) {
	img := newPage(900, 600)
	defer img.Close()

	// A scanner cut line: 4px wide, too thick for the morphological pass,
	// caught by the segment transform instead.
	gocv.Line(&img, image.Pt(200, 100), image.Pt(200, 700), color.RGBA{}, 4)

	c := NewCleaner(DefaultConfig())

	base := c.CleanBase(img)
	defer base.Close()
	if got := base.GetUCharAt(400, 200); got != 0 {
		t.Errorf("base cleanup touched the 4px line at (200,400): %d", got)
	}

	aggressive := c.CleanAggressive(img)
	defer aggressive.Close()
	if got := aggressive.GetUCharAt(400, 200); got != 255 {
		t.Errorf("aggressive cleanup kept the 4px line at (200,400): %d", got)
	}
}

func TestCleanAggressive_KeepsShortVerticalStrokes(t *testing.T) {
	img := newPage(900, 600)
	defer img.Close()

	// Stroke well under the minimum segment length.
	gocv.Line(&img, image.Pt(200, 100), image.Pt(200, 250), color.RGBA{}, 4)

	c := NewCleaner(DefaultConfig())
	clean := c.CleanAggressive(img)
	defer clean.Close()

	if got := clean.GetUCharAt(150, 200); got != 0 {
		t.Errorf("short stroke erased at (200,150): %d", got)
	}
}

func TestCleanBase_InvertedScan(t *testing.T) {
	// Some scanners deliver white-on-black pages; polarity is normalized
	// before any line removal.
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 400, 800, gocv.MatTypeCV8UC1)
	defer img.Close()
	gocv.Rectangle(&img, image.Rect(100, 200, 146, 246), color.RGBA{R: 255, G: 255, B: 255}, 3)

	c := NewCleaner(DefaultConfig())
	clean := c.CleanBase(img)
	defer clean.Close()

	if got := clean.GetUCharAt(200, 123); got != 0 {
		t.Errorf("box border lost on inverted scan at (123,200): %d", got)
	}
	if got := clean.GetUCharAt(300, 400); got != 255 {
		t.Errorf("background not normalized to white at (400,300): %d", got)
	}
}
