package checkbox

import (
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

func TestDedupe_CollapsesNestedContours(t *testing.T) {
	d := NewDetector(DefaultConfig())

	// Outer and inner contour of the same printed box: centers 5px apart,
	// inside the suppression radius.
	boxes := []Box{
		{X: 100, Y: 100, W: 40, H: 40, Area: 1600},
		{X: 108, Y: 103, W: 34, H: 34, Area: 1156},
		{X: 300, Y: 100, W: 40, H: 40, Area: 1600},
	}

	unique := d.Dedupe(boxes)
	if len(unique) != 2 {
		t.Fatalf("Dedupe: got %d boxes, want 2", len(unique))
	}

	// The larger candidate of the pair must survive.
	for _, box := range unique {
		if box.Area != 1600 {
			t.Errorf("Dedupe kept the smaller duplicate: %+v", box)
		}
	}
}

func TestDedupe_KeepsDistantBoxes(t *testing.T) {
	d := NewDetector(DefaultConfig())

	boxes := []Box{
		{X: 100, Y: 100, W: 40, H: 40, Area: 1600},
		{X: 115, Y: 100, W: 40, H: 40, Area: 1500}, // 15px apart, above threshold
	}

	if got := len(d.Dedupe(boxes)); got != 2 {
		t.Errorf("Dedupe: got %d boxes, want 2", got)
	}
}

func TestDedupe_Empty(t *testing.T) {
	d := NewDetector(DefaultConfig())
	if got := d.Dedupe(nil); got != nil {
		t.Errorf("Dedupe(nil): got %v, want nil", got)
	}
}

func TestGroupRows(t *testing.T) {
	d := NewDetector(DefaultConfig())

	boxes := []Box{
		{X: 500, Y: 105},
		{X: 100, Y: 100},
		{X: 300, Y: 102},
		{X: 100, Y: 400},
		{X: 300, Y: 403},
	}

	rows := d.GroupRows(boxes)
	if len(rows) != 2 {
		t.Fatalf("GroupRows: got %d rows, want 2", len(rows))
	}
	if len(rows[0]) != 3 || len(rows[1]) != 2 {
		t.Fatalf("GroupRows: got row sizes %d/%d, want 3/2", len(rows[0]), len(rows[1]))
	}

	// Rows are ordered left to right.
	for _, row := range rows {
		for i := 1; i < len(row); i++ {
			if row[i].X < row[i-1].X {
				t.Errorf("row not sorted by x: %+v", row)
			}
		}
	}
}

func TestGroupRows_ReferenceIsFirstBox(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RowToleranceY = 50
	d := NewDetector(cfg)

	// y drifts by 40 per box; each stays within tolerance of the FIRST box
	// of the row, not the previous one, so the third box starts a new row.
	boxes := []Box{
		{X: 100, Y: 100},
		{X: 200, Y: 140},
		{X: 300, Y: 180},
	}

	rows := d.GroupRows(boxes)
	if len(rows) != 2 {
		t.Fatalf("GroupRows: got %d rows, want 2", len(rows))
	}
}

func TestGroupRows_Empty(t *testing.T) {
	d := NewDetector(DefaultConfig())
	if got := d.GroupRows(nil); got != nil {
		t.Errorf("GroupRows(nil): got %v, want nil", got)
	}
}

// drawSquare draws a square outline the way the printed boxes appear on a
// scan: a dark border a few pixels thick.
func drawSquare(img *gocv.Mat, x, y, size int) {
	gocv.Rectangle(img, image.Rect(x, y, x+size, y+size), color.RGBA{}, 3)
}

func TestDetect_FindsCheckboxSizedSquares(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 500, 500, gocv.MatTypeCV8UC1)
	defer img.Close()

	drawSquare(&img, 100, 100, 46) // checkbox sized
	drawSquare(&img, 300, 300, 25) // too small, below the area floor

	d := NewDetector(DefaultConfig())
	boxes := d.Dedupe(d.Detect(img))

	if len(boxes) != 1 {
		t.Fatalf("Detect: got %d boxes, want 1: %+v", len(boxes), boxes)
	}

	box := boxes[0]
	if box.X < 97 || box.X > 101 || box.Y < 97 || box.Y > 101 {
		t.Errorf("box position: got (%d,%d), want near (100,100)", box.X, box.Y)
	}
	if box.W < 42 || box.W > 50 {
		t.Errorf("box width: got %d, want near 46", box.W)
	}
}

func TestDetect_EmptyPage(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 300, 300, gocv.MatTypeCV8UC1)
	defer img.Close()

	d := NewDetector(DefaultConfig())
	if boxes := d.Detect(img); len(boxes) != 0 {
		t.Errorf("Detect on blank page: got %d boxes, want 0", len(boxes))
	}
}
