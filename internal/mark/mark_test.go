package mark

import (
	"image"
	"image/color"
	"math"
	"testing"

	"formscan/internal/checkbox"

	"gocv.io/x/gocv"
)

var testBox = checkbox.Box{X: 100, Y: 100, W: 40, H: 40}

// newPage returns a white page with the test box's border drawn, the way a
// scanned empty checkbox appears.
func newPage() gocv.Mat {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 300, 300, gocv.MatTypeCV8UC1)
	gocv.Rectangle(&img, image.Rect(100, 100, 140, 140), color.RGBA{}, 3)
	return img
}

func TestClassify_EmptyBox(t *testing.T) {
	img := newPage()
	defer img.Close()

	res := NewClassifier(DefaultConfig()).Classify(img, testBox)
	if res.State != Empty {
		t.Errorf("got %v, want empty", res.State)
	}
	if res.State.Filled() {
		t.Error("empty state reported as filled")
	}
	if res.InkRatio > 0.05 {
		t.Errorf("border ink leaked into the interior: ratio %f", res.InkRatio)
	}
}

func TestClassify_DenseFill(t *testing.T) {
	img := newPage()
	defer img.Close()

	// Scribble covering most of the 20x20 interior at (110,110).
	gocv.Rectangle(&img, image.Rect(110, 110, 130, 128), color.RGBA{}, -1)

	res := NewClassifier(DefaultConfig()).Classify(img, testBox)
	if res.State != FilledDensity {
		t.Errorf("got %v, want filled-by-density", res.State)
	}
	if !res.State.Filled() {
		t.Error("dense state not reported as filled")
	}
}

func TestClassify_DensityThresholdIsStrict(t *testing.T) {
	img := newPage()
	defer img.Close()

	// Exactly half the interior: 10 of 20 rows. Half is not enough for the
	// density rule, but the single large component still counts as a stroke.
	gocv.Rectangle(&img, image.Rect(110, 110, 130, 120), color.RGBA{}, -1)

	res := NewClassifier(DefaultConfig()).Classify(img, testBox)
	if math.Abs(res.InkRatio-0.5) > 1e-9 {
		t.Fatalf("ink ratio: got %f, want 0.5", res.InkRatio)
	}
	if res.State == FilledDensity {
		t.Error("ratio exactly at the threshold classified as dense")
	}
	if res.State != FilledStrokes {
		t.Errorf("got %v, want filled-by-strokes", res.State)
	}
}

func TestClassify_JustOverDensityThreshold(t *testing.T) {
	img := newPage()
	defer img.Close()

	// 204 of 400 interior pixels: ratio 0.51, just past the strict bound.
	gocv.Rectangle(&img, image.Rect(110, 110, 130, 120), color.RGBA{}, -1)
	gocv.Rectangle(&img, image.Rect(110, 120, 114, 121), color.RGBA{}, -1)

	res := NewClassifier(DefaultConfig()).Classify(img, testBox)
	if math.Abs(res.InkRatio-0.51) > 1e-9 {
		t.Fatalf("ink ratio: got %f, want 0.51", res.InkRatio)
	}
	if res.State != FilledDensity {
		t.Errorf("got %v, want filled-by-density", res.State)
	}
}

func TestClassify_CrossStroke(t *testing.T) {
	img := newPage()
	defer img.Close()

	// A diagonal pen stroke through the interior.
	gocv.Line(&img, image.Pt(110, 110), image.Pt(129, 129), color.RGBA{}, 3)

	res := NewClassifier(DefaultConfig()).Classify(img, testBox)
	if res.State != FilledStrokes {
		t.Errorf("got %v, want filled-by-strokes", res.State)
	}
	if res.Strokes < 1 {
		t.Errorf("strokes: got %d, want at least 1", res.Strokes)
	}
	if res.InkRatio > 0.5 {
		t.Errorf("a stroke should not look dense: ratio %f", res.InkRatio)
	}
}

func TestClassify_NoiseSpecksIgnored(t *testing.T) {
	img := newPage()
	defer img.Close()

	// Two specks well below the stroke area floor.
	gocv.Rectangle(&img, image.Rect(112, 112, 115, 115), color.RGBA{}, -1)
	gocv.Rectangle(&img, image.Rect(124, 124, 127, 127), color.RGBA{}, -1)

	res := NewClassifier(DefaultConfig()).Classify(img, testBox)
	if res.State != Empty {
		t.Errorf("got %v, want empty", res.State)
	}
	if res.Strokes != 0 {
		t.Errorf("strokes: got %d, want 0", res.Strokes)
	}
}

func TestClassify_DegenerateBox(t *testing.T) {
	img := newPage()
	defer img.Close()

	// A zero-size candidate must classify as empty, not crash.
	tiny := checkbox.Box{X: 100, Y: 100}
	res := NewClassifier(DefaultConfig()).Classify(img, tiny)
	if res.State != Empty {
		t.Errorf("got %v, want empty", res.State)
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Empty:         "empty",
		FilledDensity: "filled-by-density",
		FilledStrokes: "filled-by-strokes",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String(): got %q, want %q", state, got, want)
		}
	}
}
