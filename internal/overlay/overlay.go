// Package overlay renders color-coded diagnostic images of analyzed pages.
// Rendering is a pure side effect behind the analyze.Observer interface and
// has no bearing on detection results.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"

	"formscan/internal/analyze"
	"formscan/internal/imageio"
	"formscan/internal/result"
	"formscan/internal/scale"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// Colors are RGBA; gocv maps them onto its BGR mats.
var (
	colorEmpty    = color.RGBA{R: 0, G: 255, B: 0}   // detected empty boxes
	colorInferred = color.RGBA{R: 255, G: 0, B: 0}   // inferred checked positions
	colorDense    = color.RGBA{R: 255, G: 165, B: 0} // filled by density
	colorStrokes  = color.RGBA{R: 0, G: 0, B: 255}   // filled by strokes
	colorBand     = color.RGBA{R: 0, G: 255, B: 255} // scale analysis band
	colorDigit    = color.RGBA{R: 255, G: 255, B: 0} // excluded printed digits
)

// Renderer writes one downscaled overlay image per analyzed page.
type Renderer struct {
	outDir    string
	downscale float64
}

// NewRenderer creates a Renderer writing into outDir. Overlays are saved at
// a fifth of scan size: full 600 DPI pages are unwieldy to eyeball.
func NewRenderer(outDir string) *Renderer {
	return &Renderer{outDir: outDir, downscale: 0.2}
}

// PageAnalyzed implements analyze.Observer.
func (r *Renderer) PageAnalyzed(page result.Page, view analyze.PageView) {
	if err := r.render(page, view); err != nil {
		slog.Warn("overlay rendering failed", "page", page.Page, "error", err)
	}
}

func (r *Renderer) render(page result.Page, view analyze.PageView) error {
	vis := gocv.NewMat()
	defer vis.Close()
	gocv.CvtColor(view.Image, &vis, gocv.ColorGrayToBGR)

	for _, box := range view.Empty {
		tintRect(&vis, box.Rect().ToImageRect(), colorEmpty)
	}
	for _, rect := range view.Inferred {
		tintRect(&vis, rect.ToImageRect(), colorInferred)
	}
	for _, box := range view.Dense {
		tintRect(&vis, box.Rect().ToImageRect(), colorDense)
	}
	for _, box := range view.Strokes {
		tintRect(&vis, box.Rect().ToImageRect(), colorStrokes)
	}

	r.drawScale(&vis, view)

	img, err := imageio.MatToImage(vis)
	if err != nil {
		return err
	}

	small := imaging.Resize(img, int(float64(vis.Cols())*r.downscale), 0, imaging.Lanczos)

	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(r.outDir, fmt.Sprintf("page_%d.png", page.Page))
	return imaging.Save(small, path)
}

// drawScale marks the scoring band, the excluded digits and the scored
// graduations in page coordinates.
func (r *Renderer) drawScale(vis *gocv.Mat, view analyze.PageView) {
	origin := view.Scale.CropOrigin
	band := view.Scale.Band

	bandRect := image.Rect(origin.X+band.X, origin.Y+band.Y,
		origin.X+band.X+band.Width, origin.Y+band.Y+band.Height)
	gocv.Rectangle(vis, bandRect, colorBand, 2)

	for _, blob := range view.Scale.Digits {
		gocv.Rectangle(vis, blobRect(origin.X, origin.Y+band.Y, blob), colorDigit, 2)
	}
	for _, blob := range view.Scale.Marks {
		gocv.Rectangle(vis, blobRect(origin.X, origin.Y+band.Y, blob), colorInferred, 3)
	}

	if view.Landmarks == nil || len(view.Scale.Scores) == 0 {
		return
	}
	scale := view.Landmarks.Scale()
	spacing := float64(scale.Width()) / 5
	for _, score := range view.Scale.Scores {
		x := scale.LeftX + int(float64(score)*spacing)
		gocv.Circle(vis, image.Pt(x, scale.Y), 30, colorInferred, -1)
	}
}

func blobRect(dx, dy int, blob scale.Blob) image.Rectangle {
	return image.Rect(dx+blob.X, dy+blob.Y, dx+blob.X+blob.W, dy+blob.Y+blob.H)
}

// tintRect blends a translucent fill over the rectangle, then outlines it.
func tintRect(vis *gocv.Mat, rect image.Rectangle, col color.RGBA) {
	tinted := vis.Clone()
	defer tinted.Close()
	gocv.Rectangle(&tinted, rect, col, -1)
	gocv.AddWeighted(tinted, 0.3, *vis, 0.7, 0, vis)
	gocv.Rectangle(vis, rect, col, 3)
}
