// Package imageio loads scanned page rasters and converts between Go images
// and OpenCV Mats. Rasterization of source PDFs happens upstream; this package
// only consumes decoded page images at the scan resolution.
package imageio

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"runtime"
	"sync"

	"gocv.io/x/gocv"

	_ "golang.org/x/image/tiff"
)

// Load decodes a page image from disk (PNG, JPEG or TIFF).
func Load(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// LoadGrayMat loads a page image and returns it as a single-channel Mat.
func LoadGrayMat(path string) (gocv.Mat, error) {
	img, err := Load(path)
	if err != nil {
		return gocv.Mat{}, err
	}
	return ToGrayMat(img), nil
}

// ToGrayMat converts a Go image to a grayscale gocv.Mat. Conversion is
// parallelized by horizontal stripes.
func ToGrayMat(img image.Image) gocv.Mat {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC1)

	forEachStripe(height, func(yStart, yEnd int) {
		for y := yStart; y < yEnd; y++ {
			for x := 0; x < width; x++ {
				r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
				// ITU-R BT.601 luma weights
				luma := (299*(r>>8) + 587*(g>>8) + 114*(b>>8)) / 1000
				mat.SetUCharAt(y, x, uint8(luma))
			}
		}
	})

	return mat
}

// MatToImage converts a 1- or 3-channel Mat to a Go image.Image.
func MatToImage(mat gocv.Mat) (image.Image, error) {
	h := mat.Rows()
	w := mat.Cols()
	if h == 0 || w == 0 {
		return nil, fmt.Errorf("empty mat")
	}

	channels := mat.Channels()
	if channels != 1 && channels != 3 {
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))

	forEachStripe(h, func(yStart, yEnd int) {
		for y := yStart; y < yEnd; y++ {
			for x := 0; x < w; x++ {
				i := y*img.Stride + x*4
				if channels == 1 {
					v := mat.GetUCharAt(y, x)
					img.Pix[i+0] = v
					img.Pix[i+1] = v
					img.Pix[i+2] = v
				} else {
					// Mats are BGR
					img.Pix[i+0] = mat.GetUCharAt(y, x*3+2)
					img.Pix[i+1] = mat.GetUCharAt(y, x*3+1)
					img.Pix[i+2] = mat.GetUCharAt(y, x*3+0)
				}
				img.Pix[i+3] = 255
			}
		}
	})

	return img, nil
}

// forEachStripe runs fn over horizontal stripes of the given height in parallel.
func forEachStripe(height int, fn func(yStart, yEnd int)) {
	numWorkers := runtime.NumCPU()
	rowsPerWorker := (height + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		startY := w * rowsPerWorker
		endY := min(startY+rowsPerWorker, height)
		if startY >= height {
			break
		}

		wg.Add(1)
		go func(yStart, yEnd int) {
			defer wg.Done()
			fn(yStart, yEnd)
		}(startY, endY)
	}
	wg.Wait()
}
