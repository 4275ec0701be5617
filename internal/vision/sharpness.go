package vision

import (
	"image"
	"math"
)

// Sharpness measures focus quality of a face crop as the standard deviation
// of the Laplacian response over the grayscale image. Blurry crops give low
// values.
func Sharpness(img image.Image) float64 {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	gray := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			gray[y*w+x] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
		}
	}

	// 4-neighbor Laplacian over interior pixels
	n := 0
	var sum, sumSq float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			lap := gray[(y-1)*w+x] + gray[(y+1)*w+x] + gray[y*w+x-1] + gray[y*w+x+1] - 4*gray[y*w+x]
			sum += lap
			sumSq += lap * lap
			n++
		}
	}
	if n == 0 {
		return 0
	}

	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// SharpnessThreshold scales the acceptance threshold down for larger faces.
// Never drops below 1.0.
func SharpnessThreshold(width, height int, base, coefficient float64) float64 {
	threshold := base - float64(width*height)*coefficient
	return math.Max(threshold, 1.0)
}

// IsSharp reports whether a face crop passes the dynamic sharpness gate.
func IsSharp(img image.Image, base, coefficient float64) (bool, float64) {
	bounds := img.Bounds()
	score := Sharpness(img)
	return score > SharpnessThreshold(bounds.Dx(), bounds.Dy(), base, coefficient), score
}
