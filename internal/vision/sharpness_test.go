package vision

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func flatImage(w, h int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: 128})
		}
	}
	return img
}

func checkerImage(w, h int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func TestSharpnessFlatImageIsZero(t *testing.T) {
	if got := Sharpness(flatImage(16, 16)); got != 0 {
		t.Errorf("flat image sharpness = %f, want 0", got)
	}
}

func TestSharpnessHighContrastScoresHigher(t *testing.T) {
	flat := Sharpness(flatImage(16, 16))
	sharp := Sharpness(checkerImage(16, 16))
	if sharp <= flat {
		t.Errorf("checkerboard (%f) should outscore flat (%f)", sharp, flat)
	}
}

func TestSharpnessTinyImageIsZero(t *testing.T) {
	if got := Sharpness(flatImage(2, 2)); got != 0 {
		t.Errorf("2x2 image sharpness = %f, want 0", got)
	}
}

func TestSharpnessThreshold(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		base, coeff   float64
		want          float64
	}{
		{name: "small face keeps base", width: 10, height: 10, base: 100, coeff: 0.001, want: 99.9},
		{name: "large face lowers threshold", width: 200, height: 200, base: 100, coeff: 0.001, want: 60},
		{name: "floor at one", width: 1000, height: 1000, base: 100, coeff: 0.001, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SharpnessThreshold(tt.width, tt.height, tt.base, tt.coeff)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("SharpnessThreshold = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestIsSharp(t *testing.T) {
	// near-zero base so the checkerboard clears the gate
	ok, score := IsSharp(checkerImage(16, 16), 1, 0)
	if !ok {
		t.Errorf("checkerboard with score %f should pass a threshold of 1", score)
	}

	ok, _ = IsSharp(flatImage(16, 16), 1, 0)
	if ok {
		t.Error("flat image should not pass")
	}
}
