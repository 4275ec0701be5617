package vision

import (
	"math"
	"testing"
)

func TestIOU(t *testing.T) {
	tests := []struct {
		name string
		a, b [4]float32
		want float32
	}{
		{name: "identical", a: [4]float32{0, 0, 10, 10}, b: [4]float32{0, 0, 10, 10}, want: 1},
		{name: "disjoint", a: [4]float32{0, 0, 10, 10}, b: [4]float32{20, 20, 30, 30}, want: 0},
		{name: "half overlap", a: [4]float32{0, 0, 10, 10}, b: [4]float32{5, 0, 15, 10}, want: 1.0 / 3.0},
		{name: "degenerate", a: [4]float32{0, 0, 0, 0}, b: [4]float32{0, 0, 0, 0}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := iou(tt.a, tt.b)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("iou = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestNMSSuppressesOverlaps(t *testing.T) {
	detections := []Detection{
		{BBox: [4]float32{0, 0, 10, 10}, Confidence: 0.7},
		{BBox: [4]float32{1, 1, 11, 11}, Confidence: 0.9}, // heavy overlap, higher score
		{BBox: [4]float32{50, 50, 60, 60}, Confidence: 0.8},
	}

	kept := nms(detections, 0.4)
	if len(kept) != 2 {
		t.Fatalf("nms kept %d detections, want 2", len(kept))
	}
	if kept[0].Confidence != 0.9 {
		t.Errorf("best detection confidence = %f, want 0.9", kept[0].Confidence)
	}
	for _, d := range kept {
		if d.Confidence == 0.7 {
			t.Error("overlapping lower-confidence detection survived")
		}
	}
}

func TestNMSEmptyInput(t *testing.T) {
	if got := nms(nil, 0.4); len(got) != 0 {
		t.Errorf("nms(nil) returned %d detections", len(got))
	}
}

func TestClampF(t *testing.T) {
	if got := clampF(-5, 0, 10); got != 0 {
		t.Errorf("clampF(-5) = %f, want 0", got)
	}
	if got := clampF(15, 0, 10); got != 10 {
		t.Errorf("clampF(15) = %f, want 10", got)
	}
	if got := clampF(5, 0, 10); got != 5 {
		t.Errorf("clampF(5) = %f, want 5", got)
	}
}
