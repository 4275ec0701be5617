package vision

import (
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/your-org/facetrack/internal/config"
	"github.com/your-org/facetrack/internal/observability"
)

// Analyzer owns one detector and one embedder session. Pipeline workers and
// the API each construct their own instance; sessions are not shared across
// goroutines.
type Analyzer struct {
	detector *Detector
	embedder *Embedder
	cfg      config.VisionConfig
}

// NewAnalyzer loads the ONNX models and returns a ready analyzer.
func NewAnalyzer(cfg config.VisionConfig) (*Analyzer, error) {
	detPath := filepath.Join(cfg.ModelsDir, "det_10g.onnx")
	embPath := filepath.Join(cfg.ModelsDir, "w600k_r50.onnx")

	slog.Info("loading detection model", "path", detPath)
	det, err := NewDetector(detPath, float32(cfg.DetectionThreshold))
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}

	slog.Info("loading embedding model", "path", embPath)
	emb, err := NewEmbedder(embPath)
	if err != nil {
		det.Close()
		return nil, fmt.Errorf("load embedder: %w", err)
	}

	return &Analyzer{detector: det, embedder: emb, cfg: cfg}, nil
}

// DetectFaces finds faces in a decoded image.
func (a *Analyzer) DetectFaces(img image.Image) ([]Detection, error) {
	bounds := img.Bounds()

	start := time.Now()
	input := preprocessForDetection(img, a.detector.inputW, a.detector.inputH)
	detections, err := a.detector.Detect(input, bounds.Dx(), bounds.Dy())
	observability.InferenceDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return detections, nil
}

// Embed extracts an L2-normalized embedding from a face crop.
func (a *Analyzer) Embed(faceCrop image.Image) ([]float32, error) {
	start := time.Now()
	input := preprocessForEmbedding(faceCrop, a.embedder.inputW, a.embedder.inputH)
	embedding, err := a.embedder.Extract(input)
	observability.InferenceDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())
	return embedding, err
}

// SharpFaces crops every detection and keeps those passing the dynamic
// sharpness gate.
func (a *Analyzer) SharpFaces(img image.Image, detections []Detection) []image.Image {
	var crops []image.Image
	for _, det := range detections {
		crop := CropFace(img, det.BBox)
		if crop == nil {
			continue
		}
		ok, score := IsSharp(crop, a.cfg.SharpnessBase, a.cfg.SharpnessCoefficient)
		if !ok {
			slog.Debug("face crop rejected as blurry", "sharpness", score)
			continue
		}
		crops = append(crops, crop)
	}
	return crops
}

// EmbedImage decodes a standalone image, picks the best face and returns
// its embedding together with the crop. Used by enrollment and verify.
func (a *Analyzer) EmbedImage(imageData []byte) ([]float32, image.Image, error) {
	img, err := DecodeImage(imageData)
	if err != nil {
		return nil, nil, err
	}

	detections, err := a.DetectFaces(img)
	if err != nil {
		return nil, nil, fmt.Errorf("detect: %w", err)
	}
	if len(detections) == 0 {
		return nil, nil, fmt.Errorf("no face detected in image")
	}

	best := detections[0]
	for _, d := range detections[1:] {
		if d.Confidence > best.Confidence {
			best = d
		}
	}

	crop := CropFace(img, best.BBox)
	if crop == nil {
		return nil, nil, fmt.Errorf("crop face: empty region")
	}

	embedding, err := a.Embed(crop)
	if err != nil {
		return nil, nil, fmt.Errorf("embed: %w", err)
	}
	return embedding, crop, nil
}

// EmbeddingDim returns the embedder's output dimension.
func (a *Analyzer) EmbeddingDim() int {
	return a.embedder.EmbeddingDim()
}

// Close releases the ONNX sessions.
func (a *Analyzer) Close() {
	if a.detector != nil {
		a.detector.Close()
	}
	if a.embedder != nil {
		a.embedder.Close()
	}
}
