package ingest

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/facetrack/internal/config"
	"github.com/your-org/facetrack/internal/match"
	"github.com/your-org/facetrack/internal/models"
	"github.com/your-org/facetrack/internal/track"
	"github.com/your-org/facetrack/internal/vision"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type fakeSource struct {
	batches [][]models.Snapshot
	calls   int
}

func (f *fakeSource) FetchNew(ctx context.Context) ([]models.Snapshot, error) {
	if f.calls < len(f.batches) {
		batch := f.batches[f.calls]
		f.calls++
		return batch, nil
	}
	return nil, nil
}

type fakeAnalyzer struct {
	faces  int
	closed *atomic.Int32
}

func (f *fakeAnalyzer) DetectFaces(img image.Image) ([]vision.Detection, error) {
	out := make([]vision.Detection, f.faces)
	return out, nil
}

func (f *fakeAnalyzer) SharpFaces(img image.Image, detections []vision.Detection) []image.Image {
	crops := make([]image.Image, len(detections))
	for i := range crops {
		crops[i] = img
	}
	return crops
}

func (f *fakeAnalyzer) Embed(crop image.Image) ([]float32, error) {
	return []float32{1, 0, 0, 0}, nil
}

func (f *fakeAnalyzer) Close() {
	if f.closed != nil {
		f.closed.Add(1)
	}
}

// gatedAnalyzer parks every worker on gate at the detection step, so the
// queue fills behind it.
type gatedAnalyzer struct {
	fakeAnalyzer
	entered chan struct{}
	gate    chan struct{}
}

func (g *gatedAnalyzer) DetectFaces(img image.Image) ([]vision.Detection, error) {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.gate
	return g.fakeAnalyzer.DetectFaces(img)
}

type countingSource struct {
	batch []models.Snapshot
	calls atomic.Int32
}

func (s *countingSource) FetchNew(ctx context.Context) ([]models.Snapshot, error) {
	if s.calls.Add(1) == 1 {
		return s.batch, nil
	}
	return nil, nil
}

type fakeMatcher struct {
	result *match.Result
	errs   int32
	failed atomic.Int32
}

func (f *fakeMatcher) Match(ctx context.Context, embedding []float32, override *float64) (*match.Result, error) {
	if f.failed.Load() < f.errs {
		f.failed.Add(1)
		return nil, errors.New("match unavailable")
	}
	return f.result, nil
}

type fakePresence struct {
	observed chan track.Observation
}

func (f *fakePresence) Observe(ctx context.Context, obs track.Observation) (string, error) {
	f.observed <- obs
	return "Lobby", nil
}

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		PollInterval:      10 * time.Millisecond,
		Workers:           2,
		QueueSize:         10,
		MinFaces:          1,
		TopK:              5,
		PrimaryThreshold:  0.87,
		FallbackThreshold: 0.78,
		VectorSize:        4,
	}
}

func TestPipelineProcessesAndDrains(t *testing.T) {
	img := pngBytes(t)
	personID := uuid.New()

	snaps := []models.Snapshot{
		{Path: "a.jpg", Data: img, CameraIP: "10.0.1.5", CaptureTime: time.Now()},
		{Path: "b.jpg", Data: img, CameraIP: "10.0.1.6", CaptureTime: time.Now()},
	}

	var closed atomic.Int32
	presence := &fakePresence{observed: make(chan track.Observation, 10)}
	p := NewPipeline(Deps{
		Source: &fakeSource{batches: [][]models.Snapshot{snaps}},
		NewAnalyzer: func() (Analyzer, error) {
			return &fakeAnalyzer{faces: 1, closed: &closed}, nil
		},
		Matcher:  &fakeMatcher{result: &match.Result{PersonID: personID, Name: "alice", Score: 0.9}},
		Presence: presence,
	}, testPipelineConfig(), config.WatchConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	for i := 0; i < len(snaps); i++ {
		select {
		case obs := <-presence.observed:
			if obs.PersonID != personID {
				t.Errorf("observed person %s, want %s", obs.PersonID, personID)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for observation")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop")
	}

	if p.State() != StateStopped {
		t.Errorf("state = %v, want %v", p.State(), StateStopped)
	}
	if int(closed.Load()) != 2 {
		t.Errorf("closed %d analyzers, want 2", closed.Load())
	}
}

func TestPipelineProducerBackpressure(t *testing.T) {
	img := pngBytes(t)
	personID := uuid.New()

	cfg := testPipelineConfig()
	cfg.Workers = 1
	cfg.QueueSize = 2

	// one in flight at the parked worker, two queued, one stuck at the
	// producer: capacity + 2 guarantees the enqueue blocks
	total := cfg.QueueSize + 2
	snaps := make([]models.Snapshot, total)
	for i := range snaps {
		snaps[i] = models.Snapshot{Path: "s.jpg", Data: img, CameraIP: "10.0.1.5", CaptureTime: time.Now()}
	}

	source := &countingSource{batch: snaps}
	analyzer := &gatedAnalyzer{
		fakeAnalyzer: fakeAnalyzer{faces: 1},
		entered:      make(chan struct{}, 1),
		gate:         make(chan struct{}),
	}
	presence := &fakePresence{observed: make(chan track.Observation, total+1)}
	p := NewPipeline(Deps{
		Source:      source,
		NewAnalyzer: func() (Analyzer, error) { return analyzer, nil },
		Matcher:     &fakeMatcher{result: &match.Result{PersonID: personID, Score: 0.9}},
		Presence:    presence,
	}, cfg, config.WatchConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case <-analyzer.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never picked up a snapshot")
	}

	// the producer must still be blocked inside its first batch, so the
	// poll tick that would trigger a second fetch is never reached
	time.Sleep(150 * time.Millisecond)
	if calls := source.calls.Load(); calls != 1 {
		t.Fatalf("source fetched %d times while queue was full, want 1", calls)
	}

	close(analyzer.gate)

	for i := 0; i < total; i++ {
		select {
		case <-presence.observed:
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d of %d snapshots were processed", i, total)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop")
	}

	if len(presence.observed) != 0 {
		t.Errorf("got %d duplicate observations, want 0", len(presence.observed))
	}
}

func TestPipelineAnalyzerFailureAbortsStartup(t *testing.T) {
	wantErr := errors.New("model missing")
	p := NewPipeline(Deps{
		Source:      &fakeSource{},
		NewAnalyzer: func() (Analyzer, error) { return nil, wantErr },
		Matcher:     &fakeMatcher{},
		Presence:    &fakePresence{observed: make(chan track.Observation, 1)},
	}, testPipelineConfig(), config.WatchConfig{})

	if err := p.Run(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Run returned %v, want %v", err, wantErr)
	}
}

func TestPipelineSurvivesBadSnapshotsAndMatchErrors(t *testing.T) {
	img := pngBytes(t)
	personID := uuid.New()

	snaps := []models.Snapshot{
		{Path: "broken.jpg", Data: []byte("not an image"), CameraIP: "10.0.1.5", CaptureTime: time.Now()},
		{Path: "fails-match.jpg", Data: img, CameraIP: "10.0.1.5", CaptureTime: time.Now()},
		{Path: "ok.jpg", Data: img, CameraIP: "10.0.1.5", CaptureTime: time.Now()},
	}

	cfg := testPipelineConfig()
	cfg.Workers = 1

	presence := &fakePresence{observed: make(chan track.Observation, 10)}
	p := NewPipeline(Deps{
		Source: &fakeSource{batches: [][]models.Snapshot{snaps}},
		NewAnalyzer: func() (Analyzer, error) {
			return &fakeAnalyzer{faces: 1}, nil
		},
		Matcher:  &fakeMatcher{result: &match.Result{PersonID: personID, Score: 0.9}, errs: 1},
		Presence: presence,
	}, cfg, config.WatchConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case <-presence.observed:
	case <-time.After(5 * time.Second):
		t.Fatal("healthy snapshot was not processed")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop")
	}

	if len(presence.observed) != 0 {
		t.Errorf("got %d extra observations, want 0", len(presence.observed))
	}
}
