package ingest

import (
	"context"
	"image"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/your-org/facetrack/internal/config"
	"github.com/your-org/facetrack/internal/match"
	"github.com/your-org/facetrack/internal/models"
	"github.com/your-org/facetrack/internal/observability"
	"github.com/your-org/facetrack/internal/storage"
	"github.com/your-org/facetrack/internal/track"
	"github.com/your-org/facetrack/internal/vision"
)

// SnapshotFetcher yields new snapshots per poll tick. Source satisfies it.
type SnapshotFetcher interface {
	FetchNew(ctx context.Context) ([]models.Snapshot, error)
}

// Analyzer is the per-worker vision stack. Each worker owns one instance
// so ONNX sessions are never shared between goroutines.
type Analyzer interface {
	DetectFaces(img image.Image) ([]vision.Detection, error)
	SharpFaces(img image.Image, detections []vision.Detection) []image.Image
	Embed(crop image.Image) ([]float32, error)
	Close()
}

// Matcher resolves an embedding to an enrolled identity.
type Matcher interface {
	Match(ctx context.Context, embedding []float32, override *float64) (*match.Result, error)
}

// PresenceTracker records a matched sighting and returns the resolved
// location.
type PresenceTracker interface {
	Observe(ctx context.Context, obs track.Observation) (string, error)
}

// SightingPublisher emits sighting events for downstream consumers.
type SightingPublisher interface {
	PublishSighting(ctx context.Context, s models.Sighting) error
}

// CropArchive stores matched face crops. The MinIO store satisfies it.
type CropArchive interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}

// State is the pipeline lifecycle phase.
type State int32

const (
	StateIdle State = iota
	StatePolling
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StatePolling:
		return "polling"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Deps are the pipeline's collaborators. Publisher and Archive may be nil;
// sightings are then neither published nor archived.
type Deps struct {
	Source      SnapshotFetcher
	NewAnalyzer func() (Analyzer, error)
	Matcher     Matcher
	Presence    PresenceTracker
	Publisher   SightingPublisher
	Archive     CropArchive
}

// Pipeline couples the directory poller to a fixed worker pool through one
// bounded queue. The producer blocks when the queue is full, so a slow
// inference stage naturally throttles polling.
type Pipeline struct {
	deps  Deps
	cfg   config.PipelineConfig
	watch config.WatchConfig
	state atomic.Int32
}

func NewPipeline(deps Deps, cfg config.PipelineConfig, watch config.WatchConfig) *Pipeline {
	return &Pipeline{deps: deps, cfg: cfg, watch: watch}
}

// State returns the current lifecycle phase.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Run polls and processes until ctx is cancelled, then drains the queue
// and returns. Worker construction failure aborts startup.
func (p *Pipeline) Run(ctx context.Context) error {
	queue := make(chan models.Snapshot, p.cfg.QueueSize)

	// processing must outlive cancellation so queued snapshots drain
	procCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		analyzer, err := p.deps.NewAnalyzer()
		if err != nil {
			close(queue)
			wg.Wait()
			return err
		}
		wg.Add(1)
		go func(id int, a Analyzer) {
			defer wg.Done()
			defer a.Close()
			for snap := range queue {
				observability.QueueDepth.Set(float64(len(queue)))
				p.process(procCtx, a, snap)
			}
			slog.Debug("pipeline worker drained", "worker", id)
		}(i, analyzer)
	}

	p.state.Store(int32(StatePolling))
	slog.Info("ingestion pipeline started",
		"workers", p.cfg.Workers, "queue_size", p.cfg.QueueSize, "poll_interval", p.cfg.PollInterval)

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

producer:
	for {
		snapshots, err := p.deps.Source.FetchNew(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break producer
			}
			slog.Error("poll snapshots", "error", err)
		}

		for _, snap := range snapshots {
			select {
			case queue <- snap:
			case <-ctx.Done():
				break producer
			}
		}

		select {
		case <-ctx.Done():
			break producer
		case <-ticker.C:
		}
	}

	p.state.Store(int32(StateDraining))
	slog.Info("ingestion pipeline draining", "queued", len(queue))
	close(queue)
	wg.Wait()

	p.state.Store(int32(StateStopped))
	slog.Info("ingestion pipeline stopped")
	return nil
}

// process handles one snapshot end to end. Errors are logged, never fatal
// to the worker.
func (p *Pipeline) process(ctx context.Context, a Analyzer, snap models.Snapshot) {
	img, err := vision.DecodeImage(snap.Data)
	if err != nil {
		slog.Warn("undecodable snapshot, dropping", "path", snap.Path, "error", err)
		observability.SnapshotsSkipped.WithLabelValues("decode").Inc()
		p.removeProcessed(snap.Path)
		return
	}

	detections, err := a.DetectFaces(img)
	if err != nil {
		slog.Error("detect faces", "path", snap.Path, "error", err)
		observability.SnapshotsProcessed.WithLabelValues("error").Inc()
		p.removeProcessed(snap.Path)
		return
	}
	// the detection attempt happened, the file is spent either way
	defer p.removeProcessed(snap.Path)

	observability.FacesDetected.Add(float64(len(detections)))

	if len(detections) < p.cfg.MinFaces {
		observability.SnapshotsSkipped.WithLabelValues("few_faces").Inc()
		return
	}

	for _, crop := range a.SharpFaces(img, detections) {
		embedding, err := a.Embed(crop)
		if err != nil {
			slog.Warn("embed face", "path", snap.Path, "error", err)
			continue
		}

		result, err := p.deps.Matcher.Match(ctx, embedding, nil)
		if err != nil {
			slog.Error("match face", "path", snap.Path, "error", err)
			continue
		}
		if result == nil {
			continue
		}

		location, err := p.deps.Presence.Observe(ctx, track.Observation{
			PersonID:     result.PersonID,
			PersonName:   result.Name,
			SnapCameraIP: snap.CameraIP,
			CaptureTime:  snap.CaptureTime,
		})
		if err != nil {
			slog.Error("record sighting", "person_id", result.PersonID, "error", err)
			continue
		}

		cropKey := ""
		if p.deps.Archive != nil {
			key := storage.SightingKey(result.PersonID, snap.CaptureTime)
			if err := p.deps.Archive.PutObject(ctx, key, vision.EncodePNG(crop), "image/png"); err != nil {
				slog.Warn("archive face crop", "key", key, "error", err)
			} else {
				cropKey = key
			}
		}

		if p.deps.Publisher != nil {
			sighting := models.Sighting{
				PersonID:     result.PersonID,
				PersonName:   result.Name,
				SnapCameraIP: snap.CameraIP,
				Location:     location,
				Score:        result.Score,
				CaptureTime:  snap.CaptureTime,
				CropKey:      cropKey,
			}
			if err := p.deps.Publisher.PublishSighting(ctx, sighting); err != nil {
				slog.Warn("publish sighting", "person_id", result.PersonID, "error", err)
			}
		}
	}

	observability.SnapshotsProcessed.WithLabelValues("ok").Inc()
}

// removeProcessed deletes a spent snapshot file when configured to.
func (p *Pipeline) removeProcessed(path string) {
	if !p.cfg.DeleteProcessed {
		return
	}
	for attempt := 0; attempt < readRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(readRetryDelay)
		}
		err := os.Remove(path)
		if err == nil || os.IsNotExist(err) {
			return
		}
		if attempt == readRetries-1 {
			slog.Warn("remove processed snapshot", "path", path, "error", err)
		}
	}
}
