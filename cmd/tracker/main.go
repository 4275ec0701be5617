package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/facetrack/internal/config"
	"github.com/your-org/facetrack/internal/index"
	"github.com/your-org/facetrack/internal/ingest"
	"github.com/your-org/facetrack/internal/match"
	"github.com/your-org/facetrack/internal/observability"
	"github.com/your-org/facetrack/internal/queue"
	"github.com/your-org/facetrack/internal/storage"
	"github.com/your-org/facetrack/internal/track"
	"github.com/your-org/facetrack/internal/vision"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting facetrack tracker",
		"watch_dir", cfg.Watch.Dir,
		"workers", cfg.Pipeline.Workers,
		"cpu_cores", runtime.NumCPU(),
	)

	// Initialize ONNX Runtime
	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Error("init onnx runtime", "error", err)
		os.Exit(1)
	}
	defer ort.DestroyEnvironment()

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.InitSchema(context.Background()); err != nil {
		slog.Error("init schema", "error", err)
		os.Exit(1)
	}

	// Connect to Qdrant
	idx := index.NewClient(cfg.Qdrant)
	if err := idx.EnsureCollection(context.Background(), cfg.Pipeline.VectorSize, cfg.Qdrant.RecreateOnMismatch); err != nil {
		slog.Error("ensure qdrant collection", "error", err)
		os.Exit(1)
	}

	// Connect to MinIO when an archive is configured
	var minioStore *storage.MinIOStore
	if cfg.MinIO.Endpoint != "" {
		minioStore, err = storage.NewMinIOStore(cfg.MinIO)
		if err != nil {
			slog.Error("connect to minio", "error", err)
			os.Exit(1)
		}
		if err := minioStore.EnsureBucket(context.Background()); err != nil {
			slog.Warn("ensure minio bucket", "error", err)
		}
	} else {
		slog.Info("minio not configured, crop archiving disabled")
	}

	// Connect to NATS when an event bus is configured
	var producer *queue.Producer
	if cfg.NATS.URL != "" {
		producer, err = queue.NewProducer(cfg.NATS.URL)
		if err != nil {
			slog.Error("connect to nats", "error", err)
			os.Exit(1)
		}
		defer producer.Close()

		if err := producer.EnsureStreams(context.Background()); err != nil {
			slog.Warn("ensure nats streams", "error", err)
		}
	} else {
		slog.Info("nats not configured, sighting publishing disabled")
	}

	// Assemble the pipeline
	cache := match.NewCache(db, cfg.Pipeline.CacheRefresh)
	engine := match.NewEngine(idx, db, cache, cfg.Pipeline)
	topology := track.NewTopology(db, cfg.Rooms)
	presence := track.NewPresence(db, topology, cfg.Watch.DefaultLocation)
	source := ingest.NewSource(cfg.Watch)

	deps := ingest.Deps{
		Source: source,
		NewAnalyzer: func() (ingest.Analyzer, error) {
			return vision.NewAnalyzer(cfg.Vision)
		},
		Matcher:  engine,
		Presence: presence,
	}
	// assign only live handles: a typed nil would look non-nil behind the
	// interface
	if producer != nil {
		deps.Publisher = producer
	}
	if minioStore != nil {
		deps.Archive = minioStore
	}
	pipeline := ingest.NewPipeline(deps, cfg.Pipeline, cfg.Watch)

	// Metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		slog.Info("tracker metrics listening", "addr", ":8082")
		if err := http.ListenAndServe(":8082", mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel on SIGINT/SIGTERM, then let the pipeline drain
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("shutting down tracker...")
		cancel()
	}()

	if err := pipeline.Run(ctx); err != nil {
		slog.Error("pipeline failed", "error", err)
		os.Exit(1)
	}

	observability.QueueDepth.Set(0)
	slog.Info("tracker stopped")
}

// getONNXLibPath returns the ONNX Runtime shared library path
// based on the operating system.
func getONNXLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
