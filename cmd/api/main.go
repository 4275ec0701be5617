package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/facetrack/internal/api"
	"github.com/your-org/facetrack/internal/api/handlers"
	"github.com/your-org/facetrack/internal/api/ws"
	"github.com/your-org/facetrack/internal/config"
	"github.com/your-org/facetrack/internal/index"
	"github.com/your-org/facetrack/internal/match"
	"github.com/your-org/facetrack/internal/models"
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

	slog.Info("starting facetrack API service", "port", cfg.Server.Port)

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

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Consume sightings and fan them out over WebSocket
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create sighting consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeSightings(ctx, "api-sightings", func(ctx context.Context, msg jetstream.Msg) error {
		var sighting models.Sighting
		if err := json.Unmarshal(msg.Data(), &sighting); err != nil {
			return err
		}
		hub.BroadcastSighting(sighting)
		return nil
	})
	if err != nil {
		slog.Warn("start sighting consumer", "error", err)
	}

	// Matching stack for the verify/compare endpoints
	cache := match.NewCache(db, cfg.Pipeline.CacheRefresh)
	engine := match.NewEngine(idx, db, cache, cfg.Pipeline)
	topology := track.NewTopology(db, cfg.Rooms)

	// Initialize ONNX Runtime for the enrollment endpoints
	var embedFn handlers.EmbedFunc

	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Warn("onnx runtime init failed, register/verify/compare will be unavailable", "error", err)
	} else {
		analyzer, err := vision.NewAnalyzer(cfg.Vision)
		if err != nil {
			slog.Warn("analyzer init failed, register/verify/compare will be unavailable", "error", err)
		} else {
			embedFn = analyzer.EmbedImage
			defer analyzer.Close()
			defer ort.DestroyEnvironment()
			slog.Info("analyzer ready for enrollment endpoints")
		}
	}

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		APIKey:     cfg.Server.APIKey,
		DB:         db,
		MinIO:      minioStore,
		Index:      idx,
		Producer:   producer,
		Cache:      cache,
		Engine:     engine,
		Topology:   topology,
		Hub:        hub,
		EmbedFn:    embedFn,
		VectorSize: cfg.Pipeline.VectorSize,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}

// getONNXLibPath returns the ONNX Runtime shared library path.
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
