package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/facetrack/internal/api/handlers"
	"github.com/your-org/facetrack/internal/api/ws"
	"github.com/your-org/facetrack/internal/auth"
	"github.com/your-org/facetrack/internal/index"
	"github.com/your-org/facetrack/internal/match"
	"github.com/your-org/facetrack/internal/models"
	"github.com/your-org/facetrack/internal/queue"
	"github.com/your-org/facetrack/internal/storage"
	"github.com/your-org/facetrack/internal/track"
)

type RouterConfig struct {
	APIKey   string
	DB       *storage.PostgresStore
	MinIO    *storage.MinIOStore
	Index    *index.Client
	Producer *queue.Producer
	Cache    *match.Cache
	Engine   *match.Engine
	Topology *track.Topology
	Hub      *ws.Hub
	// EmbedFn extracts the best face embedding and its crop from image bytes.
	EmbedFn    handlers.EmbedFunc
	VectorSize int
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Index, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Cameras
	faceH := handlers.NewCameraHandler(cfg.DB, cfg.Topology, models.CameraKindFace)
	recordH := handlers.NewCameraHandler(cfg.DB, cfg.Topology, models.CameraKindRecord)
	for kind, h := range map[string]*handlers.CameraHandler{"face": faceH, "record": recordH} {
		g := v1.Group("/cameras/" + kind)
		g.POST("", h.Create)
		g.GET("", h.List)
		g.GET("/:id", h.Get)
		g.PUT("/:id", h.Update)
		g.DELETE("/:id", h.Delete)
		g.DELETE("/:id/bindings", h.UnbindAll)
	}

	// Bindings
	bindH := handlers.NewBindingHandler(cfg.DB, cfg.Topology)
	v1.POST("/bindings", bindH.Bind)
	v1.POST("/bindings/force", bindH.ForceBind)
	v1.GET("/bindings", bindH.List)
	v1.PATCH("/bindings/:id", bindH.Update)
	v1.DELETE("/bindings", bindH.DeletePair)
	v1.DELETE("/bindings/:id", bindH.Delete)

	// Identities
	identH := handlers.NewIdentityHandler(cfg.DB, cfg.MinIO, cfg.Index, cfg.Cache, cfg.Engine, cfg.EmbedFn, cfg.VectorSize)
	v1.POST("/identities", identH.Register)
	v1.GET("/identities", identH.Count)
	v1.GET("/identities/:id", identH.Get)
	v1.DELETE("/identities/:id", identH.Delete)
	v1.POST("/identities/verify", identH.Verify)
	v1.POST("/identities/compare", identH.Compare)

	// Tracks
	trackH := handlers.NewTrackHandler(cfg.DB, cfg.MinIO)
	v1.GET("/tracks/:personId", trackH.List)
	v1.GET("/crops", trackH.Crop)

	return r
}
