package handlers

import (
	"encoding/base64"
	"image"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/facetrack/internal/index"
	"github.com/your-org/facetrack/internal/match"
	"github.com/your-org/facetrack/internal/storage"
	"github.com/your-org/facetrack/internal/vision"
	"github.com/your-org/facetrack/pkg/dto"
)

// EmbedFunc extracts the embedding and crop of the most confident face in an
// encoded image.
type EmbedFunc func(imageData []byte) ([]float32, image.Image, error)

type IdentityHandler struct {
	db         *storage.PostgresStore
	archive    *storage.MinIOStore
	idx        *index.Client
	cache      *match.Cache
	engine     *match.Engine
	embed      EmbedFunc
	vectorSize int
}

func NewIdentityHandler(db *storage.PostgresStore, archive *storage.MinIOStore, idx *index.Client, cache *match.Cache, engine *match.Engine, embed EmbedFunc, vectorSize int) *IdentityHandler {
	return &IdentityHandler{
		db:         db,
		archive:    archive,
		idx:        idx,
		cache:      cache,
		engine:     engine,
		embed:      embed,
		vectorSize: vectorSize,
	}
}

func (h *IdentityHandler) embedBase64(c *gin.Context, encoded string) ([]float32, image.Image, bool) {
	if h.embed == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "face analysis unavailable"})
		return nil, nil, false
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid base64 image"})
		return nil, nil, false
	}

	embedding, crop, err := h.embed(data)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return nil, nil, false
	}
	return vision.ResizeVector(embedding, h.vectorSize), crop, true
}

// Register enrolls a new identity from a reference image.
func (h *IdentityHandler) Register(c *gin.Context) {
	var req dto.RegisterIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	embedding, crop, ok := h.embedBase64(c, req.Image)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	personID := uuid.New()
	imageKey := storage.EnrollmentKey(personID)

	ident, err := h.db.CreateIdentity(ctx, personID, req.Name, embedding, imageKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.idx.UpsertPoint(ctx, ident.ID, embedding, map[string]string{"name": ident.Name}); err != nil {
		// the index can be rebuilt from Postgres, don't fail the enrollment
		slog.Warn("index upsert failed", "person_id", ident.ID, "error", err)
	}

	if err := h.archive.PutObject(ctx, imageKey, vision.EncodePNG(crop), "image/png"); err != nil {
		slog.Warn("archive enrollment image failed", "person_id", ident.ID, "error", err)
	}

	h.cache.Invalidate()

	c.JSON(http.StatusCreated, dto.IdentityResponse{
		ID:        ident.ID,
		Name:      ident.Name,
		ImageKey:  ident.ImageKey,
		CreatedAt: ident.CreatedAt.Format("2006-01-02T15:04:05Z"),
	})
}

func (h *IdentityHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity id"})
		return
	}

	ident, err := h.db.GetIdentity(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ident == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "identity not found"})
		return
	}

	c.JSON(http.StatusOK, dto.IdentityResponse{
		ID:        ident.ID,
		Name:      ident.Name,
		ImageKey:  ident.ImageKey,
		CreatedAt: ident.CreatedAt.Format("2006-01-02T15:04:05Z"),
	})
}

// Delete removes an identity and everything derived from it: index point,
// visit history and archived images.
func (h *IdentityHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity id"})
		return
	}

	ctx := c.Request.Context()
	removed, err := h.db.DeleteIdentity(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "identity not found"})
		return
	}

	if err := h.idx.DeletePoint(ctx, id); err != nil {
		slog.Warn("index delete failed", "person_id", id, "error", err)
	}
	if _, err := h.db.DeleteVisitsByPerson(ctx, id); err != nil {
		slog.Warn("delete visits failed", "person_id", id, "error", err)
	}
	if err := h.archive.DeleteObject(ctx, storage.EnrollmentKey(id)); err != nil {
		slog.Warn("delete enrollment image failed", "person_id", id, "error", err)
	}
	if err := h.archive.DeleteByPrefix(ctx, "sightings/"+id.String()+"/"); err != nil {
		slog.Warn("delete sighting crops failed", "person_id", id, "error", err)
	}

	h.cache.Invalidate()

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Count reports enrolled identities in the database and the vector index.
func (h *IdentityHandler) Count(c *gin.Context) {
	ctx := c.Request.Context()
	dbCount, err := h.db.CountIdentities(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := dto.IdentityCountResponse{Database: dbCount}
	if idxCount, err := h.idx.Count(ctx); err == nil {
		resp.Index = idxCount
	} else {
		slog.Warn("index count failed", "error", err)
	}

	c.JSON(http.StatusOK, resp)
}

// Verify matches an image against enrolled identities.
func (h *IdentityHandler) Verify(c *gin.Context) {
	var req dto.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	embedding, _, ok := h.embedBase64(c, req.Image)
	if !ok {
		return
	}

	result, err := h.engine.Match(c.Request.Context(), embedding, req.Threshold)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if result == nil {
		c.JSON(http.StatusOK, dto.VerifyResponse{Matched: false})
		return
	}

	c.JSON(http.StatusOK, dto.VerifyResponse{
		Matched:  true,
		PersonID: result.PersonID,
		Name:     result.Name,
		Score:    result.Score,
		Fallback: result.Fallback,
	})
}

// Compare scores the similarity of the best faces in two images.
func (h *IdentityHandler) Compare(c *gin.Context) {
	var req dto.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	embA, _, ok := h.embedBase64(c, req.ImageA)
	if !ok {
		return
	}
	embB, _, ok := h.embedBase64(c, req.ImageB)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, dto.CompareResponse{
		Similarity: vision.CosineSimilarity(embA, embB),
	})
}
