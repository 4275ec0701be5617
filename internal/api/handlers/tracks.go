package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/facetrack/internal/models"
	"github.com/your-org/facetrack/internal/storage"
	"github.com/your-org/facetrack/pkg/dto"
)

type TrackHandler struct {
	db      *storage.PostgresStore
	archive *storage.MinIOStore
}

func NewTrackHandler(db *storage.PostgresStore, archive *storage.MinIOStore) *TrackHandler {
	return &TrackHandler{db: db, archive: archive}
}

func visitResponse(v *models.VisitSegment) dto.VisitResponse {
	resp := dto.VisitResponse{
		ID:             v.ID,
		PersonID:       v.PersonID,
		PersonName:     v.PersonName,
		Location:       v.SnapLocation,
		SnapCameraIP:   v.SnapCameraIP,
		RecordCameraIP: v.RecordCameraIP,
		StartTime:      v.StartTime.UTC().Format(time.RFC3339),
	}
	if v.EndTime != nil {
		resp.EndTime = v.EndTime.UTC().Format(time.RFC3339)
	}
	return resp
}

// List returns a person's visit history, newest first.
func (h *TrackHandler) List(c *gin.Context) {
	personID, err := uuid.Parse(c.Param("personId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid person id"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	visits, total, err := h.db.ListVisits(c.Request.Context(), personID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.VisitResponse, 0, len(visits))
	for i := range visits {
		resp = append(resp, visitResponse(&visits[i]))
	}
	c.JSON(http.StatusOK, gin.H{"visits": resp, "total": total})
}

// Crop serves an archived face crop by its object key.
func (h *TrackHandler) Crop(c *gin.Context) {
	key := c.Query("key")
	if key == "" || strings.Contains(key, "..") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key query parameter required"})
		return
	}

	data, err := h.archive.GetObject(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "crop not found"})
		return
	}

	c.Data(http.StatusOK, "image/png", data)
}
