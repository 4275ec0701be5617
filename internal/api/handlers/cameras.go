package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/your-org/facetrack/internal/models"
	"github.com/your-org/facetrack/internal/storage"
	"github.com/your-org/facetrack/internal/track"
	"github.com/your-org/facetrack/pkg/dto"
)

type CameraHandler struct {
	db       *storage.PostgresStore
	topology *track.Topology
	kind     models.CameraKind
}

func NewCameraHandler(db *storage.PostgresStore, topology *track.Topology, kind models.CameraKind) *CameraHandler {
	return &CameraHandler{db: db, topology: topology, kind: kind}
}

func cameraResponse(c *models.Camera) dto.CameraResponse {
	return dto.CameraResponse{
		ID:        c.ID,
		IP:        c.IP,
		Name:      c.Name,
		Location:  c.Location,
		CreatedAt: c.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *CameraHandler) Create(c *gin.Context) {
	var req dto.CreateCameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	camera, err := h.db.CreateCamera(c.Request.Context(), h.kind, req.IP, req.Name, req.Location)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, cameraResponse(camera))
}

// List returns all cameras of this kind, or a single one when ?ip= is set.
func (h *CameraHandler) List(c *gin.Context) {
	if ip := c.Query("ip"); ip != "" {
		camera, err := h.db.GetCameraByIP(c.Request.Context(), h.kind, ip)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if camera == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "camera not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"cameras": []dto.CameraResponse{cameraResponse(camera)}, "total": 1})
		return
	}

	cameras, err := h.db.ListCameras(c.Request.Context(), h.kind)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.CameraResponse, 0, len(cameras))
	for i := range cameras {
		resp = append(resp, cameraResponse(&cameras[i]))
	}
	c.JSON(http.StatusOK, gin.H{"cameras": resp, "total": len(resp)})
}

func (h *CameraHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid camera id"})
		return
	}

	camera, err := h.db.GetCamera(c.Request.Context(), h.kind, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if camera == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "camera not found"})
		return
	}

	c.JSON(http.StatusOK, cameraResponse(camera))
}

func (h *CameraHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid camera id"})
		return
	}

	var req dto.UpdateCameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ok, err := h.db.UpdateCamera(c.Request.Context(), h.kind, id, req.IP, req.Name, req.Location)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "camera not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// Delete removes a camera together with its bindings.
func (h *CameraHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid camera id"})
		return
	}

	ok, err := h.db.DeleteCamera(c.Request.Context(), h.kind, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "camera not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// UnbindAll removes every binding of this camera.
func (h *CameraHandler) UnbindAll(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid camera id"})
		return
	}

	var removed int64
	if h.kind == models.CameraKindFace {
		removed, err = h.topology.UnbindAllFromFace(c.Request.Context(), id)
	} else {
		removed, err = h.topology.UnbindAllFromRecord(c.Request.Context(), id)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// BindingHandler manages face-to-record camera bindings.
type BindingHandler struct {
	db       *storage.PostgresStore
	topology *track.Topology
}

func NewBindingHandler(db *storage.PostgresStore, topology *track.Topology) *BindingHandler {
	return &BindingHandler{db: db, topology: topology}
}

func (h *BindingHandler) bind(c *gin.Context, force bool) {
	var req dto.BindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var binding *models.CameraBinding
	var err error
	if force {
		binding, err = h.topology.ForceBind(c.Request.Context(), req.FaceCameraID, req.RecordCameraID)
	} else {
		binding, err = h.topology.Bind(c.Request.Context(), req.FaceCameraID, req.RecordCameraID)
	}
	if err != nil {
		if errors.Is(err, track.ErrCameraNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": binding.ID})
}

func (h *BindingHandler) Bind(c *gin.Context)      { h.bind(c, false) }
func (h *BindingHandler) ForceBind(c *gin.Context) { h.bind(c, true) }

func (h *BindingHandler) List(c *gin.Context) {
	views, err := h.db.ListBindings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.BindingResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, dto.BindingResponse{
			ID:             v.ID,
			FaceCameraID:   v.FaceCameraID,
			FaceCameraIP:   v.FaceCameraIP,
			RecordCameraID: v.RecordCameraID,
			RecordCameraIP: v.RecordCameraIP,
			RecordLocation: v.RecordLocation,
		})
	}
	c.JSON(http.StatusOK, gin.H{"bindings": resp, "total": len(resp)})
}

func (h *BindingHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid binding id"})
		return
	}

	var req dto.UpdateBindingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	changed, err := h.topology.UpdateBinding(c.Request.Context(), id, req.NewRecordCameraID, req.Unbind)
	if err != nil {
		if errors.Is(err, track.ErrCameraNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !changed {
		c.JSON(http.StatusNotFound, gin.H{"error": "binding not found or no change requested"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *BindingHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid binding id"})
		return
	}

	removed, err := h.topology.UpdateBinding(c.Request.Context(), id, nil, true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "binding not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// DeletePair removes the binding between the camera pair given in query
// parameters.
func (h *BindingHandler) DeletePair(c *gin.Context) {
	faceID, err1 := strconv.ParseInt(c.Query("face_camera_id"), 10, 64)
	recordID, err2 := strconv.ParseInt(c.Query("record_camera_id"), 10, 64)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "face_camera_id and record_camera_id query parameters required"})
		return
	}

	removed, err := h.topology.UnbindPair(c.Request.Context(), faceID, recordID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "binding not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
