package dto

type CreateCameraRequest struct {
	IP       string `json:"ip" binding:"required"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

type UpdateCameraRequest struct {
	IP       string `json:"ip" binding:"required"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

type CameraResponse struct {
	ID        int64  `json:"id"`
	IP        string `json:"ip"`
	Name      string `json:"name"`
	Location  string `json:"location"`
	CreatedAt string `json:"created_at"`
}

type BindRequest struct {
	FaceCameraID   int64 `json:"face_camera_id" binding:"required"`
	RecordCameraID int64 `json:"record_camera_id" binding:"required"`
}

type UpdateBindingRequest struct {
	NewRecordCameraID *int64 `json:"new_record_camera_id,omitempty"`
	Unbind            bool   `json:"unbind,omitempty"`
}

type BindingResponse struct {
	ID             int64  `json:"id"`
	FaceCameraID   int64  `json:"face_camera_id"`
	FaceCameraIP   string `json:"face_camera_ip"`
	RecordCameraID int64  `json:"record_camera_id"`
	RecordCameraIP string `json:"record_camera_ip"`
	RecordLocation string `json:"record_location"`
}
