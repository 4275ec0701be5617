package dto

import "github.com/google/uuid"

type VisitResponse struct {
	ID             int64     `json:"id"`
	PersonID       uuid.UUID `json:"person_id"`
	PersonName     string    `json:"person_name"`
	Location       string    `json:"location"`
	SnapCameraIP   string    `json:"snap_camera_ip"`
	RecordCameraIP string    `json:"record_camera_ip"`
	StartTime      string    `json:"start_time"`
	EndTime        string    `json:"end_time,omitempty"`
}

// WSEvent is the envelope broadcast to WebSocket clients.
type WSEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}
