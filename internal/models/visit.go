package models

import (
	"time"

	"github.com/google/uuid"
)

// VisitSegment is one contiguous stay of a person at a resolved location.
// EndTime is nil while the segment is open.
type VisitSegment struct {
	ID             int64      `json:"id" db:"id"`
	PersonID       uuid.UUID  `json:"person_id" db:"person_id"`
	PersonName     string     `json:"person_name" db:"person_name"`
	SnapLocation   string     `json:"snap_location" db:"snap_location"`
	SnapCameraIP   string     `json:"snap_camera_ip" db:"snap_camera_ip"`
	RecordCameraIP string     `json:"record_camera_ip" db:"record_camera_ip"`
	StartTime      time.Time  `json:"start_time" db:"record_start_time"`
	EndTime        *time.Time `json:"end_time,omitempty" db:"record_end_time"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// Sighting is the event published after a snapshot face matched an identity.
type Sighting struct {
	PersonID     uuid.UUID `json:"person_id"`
	PersonName   string    `json:"person_name"`
	SnapCameraIP string    `json:"snap_camera_ip"`
	Location     string    `json:"location"`
	Score        float64   `json:"score"`
	CaptureTime  time.Time `json:"capture_time"`
	CropKey      string    `json:"crop_key,omitempty"`
}
