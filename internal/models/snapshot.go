package models

import "time"

// Snapshot is one image file picked up from the watch directory together
// with metadata recovered from its filename.
type Snapshot struct {
	Path        string    `json:"path"`
	Data        []byte    `json:"-"`
	CameraIP    string    `json:"camera_ip"`
	Gender      string    `json:"gender,omitempty"`
	CaptureTime time.Time `json:"capture_time"`
}
