package models

import "time"

type CameraKind string

const (
	CameraKindFace   CameraKind = "face"
	CameraKindRecord CameraKind = "record"
)

// Camera is a registered device. Face cameras produce snapshots, record
// cameras are the recording devices visits are attributed to.
type Camera struct {
	ID        int64      `json:"id" db:"id"`
	Kind      CameraKind `json:"kind" db:"-"`
	IP        string     `json:"ip" db:"ip"`
	Name      string     `json:"name" db:"name"`
	Location  string     `json:"location" db:"location"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// CameraBinding links a face camera to a record camera. A face camera may
// bind to several record cameras and vice versa.
type CameraBinding struct {
	ID             int64     `json:"id" db:"id"`
	FaceCameraID   int64     `json:"face_camera_id" db:"face_camera_id"`
	RecordCameraID int64     `json:"record_camera_id" db:"record_camera_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// BindingView is a binding joined with both camera rows for listing.
type BindingView struct {
	ID             int64  `json:"id"`
	FaceCameraID   int64  `json:"face_camera_id"`
	FaceCameraIP   string `json:"face_camera_ip"`
	RecordCameraID int64  `json:"record_camera_id"`
	RecordCameraIP string `json:"record_camera_ip"`
	RecordLocation string `json:"record_location"`
}
