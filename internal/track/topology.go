package track

import (
	"context"
	"errors"
	"fmt"

	"github.com/your-org/facetrack/internal/models"
)

// ErrCameraNotFound is returned when a bind operation references a camera
// id that does not exist.
var ErrCameraNotFound = errors.New("camera not found")

// TopologyStore is the persistence the topology service needs. The
// Postgres store satisfies it.
type TopologyStore interface {
	GetCamera(ctx context.Context, kind models.CameraKind, id int64) (*models.Camera, error)
	ResolveBinding(ctx context.Context, faceIP string) (*models.BindingView, error)
	CreateBinding(ctx context.Context, faceID, recordID int64) (*models.CameraBinding, error)
	GetBinding(ctx context.Context, id int64) (*models.CameraBinding, error)
	UpdateBindingRecord(ctx context.Context, id, recordID int64) (bool, error)
	DeleteBinding(ctx context.Context, id int64) (bool, error)
	DeleteBindingPair(ctx context.Context, faceID, recordID int64) (bool, error)
	DeleteBindingsByFace(ctx context.Context, faceID int64) (int64, error)
	DeleteBindingsByRecord(ctx context.Context, recordID int64) (int64, error)
}

// Topology maps snapshot cameras to the record camera and location a visit
// is attributed to. Resolution order: explicit binding, then the static
// IP-to-room table from config, then the caller's fallback.
type Topology struct {
	store TopologyStore
	rooms map[string]string
}

func NewTopology(store TopologyStore, rooms map[string]string) *Topology {
	return &Topology{store: store, rooms: rooms}
}

// Resolve returns the record camera IP and location for a snapshot camera.
// Unbound cameras resolve to themselves.
func (t *Topology) Resolve(ctx context.Context, snapIP, fallback string) (string, string, error) {
	binding, err := t.store.ResolveBinding(ctx, snapIP)
	if err != nil {
		return "", "", err
	}
	if binding != nil {
		location := binding.RecordLocation
		if location == "" {
			location = t.staticLocation(snapIP, fallback)
		}
		return binding.RecordCameraIP, location, nil
	}
	return snapIP, t.staticLocation(snapIP, fallback), nil
}

func (t *Topology) staticLocation(snapIP, fallback string) string {
	if room, ok := t.rooms[snapIP]; ok && room != "" {
		return room
	}
	return fallback
}

// Bind links a face camera to a record camera. Both must exist. Repeated
// binds accumulate; a face camera may fan out to several record cameras.
func (t *Topology) Bind(ctx context.Context, faceID, recordID int64) (*models.CameraBinding, error) {
	if err := t.checkCameras(ctx, faceID, recordID); err != nil {
		return nil, err
	}
	return t.store.CreateBinding(ctx, faceID, recordID)
}

// ForceBind removes every existing binding of the record camera before
// binding, so the record camera ends up paired with exactly this face
// camera.
func (t *Topology) ForceBind(ctx context.Context, faceID, recordID int64) (*models.CameraBinding, error) {
	if err := t.checkCameras(ctx, faceID, recordID); err != nil {
		return nil, err
	}
	if _, err := t.store.DeleteBindingsByRecord(ctx, recordID); err != nil {
		return nil, err
	}
	return t.store.CreateBinding(ctx, faceID, recordID)
}

func (t *Topology) checkCameras(ctx context.Context, faceID, recordID int64) error {
	face, err := t.store.GetCamera(ctx, models.CameraKindFace, faceID)
	if err != nil {
		return err
	}
	if face == nil {
		return fmt.Errorf("face camera %d: %w", faceID, ErrCameraNotFound)
	}
	record, err := t.store.GetCamera(ctx, models.CameraKindRecord, recordID)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("record camera %d: %w", recordID, ErrCameraNotFound)
	}
	return nil
}

// UpdateBinding either removes the binding (unbind) or repoints it at a
// new record camera. Returns false when the binding does not exist or no
// change was requested.
func (t *Topology) UpdateBinding(ctx context.Context, id int64, newRecordID *int64, unbind bool) (bool, error) {
	if unbind {
		return t.store.DeleteBinding(ctx, id)
	}
	if newRecordID == nil {
		return false, nil
	}

	binding, err := t.store.GetBinding(ctx, id)
	if err != nil {
		return false, err
	}
	if binding == nil {
		return false, nil
	}

	record, err := t.store.GetCamera(ctx, models.CameraKindRecord, *newRecordID)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, fmt.Errorf("record camera %d: %w", *newRecordID, ErrCameraNotFound)
	}
	return t.store.UpdateBindingRecord(ctx, id, *newRecordID)
}

// UnbindPair removes the binding between a specific camera pair.
func (t *Topology) UnbindPair(ctx context.Context, faceID, recordID int64) (bool, error) {
	return t.store.DeleteBindingPair(ctx, faceID, recordID)
}

// UnbindAllFromFace removes every binding of a face camera.
func (t *Topology) UnbindAllFromFace(ctx context.Context, faceID int64) (int64, error) {
	return t.store.DeleteBindingsByFace(ctx, faceID)
}

// UnbindAllFromRecord removes every binding of a record camera.
func (t *Topology) UnbindAllFromRecord(ctx context.Context, recordID int64) (int64, error) {
	return t.store.DeleteBindingsByRecord(ctx, recordID)
}
