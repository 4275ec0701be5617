package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/your-org/facetrack/internal/models"
)

func cameraTable(kind models.CameraKind) string {
	if kind == models.CameraKindRecord {
		return "record_cameras"
	}
	return "face_cameras"
}

// --- Cameras ---

func (s *PostgresStore) CreateCamera(ctx context.Context, kind models.CameraKind, ip, name, location string) (*models.Camera, error) {
	c := &models.Camera{Kind: kind, IP: ip, Name: name, Location: location}
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %s (ip, name, location) VALUES ($1, $2, $3) RETURNING id, created_at`, cameraTable(kind)),
		ip, name, location,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create %s camera: %w", kind, err)
	}
	return c, nil
}

func (s *PostgresStore) GetCamera(ctx context.Context, kind models.CameraKind, id int64) (*models.Camera, error) {
	c := &models.Camera{Kind: kind}
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT id, ip, name, location, created_at FROM %s WHERE id = $1`, cameraTable(kind)), id,
	).Scan(&c.ID, &c.IP, &c.Name, &c.Location, &c.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s camera: %w", kind, err)
	}
	return c, nil
}

func (s *PostgresStore) GetCameraByIP(ctx context.Context, kind models.CameraKind, ip string) (*models.Camera, error) {
	c := &models.Camera{Kind: kind}
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT id, ip, name, location, created_at FROM %s WHERE ip = $1`, cameraTable(kind)), ip,
	).Scan(&c.ID, &c.IP, &c.Name, &c.Location, &c.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s camera by ip: %w", kind, err)
	}
	return c, nil
}

func (s *PostgresStore) ListCameras(ctx context.Context, kind models.CameraKind) ([]models.Camera, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT id, ip, name, location, created_at FROM %s ORDER BY id`, cameraTable(kind)))
	if err != nil {
		return nil, fmt.Errorf("list %s cameras: %w", kind, err)
	}
	defer rows.Close()

	var cameras []models.Camera
	for rows.Next() {
		c := models.Camera{Kind: kind}
		if err := rows.Scan(&c.ID, &c.IP, &c.Name, &c.Location, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan camera: %w", err)
		}
		cameras = append(cameras, c)
	}
	return cameras, rows.Err()
}

func (s *PostgresStore) UpdateCamera(ctx context.Context, kind models.CameraKind, id int64, ip, name, location string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET ip = $1, name = $2, location = $3 WHERE id = $4`, cameraTable(kind)),
		ip, name, location, id)
	if err != nil {
		return false, fmt.Errorf("update %s camera: %w", kind, err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteCamera removes a camera. Bindings referencing it go with it via the
// ON DELETE CASCADE foreign keys.
func (s *PostgresStore) DeleteCamera(ctx context.Context, kind models.CameraKind, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, cameraTable(kind)), id)
	if err != nil {
		return false, fmt.Errorf("delete %s camera: %w", kind, err)
	}
	return tag.RowsAffected() > 0, nil
}

// --- Bindings ---

func (s *PostgresStore) CreateBinding(ctx context.Context, faceID, recordID int64) (*models.CameraBinding, error) {
	b := &models.CameraBinding{FaceCameraID: faceID, RecordCameraID: recordID}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO camera_mapping (face_camera_id, record_camera_id) VALUES ($1, $2) RETURNING id, created_at`,
		faceID, recordID,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create binding: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) GetBinding(ctx context.Context, id int64) (*models.CameraBinding, error) {
	b := &models.CameraBinding{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, face_camera_id, record_camera_id, created_at FROM camera_mapping WHERE id = $1`, id,
	).Scan(&b.ID, &b.FaceCameraID, &b.RecordCameraID, &b.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get binding: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) ListBindings(ctx context.Context) ([]models.BindingView, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT m.id, fc.id, fc.ip, rc.id, rc.ip, rc.location
		 FROM camera_mapping m
		 JOIN face_cameras fc ON fc.id = m.face_camera_id
		 JOIN record_cameras rc ON rc.id = m.record_camera_id
		 ORDER BY m.id`)
	if err != nil {
		return nil, fmt.Errorf("list bindings: %w", err)
	}
	defer rows.Close()

	var views []models.BindingView
	for rows.Next() {
		var v models.BindingView
		if err := rows.Scan(&v.ID, &v.FaceCameraID, &v.FaceCameraIP,
			&v.RecordCameraID, &v.RecordCameraIP, &v.RecordLocation); err != nil {
			return nil, fmt.Errorf("scan binding: %w", err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// ResolveBinding returns the bound record camera for a face camera IP, or
// nil when the face camera is unknown or unbound.
func (s *PostgresStore) ResolveBinding(ctx context.Context, faceIP string) (*models.BindingView, error) {
	v := &models.BindingView{}
	err := s.pool.QueryRow(ctx,
		`SELECT m.id, fc.id, fc.ip, rc.id, rc.ip, rc.location
		 FROM camera_mapping m
		 JOIN face_cameras fc ON fc.id = m.face_camera_id
		 JOIN record_cameras rc ON rc.id = m.record_camera_id
		 WHERE fc.ip = $1
		 ORDER BY m.id
		 LIMIT 1`, faceIP,
	).Scan(&v.ID, &v.FaceCameraID, &v.FaceCameraIP,
		&v.RecordCameraID, &v.RecordCameraIP, &v.RecordLocation)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve binding: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) UpdateBindingRecord(ctx context.Context, id, recordID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE camera_mapping SET record_camera_id = $1 WHERE id = $2`, recordID, id)
	if err != nil {
		return false, fmt.Errorf("update binding: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) DeleteBinding(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM camera_mapping WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete binding: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) DeleteBindingPair(ctx context.Context, faceID, recordID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM camera_mapping WHERE face_camera_id = $1 AND record_camera_id = $2`, faceID, recordID)
	if err != nil {
		return false, fmt.Errorf("delete binding pair: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) DeleteBindingsByFace(ctx context.Context, faceID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM camera_mapping WHERE face_camera_id = $1`, faceID)
	if err != nil {
		return 0, fmt.Errorf("delete bindings by face camera: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) DeleteBindingsByRecord(ctx context.Context, recordID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM camera_mapping WHERE record_camera_id = $1`, recordID)
	if err != nil {
		return 0, fmt.Errorf("delete bindings by record camera: %w", err)
	}
	return tag.RowsAffected(), nil
}
