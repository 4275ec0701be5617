package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/your-org/facetrack/internal/models"
)

// --- Visit segments ---

// LatestVisit returns the most recent visit segment of a person by snapshot
// time, or nil when the person has no visits yet.
func (s *PostgresStore) LatestVisit(ctx context.Context, personID uuid.UUID) (*models.VisitSegment, error) {
	v := &models.VisitSegment{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, person_id, person_name, snap_location, snap_camera_ip, record_camera_ip,
		        record_start_time, record_end_time, created_at
		 FROM track_records
		 WHERE person_id = $1
		 ORDER BY record_start_time DESC, id DESC
		 LIMIT 1`, personID,
	).Scan(&v.ID, &v.PersonID, &v.PersonName, &v.SnapLocation, &v.SnapCameraIP,
		&v.RecordCameraIP, &v.StartTime, &v.EndTime, &v.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("latest visit: %w", err)
	}
	return v, nil
}

// CloseVisit sets the end time of an open segment. Already-closed segments
// are left untouched.
func (s *PostgresStore) CloseVisit(ctx context.Context, id int64, end time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE track_records SET record_end_time = $1 WHERE id = $2 AND record_end_time IS NULL`,
		end, id)
	if err != nil {
		return false, fmt.Errorf("close visit: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// InsertVisit opens a new segment. The insert is conditional on the
// (person_id, snap_location, record_start_time) unique index, so concurrent
// duplicate observations collapse to one row. Returns false when the row
// already existed.
func (s *PostgresStore) InsertVisit(ctx context.Context, v *models.VisitSegment) (bool, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO track_records (person_id, person_name, snap_location, snap_camera_ip, record_camera_ip, record_start_time)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (person_id, snap_location, record_start_time) DO NOTHING
		 RETURNING id, created_at`,
		v.PersonID, v.PersonName, v.SnapLocation, v.SnapCameraIP, v.RecordCameraIP, v.StartTime,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("insert visit: %w", err)
	}
	return true, nil
}

// ListVisits returns a page of a person's visit history, newest first.
func (s *PostgresStore) ListVisits(ctx context.Context, personID uuid.UUID, limit, offset int) ([]models.VisitSegment, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM track_records WHERE person_id = $1`, personID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count visits: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, person_id, person_name, snap_location, snap_camera_ip, record_camera_ip,
		        record_start_time, record_end_time, created_at
		 FROM track_records
		 WHERE person_id = $1
		 ORDER BY record_start_time DESC, id DESC
		 LIMIT $2 OFFSET $3`, personID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list visits: %w", err)
	}
	defer rows.Close()

	var visits []models.VisitSegment
	for rows.Next() {
		var v models.VisitSegment
		if err := rows.Scan(&v.ID, &v.PersonID, &v.PersonName, &v.SnapLocation, &v.SnapCameraIP,
			&v.RecordCameraIP, &v.StartTime, &v.EndTime, &v.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan visit: %w", err)
		}
		visits = append(visits, v)
	}
	return visits, total, rows.Err()
}

// DeleteVisitsByPerson removes a person's full visit history. Used when an
// identity is deleted.
func (s *PostgresStore) DeleteVisitsByPerson(ctx context.Context, personID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM track_records WHERE person_id = $1`, personID)
	if err != nil {
		return 0, fmt.Errorf("delete visits: %w", err)
	}
	return tag.RowsAffected(), nil
}
