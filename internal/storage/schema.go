package storage

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,

	`CREATE TABLE IF NOT EXISTS identities (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		embedding vector(512) NOT NULL,
		image_key TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS face_cameras (
		id BIGSERIAL PRIMARY KEY,
		ip TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS record_cameras (
		id BIGSERIAL PRIMARY KEY,
		ip TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS camera_mapping (
		id BIGSERIAL PRIMARY KEY,
		face_camera_id BIGINT NOT NULL REFERENCES face_cameras(id) ON DELETE CASCADE,
		record_camera_id BIGINT NOT NULL REFERENCES record_cameras(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_camera_mapping_face ON camera_mapping (face_camera_id)`,

	`CREATE TABLE IF NOT EXISTS track_records (
		id BIGSERIAL PRIMARY KEY,
		person_id UUID NOT NULL,
		person_name TEXT NOT NULL DEFAULT '',
		snap_location TEXT NOT NULL,
		snap_camera_ip TEXT NOT NULL DEFAULT '',
		record_camera_ip TEXT NOT NULL DEFAULT '',
		record_start_time TIMESTAMPTZ NOT NULL,
		record_end_time TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_track_records_person_start
		ON track_records (person_id, record_start_time DESC)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS uq_track_records_person_loc_start
		ON track_records (person_id, snap_location, record_start_time)`,
}

// InitSchema creates tables and indexes if they don't exist. Safe to run on
// every startup.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
