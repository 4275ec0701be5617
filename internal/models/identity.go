package models

import (
	"time"

	"github.com/google/uuid"
)

// Identity is an enrolled person with a reference face embedding.
type Identity struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Embedding []float32 `json:"-" db:"embedding"`
	ImageKey  string    `json:"image_key,omitempty" db:"image_key"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IdentityVector is the minimal projection used for brute-force matching.
type IdentityVector struct {
	ID        uuid.UUID
	Name      string
	Embedding []float32
}
