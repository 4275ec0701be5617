package dto

import "github.com/google/uuid"

// RegisterIdentityRequest enrolls a person from a base64-encoded image.
type RegisterIdentityRequest struct {
	Name  string `json:"name" binding:"required"`
	Image string `json:"image" binding:"required"`
}

type IdentityResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	ImageKey  string    `json:"image_key,omitempty"`
	CreatedAt string    `json:"created_at"`
}

// VerifyRequest matches an image against enrolled identities. Threshold,
// when set, overrides the configured primary threshold.
type VerifyRequest struct {
	Image     string   `json:"image" binding:"required"`
	Threshold *float64 `json:"threshold,omitempty"`
}

type VerifyResponse struct {
	Matched  bool      `json:"matched"`
	PersonID uuid.UUID `json:"person_id,omitempty"`
	Name     string    `json:"name,omitempty"`
	Score    float64   `json:"score,omitempty"`
	Fallback bool      `json:"fallback,omitempty"`
}

// CompareRequest scores the similarity of the best faces in two images.
type CompareRequest struct {
	ImageA string `json:"image_a" binding:"required"`
	ImageB string `json:"image_b" binding:"required"`
}

type CompareResponse struct {
	Similarity float64 `json:"similarity"`
}

type IdentityCountResponse struct {
	Database int `json:"database"`
	Index    int `json:"index,omitempty"`
}
