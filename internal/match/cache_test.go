package match

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/facetrack/internal/models"
)

func TestCacheReusesSnapshotWithinTTL(t *testing.T) {
	src := &fakeIdentitySource{vectors: []models.IdentityVector{
		{ID: uuid.New(), Name: "alice", Embedding: []float32{1, 0}},
	}}
	c := NewCache(src, time.Minute)

	for i := 0; i < 3; i++ {
		vectors, err := c.Vectors(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(vectors) != 1 {
			t.Fatalf("got %d vectors, want 1", len(vectors))
		}
	}
	if src.calls != 1 {
		t.Errorf("source called %d times, want 1", src.calls)
	}
}

func TestCacheInvalidateForcesRefetch(t *testing.T) {
	src := &fakeIdentitySource{}
	c := NewCache(src, time.Minute)

	if _, err := c.Vectors(context.Background()); err != nil {
		t.Fatal(err)
	}
	c.Invalidate()
	if _, err := c.Vectors(context.Background()); err != nil {
		t.Fatal(err)
	}
	if src.calls != 2 {
		t.Errorf("source called %d times, want 2", src.calls)
	}
}

func TestCacheServesStaleSnapshotOnSourceError(t *testing.T) {
	src := &fakeIdentitySource{vectors: []models.IdentityVector{
		{ID: uuid.New(), Name: "alice", Embedding: []float32{1, 0}},
	}}
	c := NewCache(src, 0) // immediately stale

	if _, err := c.Vectors(context.Background()); err != nil {
		t.Fatal(err)
	}

	src.err = errors.New("db down")
	vectors, err := c.Vectors(context.Background())
	if err != nil {
		t.Fatalf("stale snapshot should be served, got error %v", err)
	}
	if len(vectors) != 1 {
		t.Errorf("got %d vectors from stale snapshot, want 1", len(vectors))
	}
}

func TestCacheErrorsWhenEmptyAndSourceDown(t *testing.T) {
	src := &fakeIdentitySource{err: errors.New("db down")}
	c := NewCache(src, time.Minute)

	if _, err := c.Vectors(context.Background()); err == nil {
		t.Fatal("expected error when cache is empty and source is down")
	}
}
