package track

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/facetrack/internal/models"
)

type fakeVisitStore struct {
	latest   *models.VisitSegment
	closed   []int64
	inserted []*models.VisitSegment
	dupe     bool
}

func (f *fakeVisitStore) LatestVisit(ctx context.Context, personID uuid.UUID) (*models.VisitSegment, error) {
	return f.latest, nil
}

func (f *fakeVisitStore) CloseVisit(ctx context.Context, id int64, end time.Time) (bool, error) {
	f.closed = append(f.closed, id)
	return true, nil
}

func (f *fakeVisitStore) InsertVisit(ctx context.Context, v *models.VisitSegment) (bool, error) {
	if f.dupe {
		return false, nil
	}
	f.inserted = append(f.inserted, v)
	return true, nil
}

type staticResolver struct {
	recordIP string
	location string
}

func (r staticResolver) Resolve(ctx context.Context, snapIP, fallback string) (string, string, error) {
	loc := r.location
	if loc == "" {
		loc = fallback
	}
	ip := r.recordIP
	if ip == "" {
		ip = snapIP
	}
	return ip, loc, nil
}

func TestObserveOpensFirstSegment(t *testing.T) {
	store := &fakeVisitStore{}
	p := NewPresence(store, staticResolver{location: "Lobby"}, "Unknown")

	capture := time.Date(2025, 1, 14, 9, 0, 0, 0, time.UTC)
	location, err := p.Observe(context.Background(), Observation{
		PersonID:     uuid.New(),
		PersonName:   "alice",
		SnapCameraIP: "10.0.1.5",
		CaptureTime:  capture,
	})
	if err != nil {
		t.Fatal(err)
	}
	if location != "Lobby" {
		t.Errorf("location = %q, want Lobby", location)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d segments, want 1", len(store.inserted))
	}
	if !store.inserted[0].StartTime.Equal(capture) {
		t.Errorf("StartTime = %v, want %v", store.inserted[0].StartTime, capture)
	}
	if len(store.closed) != 0 {
		t.Errorf("closed %d segments, want 0", len(store.closed))
	}
}

func TestObserveSameLocationContinuesSegment(t *testing.T) {
	personID := uuid.New()
	store := &fakeVisitStore{latest: &models.VisitSegment{
		ID:           7,
		PersonID:     personID,
		SnapLocation: "lobby", // differs only in case
		StartTime:    time.Date(2025, 1, 14, 9, 0, 0, 0, time.UTC),
	}}
	p := NewPresence(store, staticResolver{location: "Lobby"}, "Unknown")

	location, err := p.Observe(context.Background(), Observation{
		PersonID:    personID,
		CaptureTime: time.Date(2025, 1, 14, 9, 5, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	if location != "Lobby" {
		t.Errorf("location = %q, want Lobby", location)
	}
	if len(store.closed) != 0 || len(store.inserted) != 0 {
		t.Errorf("continuation must not close (%d) or insert (%d)", len(store.closed), len(store.inserted))
	}
}

func TestObserveNewLocationClosesAndOpens(t *testing.T) {
	personID := uuid.New()
	store := &fakeVisitStore{latest: &models.VisitSegment{
		ID:           7,
		PersonID:     personID,
		SnapLocation: "Lobby",
		StartTime:    time.Date(2025, 1, 14, 9, 0, 0, 0, time.UTC),
	}}
	p := NewPresence(store, staticResolver{location: "Hallway"}, "Unknown")

	capture := time.Date(2025, 1, 14, 9, 10, 0, 0, time.UTC)
	location, err := p.Observe(context.Background(), Observation{
		PersonID:    personID,
		CaptureTime: capture,
	})
	if err != nil {
		t.Fatal(err)
	}
	if location != "Hallway" {
		t.Errorf("location = %q, want Hallway", location)
	}
	if len(store.closed) != 1 || store.closed[0] != 7 {
		t.Fatalf("closed = %v, want [7]", store.closed)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d segments, want 1", len(store.inserted))
	}
	if store.inserted[0].SnapLocation != "Hallway" {
		t.Errorf("new segment location = %q, want Hallway", store.inserted[0].SnapLocation)
	}
}

func TestObserveAlreadyClosedSegmentOnlyOpens(t *testing.T) {
	personID := uuid.New()
	end := time.Date(2025, 1, 14, 9, 2, 0, 0, time.UTC)
	store := &fakeVisitStore{latest: &models.VisitSegment{
		ID:           7,
		PersonID:     personID,
		SnapLocation: "Lobby",
		StartTime:    time.Date(2025, 1, 14, 9, 0, 0, 0, time.UTC),
		EndTime:      &end,
	}}
	p := NewPresence(store, staticResolver{location: "Hallway"}, "Unknown")

	if _, err := p.Observe(context.Background(), Observation{
		PersonID:    personID,
		CaptureTime: time.Date(2025, 1, 14, 9, 10, 0, 0, time.UTC),
	}); err != nil {
		t.Fatal(err)
	}
	if len(store.closed) != 0 {
		t.Errorf("closed segment closed again: %v", store.closed)
	}
	if len(store.inserted) != 1 {
		t.Errorf("inserted %d segments, want 1", len(store.inserted))
	}
}

func TestObserveStaleCaptureIsIgnored(t *testing.T) {
	personID := uuid.New()
	store := &fakeVisitStore{latest: &models.VisitSegment{
		ID:           7,
		PersonID:     personID,
		SnapLocation: "Lobby",
		StartTime:    time.Date(2025, 1, 14, 9, 0, 0, 0, time.UTC),
	}}
	p := NewPresence(store, staticResolver{location: "Hallway"}, "Unknown")

	// capture predates the open segment's start
	if _, err := p.Observe(context.Background(), Observation{
		PersonID:    personID,
		CaptureTime: time.Date(2025, 1, 14, 8, 55, 0, 0, time.UTC),
	}); err != nil {
		t.Fatal(err)
	}
	if len(store.closed) != 0 || len(store.inserted) != 0 {
		t.Errorf("stale observation must be a no-op, closed=%v inserted=%d", store.closed, len(store.inserted))
	}
}

func TestObserveFallsBackToDefaultLocation(t *testing.T) {
	store := &fakeVisitStore{}
	p := NewPresence(store, staticResolver{}, "Unknown")

	location, err := p.Observe(context.Background(), Observation{
		PersonID:     uuid.New(),
		SnapCameraIP: "10.0.1.5",
		CaptureTime:  time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if location != "Unknown" {
		t.Errorf("location = %q, want Unknown", location)
	}
	if store.inserted[0].RecordCameraIP != "10.0.1.5" {
		t.Errorf("unbound camera should record itself, got %q", store.inserted[0].RecordCameraIP)
	}
}
