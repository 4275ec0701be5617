package track

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/facetrack/internal/models"
	"github.com/your-org/facetrack/internal/observability"
)

// VisitStore is the persistence the presence tracker needs. The Postgres
// store satisfies it.
type VisitStore interface {
	LatestVisit(ctx context.Context, personID uuid.UUID) (*models.VisitSegment, error)
	CloseVisit(ctx context.Context, id int64, end time.Time) (bool, error)
	InsertVisit(ctx context.Context, v *models.VisitSegment) (bool, error)
}

// Resolver maps a snapshot camera IP to (record camera IP, location).
type Resolver interface {
	Resolve(ctx context.Context, snapIP, fallback string) (string, string, error)
}

// Observation is one matched face sighting handed to the tracker.
type Observation struct {
	PersonID     uuid.UUID
	PersonName   string
	SnapCameraIP string
	CaptureTime  time.Time
}

// Presence turns a stream of per-person sightings into visit segments: a
// repeat sighting at the same location extends the open segment, a
// sighting elsewhere closes it and opens a new one.
type Presence struct {
	store            VisitStore
	topo             Resolver
	fallbackLocation string
}

func NewPresence(store VisitStore, topo Resolver, fallbackLocation string) *Presence {
	return &Presence{store: store, topo: topo, fallbackLocation: fallbackLocation}
}

// Observe records one sighting and returns the resolved location. A person
// has at most one open segment; duplicate concurrent observations collapse
// in the store's conditional insert.
func (p *Presence) Observe(ctx context.Context, obs Observation) (string, error) {
	recordIP, location, err := p.topo.Resolve(ctx, obs.SnapCameraIP, p.fallbackLocation)
	if err != nil {
		return "", err
	}

	captureTime := obs.CaptureTime.UTC()

	latest, err := p.store.LatestVisit(ctx, obs.PersonID)
	if err != nil {
		return "", err
	}

	if latest != nil {
		if strings.EqualFold(latest.SnapLocation, location) {
			// still at the same place, the open segment covers it
			return location, nil
		}
		if captureTime.Before(latest.StartTime) {
			slog.Debug("stale observation, ignoring",
				"person_id", obs.PersonID, "capture_time", captureTime, "latest_start", latest.StartTime)
			return location, nil
		}
		if latest.EndTime == nil {
			if _, err := p.store.CloseVisit(ctx, latest.ID, captureTime); err != nil {
				return "", err
			}
			observability.VisitsClosed.Inc()
		}
	}

	inserted, err := p.store.InsertVisit(ctx, &models.VisitSegment{
		PersonID:       obs.PersonID,
		PersonName:     obs.PersonName,
		SnapLocation:   location,
		SnapCameraIP:   obs.SnapCameraIP,
		RecordCameraIP: recordIP,
		StartTime:      captureTime,
	})
	if err != nil {
		return "", err
	}
	if inserted {
		observability.VisitsOpened.Inc()
	}

	return location, nil
}
