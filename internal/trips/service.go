// Package trips implements the delivery job lifecycle:
// PENDING -> ACCEPTED -> COMPLETED. Every transition is a single
// compare-and-set against the trip store keyed on the current status, so
// concurrent competing calls resolve to exactly one winner.
package trips

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/fare"
	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/models"
	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/observability"
	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/storage"
)

type EventType string

const (
	EventTripCreated   EventType = "TRIP_CREATED"
	EventTripAccepted  EventType = "TRIP_ACCEPTED"
	EventTripCompleted EventType = "TRIP_COMPLETED"
)

// Event is published after every successful transition. Trip is a copy of
// the record after the transition.
type Event struct {
	Type EventType   `json:"type"`
	Trip models.Trip `json:"trip"`
	At   time.Time   `json:"at"`
}

// EventSink receives lifecycle events: the Kafka producer, the driver
// websocket board, and the client webhook all implement it. Delivery is
// best-effort; a failing sink never rolls a transition back.
type EventSink interface {
	Publish(ctx context.Context, ev Event) error
}

type Service struct {
	Trips  storage.TripStore
	Actors storage.ActorStore
	Log    *slog.Logger
	Sinks  []EventSink

	nowFn func() time.Time
}

func NewService(tripStore storage.TripStore, actorStore storage.ActorStore, log *slog.Logger, sinks ...EventSink) *Service {
	return &Service{Trips: tripStore, Actors: actorStore, Log: log, Sinks: sinks, nowFn: time.Now}
}

// CreateRequest carries everything a client confirms on the quote screen.
// Quote fields are snapshotted onto the trip and frozen there.
type CreateRequest struct {
	ClientID         string
	Quote            fare.Quote
	CargoDescription string
	CargoWeightLabel string
	PickupAddress    string
	DropoffAddress   string
	Pickup           models.Coord
	Dropoff          models.Coord
	RecipientName    string
	RecipientPhone   string
}

func (r CreateRequest) validate() error {
	switch {
	case strings.TrimSpace(r.PickupAddress) == "":
		return fmt.Errorf("%w: pickup address is required", ErrValidation)
	case strings.TrimSpace(r.DropoffAddress) == "":
		return fmt.Errorf("%w: dropoff address is required", ErrValidation)
	case strings.TrimSpace(r.CargoDescription) == "":
		return fmt.Errorf("%w: cargo description is required", ErrValidation)
	case r.ClientID == "":
		return fmt.Errorf("%w: client id is required", ErrValidation)
	}
	return nil
}

// Create opens a new trip in PENDING state with no driver assigned.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Trip, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	now := s.nowFn()
	t := &models.Trip{
		ID:               uuid.NewString(),
		Status:           models.TripPending,
		ClientID:         req.ClientID,
		VehicleClass:     req.Quote.Class,
		DistanceKm:       req.Quote.DistanceKm,
		Price:            req.Quote.Price,
		CargoDescription: req.CargoDescription,
		CargoWeightLabel: req.CargoWeightLabel,
		PickupAddress:    req.PickupAddress,
		DropoffAddress:   req.DropoffAddress,
		Pickup:           req.Pickup,
		Dropoff:          req.Dropoff,
		RecipientName:    req.RecipientName,
		RecipientPhone:   req.RecipientPhone,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Trips.CreateTrip(ctx, t); err != nil {
		return nil, fmt.Errorf("create trip: %w", err)
	}
	observability.TripsCreatedTotal.Inc()
	s.logInfo("trip created", "trip_id", t.ID, "client_id", t.ClientID, "price", t.Price)
	s.publish(ctx, Event{Type: EventTripCreated, Trip: *t, At: now})
	return t, nil
}

// Accept moves a PENDING trip to ACCEPTED and assigns the driver. Only a
// verified driver may accept; a trip already taken (or completed) fails
// with ErrIllegalTransition regardless of caller.
func (s *Service) Accept(ctx context.Context, tripID, driverID string) (*models.Trip, error) {
	drv, err := s.Actors.GetDriver(ctx, driverID)
	if err != nil {
		if errors.Is(err, storage.ErrDriverNotFound) {
			return nil, fmt.Errorf("%w: driver %s", ErrNotFound, driverID)
		}
		return nil, err
	}
	if !drv.Verified {
		return nil, fmt.Errorf("%w: driver %s is not verified", ErrUnauthorized, driverID)
	}

	t, err := s.Trips.UpdateTripIfStatus(ctx, tripID, models.TripPending, models.TripAccepted,
		storage.TripPatch{AssignedDriverID: driverID})
	if err != nil {
		return nil, s.mapStoreErr(err, tripID)
	}
	observability.TripsAcceptedTotal.Inc()
	s.logInfo("trip accepted", "trip_id", tripID, "driver_id", driverID)
	s.publish(ctx, Event{Type: EventTripAccepted, Trip: *t, At: s.nowFn()})
	return t, nil
}

// Complete moves an ACCEPTED trip to COMPLETED, records the client rating
// and increments the assigned driver's completed-trip counter exactly
// once. Only the assigned driver may complete.
func (s *Service) Complete(ctx context.Context, tripID, driverID string, rating int) (*models.Trip, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5, got %d", ErrValidation, rating)
	}
	cur, err := s.Trips.GetTrip(ctx, tripID)
	if err != nil {
		return nil, s.mapStoreErr(err, tripID)
	}
	if cur.Status != models.TripAccepted {
		return nil, fmt.Errorf("%w: trip %s is %s, not %s", ErrIllegalTransition, tripID, cur.Status, models.TripAccepted)
	}
	if cur.AssignedDriverID != driverID {
		return nil, fmt.Errorf("%w: trip %s is assigned to another driver", ErrUnauthorized, tripID)
	}

	// the CAS still guards the race between the read above and this write
	t, err := s.Trips.UpdateTripIfStatus(ctx, tripID, models.TripAccepted, models.TripCompleted,
		storage.TripPatch{ClientRating: rating})
	if err != nil {
		return nil, s.mapStoreErr(err, tripID)
	}
	if err := s.Actors.IncrementCompletedTrips(ctx, driverID); err != nil {
		// transition already committed; surface the counter failure in logs only
		s.logError("increment completed trips", "driver_id", driverID, "error", err)
	}
	observability.TripsCompletedTotal.Inc()
	s.logInfo("trip completed", "trip_id", tripID, "driver_id", driverID, "rating", rating)
	s.publish(ctx, Event{Type: EventTripCompleted, Trip: *t, At: s.nowFn()})
	return t, nil
}

// SetDriverVerified is the admin's approval toggle. It acts on the actor
// record only, never on trips.
func (s *Service) SetDriverVerified(ctx context.Context, driverID string, verified bool) error {
	if err := s.Actors.SetDriverVerified(ctx, driverID, verified); err != nil {
		if errors.Is(err, storage.ErrDriverNotFound) {
			return fmt.Errorf("%w: driver %s", ErrNotFound, driverID)
		}
		return err
	}
	s.logInfo("driver verification set", "driver_id", driverID, "verified", verified)
	return nil
}

func (s *Service) Get(ctx context.Context, tripID string) (*models.Trip, error) {
	t, err := s.Trips.GetTrip(ctx, tripID)
	if err != nil {
		return nil, s.mapStoreErr(err, tripID)
	}
	return t, nil
}

func (s *Service) ListByStatus(ctx context.Context, status models.TripStatus) ([]*models.Trip, error) {
	return s.Trips.ListTripsByStatus(ctx, status)
}

func (s *Service) mapStoreErr(err error, tripID string) error {
	switch {
	case errors.Is(err, storage.ErrTripNotFound):
		return fmt.Errorf("%w: trip %s", ErrNotFound, tripID)
	case errors.Is(err, storage.ErrStatusConflict):
		observability.AcceptConflictsTotal.Inc()
		return fmt.Errorf("%w: trip %s", ErrIllegalTransition, tripID)
	}
	return err
}

func (s *Service) publish(ctx context.Context, ev Event) {
	for _, sink := range s.Sinks {
		if err := sink.Publish(ctx, ev); err != nil {
			s.logError("publish trip event", "type", string(ev.Type), "trip_id", ev.Trip.ID, "error", err)
		}
	}
}

func (s *Service) logInfo(msg string, args ...any) {
	if s.Log != nil {
		s.Log.Info(msg, args...)
	}
}

func (s *Service) logError(msg string, args ...any) {
	if s.Log != nil {
		s.Log.Error(msg, args...)
	}
}
