package trips

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/fare"
	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/models"
	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/storage"
)

// recordingSink captures published events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Publish(ctx context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSink) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func newTestService(t *testing.T) (*Service, *storage.MemoryActorStore, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	actors := storage.NewMemoryActorStore()
	svc := NewService(storage.NewMemoryStore(), actors, nil, sink)
	return svc, actors, sink
}

func seedDriver(t *testing.T, actors *storage.MemoryActorStore, id string, verified bool) {
	t.Helper()
	if err := actors.PutDriver(context.Background(), models.Driver{ID: id, Name: "driver " + id, VehicleClass: models.VehicleMoto}); err != nil {
		t.Fatalf("seed driver: %v", err)
	}
	if verified {
		if err := actors.SetDriverVerified(context.Background(), id, true); err != nil {
			t.Fatalf("verify driver: %v", err)
		}
	}
}

func validCreateRequest() CreateRequest {
	return CreateRequest{
		ClientID:         "client-1",
		Quote:            fare.Quote{Class: models.VehicleMoto, DistanceKm: 15.6, Price: 13},
		CargoDescription: "two shoe boxes and an envelope",
		CargoWeightLabel: "small parcel",
		PickupAddress:    "Zona Libre, Warehouse 45",
		DropoffAddress:   "Costa del Este, PH Regalia",
		Pickup:           models.Coord{Lat: 8.9824, Lon: -79.5199},
		Dropoff:          models.Coord{Lat: 9.0824, Lon: -79.4199},
		RecipientName:    "R. Gonzalez",
		RecipientPhone:   "+507 6000-0000",
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateRequest)
	}{
		{"empty pickup address", func(r *CreateRequest) { r.PickupAddress = "  " }},
		{"empty dropoff address", func(r *CreateRequest) { r.DropoffAddress = "" }},
		{"empty cargo description", func(r *CreateRequest) { r.CargoDescription = "" }},
		{"missing client", func(r *CreateRequest) { r.ClientID = "" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := validCreateRequest()
			tc.mutate(&req)
			if _, err := svc.Create(ctx, req); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestCreateOpensPendingTrip(t *testing.T) {
	svc, _, sink := newTestService(t)
	ctx := context.Background()

	trip, err := svc.Create(ctx, validCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if trip.ID == "" {
		t.Fatal("expected an id to be assigned")
	}
	if trip.Status != models.TripPending {
		t.Fatalf("expected PENDING, got %s", trip.Status)
	}
	if trip.AssignedDriverID != "" || trip.ClientRating != 0 {
		t.Fatalf("new trip must have no driver and no rating: %+v", trip)
	}
	if trip.Price != 13 || trip.DistanceKm != 15.6 {
		t.Fatalf("quote snapshot not applied: %+v", trip)
	}
	if trip.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
	got := sink.types()
	if len(got) != 1 || got[0] != EventTripCreated {
		t.Fatalf("expected one TRIP_CREATED event, got %v", got)
	}
}

func TestAcceptRequiresVerifiedDriver(t *testing.T) {
	svc, actors, _ := newTestService(t)
	ctx := context.Background()
	seedDriver(t, actors, "d1", false)
	trip, _ := svc.Create(ctx, validCreateRequest())

	if _, err := svc.Accept(ctx, trip.ID, "d1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unverified driver, got %v", err)
	}
	if _, err := svc.Accept(ctx, trip.ID, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown driver, got %v", err)
	}

	got, _ := svc.Get(ctx, trip.ID)
	if got.Status != models.TripPending {
		t.Fatalf("failed accepts must not move the trip, got %s", got.Status)
	}
}

func TestAcceptAssignsDriver(t *testing.T) {
	svc, actors, sink := newTestService(t)
	ctx := context.Background()
	seedDriver(t, actors, "d1", true)
	trip, _ := svc.Create(ctx, validCreateRequest())

	got, err := svc.Accept(ctx, trip.ID, "d1")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got.Status != models.TripAccepted || got.AssignedDriverID != "d1" {
		t.Fatalf("unexpected trip after accept: %+v", got)
	}

	// second accept by anyone deterministically fails
	seedDriver(t, actors, "d2", true)
	if _, err := svc.Accept(ctx, trip.ID, "d2"); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if _, err := svc.Accept(ctx, trip.ID, "d1"); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("accept is not idempotent, expected ErrIllegalTransition, got %v", err)
	}

	types := sink.types()
	if len(types) != 2 || types[1] != EventTripAccepted {
		t.Fatalf("expected CREATED then ACCEPTED, got %v", types)
	}
}

func TestAcceptUnknownTrip(t *testing.T) {
	svc, actors, _ := newTestService(t)
	seedDriver(t, actors, "d1", true)
	if _, err := svc.Accept(context.Background(), "no-such-trip", "d1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentAcceptHasOneWinner(t *testing.T) {
	svc, actors, _ := newTestService(t)
	ctx := context.Background()

	const drivers = 16
	ids := make([]string, drivers)
	for i := range ids {
		ids[i] = string(rune('A' + i))
		seedDriver(t, actors, ids[i], true)
	}
	trip, _ := svc.Create(ctx, validCreateRequest())

	var wg sync.WaitGroup
	errs := make([]error, drivers)
	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Accept(ctx, trip.ID, ids[i])
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrIllegalTransition):
		default:
			t.Fatalf("loser observed unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}

	got, _ := svc.Get(ctx, trip.ID)
	if got.Status != models.TripAccepted {
		t.Fatalf("expected ACCEPTED, got %s", got.Status)
	}
	found := false
	for _, id := range ids {
		if got.AssignedDriverID == id {
			found = true
		}
	}
	if !found {
		t.Fatalf("assigned driver %q is not one of the contenders", got.AssignedDriverID)
	}
}

func TestCompleteByAssignedDriver(t *testing.T) {
	svc, actors, sink := newTestService(t)
	ctx := context.Background()
	seedDriver(t, actors, "d1", true)
	trip, _ := svc.Create(ctx, validCreateRequest())
	if _, err := svc.Accept(ctx, trip.ID, "d1"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	got, err := svc.Complete(ctx, trip.ID, "d1", 5)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.Status != models.TripCompleted || got.ClientRating != 5 {
		t.Fatalf("unexpected trip after complete: %+v", got)
	}

	drv, _ := actors.GetDriver(ctx, "d1")
	if drv.CompletedTrips != 1 {
		t.Fatalf("expected completed_trips=1, got %d", drv.CompletedTrips)
	}

	// completing again must fail and must not double-increment
	if _, err := svc.Complete(ctx, trip.ID, "d1", 4); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition on double complete, got %v", err)
	}
	drv, _ = actors.GetDriver(ctx, "d1")
	if drv.CompletedTrips != 1 {
		t.Fatalf("double complete incremented the counter: %d", drv.CompletedTrips)
	}

	types := sink.types()
	if len(types) != 3 || types[2] != EventTripCompleted {
		t.Fatalf("expected CREATED, ACCEPTED, COMPLETED, got %v", types)
	}
}

func TestCompleteByOtherDriver(t *testing.T) {
	svc, actors, _ := newTestService(t)
	ctx := context.Background()
	seedDriver(t, actors, "d1", true)
	seedDriver(t, actors, "d2", true)
	trip, _ := svc.Create(ctx, validCreateRequest())
	if _, err := svc.Accept(ctx, trip.ID, "d1"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if _, err := svc.Complete(ctx, trip.ID, "d2", 5); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	drv, _ := actors.GetDriver(ctx, "d2")
	if drv.CompletedTrips != 0 {
		t.Fatalf("failed complete incremented d2's counter: %d", drv.CompletedTrips)
	}
}

func TestCompleteValidation(t *testing.T) {
	svc, actors, _ := newTestService(t)
	ctx := context.Background()
	seedDriver(t, actors, "d1", true)
	trip, _ := svc.Create(ctx, validCreateRequest())

	// rating bounds are checked before anything else
	for _, rating := range []int{0, -1, 6, 100} {
		if _, err := svc.Complete(ctx, trip.ID, "d1", rating); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation for rating %d, got %v", rating, err)
		}
	}

	// pending trips cannot be completed
	if _, err := svc.Complete(ctx, trip.ID, "d1", 5); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition for pending trip, got %v", err)
	}

	if _, err := svc.Complete(ctx, "no-such-trip", "d1", 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetDriverVerified(t *testing.T) {
	svc, actors, _ := newTestService(t)
	ctx := context.Background()
	seedDriver(t, actors, "d1", false)

	if err := svc.SetDriverVerified(ctx, "d1", true); err != nil {
		t.Fatalf("verify: %v", err)
	}
	drv, _ := actors.GetDriver(ctx, "d1")
	if !drv.Verified {
		t.Fatal("driver should be verified")
	}

	// admin can also revoke
	if err := svc.SetDriverVerified(ctx, "d1", false); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	drv, _ = actors.GetDriver(ctx, "d1")
	if drv.Verified {
		t.Fatal("driver verification should be revoked")
	}

	if err := svc.SetDriverVerified(ctx, "ghost", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
