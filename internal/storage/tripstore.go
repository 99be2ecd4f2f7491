package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/models"
)

var (
	// ErrTripNotFound matches standard 404 behavior.
	ErrTripNotFound = errors.New("trip not found")

	// ErrStatusConflict means the trip existed but was not in the expected
	// state when a conditional update ran. This is how a losing accept is
	// told apart from a missing trip.
	ErrStatusConflict = errors.New("trip not in expected status")

	// ErrTripExists guards against id reuse on insert.
	ErrTripExists = errors.New("trip id already exists")
)

// TripPatch carries the fields a transition may set. Zero values mean
// "leave unchanged".
type TripPatch struct {
	AssignedDriverID string
	ClientRating     int
}

// TripStore is the persistence contract for trips. UpdateTripIfStatus is
// the compare-and-set every transition goes through: the status column is
// the guard, so N concurrent callers racing on the same trip see exactly
// one success and N-1 ErrStatusConflict.
type TripStore interface {
	CreateTrip(ctx context.Context, t *models.Trip) error
	GetTrip(ctx context.Context, id string) (*models.Trip, error)
	ListTripsByStatus(ctx context.Context, status models.TripStatus) ([]*models.Trip, error)
	UpdateTripIfStatus(ctx context.Context, id string, expected, next models.TripStatus, patch TripPatch) (*models.Trip, error)
}

type MemoryStore struct {
	mu    sync.RWMutex
	trips map[string]*models.Trip
	nowFn func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{trips: make(map[string]*models.Trip), nowFn: time.Now}
}

func (m *MemoryStore) CreateTrip(ctx context.Context, t *models.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[t.ID]; ok {
		return ErrTripExists
	}
	cp := *t
	m.trips[t.ID] = &cp
	return nil
}

func (m *MemoryStore) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trips[id]
	if !ok {
		return nil, ErrTripNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) ListTripsByStatus(ctx context.Context, status models.TripStatus) ([]*models.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Trip, 0)
	for _, t := range m.trips {
		if t.Status != status {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryStore) UpdateTripIfStatus(ctx context.Context, id string, expected, next models.TripStatus, patch TripPatch) (*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok {
		return nil, ErrTripNotFound
	}
	if t.Status != expected {
		return nil, ErrStatusConflict
	}
	t.Status = next
	if patch.AssignedDriverID != "" {
		t.AssignedDriverID = patch.AssignedDriverID
	}
	if patch.ClientRating != 0 {
		t.ClientRating = patch.ClientRating
	}
	t.UpdatedAt = m.nowFn()
	cp := *t
	return &cp, nil
}
