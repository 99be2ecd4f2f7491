package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/models"
)

var (
	ErrDriverNotFound = errors.New("driver not found")
	ErrClientNotFound = errors.New("client not found")
)

// ActorStore persists the actor records the lifecycle needs: driver
// verification state and the completed-trip counter, plus the client
// profiles trips reference. Records arrive from the external identity
// workflow via the sync endpoints.
type ActorStore interface {
	PutDriver(ctx context.Context, d models.Driver) error
	GetDriver(ctx context.Context, id string) (*models.Driver, error)
	ListDrivers(ctx context.Context) ([]*models.Driver, error)
	SetDriverVerified(ctx context.Context, id string, verified bool) error
	IncrementCompletedTrips(ctx context.Context, id string) error

	PutClient(ctx context.Context, c models.Client) error
	GetClient(ctx context.Context, id string) (*models.Client, error)
}

type MemoryActorStore struct {
	mu      sync.RWMutex
	drivers map[string]*models.Driver
	clients map[string]*models.Client
}

func NewMemoryActorStore() *MemoryActorStore {
	return &MemoryActorStore{
		drivers: make(map[string]*models.Driver),
		clients: make(map[string]*models.Client),
	}
}

func (m *MemoryActorStore) PutDriver(ctx context.Context, d models.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.drivers[d.ID]; ok {
		// verification state and trip counter survive profile re-syncs
		d.Verified = prev.Verified
		d.CompletedTrips = prev.CompletedTrips
	}
	m.drivers[d.ID] = &d
	return nil
}

func (m *MemoryActorStore) GetDriver(ctx context.Context, id string) (*models.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drivers[id]
	if !ok {
		return nil, ErrDriverNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *MemoryActorStore) ListDrivers(ctx context.Context) ([]*models.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryActorStore) SetDriverVerified(ctx context.Context, id string, verified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return ErrDriverNotFound
	}
	d.Verified = verified
	return nil
}

func (m *MemoryActorStore) IncrementCompletedTrips(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return ErrDriverNotFound
	}
	d.CompletedTrips++
	return nil
}

func (m *MemoryActorStore) PutClient(ctx context.Context, c models.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ID] = &c
	return nil
}

func (m *MemoryActorStore) GetClient(ctx context.Context, id string) (*models.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, ErrClientNotFound
	}
	cp := *c
	return &cp, nil
}
