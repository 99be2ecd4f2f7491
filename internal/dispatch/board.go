// Package dispatch pushes lifecycle events out to connected parties: the
// driver job board over websockets and an optional client-side webhook.
package dispatch

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/trips"
)

// session wraps one driver connection; writes are serialized per
// connection as gorilla/websocket requires.
type session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *session) send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// Board holds the websocket sessions of online drivers. New PENDING trips
// are broadcast to everyone; accept/complete updates go only to the
// assigned driver.
type Board struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func NewBoard() *Board { return &Board{sessions: make(map[string]*session)} }

func (b *Board) Add(driverID string, conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.sessions[driverID]; ok {
		_ = old.conn.Close()
	}
	b.sessions[driverID] = &session{conn: conn}
}

func (b *Board) Remove(driverID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.sessions[driverID]; ok {
		_ = s.conn.Close()
		delete(b.sessions, driverID)
	}
}

// Publish implements trips.EventSink. Send errors drop the session; the
// driver reconnects and refetches the board over HTTP.
func (b *Board) Publish(ctx context.Context, ev trips.Event) error {
	switch ev.Type {
	case trips.EventTripCreated:
		b.mu.RLock()
		targets := make(map[string]*session, len(b.sessions))
		for id, s := range b.sessions {
			targets[id] = s
		}
		b.mu.RUnlock()
		for id, s := range targets {
			if err := s.send(ev); err != nil {
				b.Remove(id)
			}
		}
	case trips.EventTripAccepted, trips.EventTripCompleted:
		b.mu.RLock()
		s, ok := b.sessions[ev.Trip.AssignedDriverID]
		b.mu.RUnlock()
		if !ok {
			return nil
		}
		if err := s.send(ev); err != nil {
			b.Remove(ev.Trip.AssignedDriverID)
		}
	}
	return nil
}
