package trips

import "github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/models"

type Transition string

const (
	TransitionCreate   Transition = "create"
	TransitionAccept   Transition = "accept"
	TransitionComplete Transition = "complete"
)

// CanTransition reports whether an actor may attempt a transition on a
// trip. It is advisory for the presentation layer; the service re-checks
// everything on the actual call. trip may be nil for TransitionCreate.
func CanTransition(actor models.Actor, trip *models.Trip, t Transition) bool {
	switch a := actor.(type) {
	case models.Client:
		return t == TransitionCreate
	case models.Driver:
		switch t {
		case TransitionAccept:
			return a.Verified && trip != nil && trip.Status == models.TripPending
		case TransitionComplete:
			return trip != nil && trip.Status == models.TripAccepted && trip.AssignedDriverID == a.ID
		}
	case models.Admin:
		// admins manage driver verification, not trip lifecycle
		return false
	}
	return false
}
