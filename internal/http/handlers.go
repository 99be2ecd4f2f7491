package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/auth"
	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/dispatch"
	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/fare"
	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/geo"
	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/ingest"
	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/models"
	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/observability"
	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/storage"
	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/trips"
)

// Deps is everything the API server needs wired in. Locations may be nil
// when Kafka is not configured; pings then only update the geo index.
type Deps struct {
	Log         *slog.Logger
	Fares       *fare.Engine
	Geo         geo.Geo
	Trips       *trips.Service
	Actors      storage.ActorStore
	Locations   *ingest.LocationProducer
	Board       *dispatch.Board
	Auth        *auth.Manager
	NearbyLimit int
}

type Server struct {
	log         *slog.Logger
	fares       *fare.Engine
	geo         geo.Geo
	trips       *trips.Service
	actors      storage.ActorStore
	locations   *ingest.LocationProducer
	board       *dispatch.Board
	auth        *auth.Manager
	nearbyLimit int
	mux         *mux.Router
}

func NewServer(d Deps) *Server {
	s := &Server{
		log:         d.Log,
		fares:       d.Fares,
		geo:         d.Geo,
		trips:       d.Trips,
		actors:      d.Actors,
		locations:   d.Locations,
		board:       d.Board,
		auth:        d.Auth,
		nearbyLimit: d.NearbyLimit,
		mux:         mux.NewRouter(),
	}
	if s.nearbyLimit <= 0 {
		s.nearbyLimit = 8
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.Use(s.auth.Middleware)
	api.HandleFunc("/quotes", s.handleQuote).Methods("POST")
	api.HandleFunc("/vehicle-classes", s.handleVehicleClasses).Methods("GET")
	api.HandleFunc("/trips", s.handleCreateTrip).Methods("POST")
	api.HandleFunc("/trips", s.handleListTrips).Methods("GET")
	api.HandleFunc("/trips/{trip_id}", s.handleGetTrip).Methods("GET")
	api.HandleFunc("/trips/{trip_id}/accept", s.handleAcceptTrip).Methods("POST")
	api.HandleFunc("/trips/{trip_id}/complete", s.handleCompleteTrip).Methods("POST")
	api.HandleFunc("/admin/drivers", s.handleListDrivers).Methods("GET")
	api.HandleFunc("/admin/drivers/{driver_id}/verified", s.handleSetVerified).Methods("POST")
	api.HandleFunc("/drivers/nearby", s.handleNearbyDrivers).Methods("GET")

	// trusted integration surface: identity sync and the location pipeline
	s.mux.HandleFunc("/internal/driver/locations", s.handleDriverLocation).Methods("POST")
	s.mux.HandleFunc("/internal/actors/drivers", s.handleSyncDriver).Methods("PUT")
	s.mux.HandleFunc("/internal/actors/clients", s.handleSyncClient).Methods("PUT")

	s.mux.HandleFunc("/ws/drivers/{driver_id}", s.handleWS)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

type quoteRequest struct {
	VehicleClass models.VehicleClass `json:"vehicle_class"`
	Pickup       models.Coord        `json:"pickup"`
	Dropoff      models.Coord        `json:"dropoff"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	dist := geo.DistanceKm(req.Pickup, req.Dropoff)
	q, err := s.fares.Quote(req.VehicleClass, dist)
	if err != nil {
		s.writeError(w, err)
		return
	}
	observability.QuotesTotal.Inc()
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleVehicleClasses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.fares.Tariffs())
}

type createTripRequest struct {
	VehicleClass     models.VehicleClass `json:"vehicle_class"`
	Pickup           models.Coord        `json:"pickup"`
	Dropoff          models.Coord        `json:"dropoff"`
	PickupAddress    string              `json:"pickup_address"`
	DropoffAddress   string              `json:"dropoff_address"`
	CargoDescription string              `json:"cargo_description"`
	CargoWeightLabel string              `json:"cargo_weight_label"`
	RecipientName    string              `json:"recipient_name"`
	RecipientPhone   string              `json:"recipient_phone"`
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	claims := s.requireRole(w, r, models.RoleClient)
	if claims == nil {
		return
	}
	var req createTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// the price is recomputed server-side; the client never sends one
	dist := geo.DistanceKm(req.Pickup, req.Dropoff)
	q, err := s.fares.Quote(req.VehicleClass, dist)
	if err != nil {
		s.writeError(w, err)
		return
	}
	t, err := s.trips.Create(r.Context(), trips.CreateRequest{
		ClientID:         claims.ActorID,
		Quote:            q,
		CargoDescription: req.CargoDescription,
		CargoWeightLabel: req.CargoWeightLabel,
		PickupAddress:    req.PickupAddress,
		DropoffAddress:   req.DropoffAddress,
		Pickup:           req.Pickup,
		Dropoff:          req.Dropoff,
		RecipientName:    req.RecipientName,
		RecipientPhone:   req.RecipientPhone,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	status := models.TripStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.TripPending
	}
	list, err := s.trips.ListByStatus(r.Context(), status)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	t, err := s.trips.Get(r.Context(), mux.Vars(r)["trip_id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleAcceptTrip(w http.ResponseWriter, r *http.Request) {
	claims := s.requireRole(w, r, models.RoleDriver)
	if claims == nil {
		return
	}
	t, err := s.trips.Accept(r.Context(), mux.Vars(r)["trip_id"], claims.ActorID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleCompleteTrip(w http.ResponseWriter, r *http.Request) {
	claims := s.requireRole(w, r, models.RoleDriver)
	if claims == nil {
		return
	}
	var req struct {
		Rating int `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	t, err := s.trips.Complete(r.Context(), mux.Vars(r)["trip_id"], claims.ActorID, req.Rating)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleListDrivers(w http.ResponseWriter, r *http.Request) {
	if claims := s.requireRole(w, r, models.RoleAdmin); claims == nil {
		return
	}
	list, err := s.actors.ListDrivers(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleSetVerified(w http.ResponseWriter, r *http.Request) {
	if claims := s.requireRole(w, r, models.RoleAdmin); claims == nil {
		return
	}
	var req struct {
		Verified bool `json:"verified"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	driverID := mux.Vars(r)["driver_id"]
	if err := s.trips.SetDriverVerified(r.Context(), driverID, req.Verified); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"driver_id": driverID, "verified": req.Verified})
}

func (s *Server) handleNearbyDrivers(w http.ResponseWriter, r *http.Request) {
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		http.Error(w, "lat and lon query parameters are required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.geo.Nearby(lat, lon, s.nearbyLimit))
}

func (s *Server) handleDriverLocation(w http.ResponseWriter, r *http.Request) {
	var loc models.DriverLocation
	if err := json.NewDecoder(r.Body).Decode(&loc); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if loc.DriverID == "" {
		http.Error(w, "driver_id is required", http.StatusBadRequest)
		return
	}
	// a ping means the driver is on shift
	loc.Available = true
	if s.locations != nil {
		if err := s.locations.PublishLocation(loc); err != nil {
			s.log.Error("publish location", "driver_id", loc.DriverID, "error", err)
		}
	}
	s.geo.Upsert(loc)
	observability.DriversOnline.Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSyncDriver(w http.ResponseWriter, r *http.Request) {
	var d models.Driver
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if d.ID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	if err := s.actors.PutDriver(r.Context(), d); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSyncClient(w http.ResponseWriter, r *http.Request) {
	var c models.Client
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if c.ID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	if err := s.actors.PutClient(r.Context(), c); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["driver_id"]
	drv, err := s.actors.GetDriver(r.Context(), id)
	if err != nil {
		http.Error(w, "unknown driver", http.StatusNotFound)
		return
	}
	if !drv.Verified {
		http.Error(w, "driver not verified", http.StatusForbidden)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}
	s.board.Add(id, conn)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.board.Remove(id)
				return
			}
		}
	}()
}

func (s *Server) requireRole(w http.ResponseWriter, r *http.Request, role models.Role) *auth.Claims {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return nil
	}
	if claims.Role != role {
		http.Error(w, "forbidden for role "+string(claims.Role), http.StatusForbidden)
		return nil
	}
	return claims
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, trips.ErrValidation),
		errors.Is(err, fare.ErrNegativeDistance),
		errors.Is(err, fare.ErrUnknownClass):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, trips.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, trips.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, trips.ErrIllegalTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.log.Error("request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
