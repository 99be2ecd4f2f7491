package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// VehicleClass is a tier of cargo vehicle. Pricing attributes live in the
// fare package; the class itself is just the discriminant stored on trips
// and driver profiles.
type VehicleClass string

const (
	VehicleMoto       VehicleClass = "MOTO"
	VehicleAuto       VehicleClass = "AUTO"
	VehiclePanel      VehicleClass = "PANEL"
	VehicleTruckSmall VehicleClass = "TRUCK_SMALL"
	VehicleMule       VehicleClass = "MULE"
)

type TripStatus string

const (
	TripPending   TripStatus = "PENDING"
	TripAccepted  TripStatus = "ACCEPTED"
	TripCompleted TripStatus = "COMPLETED"
)

// Trip is a single cargo delivery job. Price and DistanceKm are snapshots
// of the quote the client confirmed and never change after creation.
// AssignedDriverID is empty until the trip is accepted; ClientRating is
// zero until the trip is completed.
type Trip struct {
	ID               string       `json:"id"`
	Status           TripStatus   `json:"status"`
	ClientID         string       `json:"client_id"`
	VehicleClass     VehicleClass `json:"vehicle_class"`
	DistanceKm       float64      `json:"distance_km"`
	Price            int64        `json:"price"`
	CargoDescription string       `json:"cargo_description"`
	CargoWeightLabel string       `json:"cargo_weight_label"`
	PickupAddress    string       `json:"pickup_address"`
	DropoffAddress   string       `json:"dropoff_address"`
	Pickup           Coord        `json:"pickup"`
	Dropoff          Coord        `json:"dropoff"`
	RecipientName    string       `json:"recipient_name"`
	RecipientPhone   string       `json:"recipient_phone"`
	AssignedDriverID string       `json:"assigned_driver_id,omitempty"`
	ClientRating     int          `json:"client_rating,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// DriverLocation is the availability ping drivers publish while online.
// It feeds the geo index the client map reads from; it is not part of the
// trip record itself.
type DriverLocation struct {
	DriverID     string       `json:"driver_id"`
	Loc          Coord        `json:"loc"`
	VehicleClass VehicleClass `json:"vehicle_class"`
	Available    bool         `json:"available"`
	Updated      time.Time    `json:"updated"`
}
