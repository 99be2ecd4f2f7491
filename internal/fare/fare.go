// Package fare maps a vehicle class and a distance to a price quote.
// Prices are whole currency units, floored, so the client always sees a
// round number and the snapshot stored on the trip never drifts.
package fare

import (
	"errors"
	"fmt"
	"math"

	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/models"
)

var (
	// ErrNegativeDistance rejects quotes for distances below zero.
	// Zero is valid and yields the floored base fare.
	ErrNegativeDistance = errors.New("distance must not be negative")

	// ErrUnknownClass means the requested class is not in the tariff table.
	ErrUnknownClass = errors.New("unknown vehicle class")
)

// Tariff is one row of the pricing table: fixed attributes of a vehicle
// class, never mutated at runtime.
type Tariff struct {
	Class         models.VehicleClass `json:"class"`
	DisplayName   string              `json:"display_name"`
	BaseFare      float64             `json:"base_fare"`
	PerKmRate     float64             `json:"per_km_rate"`
	CapacityLabel string              `json:"capacity_label"`
}

// Quote is derived from a tariff and a distance; it is recomputed on
// demand and only persisted as a snapshot inside a created trip.
type Quote struct {
	Class      models.VehicleClass `json:"vehicle_class"`
	DistanceKm float64             `json:"distance_km"`
	Price      int64               `json:"price"`
}

func defaultTariffs() []Tariff {
	return []Tariff{
		{Class: models.VehicleMoto, DisplayName: "Moto Express", BaseFare: 4.50, PerKmRate: 0.60, CapacityLabel: "small parcel"},
		{Class: models.VehicleAuto, DisplayName: "Sedan", BaseFare: 6.00, PerKmRate: 0.80, CapacityLabel: "boxes"},
		{Class: models.VehiclePanel, DisplayName: "Panel Van", BaseFare: 25, PerKmRate: 1.5, CapacityLabel: "800kg"},
		{Class: models.VehicleTruckSmall, DisplayName: "NPR Truck", BaseFare: 60, PerKmRate: 2.5, CapacityLabel: "4.5T"},
		{Class: models.VehicleMule, DisplayName: "Semi / Container", BaseFare: 150, PerKmRate: 4.5, CapacityLabel: "20T"},
	}
}

// Engine prices quotes against a fixed tariff table. The table can only
// be replaced wholesale by constructing a new Engine.
type Engine struct {
	tariffs map[models.VehicleClass]Tariff
	order   []models.VehicleClass
}

// NewEngine returns an engine with the standard tariff table.
func NewEngine() *Engine {
	return NewEngineWithTable(defaultTariffs())
}

// NewEngineWithTable builds an engine from a replacement table.
func NewEngineWithTable(tariffs []Tariff) *Engine {
	e := &Engine{tariffs: make(map[models.VehicleClass]Tariff, len(tariffs))}
	for _, t := range tariffs {
		if _, dup := e.tariffs[t.Class]; !dup {
			e.order = append(e.order, t.Class)
		}
		e.tariffs[t.Class] = t
	}
	return e
}

// Quote computes price = floor(base + distance*rate) for the class.
func (e *Engine) Quote(class models.VehicleClass, distanceKm float64) (Quote, error) {
	if distanceKm < 0 {
		return Quote{}, fmt.Errorf("%w: %.1f", ErrNegativeDistance, distanceKm)
	}
	t, ok := e.tariffs[class]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}
	price := int64(math.Floor(t.BaseFare + distanceKm*t.PerKmRate))
	return Quote{Class: class, DistanceKm: distanceKm, Price: price}, nil
}

// Tariffs returns the table rows in their declared order, for display.
func (e *Engine) Tariffs() []Tariff {
	out := make([]Tariff, 0, len(e.order))
	for _, c := range e.order {
		out = append(out, e.tariffs[c])
	}
	return out
}
