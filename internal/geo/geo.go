package geo

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/models"
)

// Geo is the minimal interface required by the handlers for driver
// availability display.
type Geo interface {
	Nearby(lat, lon float64, limit int) []models.DriverLocation
	Upsert(loc models.DriverLocation)
}

// DistanceKm returns the great-circle distance between a and b in
// kilometers, rounded to one decimal place. Symmetric and deterministic;
// out-of-range coordinates are not rejected, the formula simply yields
// whatever the math gives.
func DistanceKm(a, b models.Coord) float64 {
	const earthRadiusKm = 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return math.Round(earthRadiusKm*c*10) / 10
}

// Index is an in-memory availability index, used when Redis is not
// configured.
type Index struct {
	mu      sync.RWMutex
	drivers map[string]models.DriverLocation
}

func NewIndex() *Index {
	return &Index{drivers: make(map[string]models.DriverLocation)}
}

func (g *Index) Upsert(loc models.DriverLocation) {
	g.mu.Lock()
	defer g.mu.Unlock()
	loc.Updated = time.Now()
	g.drivers[loc.DriverID] = loc
}

// naive scan; fine for the fleet sizes this serves
func (g *Index) Nearby(lat, lon float64, limit int) []models.DriverLocation {
	g.mu.RLock()
	defer g.mu.RUnlock()
	type pair struct {
		loc  models.DriverLocation
		dist float64
	}
	arr := make([]pair, 0, len(g.drivers))
	origin := models.Coord{Lat: lat, Lon: lon}
	for _, loc := range g.drivers {
		if !loc.Available {
			continue
		}
		arr = append(arr, pair{loc, DistanceKm(origin, loc.Loc)})
	}
	sort.Slice(arr, func(i, j int) bool { return arr[i].dist < arr[j].dist })
	if limit > len(arr) {
		limit = len(arr)
	}
	out := make([]models.DriverLocation, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, arr[i].loc)
	}
	return out
}
