package geo

import (
	"testing"

	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/models"
)

func TestDistanceKmZero(t *testing.T) {
	p := models.Coord{Lat: 8.9824, Lon: -79.5199}
	if d := DistanceKm(p, p); d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestDistanceKmSymmetric(t *testing.T) {
	pairs := []struct{ a, b models.Coord }{
		{models.Coord{Lat: 8.9824, Lon: -79.5199}, models.Coord{Lat: 9.0824, Lon: -79.4199}},
		{models.Coord{Lat: 0, Lon: 0}, models.Coord{Lat: -45.5, Lon: 170.2}},
		{models.Coord{Lat: 51.5074, Lon: -0.1278}, models.Coord{Lat: 48.8566, Lon: 2.3522}},
		{models.Coord{Lat: 100, Lon: 200}, models.Coord{Lat: -100, Lon: -200}}, // out of range, still symmetric
	}
	for _, p := range pairs {
		if ab, ba := DistanceKm(p.a, p.b), DistanceKm(p.b, p.a); ab != ba {
			t.Fatalf("distance not symmetric for %v/%v: %f vs %f", p.a, p.b, ab, ba)
		}
	}
}

func TestDistanceKmKnownRoute(t *testing.T) {
	a := models.Coord{Lat: 8.9824, Lon: -79.5199}
	b := models.Coord{Lat: 9.0824, Lon: -79.4199}
	if d := DistanceKm(a, b); d != 15.6 {
		t.Fatalf("expected 15.6 km, got %f", d)
	}
}

func TestDistanceKmOneDecimal(t *testing.T) {
	a := models.Coord{Lat: 0, Lon: 0}
	b := models.Coord{Lat: 0.123456, Lon: 0.654321}
	d := DistanceKm(a, b)
	if d*10 != float64(int64(d*10)) {
		t.Fatalf("expected one-decimal rounding, got %v", d)
	}
}

func TestIndexNearbySkipsUnavailable(t *testing.T) {
	idx := NewIndex()
	idx.Upsert(models.DriverLocation{DriverID: "far", Loc: models.Coord{Lat: 1, Lon: 1}, Available: true})
	idx.Upsert(models.DriverLocation{DriverID: "near", Loc: models.Coord{Lat: 0.01, Lon: 0.01}, Available: true})
	idx.Upsert(models.DriverLocation{DriverID: "offline", Loc: models.Coord{Lat: 0, Lon: 0}, Available: false})

	got := idx.Nearby(0, 0, 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 drivers, got %d", len(got))
	}
	if got[0].DriverID != "near" {
		t.Fatalf("expected nearest first, got %s", got[0].DriverID)
	}
}

func TestIndexNearbyLimit(t *testing.T) {
	idx := NewIndex()
	for i := 0; i < 5; i++ {
		idx.Upsert(models.DriverLocation{
			DriverID:  string(rune('a' + i)),
			Loc:       models.Coord{Lat: float64(i), Lon: 0},
			Available: true,
		})
	}
	if got := idx.Nearby(0, 0, 3); len(got) != 3 {
		t.Fatalf("expected 3 drivers, got %d", len(got))
	}
}
