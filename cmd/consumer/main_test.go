package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/models"
)

// fakeRedis counts calls and fails the first failGeo/failHSet attempts.
type fakeRedis struct {
	geoCalls  int
	hsetCalls int
	failGeo   int
	failHSet  int

	lastGeoKey  string
	lastHSetKey string
	lastMeta    map[string]interface{}
}

func (f *fakeRedis) GeoAdd(ctx context.Context, key string, loc *redis.GeoLocation) error {
	f.geoCalls++
	f.lastGeoKey = key
	if f.geoCalls <= f.failGeo {
		return errors.New("geoadd failed")
	}
	return nil
}

func (f *fakeRedis) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	f.hsetCalls++
	f.lastHSetKey = key
	f.lastMeta = values
	if f.hsetCalls <= f.failHSet {
		return errors.New("hset failed")
	}
	return nil
}

func ping(id string) *models.DriverLocation {
	return &models.DriverLocation{
		DriverID:     id,
		Loc:          models.Coord{Lat: 8.9824, Lon: -79.5199},
		VehicleClass: models.VehicleMoto,
		Available:    true,
	}
}

func TestUpdateRedisSuccess(t *testing.T) {
	f := &fakeRedis{}
	if err := updateRedisWithRetry(context.Background(), f, "drivers_geo", ping("d1"), 3, time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.geoCalls != 1 || f.hsetCalls != 1 {
		t.Fatalf("expected one call each, got geo=%d hset=%d", f.geoCalls, f.hsetCalls)
	}
	if f.lastGeoKey != "drivers_geo" {
		t.Fatalf("wrong geo key: %q", f.lastGeoKey)
	}
	if f.lastHSetKey != "driver:meta:d1" {
		t.Fatalf("wrong meta key: %q", f.lastHSetKey)
	}
	if f.lastMeta["vehicle_class"] != "MOTO" || f.lastMeta["available"] != "true" {
		t.Fatalf("unexpected meta: %v", f.lastMeta)
	}
}

func TestUpdateRedisRetriesGeoAdd(t *testing.T) {
	f := &fakeRedis{failGeo: 2}
	if err := updateRedisWithRetry(context.Background(), f, "drivers_geo", ping("d1"), 3, time.Millisecond); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if f.geoCalls != 3 {
		t.Fatalf("expected 3 geoadd attempts, got %d", f.geoCalls)
	}
}

func TestUpdateRedisRetriesHSet(t *testing.T) {
	f := &fakeRedis{failHSet: 1}
	if err := updateRedisWithRetry(context.Background(), f, "drivers_geo", ping("d1"), 3, time.Millisecond); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if f.hsetCalls != 2 {
		t.Fatalf("expected 2 hset attempts, got %d", f.hsetCalls)
	}
}

func TestUpdateRedisExhaustsAttempts(t *testing.T) {
	f := &fakeRedis{failGeo: 10}
	if err := updateRedisWithRetry(context.Background(), f, "drivers_geo", ping("d1"), 3, time.Millisecond); err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if f.geoCalls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", f.geoCalls)
	}
}
