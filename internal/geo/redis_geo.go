package geo

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/models"
)

// RedisGeo implements Geo on top of Redis GEO commands, shared with the
// location consumer process.
type RedisGeo struct {
	client   *redis.Client
	key      string
	radiusKm float64
	ctx      context.Context
}

func NewRedisGeo(addr, password, key string, radiusKm float64) *RedisGeo {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisGeo{client: c, key: key, radiusKm: radiusKm, ctx: context.Background()}
}

func (r *RedisGeo) Upsert(loc models.DriverLocation) {
	_, _ = r.client.GeoAdd(r.ctx, r.key, &redis.GeoLocation{
		Longitude: loc.Loc.Lon,
		Latitude:  loc.Loc.Lat,
		Name:      loc.DriverID,
	}).Result()
	_ = r.client.HSet(r.ctx, metaKey(loc.DriverID), map[string]interface{}{
		"vehicle_class": string(loc.VehicleClass),
		"available":     strconv.FormatBool(loc.Available),
		"updated":       time.Now().Format(time.RFC3339),
	}).Err()
}

func (r *RedisGeo) Nearby(lat, lon float64, limit int) []models.DriverLocation {
	res, err := r.client.GeoRadius(r.ctx, r.key, lon, lat, &redis.GeoRadiusQuery{
		Radius:    r.radiusKm,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Count:     limit,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil
	}
	out := make([]models.DriverLocation, 0, len(res))
	for _, g := range res {
		loc := models.DriverLocation{DriverID: g.Name}
		loc.Loc.Lat = g.Latitude
		loc.Loc.Lon = g.Longitude
		if m, err := r.client.HGetAll(r.ctx, metaKey(g.Name)).Result(); err == nil {
			loc.VehicleClass = models.VehicleClass(m["vehicle_class"])
			loc.Available = m["available"] == "true"
		}
		if !loc.Available {
			continue
		}
		out = append(out, loc)
	}
	return out
}

func metaKey(id string) string { return "driver:meta:" + id }
