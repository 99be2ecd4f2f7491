package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/auth"
	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/config"
	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/dispatch"
	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/fare"
	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/geo"
	httpapi "github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/http"
	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/ingest"
	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/logging"
	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/storage"
	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/trips"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logging.NewLogger("dispatch-api", cfg.LogLevel)

	if cfg.PGDSN != "" && cfg.RunMigrations {
		if err := applyMigrations(cfg.PGDSN); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")
	}

	var tripStore storage.TripStore
	var actorStore storage.ActorStore
	if cfg.PGDSN != "" {
		pg, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			log.Error("postgres connect failed", "error", err)
			os.Exit(1)
		}
		tripStore, actorStore = pg, pg
		log.Info("using postgres store")
	} else {
		tripStore = storage.NewMemoryStore()
		actorStore = storage.NewMemoryActorStore()
		log.Info("using in-memory stores")
	}

	var geoIndex geo.Geo
	if cfg.RedisAddr != "" {
		geoIndex = geo.NewRedisGeo(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey, cfg.NearbyRadiusKm)
		log.Info("using redis geo index", "addr", cfg.RedisAddr)
	} else {
		geoIndex = geo.NewIndex()
	}

	board := dispatch.NewBoard()
	sinks := []trips.EventSink{board}

	var locations *ingest.LocationProducer
	if len(cfg.KafkaBrokers) > 0 {
		locations = ingest.NewLocationProducer(cfg.KafkaBrokers, cfg.LocationsTopic)
		events := ingest.NewEventProducer(cfg.KafkaBrokers, cfg.EventsTopic)
		defer events.Close()
		defer locations.Close()
		sinks = append(sinks, events)
	}
	if cfg.WebhookEndpoint != "" {
		sinks = append(sinks, dispatch.NewWebhook(cfg.WebhookEndpoint, cfg.WebhookToken))
	}

	tripService := trips.NewService(tripStore, actorStore, log, sinks...)
	authManager := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	srv := httpapi.NewServer(httpapi.Deps{
		Log:         log,
		Fares:       fare.NewEngine(),
		Geo:         geoIndex,
		Trips:       tripService,
		Actors:      actorStore,
		Locations:   locations,
		Board:       board,
		Auth:        authManager,
		NearbyLimit: cfg.NearbyLimit,
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("dispatch api listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
}

func applyMigrations(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	b, err := os.ReadFile(filepath.Join("migrations", "001_create_trips.sql"))
	if err != nil {
		return err
	}
	_, err = db.Exec(string(b))
	return err
}
