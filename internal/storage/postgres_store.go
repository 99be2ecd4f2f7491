package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/mdiazsalas7-ship-it/rapid-cargo-app/internal/models"
)

// PostgresStore implements TripStore and ActorStore on database/sql.
// The status transition is a single conditional UPDATE so the at-most-one-
// winner guarantee holds without explicit locking.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

const tripColumns = `id, status, client_id, vehicle_class, distance_km, price,
	cargo_description, cargo_weight_label, pickup_address, dropoff_address,
	pickup_lat, pickup_lon, dropoff_lat, dropoff_lon,
	recipient_name, recipient_phone, assigned_driver_id, client_rating,
	created_at, updated_at`

func (p *PostgresStore) CreateTrip(ctx context.Context, t *models.Trip) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO trips(`+tripColumns+`)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,NULLIF($17,''),NULLIF($18,0),$19,$20)`,
		t.ID, t.Status, t.ClientID, t.VehicleClass, t.DistanceKm, t.Price,
		t.CargoDescription, t.CargoWeightLabel, t.PickupAddress, t.DropoffAddress,
		t.Pickup.Lat, t.Pickup.Lon, t.Dropoff.Lat, t.Dropoff.Lon,
		t.RecipientName, t.RecipientPhone, t.AssignedDriverID, t.ClientRating,
		t.CreatedAt, t.UpdatedAt)
	return err
}

func (p *PostgresStore) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id=$1`, id)
	t, err := scanTrip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTripNotFound
	}
	return t, err
}

func (p *PostgresStore) ListTripsByStatus(ctx context.Context, status models.TripStatus) ([]*models.Trip, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE status=$1 ORDER BY created_at DESC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *PostgresStore) UpdateTripIfStatus(ctx context.Context, id string, expected, next models.TripStatus, patch TripPatch) (*models.Trip, error) {
	row := p.db.QueryRowContext(ctx, `UPDATE trips SET
			status=$3,
			assigned_driver_id=COALESCE(NULLIF($4,''), assigned_driver_id),
			client_rating=CASE WHEN $5 > 0 THEN $5 ELSE client_rating END,
			updated_at=now()
		WHERE id=$1 AND status=$2
		RETURNING `+tripColumns,
		id, expected, next, patch.AssignedDriverID, patch.ClientRating)
	t, err := scanTrip(row)
	if errors.Is(err, sql.ErrNoRows) {
		// lost the race or no such trip; tell the caller which
		var one int
		if qerr := p.db.QueryRowContext(ctx, `SELECT 1 FROM trips WHERE id=$1`, id).Scan(&one); qerr != nil {
			if errors.Is(qerr, sql.ErrNoRows) {
				return nil, ErrTripNotFound
			}
			return nil, qerr
		}
		return nil, ErrStatusConflict
	}
	return t, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (*models.Trip, error) {
	var t models.Trip
	var driverID sql.NullString
	var rating sql.NullInt64
	err := row.Scan(&t.ID, &t.Status, &t.ClientID, &t.VehicleClass, &t.DistanceKm, &t.Price,
		&t.CargoDescription, &t.CargoWeightLabel, &t.PickupAddress, &t.DropoffAddress,
		&t.Pickup.Lat, &t.Pickup.Lon, &t.Dropoff.Lat, &t.Dropoff.Lon,
		&t.RecipientName, &t.RecipientPhone, &driverID, &rating,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.AssignedDriverID = driverID.String
	t.ClientRating = int(rating.Int64)
	return &t, nil
}

func (p *PostgresStore) PutDriver(ctx context.Context, d models.Driver) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO drivers(
			id, name, phone, vehicle_class, plate, license_number,
			license_url, registration_url, id_photo_url, verified, completed_trips, created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET
			name=EXCLUDED.name, phone=EXCLUDED.phone, vehicle_class=EXCLUDED.vehicle_class,
			plate=EXCLUDED.plate, license_number=EXCLUDED.license_number,
			license_url=EXCLUDED.license_url, registration_url=EXCLUDED.registration_url,
			id_photo_url=EXCLUDED.id_photo_url`,
		d.ID, d.Name, d.Phone, d.VehicleClass, d.Plate, d.LicenseNumber,
		d.Documents.LicenseURL, d.Documents.RegistrationURL, d.Documents.IDPhotoURL,
		d.Verified, d.CompletedTrips, d.CreatedAt)
	return err
}

func (p *PostgresStore) GetDriver(ctx context.Context, id string) (*models.Driver, error) {
	row := p.db.QueryRowContext(ctx, `SELECT id, name, phone, vehicle_class, plate,
			license_number, license_url, registration_url, id_photo_url,
			verified, completed_trips, created_at
		FROM drivers WHERE id=$1`, id)
	d, err := scanDriver(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDriverNotFound
	}
	return d, err
}

func (p *PostgresStore) ListDrivers(ctx context.Context) ([]*models.Driver, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, name, phone, vehicle_class, plate,
			license_number, license_url, registration_url, id_photo_url,
			verified, completed_trips, created_at
		FROM drivers ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDriver(row rowScanner) (*models.Driver, error) {
	var d models.Driver
	err := row.Scan(&d.ID, &d.Name, &d.Phone, &d.VehicleClass, &d.Plate,
		&d.LicenseNumber, &d.Documents.LicenseURL, &d.Documents.RegistrationURL,
		&d.Documents.IDPhotoURL, &d.Verified, &d.CompletedTrips, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (p *PostgresStore) SetDriverVerified(ctx context.Context, id string, verified bool) error {
	res, err := p.db.ExecContext(ctx, `UPDATE drivers SET verified=$2 WHERE id=$1`, id, verified)
	if err != nil {
		return err
	}
	return checkDriverAffected(res)
}

func (p *PostgresStore) IncrementCompletedTrips(ctx context.Context, id string) error {
	// single atomic increment, no read-modify-write
	res, err := p.db.ExecContext(ctx,
		`UPDATE drivers SET completed_trips=completed_trips+1 WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return checkDriverAffected(res)
}

func checkDriverAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrDriverNotFound
	}
	return nil
}

func (p *PostgresStore) PutClient(ctx context.Context, c models.Client) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO clients(id, name, phone, address, company, tax_id, created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			name=EXCLUDED.name, phone=EXCLUDED.phone, address=EXCLUDED.address,
			company=EXCLUDED.company, tax_id=EXCLUDED.tax_id`,
		c.ID, c.Name, c.Phone, c.Address, c.Company, c.TaxID, c.CreatedAt)
	return err
}

func (p *PostgresStore) GetClient(ctx context.Context, id string) (*models.Client, error) {
	var c models.Client
	err := p.db.QueryRowContext(ctx,
		`SELECT id, name, phone, address, company, tax_id, created_at FROM clients WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.Company, &c.TaxID, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
