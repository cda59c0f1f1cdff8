package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openshop/appointment-intake/internal/model"
)

// PostgresStore keeps appointments in a single table with a secondary index
// on location_time_key.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

func OpenPostgres(ctx context.Context, databaseURL, table string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool, table: table}, nil
}

// EnsureSchema creates the appointments table and the slot index if they do
// not exist yet. The table name comes from configuration and is interpolated,
// so it must never be caller-controlled.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+s.table+` (
			id                TEXT PRIMARY KEY,
			full_name         TEXT NOT NULL,
			location          TEXT NOT NULL,
			car               TEXT NOT NULL,
			appointment_time  TEXT NOT NULL,
			services          TEXT[] NOT NULL,
			location_time_key TEXT NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL,
			updated_at        TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS `+s.table+`_location_time_key_idx
		ON `+s.table+` (location_time_key)
	`)
	return err
}

func (s *PostgresStore) QueryByLocationTimeKey(ctx context.Context, key string) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, full_name, location, car, appointment_time, services,
			location_time_key, created_at, updated_at
		FROM `+s.table+`
		WHERE location_time_key = $1
	`, key)
	if err != nil {
		return nil, queryError(s.table, key, pgCode(err), err)
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		var appt model.Appointment
		if err := rows.Scan(
			&appt.ID,
			&appt.FullName,
			&appt.Location,
			&appt.Car,
			&appt.AppointmentTime,
			&appt.Services,
			&appt.LocationTimeKey,
			&appt.CreatedAt,
			&appt.UpdatedAt,
		); err != nil {
			return nil, queryError(s.table, key, pgCode(err), err)
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, queryError(s.table, key, pgCode(rows.Err()), rows.Err())
	}
	return appts, nil
}

func (s *PostgresStore) PutIfIDAbsent(ctx context.Context, appt model.Appointment) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO `+s.table+`
			(id, full_name, location, car, appointment_time, services,
			location_time_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`, appt.ID, appt.FullName, appt.Location, appt.Car, appt.AppointmentTime,
		appt.Services, appt.LocationTimeKey, appt.CreatedAt, appt.UpdatedAt)
	if err != nil {
		return putError(s.table, appt.ID, pgCode(err), err)
	}
	if tag.RowsAffected() == 0 {
		return putError(s.table, appt.ID, "precondition_failed", ErrIDExists)
	}
	return nil
}

func (s *PostgresStore) Ready(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return errors.New("postgres store not configured")
	}
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return "unavailable"
}
