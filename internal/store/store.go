// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store provides the Postgres-backed booking, crew and cleaning-task
// tables used by the sync engine and crew assignment.
//
// Stay dates are stored as UTC TIMESTAMP (without time zone) so the unique
// index on (property_id, check_in::date, check_out::date) stays immutable.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bcem/staysync/internal/models"
)

// ErrConflict is returned when a write violates a unique constraint, either
// on reservation_id or on the (property, stay dates) identity index.
var ErrConflict = errors.New("store: unique constraint violation")

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Store provides persistence for bookings, crews and cleaning tasks.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against url with the slow-query tracer installed.
func Connect(ctx context.Context, url string, slowThreshold time.Duration) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnIdleTime = time.Minute
	poolCfg.ConnConfig.Tracer = NewSlowQueryTracer(slowThreshold)

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// New creates a store backed by pool. It ensures the tables exist on creation.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure booking schema: %w", err)
	}
	slog.Info("booking store initialised")
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bookings (
			id               BIGSERIAL PRIMARY KEY,
			reservation_id   TEXT NOT NULL UNIQUE,
			platform         TEXT NOT NULL,
			status           TEXT NOT NULL DEFAULT 'other',
			guest_name       TEXT NOT NULL,
			guest_phone      TEXT,
			guest_email      TEXT,
			check_in_date    TIMESTAMP,
			check_out_date   TIMESTAMP,
			property_id      TEXT,
			property_name    TEXT,
			number_of_guests INTEGER,
			total_amount     NUMERIC(12,2),
			currency         TEXT,
			booking_date     TIMESTAMP,
			email_id         TEXT,
			raw_data         JSONB NOT NULL DEFAULT '{}',
			created_at       TIMESTAMP NOT NULL,
			updated_at       TIMESTAMP NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_stay
			ON bookings (property_id, (check_in_date::date), (check_out_date::date))
			WHERE property_id IS NOT NULL AND check_in_date IS NOT NULL AND check_out_date IS NOT NULL;
		CREATE INDEX IF NOT EXISTS idx_bookings_platform ON bookings(platform);
		CREATE INDEX IF NOT EXISTS idx_bookings_check_in ON bookings(check_in_date);

		CREATE TABLE IF NOT EXISTS cleaning_crews (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			email       TEXT DEFAULT '',
			phone       TEXT DEFAULT '',
			active      BOOLEAN NOT NULL DEFAULT TRUE,
			property_id TEXT DEFAULT '',
			category    TEXT DEFAULT '',
			created_at  TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_crews_property ON cleaning_crews(property_id) WHERE active;

		CREATE TABLE IF NOT EXISTS cleaning_tasks (
			id             BIGSERIAL PRIMARY KEY,
			reservation_id TEXT NOT NULL UNIQUE,
			property_id    TEXT NOT NULL,
			scheduled_date DATE NOT NULL,
			crew_id        TEXT,
			status         TEXT NOT NULL DEFAULT 'pending',
			created_at     TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_crew_status ON cleaning_tasks(crew_id, status);
	`)
	return err
}

const bookingColumns = `
	id, reservation_id, platform, status, guest_name, guest_phone, guest_email,
	check_in_date, check_out_date, property_id, property_name, number_of_guests,
	total_amount, currency, booking_date, email_id, raw_data, created_at, updated_at`

// FindByStay returns the booking for a property whose check-in and check-out
// calendar dates equal the given ones, or nil when there is none.
func (s *Store) FindByStay(ctx context.Context, propertyID string, checkIn, checkOut time.Time) (*models.StoredBooking, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT`+bookingColumns+`
		FROM bookings
		WHERE property_id = $1
		  AND check_in_date::date = $2::text::date
		  AND check_out_date::date = $3::text::date
		LIMIT 1
	`, propertyID, models.FormatDate(checkIn.UTC()), models.FormatDate(checkOut.UTC()))
	return scanBooking(row)
}

// FindByReservationID returns the booking with the given reservation id, or nil.
func (s *Store) FindByReservationID(ctx context.Context, reservationID string) (*models.StoredBooking, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT`+bookingColumns+`
		FROM bookings
		WHERE reservation_id = $1
	`, reservationID)
	return scanBooking(row)
}

// Insert writes a new booking row. A unique violation returns ErrConflict.
func (s *Store) Insert(ctx context.Context, r models.BookingRow) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO bookings
			(reservation_id, platform, status, guest_name, guest_phone, guest_email,
			 check_in_date, check_out_date, property_id, property_name, number_of_guests,
			 total_amount, currency, booking_date, email_id, raw_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6,
		        $7::text::timestamp, $8::text::timestamp, $9, $10, $11,
		        $12, $13, $14::text::timestamp, $15, $16, $17::text::timestamp, $18::text::timestamp)
		RETURNING id
	`, bookingArgs(r)...).Scan(&id)
	if err != nil {
		return 0, mapError(err)
	}
	return id, nil
}

// Upsert writes a booking keyed on reservation_id. On conflict the row is
// refreshed: created_at is kept, updated_at is replaced, and optional
// columns the new row leaves empty keep their stored value. It reports
// whether a new row was created.
func (s *Store) Upsert(ctx context.Context, r models.BookingRow) (bool, error) {
	var inserted bool
	err := s.pool.QueryRow(ctx, `
		INSERT INTO bookings
			(reservation_id, platform, status, guest_name, guest_phone, guest_email,
			 check_in_date, check_out_date, property_id, property_name, number_of_guests,
			 total_amount, currency, booking_date, email_id, raw_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6,
		        $7::text::timestamp, $8::text::timestamp, $9, $10, $11,
		        $12, $13, $14::text::timestamp, $15, $16, $17::text::timestamp, $18::text::timestamp)
		ON CONFLICT (reservation_id) DO UPDATE SET
			platform         = EXCLUDED.platform,
			status           = EXCLUDED.status,
			guest_name       = CASE WHEN EXCLUDED.guest_name = '`+models.DefaultGuestName+`'
			                        THEN bookings.guest_name ELSE EXCLUDED.guest_name END,
			guest_phone      = COALESCE(EXCLUDED.guest_phone, bookings.guest_phone),
			guest_email      = COALESCE(EXCLUDED.guest_email, bookings.guest_email),
			check_in_date    = COALESCE(EXCLUDED.check_in_date, bookings.check_in_date),
			check_out_date   = COALESCE(EXCLUDED.check_out_date, bookings.check_out_date),
			property_id      = COALESCE(EXCLUDED.property_id, bookings.property_id),
			property_name    = COALESCE(EXCLUDED.property_name, bookings.property_name),
			number_of_guests = COALESCE(EXCLUDED.number_of_guests, bookings.number_of_guests),
			total_amount     = COALESCE(EXCLUDED.total_amount, bookings.total_amount),
			currency         = COALESCE(EXCLUDED.currency, bookings.currency),
			booking_date     = COALESCE(EXCLUDED.booking_date, bookings.booking_date),
			email_id         = COALESCE(EXCLUDED.email_id, bookings.email_id),
			raw_data         = EXCLUDED.raw_data,
			updated_at       = EXCLUDED.updated_at
		RETURNING (xmax = 0)
	`, bookingArgs(r)...).Scan(&inserted)
	if err != nil {
		return false, mapError(err)
	}
	return inserted, nil
}

func bookingArgs(r models.BookingRow) []any {
	raw := r.RawData
	if len(raw) == 0 || string(raw) == "null" {
		raw = []byte("{}")
	}
	return []any{
		r.ReservationID, r.Platform, r.Status, r.GuestName, r.GuestPhone, r.GuestEmail,
		r.CheckInDate, r.CheckOutDate, r.PropertyID, r.PropertyName, r.NumberOfGuests,
		r.TotalAmount, r.Currency, r.BookingDate, r.EmailID, raw, r.CreatedAt, r.UpdatedAt,
	}
}

// ListByPlatform returns bookings for a platform, newest first. limit <= 0
// means no limit.
func (s *Store) ListByPlatform(ctx context.Context, platform models.Platform, limit int) ([]models.StoredBooking, error) {
	query := `SELECT` + bookingColumns + `
		FROM bookings
		WHERE platform = $1
		ORDER BY created_at DESC, id DESC`
	args := []any{string(platform)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

// ListByCheckIn returns bookings whose check-in falls in [from, to), ordered
// by check-in.
func (s *Store) ListByCheckIn(ctx context.Context, from, to time.Time) ([]models.StoredBooking, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT`+bookingColumns+`
		FROM bookings
		WHERE check_in_date >= $1::text::timestamp AND check_in_date < $2::text::timestamp
		ORDER BY check_in_date, id
	`, models.FormatTimestamp(from), models.FormatTimestamp(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

// Delete removes a booking by reservation id and reports whether it existed.
func (s *Store) Delete(ctx context.Context, reservationID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM bookings WHERE reservation_id = $1
	`, reservationID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Stats summarises the bookings table.
type Stats struct {
	Total      int
	ByPlatform map[string]int
	ByStatus   map[string]int
}

// Stats returns booking counts overall, per platform and per status.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT platform, status, COUNT(*) FROM bookings GROUP BY platform, status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	st := &Stats{ByPlatform: make(map[string]int), ByStatus: make(map[string]int)}
	for rows.Next() {
		var platform, status string
		var n int
		if err := rows.Scan(&platform, &status, &n); err != nil {
			return nil, err
		}
		st.Total += n
		st.ByPlatform[platform] += n
		st.ByStatus[status] += n
	}
	return st, rows.Err()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// mapError converts unique violations to ErrConflict.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}

// scanBooking scans a single row into a StoredBooking.
func scanBooking(row pgx.Row) (*models.StoredBooking, error) {
	b, err := scanBookingFields(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// collectBookings scans multiple rows into a slice of StoredBookings.
func collectBookings(rows pgx.Rows) ([]models.StoredBooking, error) {
	var bookings []models.StoredBooking
	for rows.Next() {
		b, err := scanBookingFields(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func scanBookingFields(row pgx.Row) (*models.StoredBooking, error) {
	var (
		b                                    models.StoredBooking
		platform, status                     string
		phone, email, propID, propName, curr *string
		bookingDate                          *time.Time
		emailID                              *string
		raw                                  []byte
	)
	err := row.Scan(
		&b.ID, &b.ReservationID, &platform, &status, &b.GuestName, &phone, &email,
		&b.CheckIn, &b.CheckOut, &propID, &propName, &b.NumberOfGuests,
		&b.TotalAmount, &curr, &bookingDate, &emailID, &raw, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Platform = models.Platform(platform)
	b.Status = models.BookingStatus(status)
	b.GuestPhone = deref(phone)
	b.GuestEmail = deref(email)
	b.PropertyID = deref(propID)
	b.PropertyName = deref(propName)
	b.Currency = deref(curr)
	b.EmailID = deref(emailID)
	if bookingDate != nil {
		b.BookingDate = *bookingDate
	}
	b.RawData = models.NewRawData()
	if len(raw) > 0 {
		if err := b.RawData.UnmarshalJSON(raw); err != nil {
			return nil, fmt.Errorf("decode raw_data for %s: %w", b.ReservationID, err)
		}
	}
	return &b, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
