package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"fieldforce/m/domain"
	"fieldforce/m/internal/attendance"
)

// pgUniqueViolation is the SQLSTATE for unique constraint violations.
const pgUniqueViolation = "23505"

// AttendanceStore is the PostgreSQL implementation of attendance.Store.
// The (agent_id, day) unique index backs the one-record-per-day invariant.
type AttendanceStore struct {
	db *sqlx.DB
}

// NewAttendanceStore wraps the shared connection pool.
func NewAttendanceStore(db *sqlx.DB) *AttendanceStore {
	return &AttendanceStore{db: db}
}

const insertAttendanceSQL = `INSERT INTO attendance_records (
	id, agent_id, agent_name, day, check_in_time, check_out_time,
	status, work_type, reason,
	latitude, longitude, address, image_url,
	punch_out_latitude, punch_out_longitude, punch_out_address, punch_out_image_url
) VALUES (
	:id, :agent_id, :agent_name, :day, :check_in_time, :check_out_time,
	:status, :work_type, :reason,
	:latitude, :longitude, :address, :image_url,
	:punch_out_latitude, :punch_out_longitude, :punch_out_address, :punch_out_image_url
)`

const updateAttendanceSQL = `UPDATE attendance_records SET
	agent_name = :agent_name, check_in_time = :check_in_time, check_out_time = :check_out_time,
	status = :status, work_type = :work_type, reason = :reason,
	latitude = :latitude, longitude = :longitude, address = :address, image_url = :image_url,
	punch_out_latitude = :punch_out_latitude, punch_out_longitude = :punch_out_longitude,
	punch_out_address = :punch_out_address, punch_out_image_url = :punch_out_image_url
WHERE id = :id`

// FindForWindow returns the canonical record for the day window, or nil
// when no record exists. The earliest check-in wins when legacy data has
// more than one row in the window.
func (s *AttendanceStore) FindForWindow(ctx context.Context, agentID string, from, to time.Time) (*domain.AttendanceRecord, error) {
	var rec domain.AttendanceRecord
	err := s.db.GetContext(ctx, &rec,
		`SELECT * FROM attendance_records
		 WHERE agent_id = $1 AND check_in_time >= $2 AND check_in_time < $3
		 ORDER BY check_in_time ASC LIMIT 1`, agentID, from, to)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Insert adds a fresh day record. A unique-index collision on
// (agent_id, day) maps to attendance.ErrDuplicateDay so the ledger can
// retry as an update.
func (s *AttendanceStore) Insert(ctx context.Context, rec *domain.AttendanceRecord) error {
	_, err := s.db.NamedExecContext(ctx, insertAttendanceSQL, rec)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return attendance.ErrDuplicateDay
		}
		return fmt.Errorf("insert attendance record: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of an existing record.
func (s *AttendanceStore) Update(ctx context.Context, rec *domain.AttendanceRecord) error {
	if _, err := s.db.NamedExecContext(ctx, updateAttendanceSQL, rec); err != nil {
		return fmt.Errorf("update attendance record: %w", err)
	}
	return nil
}

// ListForAgent returns one agent's records in a half-open time interval.
func (s *AttendanceStore) ListForAgent(ctx context.Context, agentID string, from, to time.Time) ([]domain.AttendanceRecord, error) {
	var records []domain.AttendanceRecord
	err := s.db.SelectContext(ctx, &records,
		`SELECT * FROM attendance_records
		 WHERE agent_id = $1 AND check_in_time >= $2 AND check_in_time < $3
		 ORDER BY check_in_time ASC`, agentID, from, to)
	return records, err
}

// ListForWindow returns every agent's records in a half-open interval.
func (s *AttendanceStore) ListForWindow(ctx context.Context, from, to time.Time) ([]domain.AttendanceRecord, error) {
	var records []domain.AttendanceRecord
	err := s.db.SelectContext(ctx, &records,
		`SELECT * FROM attendance_records
		 WHERE check_in_time >= $1 AND check_in_time < $2
		 ORDER BY check_in_time ASC`, from, to)
	return records, err
}
