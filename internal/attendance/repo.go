package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"attendboard/internal/store"
)

const openSessionIndex = "attendance_one_open_session"

var (
	// ErrOpenSessionExists is returned by Insert when the user already has
	// an open session.
	ErrOpenSessionExists = errors.New("attendance: open session exists")
	// ErrSessionClosed is returned by Close when the session was closed
	// concurrently.
	ErrSessionClosed = errors.New("attendance: session already closed")
)

// Repository persists attendance records.
type Repository interface {
	// LatestOpen returns the open session with the latest clock-in time,
	// or nil when the user has none.
	LatestOpen(ctx context.Context, userID string) (*Record, error)
	Insert(ctx context.Context, rec Record) (Record, error)
	Close(ctx context.Context, id int64, at time.Time) (Record, error)
	// History filters by userID when it is non-nil.
	History(ctx context.Context, userID *string, limit int) ([]Record, error)
}

// PostgresRepository implements Repository on the attendance table.
type PostgresRepository struct {
	db store.DBTX
}

// NewRepository creates a repo.
func NewRepository(db store.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const recordColumns = `id, user_id, clock_in_time, clock_out_time, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec      Record
		clockOut sql.NullTime
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.ClockInTime, &clockOut, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	rec.ClockInTime = rec.ClockInTime.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	if clockOut.Valid {
		t := clockOut.Time.UTC()
		rec.ClockOutTime = &t
	}
	return rec, nil
}

func (r *PostgresRepository) LatestOpen(ctx context.Context, userID string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance
		WHERE user_id = $1 AND clock_out_time IS NULL
		ORDER BY clock_in_time DESC, id DESC
		LIMIT 1
	`, userID)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, rec Record) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance (user_id, clock_in_time, clock_out_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+recordColumns,
		rec.UserID, rec.ClockInTime, rec.ClockOutTime, rec.CreatedAt, rec.UpdatedAt)
	out, err := scanRecord(row)
	if err != nil {
		if store.IsUniqueViolation(err, openSessionIndex) {
			return Record{}, ErrOpenSessionExists
		}
		return Record{}, err
	}
	return out, nil
}

// Close sets clock_out_time only while the session is still open.
func (r *PostgresRepository) Close(ctx context.Context, id int64, at time.Time) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE attendance
		SET clock_out_time = $2, updated_at = $2
		WHERE id = $1 AND clock_out_time IS NULL
		RETURNING `+recordColumns,
		id, at)
	out, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrSessionClosed
		}
		return Record{}, err
	}
	return out, nil
}

func (r *PostgresRepository) History(ctx context.Context, userID *string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	query := `SELECT ` + recordColumns + ` FROM attendance`
	args := []any{}
	if userID != nil {
		query += ` WHERE user_id = $1`
		args = append(args, *userID)
	}
	query += fmt.Sprintf(` ORDER BY clock_in_time DESC, id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
