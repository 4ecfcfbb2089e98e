package banner

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"attendboard/internal/store"
)

const windowConstraint = "banner_window_ordered"

var (
	// ErrNotFound is returned by Update when the row no longer exists.
	ErrNotFound = errors.New("banner: not found")
	// ErrWindowOrder is returned when the stored window would be empty.
	ErrWindowOrder = errors.New("banner: start_date must precede end_date")
)

// Repository persists banners.
type Repository interface {
	Insert(ctx context.Context, b Banner) (Banner, error)
	// Get returns nil when id does not exist.
	Get(ctx context.Context, id int64) (*Banner, error)
	Update(ctx context.Context, b Banner) (Banner, error)
	// SetImage writes only image_url and updated_at, leaving every other
	// column as the latest writer left it.
	SetImage(ctx context.Context, id int64, ref string, at time.Time) (Banner, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, id int64) (bool, error)
	// List returns banners newest created first.
	List(ctx context.Context, limit int) ([]Banner, error)
	// Live returns active banners that have not ended at now, in any order.
	Live(ctx context.Context, now time.Time) ([]Banner, error)
}

// PostgresRepository implements Repository on the banner table.
type PostgresRepository struct {
	db store.DBTX
}

// NewRepository creates a repo.
func NewRepository(db store.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const bannerColumns = `id, title, content, image_url, start_date, end_date, is_active, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanBanner(row scanner) (Banner, error) {
	var (
		b        Banner
		title    sql.NullString
		imageURL sql.NullString
	)
	if err := row.Scan(&b.ID, &title, &b.Content, &imageURL, &b.StartDate, &b.EndDate, &b.IsActive, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return Banner{}, err
	}
	if title.Valid {
		b.Title = &title.String
	}
	if imageURL.Valid {
		b.ImageURL = &imageURL.String
	}
	b.StartDate = b.StartDate.UTC()
	b.EndDate = b.EndDate.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return b, nil
}

func mapWriteErr(err error) error {
	if store.IsCheckViolation(err, windowConstraint) {
		return ErrWindowOrder
	}
	return err
}

func (r *PostgresRepository) Insert(ctx context.Context, b Banner) (Banner, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO banner (title, content, image_url, start_date, end_date, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+bannerColumns,
		b.Title, b.Content, b.ImageURL, b.StartDate, b.EndDate, b.IsActive, b.CreatedAt, b.UpdatedAt)
	out, err := scanBanner(row)
	if err != nil {
		return Banner{}, mapWriteErr(err)
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*Banner, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bannerColumns+` FROM banner WHERE id = $1`, id)
	b, err := scanBanner(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// Update writes every mutable column of b back to its row.
func (r *PostgresRepository) Update(ctx context.Context, b Banner) (Banner, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE banner
		SET title = $2, content = $3, image_url = $4, start_date = $5, end_date = $6,
		    is_active = $7, updated_at = $8
		WHERE id = $1
		RETURNING `+bannerColumns,
		b.ID, b.Title, b.Content, b.ImageURL, b.StartDate, b.EndDate, b.IsActive, b.UpdatedAt)
	out, err := scanBanner(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Banner{}, ErrNotFound
		}
		return Banner{}, mapWriteErr(err)
	}
	return out, nil
}

func (r *PostgresRepository) SetImage(ctx context.Context, id int64, ref string, at time.Time) (Banner, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE banner
		SET image_url = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+bannerColumns,
		id, ref, at)
	out, err := scanBanner(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Banner{}, ErrNotFound
		}
		return Banner{}, err
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM banner WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepository) List(ctx context.Context, limit int) ([]Banner, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return r.query(ctx, `
		SELECT `+bannerColumns+`
		FROM banner
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, limit)
}

func (r *PostgresRepository) Live(ctx context.Context, now time.Time) ([]Banner, error) {
	return r.query(ctx, `
		SELECT `+bannerColumns+`
		FROM banner
		WHERE is_active AND end_date > $1
		ORDER BY end_date ASC, created_at DESC, id DESC`, now)
}

func (r *PostgresRepository) query(ctx context.Context, q string, args ...any) ([]Banner, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []Banner{}
	for rows.Next() {
		b, err := scanBanner(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	return res, rows.Err()
}
