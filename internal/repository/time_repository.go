package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/escape-room-reservation/internal/model"
)

// TimeRepo provides access to the reservation_time table.  start_at is
// stored as HH:MM text.
type TimeRepo struct {
	q Querier
}

// NewTimeRepo returns a new TimeRepo bound to the given querier.
func NewTimeRepo(q Querier) *TimeRepo { return &TimeRepo{q: q} }

func scanTime(row rowScanner) (model.ReservationTime, error) {
	var (
		t       model.ReservationTime
		startAt string
	)
	if err := row.Scan(&t.ID, &startAt); err != nil {
		return model.ReservationTime{}, err
	}
	clock, err := model.ParseClock(startAt)
	if err != nil {
		return model.ReservationTime{}, fmt.Errorf("reservation time %d: %w", t.ID, err)
	}
	t.StartAt = clock
	return t, nil
}

// FindByID returns the time or ErrNotFound.
func (r *TimeRepo) FindByID(ctx context.Context, id uint64) (model.ReservationTime, error) {
	t, err := scanTime(r.q.QueryRowContext(ctx, `SELECT id, start_at FROM reservation_time WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ReservationTime{}, ErrNotFound
	}
	if err != nil {
		return model.ReservationTime{}, fmt.Errorf("find reservation time %d: %w", id, err)
	}
	return t, nil
}

// FindAll returns every time ordered by start.
func (r *TimeRepo) FindAll(ctx context.Context) ([]model.ReservationTime, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, start_at FROM reservation_time ORDER BY start_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list reservation times: %w", err)
	}
	defer rows.Close()
	out := make([]model.ReservationTime, 0)
	for rows.Next() {
		t, err := scanTime(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Create inserts t and assigns its ID.
func (r *TimeRepo) Create(ctx context.Context, t *model.ReservationTime) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO reservation_time (start_at) VALUES (?)`, model.FormatClock(t.StartAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create reservation time %s: %w", model.FormatClock(t.StartAt), ErrDuplicate)
		}
		return fmt.Errorf("create reservation time: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// DeleteByID removes the time.  Referenced times fail with ErrConflict.
func (r *TimeRepo) DeleteByID(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM reservation_time WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("delete reservation time %d: %w", id, ErrConflict)
		}
		return fmt.Errorf("delete reservation time %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
