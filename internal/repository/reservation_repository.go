package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/escape-room-reservation/internal/model"
)

// ReservationRepo provides CRUD operations for reservations.  Dates are
// stored as YYYY-MM-DD text and created_at as microseconds since the Unix
// epoch, which keeps ordering and range filters identical on both dialects.
type ReservationRepo struct {
	q   Querier
	now func() time.Time
}

// NewReservationRepo returns a new ReservationRepo bound to the given querier.
func NewReservationRepo(q Querier) *ReservationRepo {
	return &ReservationRepo{q: q, now: time.Now}
}

// selectReservation joins reservation_time so every row carries its start time.
const selectReservation = `SELECT r.id, r.member_id, r.date, r.time_id, rt.start_at, r.theme_id, r.status, r.created_at
                           FROM reservation r
                           JOIN reservation_time rt ON rt.id = r.time_id`

func toMicros(t time.Time) int64 { return t.UTC().UnixMicro() }

func fromMicros(v int64) time.Time { return time.UnixMicro(v).UTC() }

func formatDate(t time.Time) string { return t.Format(model.DateLayout) }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (model.Reservation, error) {
	var (
		r         model.Reservation
		date      string
		startAt   string
		status    string
		createdAt int64
	)
	if err := row.Scan(&r.ID, &r.MemberID, &date, &r.Slot.TimeID, &startAt, &r.Slot.ThemeID, &status, &createdAt); err != nil {
		return model.Reservation{}, err
	}
	d, err := model.ParseDate(date)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("reservation %d: bad date %q: %w", r.ID, date, err)
	}
	clock, err := model.ParseClock(startAt)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("reservation %d: %w", r.ID, err)
	}
	r.Slot.Date = d
	r.Slot.StartAt = clock
	r.Status = model.Status(status)
	r.CreatedAt = fromMicros(createdAt)
	return r, nil
}

func (r *ReservationRepo) list(ctx context.Context, query string, args ...any) ([]model.Reservation, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FindByID returns a single reservation or ErrNotFound.
func (r *ReservationRepo) FindByID(ctx context.Context, id uint64) (model.Reservation, error) {
	res, err := scanReservation(r.q.QueryRowContext(ctx, selectReservation+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, ErrNotFound
	}
	if err != nil {
		return model.Reservation{}, fmt.Errorf("find reservation %d: %w", id, err)
	}
	return res, nil
}

// FindAll returns every reservation ordered by id.
func (r *ReservationRepo) FindAll(ctx context.Context) ([]model.Reservation, error) {
	out, err := r.list(ctx, selectReservation+` ORDER BY r.id`)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return out, nil
}

// FindAllByMemberID returns the member's reservations ordered by id.
func (r *ReservationRepo) FindAllByMemberID(ctx context.Context, memberID uint64) ([]model.Reservation, error) {
	out, err := r.list(ctx, selectReservation+` WHERE r.member_id = ? ORDER BY r.id`, memberID)
	if err != nil {
		return nil, fmt.Errorf("list reservations of member %d: %w", memberID, err)
	}
	return out, nil
}

// FindAllByStatus returns every reservation with status, ordered by id.
func (r *ReservationRepo) FindAllByStatus(ctx context.Context, status model.Status) ([]model.Reservation, error) {
	out, err := r.list(ctx, selectReservation+` WHERE r.status = ? ORDER BY r.id`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list %s reservations: %w", status, err)
	}
	return out, nil
}

// FindAllBySlotAndStatus returns the reservations on slot with status in
// insertion order.
func (r *ReservationRepo) FindAllBySlotAndStatus(ctx context.Context, slot model.Slot, status model.Status) ([]model.Reservation, error) {
	out, err := r.list(ctx, selectReservation+`
        WHERE r.date = ? AND r.time_id = ? AND r.theme_id = ? AND r.status = ?
        ORDER BY r.created_at, r.id`,
		formatDate(slot.Date), slot.TimeID, slot.ThemeID, string(status))
	if err != nil {
		return nil, fmt.Errorf("list %s reservations on %s: %w", status, slot, err)
	}
	return out, nil
}

// FindAllBySearchCondition applies the admin search filters.  Open bounds
// are skipped rather than matched against sentinel values.
func (r *ReservationRepo) FindAllBySearchCondition(ctx context.Context, cond SearchCondition) ([]model.Reservation, error) {
	var (
		where []string
		args  []any
	)
	if cond.ThemeID != 0 {
		where = append(where, "r.theme_id = ?")
		args = append(args, cond.ThemeID)
	}
	if cond.MemberID != 0 {
		where = append(where, "r.member_id = ?")
		args = append(args, cond.MemberID)
	}
	if !cond.DateFrom.IsZero() {
		where = append(where, "r.date >= ?")
		args = append(args, formatDate(cond.DateFrom))
	}
	if !cond.DateTo.IsZero() {
		where = append(where, "r.date <= ?")
		args = append(args, formatDate(cond.DateTo))
	}
	query := selectReservation
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	out, err := r.list(ctx, query+" ORDER BY r.id", args...)
	if err != nil {
		return nil, fmt.Errorf("search reservations: %w", err)
	}
	return out, nil
}

// ExistsBySlotAndStatus reports whether a reservation with status exists on slot.
func (r *ReservationRepo) ExistsBySlotAndStatus(ctx context.Context, slot model.Slot, status model.Status) (bool, error) {
	const q = `SELECT 1 FROM reservation
               WHERE date = ? AND time_id = ? AND theme_id = ? AND status = ?
               LIMIT 1`
	var one int
	err := r.q.QueryRowContext(ctx, q, formatDate(slot.Date), slot.TimeID, slot.ThemeID, string(status)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check %s reservation on %s: %w", status, slot, err)
	}
	return true, nil
}

// FindStatusesByMemberIDAndSlot returns the statuses of the member's
// reservations on slot in insertion order.
func (r *ReservationRepo) FindStatusesByMemberIDAndSlot(ctx context.Context, memberID uint64, slot model.Slot) ([]model.Status, error) {
	const q = `SELECT status FROM reservation
               WHERE member_id = ? AND date = ? AND time_id = ? AND theme_id = ?
               ORDER BY id`
	rows, err := r.q.QueryContext(ctx, q, memberID, formatDate(slot.Date), slot.TimeID, slot.ThemeID)
	if err != nil {
		return nil, fmt.Errorf("list statuses of member %d on %s: %w", memberID, slot, err)
	}
	defer rows.Close()
	var out []model.Status
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, model.Status(s))
	}
	return out, rows.Err()
}

// FindTimeIDsByDateAndThemeID returns the ids of times already held on date
// for themeID.
func (r *ReservationRepo) FindTimeIDsByDateAndThemeID(ctx context.Context, date time.Time, themeID uint64) ([]uint64, error) {
	const q = `SELECT time_id FROM reservation
               WHERE date = ? AND theme_id = ? AND status = ?
               ORDER BY time_id`
	rows, err := r.q.QueryContext(ctx, q, formatDate(date), themeID, string(model.StatusSuccess))
	if err != nil {
		return nil, fmt.Errorf("list booked times: %w", err)
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ExistsByTimeID reports whether any reservation references the time.
func (r *ReservationRepo) ExistsByTimeID(ctx context.Context, timeID uint64) (bool, error) {
	var one int
	err := r.q.QueryRowContext(ctx, `SELECT 1 FROM reservation WHERE time_id = ? LIMIT 1`, timeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check reservations of time %d: %w", timeID, err)
	}
	return true, nil
}

// Create inserts res, assigning its ID and CreatedAt.  The caller supplies
// MemberID, Slot and Status.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservation (member_id, date, time_id, theme_id, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	createdAt := r.now().UTC().Truncate(time.Microsecond)
	result, err := r.q.ExecContext(ctx, q,
		res.MemberID, formatDate(res.Slot.Date), res.Slot.TimeID, res.Slot.ThemeID, string(res.Status), toMicros(createdAt))
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("create reservation on %s: %w", res.Slot, ErrDuplicate)
		case isForeignKeyViolation(err):
			return fmt.Errorf("create reservation on %s: %w", res.Slot, ErrNotFound)
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	res.CreatedAt = createdAt
	return nil
}

// UpdateStatus moves reservation id from status from to status to.  The
// write only applies while the row still has status from; a row that moved
// on in the meantime yields ErrConflict.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id uint64, from, to model.Status) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE reservation SET status = ? WHERE id = ? AND status = ?`, string(to), id, string(from))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("set reservation %d to %s: %w", id, to, ErrDuplicate)
		}
		return fmt.Errorf("set reservation %d to %s: %w", id, to, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var found int
	err = r.q.QueryRowContext(ctx, `SELECT 1 FROM reservation WHERE id = ?`, id).Scan(&found)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case err != nil:
		return fmt.Errorf("check reservation %d: %w", id, err)
	}
	return fmt.Errorf("set reservation %d from %s to %s: %w", id, from, to, ErrConflict)
}

// DeleteByID removes reservation id or returns ErrNotFound.
func (r *ReservationRepo) DeleteByID(ctx context.Context, id uint64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM reservation WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reservation %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
