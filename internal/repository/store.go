package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/escape-room-reservation/internal/model"
)

// Querier is the subset of *sql.DB and *sql.Tx the repositories use, so the
// same code runs inside or outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SearchCondition filters reservations for the admin search.  A zero id or
// date leaves that bound open; DateFrom and DateTo are inclusive.
type SearchCondition struct {
	ThemeID  uint64
	MemberID uint64
	DateFrom time.Time
	DateTo   time.Time
}

// ReservationRepository persists reservations.  Every returned Reservation
// carries its slot start time so callers never need a second lookup.
type ReservationRepository interface {
	// FindByID returns ErrNotFound when id does not exist.
	FindByID(ctx context.Context, id uint64) (model.Reservation, error)
	FindAll(ctx context.Context) ([]model.Reservation, error)
	FindAllByMemberID(ctx context.Context, memberID uint64) ([]model.Reservation, error)
	FindAllByStatus(ctx context.Context, status model.Status) ([]model.Reservation, error)
	// FindAllBySlotAndStatus returns the rows sharing slot's date, time and
	// theme with the given status.
	FindAllBySlotAndStatus(ctx context.Context, slot model.Slot, status model.Status) ([]model.Reservation, error)
	FindAllBySearchCondition(ctx context.Context, cond SearchCondition) ([]model.Reservation, error)
	// ExistsBySlotAndStatus reports whether any row on slot has status.
	ExistsBySlotAndStatus(ctx context.Context, slot model.Slot, status model.Status) (bool, error)
	// FindStatusesByMemberIDAndSlot lists the statuses of memberID's rows on slot.
	FindStatusesByMemberIDAndSlot(ctx context.Context, memberID uint64, slot model.Slot) ([]model.Status, error)
	// FindTimeIDsByDateAndThemeID lists time ids holding a SUCCESS row on date for themeID.
	FindTimeIDsByDateAndThemeID(ctx context.Context, date time.Time, themeID uint64) ([]uint64, error)
	ExistsByTimeID(ctx context.Context, timeID uint64) (bool, error)
	// Create assigns ID and CreatedAt.  A second SUCCESS row on a slot, or a
	// second SUCCESS/WAIT row for the same member on a slot, fails with
	// ErrDuplicate.
	Create(ctx context.Context, r *model.Reservation) error
	// UpdateStatus is a compare-and-set from one status to another.  It
	// returns ErrNotFound when id does not exist, ErrConflict when the row
	// no longer has status from, and ErrDuplicate when the change would
	// create a second SUCCESS row.
	UpdateStatus(ctx context.Context, id uint64, from, to model.Status) error
	DeleteByID(ctx context.Context, id uint64) error
}

// ThemeRepository persists themes.
type ThemeRepository interface {
	FindByID(ctx context.Context, id uint64) (model.Theme, error)
	FindAll(ctx context.Context) ([]model.Theme, error)
	Create(ctx context.Context, t *model.Theme) error
}

// TimeRepository persists reservation times.
type TimeRepository interface {
	FindByID(ctx context.Context, id uint64) (model.ReservationTime, error)
	FindAll(ctx context.Context) ([]model.ReservationTime, error)
	// Create fails with ErrDuplicate when the start time already exists.
	Create(ctx context.Context, t *model.ReservationTime) error
	// DeleteByID fails with ErrConflict while reservations reference the time.
	DeleteByID(ctx context.Context, id uint64) error
}

// MemberRepository persists members.
type MemberRepository interface {
	FindByID(ctx context.Context, id uint64) (model.Member, error)
	FindByEmail(ctx context.Context, email string) (model.Member, error)
	// Create fails with ErrDuplicate when the email is taken.
	Create(ctx context.Context, m *model.Member) error
}

// TokenRepository persists refresh token hashes.
type TokenRepository interface {
	StoreRefresh(ctx context.Context, memberID uint64, tokenHash string, exp time.Time) error
	// ValidateRefresh returns ErrNotFound for unknown, revoked or expired tokens.
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForMember(ctx context.Context, memberID uint64) error
}

// Store groups the repositories and runs units of work atomically.
type Store interface {
	Reservations() ReservationRepository
	Themes() ThemeRepository
	Times() TimeRepository
	Members() MemberRepository
	Tokens() TokenRepository
	// InTx runs fn with a Store bound to one transaction.  The transaction
	// commits when fn returns nil and rolls back otherwise.  Nested calls
	// reuse the outer transaction.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

// SQLStore implements Store on database/sql.
type SQLStore struct {
	db  *sql.DB
	q   Querier
	now func() time.Time
}

// NewSQLStore returns a Store bound to db.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, q: db, now: time.Now}
}

// WithClock replaces the insert-time clock.  Tests use it to control
// created_at values.
func (s *SQLStore) WithClock(now func() time.Time) *SQLStore {
	cp := *s
	cp.now = now
	return &cp
}

// DB exposes the underlying sql.DB.
func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) Reservations() ReservationRepository {
	return &ReservationRepo{q: s.q, now: s.now}
}

func (s *SQLStore) Themes() ThemeRepository { return &ThemeRepo{q: s.q} }

func (s *SQLStore) Times() TimeRepository { return &TimeRepo{q: s.q} }

func (s *SQLStore) Members() MemberRepository { return &MemberRepo{q: s.q, now: s.now} }

func (s *SQLStore) Tokens() TokenRepository { return &TokenRepo{q: s.q, now: s.now} }

func (s *SQLStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&SQLStore{db: s.db, q: tx, now: s.now}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("commit transaction: %w", ErrDuplicate)
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}
