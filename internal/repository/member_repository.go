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

// MemberRepo provides access to the member table.  Emails are stored
// lower-cased and trimmed.
type MemberRepo struct {
	q   Querier
	now func() time.Time
}

// NewMemberRepo returns a new MemberRepo bound to the given querier.
func NewMemberRepo(q Querier) *MemberRepo { return &MemberRepo{q: q, now: time.Now} }

const selectMember = `SELECT id, name, email, password_hash, role, created_at FROM member`

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func scanMember(row rowScanner) (model.Member, error) {
	var (
		m         model.Member
		role      string
		createdAt int64
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Email, &m.PasswordHash, &role, &createdAt); err != nil {
		return model.Member{}, err
	}
	m.Role = model.Role(role)
	m.CreatedAt = fromMicros(createdAt)
	return m, nil
}

// FindByID fetches a member by id.
func (r *MemberRepo) FindByID(ctx context.Context, id uint64) (model.Member, error) {
	m, err := scanMember(r.q.QueryRowContext(ctx, selectMember+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Member{}, ErrNotFound
	}
	if err != nil {
		return model.Member{}, fmt.Errorf("find member %d: %w", id, err)
	}
	return m, nil
}

// FindByEmail fetches a member by normalized email.
func (r *MemberRepo) FindByEmail(ctx context.Context, email string) (model.Member, error) {
	m, err := scanMember(r.q.QueryRowContext(ctx, selectMember+` WHERE email = ? LIMIT 1`, normalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Member{}, ErrNotFound
	}
	if err != nil {
		return model.Member{}, fmt.Errorf("find member by email: %w", err)
	}
	return m, nil
}

// Create inserts m and assigns ID and CreatedAt.  PasswordHash must already
// be hashed.
func (r *MemberRepo) Create(ctx context.Context, m *model.Member) error {
	if m.Role == "" {
		m.Role = model.RoleUser
	}
	m.Email = normalizeEmail(m.Email)
	createdAt := r.now().UTC().Truncate(time.Microsecond)
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO member (name, email, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.Name, m.Email, m.PasswordHash, string(m.Role), toMicros(createdAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create member: %w", ErrDuplicate)
		}
		return fmt.Errorf("create member: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	m.CreatedAt = createdAt
	return nil
}
