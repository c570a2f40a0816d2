package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TokenRepo persists refresh tokens.  Only the SHA-256 hash of a token is
// stored; timestamps are microseconds since the Unix epoch.
type TokenRepo struct {
	q   Querier
	now func() time.Time
}

// NewTokenRepo returns a new TokenRepo bound to the given querier.
func NewTokenRepo(q Querier) *TokenRepo { return &TokenRepo{q: q, now: time.Now} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, memberID uint64, tokenHash string, exp time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO refresh_token (member_id, token_hash, expires_at) VALUES (?, ?, ?)`,
		memberID, tokenHash, toMicros(exp))
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("store refresh token: %w", ErrNotFound)
		}
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// ValidateRefresh returns the member id of a non-revoked, non-expired token.
// Unknown, revoked and expired tokens all yield ErrNotFound.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		memberID  uint64
		expiresAt int64
		revokedAt sql.NullInt64
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT member_id, expires_at, revoked_at FROM refresh_token WHERE token_hash = ? LIMIT 1`,
		tokenHash).Scan(&memberID, &expiresAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("validate refresh token: %w", err)
	}
	if revokedAt.Valid || r.now().UTC().After(fromMicros(expiresAt)) {
		return 0, ErrNotFound
	}
	return memberID, nil
}

// RevokeByHash marks a token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE refresh_token SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL`,
		toMicros(r.now()), tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllForMember revokes all of the member's active tokens.
func (r *TokenRepo) RevokeAllForMember(ctx context.Context, memberID uint64) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE refresh_token SET revoked_at = ? WHERE member_id = ? AND revoked_at IS NULL`,
		toMicros(r.now()), memberID)
	if err != nil {
		return fmt.Errorf("revoke refresh tokens of member %d: %w", memberID, err)
	}
	return nil
}
