package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/escape-room-reservation/internal/model"
)

// ThemeRepo provides access to the theme table.
type ThemeRepo struct {
	q Querier
}

// NewThemeRepo returns a new ThemeRepo bound to the given querier.
func NewThemeRepo(q Querier) *ThemeRepo { return &ThemeRepo{q: q} }

// FindByID returns the theme or ErrNotFound.
func (r *ThemeRepo) FindByID(ctx context.Context, id uint64) (model.Theme, error) {
	var t model.Theme
	err := r.q.QueryRowContext(ctx,
		`SELECT id, name, description, thumbnail FROM theme WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.Description, &t.Thumbnail)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Theme{}, ErrNotFound
	}
	if err != nil {
		return model.Theme{}, fmt.Errorf("find theme %d: %w", id, err)
	}
	return t, nil
}

// FindAll returns every theme ordered by id.
func (r *ThemeRepo) FindAll(ctx context.Context) ([]model.Theme, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, name, description, thumbnail FROM theme ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	defer rows.Close()
	out := make([]model.Theme, 0)
	for rows.Next() {
		var t model.Theme
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Thumbnail); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Create inserts t and assigns its ID.
func (r *ThemeRepo) Create(ctx context.Context, t *model.Theme) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO theme (name, description, thumbnail) VALUES (?, ?, ?)`,
		t.Name, t.Description, t.Thumbnail)
	if err != nil {
		return fmt.Errorf("create theme: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}
