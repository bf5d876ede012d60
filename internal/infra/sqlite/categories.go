package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
)

const categoryColumns = `id, user_id, name, type, color, icon, created_at, updated_at`

func scanCategory(r rowScanner) (domain.Category, error) {
	var (
		c                      domain.Category
		kind, created, updated string
	)
	if err := r.Scan(&c.ID, &c.UserID, &c.Name, &kind, &c.Color, &c.Icon, &created, &updated); err != nil {
		return c, err
	}
	c.Type = domain.Kind(kind)
	c.CreatedAt = parseTime(created)
	c.UpdatedAt = parseTime(updated)
	return c, nil
}

// ListCategories returns the owner's categories ordered by name.
func (s *Store) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListCategories")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	out := []domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, storeErr(err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

func (s *Store) GetCategory(ctx context.Context, userID, id string) (*domain.Category, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE user_id = ? AND id = ?`, userID, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "category", ID: id}
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *domain.Category) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateCategory")
	defer span.End()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, string(c.Type), c.Color, c.Icon, formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		return nil, storeErr(err)
	}
	return s.GetCategory(ctx, c.UserID, c.ID)
}

func (s *Store) UpdateCategory(ctx context.Context, c *domain.Category) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateCategory")
	defer span.End()

	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, type = ?, color = ?, icon = ?, updated_at = ? WHERE user_id = ? AND id = ?`,
		c.Name, string(c.Type), c.Color, c.Icon, formatTime(c.UpdatedAt), c.UserID, c.ID,
	)
	if err != nil {
		return nil, storeErr(err)
	}
	if err := affected(res, "category", c.ID); err != nil {
		return nil, err
	}
	return s.GetCategory(ctx, c.UserID, c.ID)
}

func (s *Store) DeleteCategory(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return storeErr(err)
	}
	return affected(res, "category", id)
}
