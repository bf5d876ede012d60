package supabase

import (
	"context"
	"net/http"

	"github.com/boddenberg/financio-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Categories (implements port.CategoryStore)
// ============================================================

// ListCategories returns the owner's categories ordered by name.
func (c *Client) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCategories")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var out []domain.Category
	err := c.call(ctx, "categories", func(ctx context.Context) error {
		q := query(userID)
		q.Set("order", "name.asc")
		body, err := c.doRequest(ctx, http.MethodGet, path(tableCategories, q), nil, "")
		if err != nil {
			return err
		}
		rows, err := decodeRows[categoryRow](body)
		if err != nil {
			return err
		}
		out = make([]domain.Category, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetCategory(ctx context.Context, userID, id string) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCategory")
	defer span.End()

	var cat domain.Category
	err := c.call(ctx, "categories", func(ctx context.Context) error {
		body, err := c.doRequest(ctx, http.MethodGet, scoped(tableCategories, userID, id)+"&limit=1", nil, "")
		if err != nil {
			return err
		}
		row, err := firstRow[categoryRow](body, "category", id)
		if err != nil {
			return err
		}
		cat = row.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *Client) CreateCategory(ctx context.Context, cat *domain.Category) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateCategory")
	defer span.End()

	var created domain.Category
	err := c.call(ctx, "categories", func(ctx context.Context) error {
		body, err := c.doRequest(ctx, http.MethodPost, tableCategories, toCategoryRow(cat), preferRepresentation)
		if err != nil {
			return err
		}
		row, err := firstRow[categoryRow](body, "category", cat.ID)
		if err != nil {
			return err
		}
		created = row.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateCategory(ctx context.Context, cat *domain.Category) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateCategory")
	defer span.End()

	var updated domain.Category
	err := c.call(ctx, "categories", func(ctx context.Context) error {
		body, err := c.doRequest(ctx, http.MethodPatch, scoped(tableCategories, cat.UserID, cat.ID), toCategoryRow(cat), preferRepresentation)
		if err != nil {
			return err
		}
		row, err := firstRow[categoryRow](body, "category", cat.ID)
		if err != nil {
			return err
		}
		updated = row.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteCategory(ctx context.Context, userID, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteCategory")
	defer span.End()

	return c.call(ctx, "categories", func(ctx context.Context) error {
		body, err := c.doRequest(ctx, http.MethodDelete, scoped(tableCategories, userID, id), nil, preferRepresentation)
		if err != nil {
			return err
		}
		_, err = firstRow[categoryRow](body, "category", id)
		return err
	})
}
