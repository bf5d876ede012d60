package supabase

import (
	"context"
	"net/http"

	"github.com/boddenberg/financio-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Transactions (implements port.TransactionStore)
// ============================================================

// ListTransactions returns the owner's transactions, newest first.
func (c *Client) ListTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var out []domain.Transaction
	err := c.call(ctx, "transactions", func(ctx context.Context) error {
		body, err := c.doRequest(ctx, http.MethodGet, path(tableTransactions, transactionQuery(userID, filter)), nil, "")
		if err != nil {
			return err
		}
		rows, err := decodeRows[transactionRow](body)
		if err != nil {
			return err
		}
		out = make([]domain.Transaction, 0, len(rows))
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

// GetTransaction fetches one transaction of the owner.
func (c *Client) GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetTransaction")
	defer span.End()

	var txn domain.Transaction
	err := c.call(ctx, "transactions", func(ctx context.Context) error {
		body, err := c.doRequest(ctx, http.MethodGet, scoped(tableTransactions, userID, id)+"&limit=1", nil, "")
		if err != nil {
			return err
		}
		row, err := firstRow[transactionRow](body, "transaction", id)
		if err != nil {
			return err
		}
		txn = row.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// CreateTransaction inserts txn and returns the stored row.
func (c *Client) CreateTransaction(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateTransaction")
	defer span.End()

	var created domain.Transaction
	err := c.call(ctx, "transactions", func(ctx context.Context) error {
		body, err := c.doRequest(ctx, http.MethodPost, tableTransactions, toTransactionRow(txn), preferRepresentation)
		if err != nil {
			return err
		}
		row, err := firstRow[transactionRow](body, "transaction", txn.ID)
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

// UpdateTransaction overwrites the stored row of txn.
func (c *Client) UpdateTransaction(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateTransaction")
	defer span.End()

	var updated domain.Transaction
	err := c.call(ctx, "transactions", func(ctx context.Context) error {
		body, err := c.doRequest(ctx, http.MethodPatch, scoped(tableTransactions, txn.UserID, txn.ID), toTransactionRow(txn), preferRepresentation)
		if err != nil {
			return err
		}
		row, err := firstRow[transactionRow](body, "transaction", txn.ID)
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

// DeleteTransaction removes a transaction of the owner.
func (c *Client) DeleteTransaction(ctx context.Context, userID, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteTransaction")
	defer span.End()

	return c.call(ctx, "transactions", func(ctx context.Context) error {
		body, err := c.doRequest(ctx, http.MethodDelete, scoped(tableTransactions, userID, id), nil, preferRepresentation)
		if err != nil {
			return err
		}
		_, err = firstRow[transactionRow](body, "transaction", id)
		return err
	})
}

// CountByCategory counts the owner's transactions filed under categoryID.
func (c *Client) CountByCategory(ctx context.Context, userID, categoryID string) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CountByCategory")
	defer span.End()

	var n int
	err := c.call(ctx, "transactions", func(ctx context.Context) error {
		q := query(userID)
		q.Set("category", "eq."+categoryID)
		q.Set("select", "id")
		body, err := c.doRequest(ctx, http.MethodGet, path(tableTransactions, q), nil, "")
		if err != nil {
			return err
		}
		rows, err := decodeRows[struct {
			ID string `json:"id"`
		}](body)
		if err != nil {
			return err
		}
		n = len(rows)
		return nil
	})
	return n, err
}
