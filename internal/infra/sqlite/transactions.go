package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
)

const transactionColumns = `id, user_id, type, amount, category, description, date, receipt_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(r rowScanner) (domain.Transaction, error) {
	var (
		t                            domain.Transaction
		kind, date, created, updated string
		receipt                      sql.NullString
	)
	if err := r.Scan(&t.ID, &t.UserID, &kind, &t.Amount, &t.CategoryID, &t.Description, &date, &receipt, &created, &updated); err != nil {
		return t, err
	}
	t.Type = domain.Kind(kind)
	t.Date = parseTime(date)
	t.ReceiptID = receipt.String
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
	return t, nil
}

// ListTransactions returns the owner's transactions, newest first.
func (s *Store) ListTransactions(ctx context.Context, userID string, f domain.TransactionFilter) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListTransactions")
	defer span.End()

	var (
		where = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if !f.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, formatTime(f.To))
	}
	if f.CategoryID != "" {
		where = append(where, "category = ?")
		args = append(args, f.CategoryID)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	q := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + strings.Join(where, " AND ") + ` ORDER BY date DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	out := []domain.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, storeErr(err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetTransaction")
	defer span.End()

	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return &t, nil
}

func (s *Store) CreateTransaction(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateTransaction")
	defer span.End()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, string(t.Type), t.Amount, t.CategoryID, t.Description,
		formatTime(t.Date), nullString(t.ReceiptID), formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	)
	if err != nil {
		return nil, storeErr(err)
	}
	return s.GetTransaction(ctx, t.UserID, t.ID)
}

func (s *Store) UpdateTransaction(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateTransaction")
	defer span.End()

	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET amount = ?, category = ?, description = ?, date = ?, receipt_id = ?, updated_at = ?
		 WHERE user_id = ? AND id = ?`,
		t.Amount, t.CategoryID, t.Description, formatTime(t.Date), nullString(t.ReceiptID), formatTime(t.UpdatedAt),
		t.UserID, t.ID,
	)
	if err != nil {
		return nil, storeErr(err)
	}
	if err := affected(res, "transaction", t.ID); err != nil {
		return nil, err
	}
	return s.GetTransaction(ctx, t.UserID, t.ID)
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteTransaction")
	defer span.End()

	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return storeErr(err)
	}
	return affected(res, "transaction", id)
}

func (s *Store) CountByCategory(ctx context.Context, userID, categoryID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE user_id = ? AND category = ?`, userID, categoryID).Scan(&n)
	if err != nil {
		return 0, storeErr(err)
	}
	return n, nil
}
