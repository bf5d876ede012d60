package supabase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
	"github.com/boddenberg/financio-bfa-go/internal/infra/resilience"
)

// ============================================================
// Query building and row decoding
// ============================================================

const (
	preferRepresentation = "return=representation"
	preferUpsert         = "resolution=merge-duplicates,return=representation"
)

// query starts a PostgREST filter scoped to one owner.
func query(userID string) url.Values {
	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	return q
}

func path(table string, q url.Values) string {
	return table + "?" + q.Encode()
}

func scoped(table, userID, id string) string {
	q := query(userID)
	q.Set("id", "eq."+id)
	return path(table, q)
}

func transactionQuery(userID string, f domain.TransactionFilter) url.Values {
	q := query(userID)
	q.Set("order", "date.desc")
	if !f.From.IsZero() {
		q.Add("date", "gte."+f.From.UTC().Format(time.RFC3339Nano))
	}
	if !f.To.IsZero() {
		q.Add("date", "lte."+f.To.UTC().Format(time.RFC3339Nano))
	}
	if f.CategoryID != "" {
		q.Set("category", "eq."+f.CategoryID)
	}
	if f.Type != "" {
		q.Set("type", "eq."+string(f.Type))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}

// decodeRows decodes a PostgREST array. A nil body is an empty result.
func decodeRows[T any](body []byte) ([]T, error) {
	if len(body) == 0 {
		return nil, nil
	}
	var rows []T
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, resilience.Permanent(fmt.Errorf("decode rows: %w", err))
	}
	return rows, nil
}

// firstRow decodes a PostgREST array and returns its first element, or a
// not-found error naming resource and id.
func firstRow[T any](body []byte, resource, id string) (*T, error) {
	rows, err := decodeRows[T](body)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, resilience.Rejected(&domain.ErrNotFound{Resource: resource, ID: id})
	}
	return &rows[0], nil
}

func readBody(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
