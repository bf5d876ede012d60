// Package domain defines the core business entities for Financio.
// These models are independent of the document store and represent the
// canonical data structures used throughout the BFA.
package domain

import (
	"math"
	"strings"
	"time"
)

// ============================================================
// Transaction kinds
// ============================================================

// Kind tells income from expense. Shared by transactions and categories.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// ============================================================
// Transactions
// ============================================================

// Transaction is a single income or expense entry owned by one user.
type Transaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Type        Kind      `json:"type"`
	Amount      float64   `json:"amount"`
	CategoryID  string    `json:"category"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	ReceiptID   string    `json:"receiptId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TransactionInput carries the fields a user provides when adding a transaction.
type TransactionInput struct {
	Type        Kind
	Amount      float64
	CategoryID  string
	Description string
	Date        time.Time
	ReceiptID   string
}

// Validate rejects inputs that must never reach the store.
func (in *TransactionInput) Validate() error {
	if !in.Type.Valid() {
		return &ErrValidation{Field: "type", Message: "must be income or expense"}
	}
	if err := validateAmount(in.Amount); err != nil {
		return err
	}
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	if in.CategoryID == "" {
		return &ErrValidation{Field: "category", Message: "required"}
	}
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return &ErrValidation{Field: "description", Message: "required"}
	}
	if in.Date.IsZero() {
		return &ErrValidation{Field: "date", Message: "required"}
	}
	return nil
}

// TransactionPatch is a partial update. Nil fields are left untouched.
// Type is accepted only when it equals the stored kind.
type TransactionPatch struct {
	Type        *Kind      `json:"type,omitempty"`
	Amount      *float64   `json:"amount,omitempty"`
	CategoryID  *string    `json:"category,omitempty"`
	Description *string    `json:"description,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	ReceiptID   *string    `json:"receiptId,omitempty"`
}

// Validate checks the patch against the kind of the stored transaction.
func (p *TransactionPatch) Validate(current Kind) error {
	if p.Type != nil && *p.Type != current {
		return &ErrValidation{Field: "type", Message: "cannot change after creation"}
	}
	if p.Amount != nil {
		if err := validateAmount(*p.Amount); err != nil {
			return err
		}
	}
	if p.CategoryID != nil {
		*p.CategoryID = strings.TrimSpace(*p.CategoryID)
		if *p.CategoryID == "" {
			return &ErrValidation{Field: "category", Message: "required"}
		}
	}
	if p.Description != nil {
		*p.Description = strings.TrimSpace(*p.Description)
		if *p.Description == "" {
			return &ErrValidation{Field: "description", Message: "required"}
		}
	}
	if p.Date != nil && p.Date.IsZero() {
		return &ErrValidation{Field: "date", Message: "required"}
	}
	return nil
}

// Apply copies the non-nil fields onto t.
func (p *TransactionPatch) Apply(t *Transaction) {
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.CategoryID != nil {
		t.CategoryID = *p.CategoryID
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.ReceiptID != nil {
		t.ReceiptID = *p.ReceiptID
	}
}

// TransactionFilter narrows a transaction listing. Zero values mean "no filter".
type TransactionFilter struct {
	From       time.Time
	To         time.Time
	CategoryID string
	Type       Kind
	Limit      int
}

// Matches applies the filter in memory. Stores that cannot push a filter
// down use it after fetching.
func (f TransactionFilter) Matches(t Transaction) bool {
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To) {
		return false
	}
	if f.CategoryID != "" && t.CategoryID != f.CategoryID {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	return true
}

func validateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return &ErrValidation{Field: "amount", Message: "must be a number"}
	}
	if amount <= 0 {
		return &ErrValidation{Field: "amount", Message: "must be positive"}
	}
	return nil
}

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, &ErrValidation{Field: "date", Message: "expected YYYY-MM-DD or RFC 3339"}
	}
	return t, nil
}

// ParseDateUntil parses an inclusive upper bound. A plain date covers the
// whole day.
func ParseDateUntil(s string) (time.Time, error) {
	t, err := ParseDate(s)
	if err != nil {
		return t, err
	}
	if len(strings.TrimSpace(s)) == len("2006-01-02") {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// ============================================================
// Categories
// ============================================================

// Category groups transactions of one kind under a name, color and icon.
type Category struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Type      Kind      `json:"type"`
	Color     string    `json:"color"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CategoryInput carries the fields for a new category.
type CategoryInput struct {
	Name  string `json:"name"`
	Type  Kind   `json:"type"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// Validate trims the name and checks every field against the catalogs.
func (in *CategoryInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return &ErrValidation{Field: "name", Message: "required"}
	}
	if !in.Type.Valid() {
		return &ErrValidation{Field: "type", Message: "must be income or expense"}
	}
	if !ValidColor(in.Color) {
		return &ErrValidation{Field: "color", Message: "unknown color token"}
	}
	if !ValidIcon(in.Icon) {
		return &ErrValidation{Field: "icon", Message: "unknown icon"}
	}
	return nil
}

// CategoryPatch is a partial category update over the same closed field set.
type CategoryPatch struct {
	Name  *string `json:"name,omitempty"`
	Type  *Kind   `json:"type,omitempty"`
	Color *string `json:"color,omitempty"`
	Icon  *string `json:"icon,omitempty"`
}

// Validate checks the fields present in the patch.
func (p *CategoryPatch) Validate() error {
	if p.Name != nil {
		trimmed := strings.TrimSpace(*p.Name)
		if trimmed == "" {
			return &ErrValidation{Field: "name", Message: "required"}
		}
		p.Name = &trimmed
	}
	if p.Type != nil && !p.Type.Valid() {
		return &ErrValidation{Field: "type", Message: "must be income or expense"}
	}
	if p.Color != nil && !ValidColor(*p.Color) {
		return &ErrValidation{Field: "color", Message: "unknown color token"}
	}
	if p.Icon != nil && !ValidIcon(*p.Icon) {
		return &ErrValidation{Field: "icon", Message: "unknown icon"}
	}
	return nil
}

// Apply copies the non-nil fields onto c.
func (p *CategoryPatch) Apply(c *Category) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
}

// ChangesKind reports whether applying p would move c to another kind.
func (p *CategoryPatch) ChangesKind(c *Category) bool {
	return p.Type != nil && *p.Type != c.Type
}
