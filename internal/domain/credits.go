package domain

import "time"

// ============================================================
// AI analysis credits
// ============================================================

const (
	// FreeTierCredits is the lifetime allowance of a free account.
	FreeTierCredits = 10
	// PaidTierCredits is the allowance of a paid account.
	PaidTierCredits = 50
)

// CreditAccount is the normalized rate-limit record of one user.
type CreditAccount struct {
	UserID       string     `json:"userId"`
	TotalCredits int        `json:"totalCredits"`
	UsedCredits  int        `json:"usedCredits"`
	IsPaid       bool       `json:"isPaid"`
	LastUsedAt   *time.Time `json:"lastUsedAt,omitempty"`
}

// NewCreditAccount returns a fresh free-tier account.
func NewCreditAccount(userID string) *CreditAccount {
	return &CreditAccount{UserID: userID, TotalCredits: FreeTierCredits}
}

// Remaining never goes below zero.
func (c *CreditAccount) Remaining() int {
	if r := c.TotalCredits - c.UsedCredits; r > 0 {
		return r
	}
	return 0
}

// Debit consumes one credit.
func (c *CreditAccount) Debit(now time.Time) {
	c.UsedCredits++
	c.LastUsedAt = &now
}

// CreditsView is what the API returns for a credit account.
type CreditsView struct {
	TotalCredits     int        `json:"totalCredits"`
	UsedCredits      int        `json:"usedCredits"`
	RemainingCredits int        `json:"remainingCredits"`
	IsPaid           bool       `json:"isPaid"`
	LastUsedAt       *time.Time `json:"lastUsedAt,omitempty"`
}

// View renders the account for API consumers.
func (c *CreditAccount) View() CreditsView {
	return CreditsView{
		TotalCredits:     c.TotalCredits,
		UsedCredits:      c.UsedCredits,
		RemainingCredits: c.Remaining(),
		IsPaid:           c.IsPaid,
		LastUsedAt:       c.LastUsedAt,
	}
}

// RateLimitRecord is the raw stored shape. Older records carry a monthly
// counter (Month, AIAnalysisCount); newer ones carry a credit balance.
// Either shape, or a mix, normalizes into a CreditAccount.
type RateLimitRecord struct {
	UserID          string     `json:"userId"`
	TotalCredits    *int       `json:"totalCredits,omitempty"`
	UsedCredits     *int       `json:"usedCredits,omitempty"`
	IsPaid          *bool      `json:"isPaid,omitempty"`
	LastUsedAt      *time.Time `json:"lastUsedAt,omitempty"`
	Month           string     `json:"month,omitempty"`
	AIAnalysisCount *int       `json:"aiAnalysisCount,omitempty"`
	MonthlyLimit    *int       `json:"monthlyLimit,omitempty"`
}

// MonthKey formats t as the "YYYY-MM" key used by monthly counters.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// Normalize converts a stored record into a CreditAccount as of now.
// Credit-balance fields win when present. A monthly counter from an
// earlier month counts as unused.
func (r *RateLimitRecord) Normalize(now time.Time) *CreditAccount {
	acc := &CreditAccount{UserID: r.UserID, LastUsedAt: r.LastUsedAt}
	if r.IsPaid != nil {
		acc.IsPaid = *r.IsPaid
	}

	if r.TotalCredits != nil || r.UsedCredits != nil {
		acc.TotalCredits = FreeTierCredits
		if acc.IsPaid {
			acc.TotalCredits = PaidTierCredits
		}
		if r.TotalCredits != nil {
			acc.TotalCredits = *r.TotalCredits
		}
		if r.UsedCredits != nil {
			acc.UsedCredits = *r.UsedCredits
		}
		return acc
	}

	acc.TotalCredits = FreeTierCredits
	if r.MonthlyLimit != nil {
		acc.TotalCredits = *r.MonthlyLimit
	}
	if r.AIAnalysisCount != nil && r.Month == MonthKey(now) {
		acc.UsedCredits = *r.AIAnalysisCount
	}
	return acc
}

// RecordFromAccount produces the credit-balance shape for persistence.
func RecordFromAccount(acc *CreditAccount) *RateLimitRecord {
	total, used, paid := acc.TotalCredits, acc.UsedCredits, acc.IsPaid
	return &RateLimitRecord{
		UserID:       acc.UserID,
		TotalCredits: &total,
		UsedCredits:  &used,
		IsPaid:       &paid,
		LastUsedAt:   acc.LastUsedAt,
	}
}
