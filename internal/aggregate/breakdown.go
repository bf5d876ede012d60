package aggregate

import (
	"math"
	"sort"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
)

// Percentage returns amount as a share of total, rounded to one decimal.
// ok is false when total is zero.
func Percentage(amount, total float64) (pct float64, ok bool) {
	if total == 0 {
		return 0, false
	}
	return math.Round(amount/total*1000) / 10, true
}

// unknownKey buckets unresolved transactions. Stored category IDs are
// never empty, so it cannot collide with a real category.
const unknownKey = ""

// ResolveCategory returns the category a transaction of the given kind is
// filed under. Dangling references and categories of the other kind fall
// back to the Unknown bucket, whose key is empty.
func ResolveCategory(index map[string]domain.Category, id string, kind domain.Kind) (key, name, color string) {
	c, ok := index[id]
	if !ok || c.Type != kind {
		return unknownKey, domain.UnknownCategory, domain.FallbackColor
	}
	return c.ID, c.Name, domain.ResolveColor(c.Color)
}

// IndexCategories keys categories by ID.
func IndexCategories(categories []domain.Category) map[string]domain.Category {
	index := make(map[string]domain.Category, len(categories))
	for _, c := range categories {
		index[c.ID] = c
	}
	return index
}

type bucket struct {
	key   string
	slice domain.CategorySlice
}

// Breakdown groups the expense transactions by resolved category and
// returns slices ordered by amount descending, then name. Categories that
// share a name stay separate slices, and a category named like the Unknown
// bucket does not merge with it. When there are no expenses the result is
// empty rather than a set of zero shares.
func Breakdown(txns []domain.Transaction, categories []domain.Category) []domain.CategorySlice {
	index := IndexCategories(categories)

	byKey := make(map[string]*bucket)
	var total float64
	for _, t := range txns {
		if t.Type != domain.KindExpense {
			continue
		}
		key, name, color := ResolveCategory(index, t.CategoryID, domain.KindExpense)
		b, ok := byKey[key]
		if !ok {
			b = &bucket{key: key, slice: domain.CategorySlice{Name: name, Color: color}}
			byKey[key] = b
		}
		b.slice.Amount += t.Amount
		total += t.Amount
	}

	slices := make([]domain.CategorySlice, 0, len(byKey))
	if total == 0 {
		return slices
	}
	buckets := make([]*bucket, 0, len(byKey))
	for _, b := range byKey {
		b.slice.Percentage, _ = Percentage(b.slice.Amount, total)
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		a, b := buckets[i], buckets[j]
		if a.slice.Amount == b.slice.Amount && a.slice.Name == b.slice.Name {
			return a.key < b.key
		}
		return rankedBefore(a.slice.Amount, a.slice.Name, b.slice.Amount, b.slice.Name)
	})
	for _, b := range buckets {
		slices = append(slices, b.slice)
	}
	return slices
}

// Rank turns a stored name->amount map back into ordered shares.
func Rank(byCategory map[string]float64) []domain.CategoryShare {
	var total float64
	for _, v := range byCategory {
		total += v
	}
	shares := make([]domain.CategoryShare, 0, len(byCategory))
	if total == 0 {
		return shares
	}
	for name, amount := range byCategory {
		pct, _ := Percentage(amount, total)
		shares = append(shares, domain.CategoryShare{Name: name, Amount: amount, Percentage: pct})
	}
	sort.Slice(shares, func(i, j int) bool {
		return rankedBefore(shares[i].Amount, shares[i].Name, shares[j].Amount, shares[j].Name)
	})
	return shares
}

func rankedBefore(a float64, aName string, b float64, bName string) bool {
	if a != b {
		return a > b
	}
	return aName < bName
}
