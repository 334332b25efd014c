// Package filter derives filtered views of a transaction collection.
// Filtering is stable: output preserves the relative order of the input
// and never resorts it.
package filter

import (
	"strings"

	"financas/internal/models"
)

// TypeFilter selects transactions by type. TypeAll matches both types.
type TypeFilter string

const (
	TypeAll     TypeFilter = "ALL"
	TypeIncome  TypeFilter = TypeFilter(models.TransactionTypeIncome)
	TypeExpense TypeFilter = TypeFilter(models.TransactionTypeExpense)
)

// ParseTypeFilter maps a user-supplied string ("all", "income",
// "expense", any casing) to a TypeFilter.
func ParseTypeFilter(s string) (TypeFilter, bool) {
	switch TypeFilter(strings.ToUpper(strings.TrimSpace(s))) {
	case TypeAll, "":
		return TypeAll, true
	case TypeIncome:
		return TypeIncome, true
	case TypeExpense:
		return TypeExpense, true
	}
	return TypeAll, false
}

// Apply returns the transactions matching both predicates: a
// case-insensitive substring match of query against the description
// (the empty query matches everything), and the type filter.
func Apply(transactions []models.Transaction, query string, typeFilter TypeFilter) []models.Transaction {
	q := strings.ToLower(query)
	out := make([]models.Transaction, 0, len(transactions))
	for _, t := range transactions {
		if q != "" && !strings.Contains(strings.ToLower(t.Description), q) {
			continue
		}
		if typeFilter != TypeAll && string(t.Type) != string(typeFilter) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Recent returns the first n elements of the collection. It performs no
// sorting: callers wanting recency semantics must pass a collection
// already ordered most-recent-first, which is how the server returns it.
func Recent(transactions []models.Transaction, n int) []models.Transaction {
	if n < 0 {
		n = 0
	}
	if n > len(transactions) {
		n = len(transactions)
	}
	out := make([]models.Transaction, n)
	copy(out, transactions[:n])
	return out
}
