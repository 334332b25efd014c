// Package stats computes dashboard statistics over a transaction
// collection. All functions are pure: they never mutate their input and
// never touch the network.
package stats

import (
	"financas/internal/models"
	"financas/internal/money"
)

// DashboardStats summarizes a transaction collection. Balance is always
// TotalIncome minus TotalExpense and may be negative. The by-category
// maps key on the embedded category snapshot's name.
type DashboardStats struct {
	TotalIncome        money.Money            `json:"totalIncome"`
	TotalExpense       money.Money            `json:"totalExpense"`
	Balance            money.Money            `json:"balance"`
	TransactionCount   int                    `json:"transactionCount"`
	IncomesByCategory  map[string]money.Money `json:"incomesByCategory"`
	ExpensesByCategory map[string]money.Money `json:"expensesByCategory"`
}

// Aggregate computes the dashboard statistics for a collection. The
// empty collection yields all-zero totals and empty maps.
func Aggregate(transactions []models.Transaction) DashboardStats {
	s := DashboardStats{
		IncomesByCategory:  make(map[string]money.Money),
		ExpensesByCategory: make(map[string]money.Money),
	}

	for _, t := range transactions {
		switch t.Type {
		case models.TransactionTypeIncome:
			s.TotalIncome += t.Amount
			s.IncomesByCategory[t.Category.Name] += t.Amount
		case models.TransactionTypeExpense:
			s.TotalExpense += t.Amount
			s.ExpensesByCategory[t.Category.Name] += t.Amount
		}
	}

	s.Balance = s.TotalIncome - s.TotalExpense
	s.TransactionCount = len(transactions)
	return s
}

// AggregatePeriod computes statistics over the transactions whose date
// falls within [from, to], bounds inclusive.
func AggregatePeriod(transactions []models.Transaction, from, to models.Date) DashboardStats {
	inPeriod := make([]models.Transaction, 0, len(transactions))
	for _, t := range transactions {
		if t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		inPeriod = append(inPeriod, t)
	}
	return Aggregate(inPeriod)
}
