// Package format renders monetary amounts and dates for display, fixed
// to the Brazilian Portuguese locale with exactly two fraction digits.
// Formatted strings are for presentation only; equality, sorting, and
// aggregation always operate on the raw values.
package format

import (
	"financas/internal/models"
	"financas/internal/money"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.BrazilianPortuguese)

// Currency renders an amount as Brazilian Real, e.g. "R$ 1.234,56".
// Negative amounts carry a leading sign: "-R$ 1.234,56".
func Currency(m money.Money) string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return sign + printer.Sprintf("R$ %v",
		number.Decimal(m.Float64(),
			number.MinFractionDigits(2),
			number.MaxFractionDigits(2)))
}

// Date renders a calendar date in Brazilian day/month/year order,
// e.g. "31/08/2026". No time-of-day component is shown.
func Date(d models.Date) string {
	return d.Format("02/01/2006")
}

// Signed renders a transaction amount with its conventional display
// sign: "+" for income, "-" for expense. The sign is presentational;
// stored amounts are always positive.
func Signed(t models.Transaction) string {
	if t.Type == models.TransactionTypeExpense {
		return "-" + Currency(t.Amount)
	}
	return "+" + Currency(t.Amount)
}
