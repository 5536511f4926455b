// Package analytics derives aggregate totals and filtered views from a
// transaction snapshot. Everything here is a pure function of its input:
// no hidden state, no incremental update path. Totals are recomputed from
// the full snapshot on every change, which keeps them immune to
// double-counting and stale-total bugs at the cost of an O(n) pass.
package analytics

import (
	"github.com/dimasprabowo/fintrack/internal/models"
	"github.com/shopspring/decimal"
)

// Summarize computes the aggregate triple for a snapshot.
// Balance is income minus expense, always.
func Summarize(transactions []models.Transaction) models.Summary {
	income := decimal.Zero
	expense := decimal.Zero

	for _, t := range transactions {
		switch t.Kind {
		case models.KindIncome:
			income = income.Add(t.Amount)
		case models.KindExpense:
			expense = expense.Add(t.Amount)
		}
	}

	return models.Summary{
		Income:  income,
		Expense: expense,
		Balance: income.Sub(expense),
	}
}

// All is the identity value for the Kind and Category filter dimensions.
const All = "All"

// Query is a declarative predicate over a snapshot. A zero field (or All
// for Kind/Category) is the identity filter on that dimension. Dates are
// yyyy-MM-dd strings and compare lexicographically, which for ISO 8601
// is the same as chronological order.
type Query struct {
	DateFrom string
	DateTo   string
	Kind     string
	Category string
}

// Filter returns the transactions matching the query, preserving the
// snapshot's relative order. The input slice is never modified.
func Filter(transactions []models.Transaction, q Query) []models.Transaction {
	out := make([]models.Transaction, 0, len(transactions))
	for _, t := range transactions {
		if q.DateFrom != "" && t.Date < q.DateFrom {
			continue
		}
		if q.DateTo != "" && t.Date > q.DateTo {
			continue
		}
		if q.Kind != "" && q.Kind != All && string(t.Kind) != q.Kind {
			continue
		}
		if q.Category != "" && q.Category != All && t.Category != q.Category {
			continue
		}
		out = append(out, t)
	}
	return out
}
