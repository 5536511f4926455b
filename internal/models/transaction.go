package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind distinguishes money coming in from money going out.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Valid reports whether the kind is one of the two known values.
func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// DateLayout is the calendar-date format used on every transaction.
// ISO 8601, so the string form sorts the same way the dates do.
const DateLayout = "2006-01-02"

// Categories is the closed set a transaction can be filed under.
// "Lainnya" is the catch-all.
var Categories = []string{
	"Makan",
	"Transport",
	"Belanja",
	"Tagihan",
	"Gaji",
	"Kesehatan",
	"Hiburan",
	"Lainnya",
}

// ValidCategory reports whether name is in the category set.
func ValidCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// Transaction is a single income or expense record owned by one user.
type Transaction struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Title     string          `json:"title"`
	Amount    decimal.Decimal `json:"amount"` // always > 0; Kind carries the sign
	Kind      Kind            `json:"kind"`
	Category  string          `json:"category"`
	Date      string          `json:"date"` // yyyy-MM-dd
	CreatedAt time.Time       `json:"created_at"`
}

// NewTransaction creates a transaction with a generated ID and timestamp.
func NewTransaction(ownerID uuid.UUID, title string, amount decimal.Decimal, kind Kind, category, date string) *Transaction {
	return &Transaction{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Title:     title,
		Amount:    amount,
		Kind:      kind,
		Category:  category,
		Date:      date,
		CreatedAt: time.Now().UTC(),
	}
}

// Summary is the derived aggregate triple over a transaction snapshot.
// Balance is always Income minus Expense; the three are computed together
// and never set independently.
type Summary struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}
