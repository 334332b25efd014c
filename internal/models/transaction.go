package models

import (
	"time"

	"financas/internal/money"
)

// TransactionType represents the type of transaction. The sign of an
// amount is always positive; income vs. expense semantics are carried
// by the type alone.
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeExpense TransactionType = "EXPENSE"
)

// Valid reports whether the value is one of the two known types.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Transaction represents a financial transaction as returned by the
// remote API. The collection held client-side is a cached, possibly
// stale copy; the remote collaborator owns the lifetime.
type Transaction struct {
	ID          string          `json:"id"`
	Type        TransactionType `json:"type"`
	Amount      money.Money     `json:"amount"`
	Description string          `json:"description"`
	Date        Date            `json:"date"`
	Attachment  string          `json:"attachment,omitempty"`
	Category    Category        `json:"category"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// TransactionRequest is the payload for creating or fully replacing a
// transaction. The validate tags are the client-side rendering of the
// contract the server enforces.
type TransactionRequest struct {
	Type        TransactionType `json:"type" validate:"required,transaction_type"`
	Amount      money.Money     `json:"amount" validate:"gt=0"`
	Description string          `json:"description" validate:"required,min=3"`
	Date        Date            `json:"date"`
	CategoryID  string          `json:"categoryId" validate:"required"`
	Attachment  string          `json:"attachment,omitempty" validate:"omitempty"`
}
