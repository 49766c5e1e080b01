package models

import "github.com/shopspring/decimal"

// Debt represents money one participant owes another for a bill.
type Debt struct {
	// ID is the unique identifier for the debt (UUID format).
	ID string

	// BillID is the bill this debt was produced by.
	BillID string

	// DebtorID is the user who owes.
	DebtorID string

	// CreditorID is the user who is owed.
	CreditorID string

	// Amount is always positive and rounded to cents.
	Amount decimal.Decimal

	IsPaid bool

	// PaidAt is the Unix timestamp when the debt was marked paid, 0 if unpaid.
	PaidAt int64

	// CreatedAt is the Unix timestamp when the debt was recorded.
	CreatedAt int64
}
