package models

import "github.com/shopspring/decimal"

// Bill represents a bill with items to be split among participants.
type Bill struct {
	// ID is the unique identifier for the bill (UUID format).
	ID string

	// Title is the human-readable name for the bill.
	// Auto-generated from participants when empty.
	Title string

	Description string

	// PaidBy is the user who paid the whole bill. Every debt on the bill
	// is owed to this user.
	PaidBy string

	// TotalAmount is the sum of item prices, excluding the tip.
	TotalAmount decimal.Decimal

	// Tip is divided evenly across all participants.
	Tip decimal.Decimal

	// Participants is the ordered list of user IDs splitting the bill.
	// The order is the order debts are produced in.
	Participants []string

	Items []Item

	// Debts are the obligations produced when the bill was settled.
	Debts []Debt

	// CreatedAt is the Unix timestamp when the bill was created.
	CreatedAt int64
}

// Item represents a single line item on a bill.
type Item struct {
	ID    string
	Name  string
	Price decimal.Decimal

	// IsShared splits the item across every bill participant.
	IsShared bool

	// Participants is the list of user IDs who split this item when it is
	// not shared. An empty list is treated as shared.
	Participants []string
}
