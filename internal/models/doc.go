// Package models defines the core domain models for the bill-splitting backend.
//
// # Models
//
//   - Bill: a finalized charge event with items, participants, a payer and a tip
//   - Item: a line item on a bill, shared by everyone or by a subset
//   - Debt: one directed obligation produced when a bill is settled
//   - Session: a collaborative tab that participants add items to before it
//     is finalized into a Bill
//
// Participants are identified by opaque user ID strings.
//
// # Design Principles
//
//  1. Money is decimal.Decimal, never float64
//  2. Relationships use ID strings instead of pointers
//  3. Debts are computed by the calculator package and only stored here
package models
